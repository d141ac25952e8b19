package services

import (
	"errors"
	"sort"
	"strings"

	"github.com/diewo77/go-devis/internal/form"
	"github.com/diewo77/go-devis/validation"
)

var (
	ErrValidation = errors.New("validation failed")
	// ErrUnsavedChanges blocks new/load while the form holds unsaved edits,
	// unless the caller confirms the discard.
	ErrUnsavedChanges = errors.New("unsaved changes")
	// ErrConfirmationRequired is returned by Clear when not confirmed.
	ErrConfirmationRequired = errors.New("confirmation required")
	// ErrSessionChanged means the form was reset or reloaded while a
	// generation request was in flight; its result was discarded.
	ErrSessionChanged = errors.New("form changed during request")
)

// ValidationError lists the fields that block an operation.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for f, code := range e.Violations {
		fields = append(fields, f+": "+code)
	}
	sort.Strings(fields)
	return ErrValidation.Error() + ": " + strings.Join(fields, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Message is the message code shown for the whole rejection: the missing
// client or title first, then the first malformed contact field.
func (e *ValidationError) Message() string {
	for _, f := range []form.Field{form.ClientName, form.Title, form.ClientEmail, form.ClientPhone} {
		if code, ok := e.Violations[string(f)]; ok {
			if code == "required" {
				return "missing_client_title"
			}
			return code
		}
	}
	return ErrValidation.Error()
}
