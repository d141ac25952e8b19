package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/go-devis/httpx"
	"github.com/diewo77/go-devis/i18n"
	"github.com/diewo77/go-devis/internal/ai"
	"github.com/diewo77/go-devis/internal/db"
	"github.com/diewo77/go-devis/internal/form"
	"github.com/diewo77/go-devis/internal/services"
	"go.uber.org/zap"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Order matters: the first target err matches wins.
var errorMappings = []errorMapping{
	{ai.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument", "missing_title_addr"},
	{form.ErrUnknownField, http.StatusBadRequest, "unknown_field", "unknown_field"},
	{form.ErrLineIndex, http.StatusBadRequest, "line_index", "line_index"},
	{db.ErrNotFound, http.StatusNotFound, "not_found", "quote_not_found"},
	{services.ErrUnsavedChanges, http.StatusConflict, "unsaved_changes", "unsaved_changes"},
	{services.ErrConfirmationRequired, http.StatusConflict, "confirmation_required", "confirm_clear"},
	{services.ErrSessionChanged, http.StatusConflict, "session_changed", "session_changed"},
	{db.ErrStorageUnavailable, http.StatusServiceUnavailable, "storage_unavailable", "storage_unavailable"},
	{ai.ErrGenerationUnavailable, http.StatusBadGateway, "generation_unavailable", "generation_failed"},
	{db.ErrWrite, http.StatusInternalServerError, "write_failed", "save_failed"},
}

// writeError maps a service error to its HTTP status and a localized message.
func (h *QuoteHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	lang := h.language(r)

	var verr *services.ValidationError
	if errors.As(err, &verr) {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			i18n.T(lang, verr.Message()), i18n.Translate(lang, verr.Violations))
		return
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.status >= http.StatusInternalServerError {
				h.log.Error("request failed", zap.String("request_id", httpx.RequestID(r.Context())), zap.Error(err))
			}
			httpx.JSONError(w, m.status, m.code, i18n.T(lang, m.message), err.Error())
			return
		}
	}
	h.log.Error("request failed", zap.String("request_id", httpx.RequestID(r.Context())), zap.Error(err))
	httpx.JSONError(w, http.StatusInternalServerError, "internal_error", i18n.T(lang, "internal_error"), nil)
}

func (h *QuoteHandler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	httpx.JSONError(w, http.StatusBadRequest, "invalid_request", i18n.T(h.language(r), "invalid_request"), err.Error())
}
