// Package form keeps the editable state of the quote being worked on and maps
// it to and from models.QuoteRecord.
//
// Values are held as raw strings, exactly as typed, so a half-entered amount
// never fails: conversion happens in Capture, where invalid numbers become 0.
// A Form is not safe for concurrent use; its owner serialises access.
package form

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/diewo77/go-devis/internal/clock"
	"github.com/diewo77/go-devis/internal/format"
	"github.com/diewo77/go-devis/internal/models"
	"github.com/diewo77/go-devis/validation"
)

var (
	ErrUnknownField = errors.New("unknown form field")
	ErrLineIndex    = errors.New("line index out of range")
)

// Field names an editable input. Names match the record's JSON keys.
type Field string

const (
	Title            Field = "titre"
	Address          Field = "adresse"
	PresentationText Field = "textePresentation"
	AccessInfo       Field = "informationsAcces"
	ClientName       Field = "nomClient"
	ClientEmail      Field = "emailClient"
	ClientPhone      Field = "telephoneClient"
	ClientCompany    Field = "entrepriseClient"
	EventDate        Field = "dateEvenement"
	NumberOfGuests   Field = "nbPersonnes"
	EventType        Field = "typeEvenement"
	Notes            Field = "notes"
)

// Fields lists every editable input in display order.
var Fields = []Field{
	Title, Address, PresentationText, AccessInfo,
	ClientName, ClientEmail, ClientPhone, ClientCompany,
	EventDate, NumberOfGuests, EventType, Notes,
}

func (f Field) valid() bool {
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

// Line is one editable prestation row.
type Line struct {
	Description string `json:"description"`
	Quantity    string `json:"quantite"`
	UnitPrice   string `json:"prixUnitaire"`
}

// DefaultLine is the row shown on a blank quote.
func DefaultLine() Line {
	return Line{Quantity: "1", UnitPrice: "0"}
}

// DisplayTotals are the totals as printed next to the form.
type DisplayTotals struct {
	SubtotalExclTax string `json:"totalHT"`
	Tax             string `json:"totalTVA"`
	TotalInclTax    string `json:"totalTTC"`
}

type Form struct {
	clock  clock.Clock
	id     uint
	values map[Field]string
	lines  []Line
	dirty  bool
}

// New returns a blank form with one default row.
func New(clk clock.Clock) *Form {
	if clk == nil {
		clk = clock.Real()
	}
	f := &Form{clock: clk}
	f.Reset()
	return f
}

// Reset blanks every field, leaves a single default row, forgets the record
// id and clears the dirty flag.
func (f *Form) Reset() {
	f.id = 0
	f.values = make(map[Field]string, len(Fields))
	f.lines = []Line{DefaultLine()}
	f.dirty = false
}

// Set changes one field. Setting a field to its current value is not a change.
func (f *Form) Set(field Field, value string) error {
	if !field.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if f.values[field] != value {
		f.values[field] = value
		f.dirty = true
	}
	return nil
}

func (f *Form) Get(field Field) string { return f.values[field] }

// Values returns a copy of every field, including empty ones.
func (f *Form) Values() map[Field]string {
	out := make(map[Field]string, len(Fields))
	for _, field := range Fields {
		out[field] = f.values[field]
	}
	return out
}

// AddLine appends a default row and returns its index.
func (f *Form) AddLine() int {
	f.lines = append(f.lines, DefaultLine())
	f.dirty = true
	return len(f.lines) - 1
}

func (f *Form) SetLine(i int, description, quantity, unitPrice string) error {
	if i < 0 || i >= len(f.lines) {
		return fmt.Errorf("%w: %d", ErrLineIndex, i)
	}
	next := Line{Description: description, Quantity: quantity, UnitPrice: unitPrice}
	if f.lines[i] != next {
		f.lines[i] = next
		f.dirty = true
	}
	return nil
}

// RemoveLine deletes row i. The form may end up with no rows.
func (f *Form) RemoveLine(i int) error {
	if i < 0 || i >= len(f.lines) {
		return fmt.Errorf("%w: %d", ErrLineIndex, i)
	}
	f.lines = append(f.lines[:i], f.lines[i+1:]...)
	f.dirty = true
	return nil
}

func (f *Form) Lines() []Line {
	out := make([]Line, len(f.lines))
	copy(out, f.lines)
	return out
}

// Totals recomputes HT, TVA and TTC from the current rows.
func (f *Form) Totals() models.Totals {
	return models.ComputeTotals(f.captureLines())
}

func (f *Form) DisplayTotals() DisplayTotals {
	t := f.Totals()
	return DisplayTotals{
		SubtotalExclTax: format.Price(t.SubtotalExclTax),
		Tax:             format.Price(t.Tax),
		TotalInclTax:    format.Price(t.TotalInclTax),
	}
}

func (f *Form) Dirty() bool { return f.dirty }
func (f *Form) MarkClean()  { f.dirty = false }
func (f *Form) MarkDirty()  { f.dirty = true }

// ID is the id of the stored record the form was loaded from or saved to, 0
// for a quote never saved.
func (f *Form) ID() uint      { return f.id }
func (f *Form) SetID(id uint) { f.id = id }

// Capture builds a record from the current state. Text is sanitised, numbers
// fall back to 0 and every row is kept in order.
func (f *Form) Capture() models.QuoteRecord {
	text := func(field Field) string { return validation.Sanitize(f.values[field]) }
	return models.QuoteRecord{
		ID:               f.id,
		Timestamp:        f.clock.Now(),
		Title:            text(Title),
		Address:          text(Address),
		PresentationText: text(PresentationText),
		AccessInfo:       text(AccessInfo),
		ClientName:       text(ClientName),
		ClientEmail:      text(ClientEmail),
		ClientPhone:      text(ClientPhone),
		ClientCompany:    text(ClientCompany),
		EventDate:        text(EventDate),
		NumberOfGuests:   ParseCount(f.values[NumberOfGuests]),
		EventType:        text(EventType),
		Lines:            f.captureLines(),
		Notes:            text(Notes),
	}
}

func (f *Form) captureLines() []models.PrestationLine {
	lines := make([]models.PrestationLine, 0, len(f.lines))
	for _, l := range f.lines {
		lines = append(lines, models.PrestationLine{
			Description: validation.Sanitize(l.Description),
			Quantity:    ParseAmount(l.Quantity),
			UnitPrice:   ParseAmount(l.UnitPrice),
		})
	}
	return lines
}

// Apply replaces the whole state with rec and clears the dirty flag. Rows from
// a previous record never survive; a record without lines gets one default row.
func (f *Form) Apply(rec models.QuoteRecord) {
	f.id = rec.ID
	f.values = map[Field]string{
		Title:            rec.Title,
		Address:          rec.Address,
		PresentationText: rec.PresentationText,
		AccessInfo:       rec.AccessInfo,
		ClientName:       rec.ClientName,
		ClientEmail:      rec.ClientEmail,
		ClientPhone:      rec.ClientPhone,
		ClientCompany:    rec.ClientCompany,
		EventDate:        rec.EventDate,
		NumberOfGuests:   formatCount(rec.NumberOfGuests),
		EventType:        rec.EventType,
		Notes:            rec.Notes,
	}
	f.lines = make([]Line, 0, len(rec.Lines))
	for _, l := range rec.Lines {
		f.lines = append(f.lines, Line{
			Description: l.Description,
			Quantity:    formatAmount(l.Quantity),
			UnitPrice:   formatAmount(l.UnitPrice),
		})
	}
	if len(f.lines) == 0 {
		f.lines = append(f.lines, DefaultLine())
	}
	f.dirty = false
}

// ParseAmount reads a quantity or price as typed. A comma is accepted as the
// decimal separator and spaces are ignored; invalid, negative or non-finite
// input yields 0.
func ParseAmount(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ParseCount reads a head count; fractions are truncated and values beyond
// the int range saturate at math.MaxInt.
func ParseCount(s string) int {
	if n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s), " ", "")); err == nil {
		return max(n, 0)
	}
	v := ParseAmount(s)
	if v >= float64(math.MaxInt) {
		return math.MaxInt
	}
	return int(v)
}

func formatAmount(v float64) string {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatCount(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}
