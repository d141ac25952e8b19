package form

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/diewo77/go-devis/internal/clock"
	"github.com/diewo77/go-devis/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestForm() (*Form, *clock.FakeClock) {
	clk := clock.NewFakeClock(time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC))
	return New(clk), clk
}

func fullRecord() models.QuoteRecord {
	return models.QuoteRecord{
		ID:               12,
		Title:            "Château de Vaux",
		Address:          "1 Rue Y, 77950 Maincy",
		PresentationText: "Un domaine d'exception.\nIdéal pour les réceptions.",
		AccessInfo:       "Parking sur place",
		ClientName:       "Jeanne Martin",
		ClientEmail:      "jeanne@example.fr",
		ClientPhone:      "06 12 34 56 78",
		ClientCompany:    "Martin & Fils",
		EventDate:        "2024-09-21",
		NumberOfGuests:   120,
		EventType:        "mariage",
		Lines: []models.PrestationLine{
			{Description: "Location", Quantity: 1, UnitPrice: 4500},
			{Description: "Cocktail", Quantity: 120, UnitPrice: 12.75},
			{Description: "Gratuit", Quantity: 0, UnitPrice: 0},
		},
		Notes: "Acompte 30%",
	}
}

func TestNewFormHasOneDefaultLine(t *testing.T) {
	f, _ := newTestForm()
	assert.Equal(t, []Line{DefaultLine()}, f.Lines())
	assert.False(t, f.Dirty())
	assert.Zero(t, f.ID())

	rec := f.Capture()
	require.Len(t, rec.Lines, 1)
	assert.Equal(t, models.PrestationLine{Quantity: 1, UnitPrice: 0}, rec.Lines[0])
}

func TestApplyCaptureRoundTrip(t *testing.T) {
	records := []models.QuoteRecord{
		fullRecord(),
		{Title: "Minimal", ClientName: "X", Lines: []models.PrestationLine{{Description: "a", Quantity: 2.5, UnitPrice: 0.1}}},
		{ClientName: "Sans invités", NumberOfGuests: 0, Lines: []models.PrestationLine{{Quantity: 3, UnitPrice: 1e6}}},
		{Title: "Stade", ClientName: "Ligue", NumberOfGuests: 3_000_000_000, Lines: []models.PrestationLine{{Quantity: 1, UnitPrice: 1}}},
	}
	for _, want := range records {
		t.Run(want.Title, func(t *testing.T) {
			f, clk := newTestForm()
			f.Apply(want)
			clk.Advance(time.Minute)

			got := f.Capture()
			assert.True(t, got.Timestamp.Equal(clk.Now()))
			got.Timestamp = want.Timestamp
			assert.Equal(t, want, got)
			assert.False(t, f.Dirty())
		})
	}
}

func TestApplyReplacesLines(t *testing.T) {
	f, _ := newTestForm()
	f.Apply(fullRecord())
	require.Len(t, f.Lines(), 3)

	f.Apply(models.QuoteRecord{Title: "Autre", Lines: []models.PrestationLine{{Description: "seule", Quantity: 1, UnitPrice: 10}}})
	lines := f.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "seule", lines[0].Description)
	assert.Empty(t, f.Get(ClientName))
	assert.Empty(t, f.Get(NumberOfGuests))

	f.Apply(models.QuoteRecord{})
	assert.Equal(t, []Line{DefaultLine()}, f.Lines())
}

func TestDirtyTracking(t *testing.T) {
	f, _ := newTestForm()
	f.Apply(fullRecord())
	assert.False(t, f.Dirty())

	require.NoError(t, f.Set(Title, "Château de Vaux"))
	assert.False(t, f.Dirty(), "same value is not a change")

	require.NoError(t, f.Set(Title, "Château de Versailles"))
	assert.True(t, f.Dirty())

	f.MarkClean()
	f.AddLine()
	assert.True(t, f.Dirty())

	f.MarkClean()
	require.NoError(t, f.SetLine(0, "Location", "2", "4500"))
	assert.True(t, f.Dirty())

	f.MarkClean()
	require.NoError(t, f.RemoveLine(1))
	assert.True(t, f.Dirty())

	f.Reset()
	assert.False(t, f.Dirty())
}

func TestSetUnknownField(t *testing.T) {
	f, _ := newTestForm()
	err := f.Set("prixTotal", "1")
	assert.True(t, errors.Is(err, ErrUnknownField))
	assert.False(t, f.Dirty())
}

func TestLineIndexBounds(t *testing.T) {
	f, _ := newTestForm()
	assert.ErrorIs(t, f.SetLine(3, "", "", ""), ErrLineIndex)
	assert.ErrorIs(t, f.RemoveLine(-1), ErrLineIndex)

	require.NoError(t, f.RemoveLine(0))
	assert.Empty(t, f.Lines())
	assert.Empty(t, f.Capture().Lines)
}

func TestTotals(t *testing.T) {
	f, _ := newTestForm()
	require.NoError(t, f.SetLine(0, "Salle", "2", "100"))
	i := f.AddLine()
	require.NoError(t, f.SetLine(i, "Vin", "1", "50"))

	totals := f.Totals()
	assert.Equal(t, "250", totals.SubtotalExclTax.String())
	assert.Equal(t, "50.00", totals.Tax.StringFixed(2))
	assert.Equal(t, "300.00", totals.TotalInclTax.StringFixed(2))

	assert.Equal(t, DisplayTotals{
		SubtotalExclTax: "250,00 €",
		Tax:             "50,00 €",
		TotalInclTax:    "300,00 €",
	}, f.DisplayTotals())
}

func TestCaptureSanitizesAndParses(t *testing.T) {
	f, _ := newTestForm()
	require.NoError(t, f.Set(Title, "  <b>Gala</b>  "))
	require.NoError(t, f.Set(NumberOfGuests, "beaucoup"))
	require.NoError(t, f.SetLine(0, "Animation", "abc", "1 250,50"))

	rec := f.Capture()
	assert.Equal(t, "bGala/b", rec.Title)
	assert.Zero(t, rec.NumberOfGuests)
	assert.Zero(t, rec.Lines[0].Quantity)
	assert.Equal(t, 1250.5, rec.Lines[0].UnitPrice)
}

func TestParseAmount(t *testing.T) {
	tests := map[string]float64{
		"":       0,
		"12":     12,
		"12,5":   12.5,
		" 3.25 ": 3.25,
		"-4":     0,
		"NaN":    0,
		"Inf":    0,
		"1e3":    1000,
		"x":      0,
	}
	for in, want := range tests {
		if got := ParseAmount(in); got != want {
			t.Errorf("ParseAmount(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"12", 12},
		{"12.9", 12},
		{"12,9", 12},
		{" 1 200 ", 1200},
		{"-3", 0},
		{"x", 0},
		{"3000000000", 3_000_000_000},
		{"9223372036854775807", math.MaxInt},
		{"1e30", math.MaxInt},
	}
	for _, tt := range tests {
		if got := ParseCount(tt.in); got != tt.want {
			t.Errorf("ParseCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
