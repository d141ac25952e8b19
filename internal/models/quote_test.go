package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPrestationLine_LineTotal(t *testing.T) {
	tests := []struct {
		name string
		line PrestationLine
		want string
	}{
		{"whole units", PrestationLine{Quantity: 2, UnitPrice: 100}, "200"},
		{"cents", PrestationLine{Quantity: 3, UnitPrice: 0.1}, "0.3"},
		{"zero quantity", PrestationLine{Quantity: 0, UnitPrice: 99}, "0"},
		{"fractional quantity", PrestationLine{Quantity: 1.5, UnitPrice: 40}, "60"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.line.LineTotal(); !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("LineTotal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestQuoteRecord_Totals(t *testing.T) {
	rec := QuoteRecord{Lines: []PrestationLine{
		{Description: "Salle", Quantity: 2, UnitPrice: 100},
		{Description: "Traiteur", Quantity: 1, UnitPrice: 50},
	}}
	got := rec.Totals()
	want := map[string]decimal.Decimal{
		"HT":  decimal.NewFromInt(250),
		"TVA": decimal.NewFromInt(50),
		"TTC": decimal.NewFromInt(300),
	}
	for label, v := range map[string]decimal.Decimal{"HT": got.SubtotalExclTax, "TVA": got.Tax, "TTC": got.TotalInclTax} {
		if !v.Equal(want[label]) {
			t.Errorf("%s = %s, want %s", label, v, want[label])
		}
	}

	empty := QuoteRecord{}.Totals()
	if !empty.TotalInclTax.IsZero() {
		t.Errorf("empty quote TTC = %s", empty.TotalInclTax)
	}
}

func TestQuoteRecord_TotalsNotSerialized(t *testing.T) {
	b, err := json.Marshal(QuoteRecord{Title: "Mariage", Lines: []PrestationLine{{Quantity: 1, UnitPrice: 10}}})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"totalHT", "totalTVA", "totalTTC"} {
		if _, ok := m[k]; ok {
			t.Errorf("record JSON carries %q", k)
		}
	}
	if m["titre"] != "Mariage" {
		t.Errorf("titre = %v", m["titre"])
	}
}

func TestQuoteRecord_CloneDoesNotShareLines(t *testing.T) {
	rec := QuoteRecord{Lines: []PrestationLine{{Description: "a"}}}
	c := rec.Clone()
	c.Lines[0].Description = "b"
	if rec.Lines[0].Description != "a" {
		t.Error("clone shares its lines with the original")
	}
}

func TestEnvelope_Record(t *testing.T) {
	ts := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	env := NewEnvelope(7, ts, QuoteRecord{ID: 99, ClientName: "Dupont", Title: "Mariage"})
	if env.ClientName != "Dupont" || env.Title != "Mariage" {
		t.Fatalf("index columns = %q / %q", env.ClientName, env.Title)
	}
	rec := env.Record()
	if rec.ID != 7 || !rec.Timestamp.Equal(ts) {
		t.Errorf("Record() id/timestamp = %d / %v", rec.ID, rec.Timestamp)
	}
	if env.TableName() != "quotes" {
		t.Errorf("TableName() = %q", env.TableName())
	}
}

func TestSortByRecency(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	envs := []Envelope{
		{ID: 1, Timestamp: t0},
		{ID: 2, Timestamp: t0.Add(time.Hour)},
		{ID: 3, Timestamp: t0},
	}
	SortByRecency(envs)
	var got []uint
	for _, e := range envs {
		got = append(got, e.ID)
	}
	want := []uint{2, 3, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
