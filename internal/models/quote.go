package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TaxRate is the flat VAT rate applied to every quote (TVA 20%).
var TaxRate = decimal.NewFromFloat(0.20)

// PrestationLine is a single billable service on a quote.
type PrestationLine struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantite"`
	UnitPrice   float64 `json:"prixUnitaire"`
}

// LineTotal returns quantity × unit price.
func (l PrestationLine) LineTotal() decimal.Decimal {
	return decimal.NewFromFloat(l.Quantity).Mul(decimal.NewFromFloat(l.UnitPrice))
}

// QuoteRecord is the canonical representation of a quote.
// Totals are derived from Lines on every call and never stored.
type QuoteRecord struct {
	ID        uint      `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	Title            string `json:"titre"`
	Address          string `json:"adresse"`
	PresentationText string `json:"textePresentation"`
	AccessInfo       string `json:"informationsAcces"`

	ClientName    string `json:"nomClient"`
	ClientEmail   string `json:"emailClient"`
	ClientPhone   string `json:"telephoneClient"`
	ClientCompany string `json:"entrepriseClient"`

	EventDate      string `json:"dateEvenement"`
	NumberOfGuests int    `json:"nbPersonnes"`
	EventType      string `json:"typeEvenement"`

	Lines []PrestationLine `json:"prestations"`
	Notes string           `json:"notes"`
}

// Totals holds the derived HT / TVA / TTC amounts of a quote.
type Totals struct {
	SubtotalExclTax decimal.Decimal `json:"totalHT"`
	Tax             decimal.Decimal `json:"totalTVA"`
	TotalInclTax    decimal.Decimal `json:"totalTTC"`
}

// ComputeTotals sums the lines in order and applies TaxRate.
func ComputeTotals(lines []PrestationLine) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal())
	}
	tax := subtotal.Mul(TaxRate)
	return Totals{
		SubtotalExclTax: subtotal,
		Tax:             tax,
		TotalInclTax:    subtotal.Add(tax),
	}
}

// Totals calculates HT, TVA and TTC for the record.
func (q QuoteRecord) Totals() Totals {
	return ComputeTotals(q.Lines)
}

// Clone returns a deep copy so callers never share the Lines backing array.
func (q QuoteRecord) Clone() QuoteRecord {
	out := q
	if q.Lines != nil {
		out.Lines = make([]PrestationLine, len(q.Lines))
		copy(out.Lines, q.Lines)
	}
	return out
}

// Envelope is the unit of storage in the "quotes" collection.
// ClientName and Title duplicate data fields so they can be indexed.
type Envelope struct {
	ID         uint                            `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp  time.Time                       `gorm:"index:idx_quotes_timestamp;not null" json:"timestamp"`
	ClientName string                          `gorm:"index:idx_quotes_client_name;size:255" json:"-"`
	Title      string                          `gorm:"index:idx_quotes_title;size:255" json:"-"`
	Data       datatypes.JSONType[QuoteRecord] `gorm:"not null" json:"data"`
}

// TableName pins the collection name.
func (Envelope) TableName() string { return "quotes" }

// NewEnvelope wraps a record for storage. The record's own id and timestamp are
// overwritten by the envelope's when read back.
func NewEnvelope(id uint, ts time.Time, rec QuoteRecord) Envelope {
	data := rec.Clone()
	data.ID = id
	data.Timestamp = ts
	return Envelope{
		ID:         id,
		Timestamp:  ts,
		ClientName: rec.ClientName,
		Title:      rec.Title,
		Data:       datatypes.NewJSONType(data),
	}
}

// Record returns the stored quote with id and timestamp taken from the envelope.
func (e Envelope) Record() QuoteRecord {
	rec := e.Data.Data().Clone()
	rec.ID = e.ID
	rec.Timestamp = e.Timestamp
	return rec
}

// SortByRecency orders envelopes by timestamp descending, newest id first on ties.
func SortByRecency(envs []Envelope) {
	sort.SliceStable(envs, func(i, j int) bool {
		if envs[i].Timestamp.Equal(envs[j].Timestamp) {
			return envs[i].ID > envs[j].ID
		}
		return envs[i].Timestamp.After(envs[j].Timestamp)
	})
}
