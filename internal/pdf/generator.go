// Package pdf renders a quote as a printable document.
package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/diewo77/go-devis/internal/clock"
	"github.com/diewo77/go-devis/internal/format"
	"github.com/diewo77/go-devis/internal/models"
	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/unicode/norm"
)

// Company is printed in the header band.
type Company struct {
	Name    string
	Tagline string
}

const margin = 20.0

var (
	primary   = [3]int{44, 62, 80}
	secondary = [3]int{52, 152, 219}
	text      = [3]int{50, 50, 50}
	lightGray = [3]int{240, 240, 240}
)

// GoFPDF draws quotes with gofpdf's core Helvetica font.
type GoFPDF struct {
	company Company
	clock   clock.Clock
}

func New(company Company, clk clock.Clock) *GoFPDF {
	if clk == nil {
		clk = clock.Real()
	}
	return &GoFPDF{company: company, clock: clk}
}

// Number derives the document number from the issue time.
func Number(t time.Time) string {
	ms := strconv.FormatInt(t.UnixMilli(), 10)
	if len(ms) > 8 {
		ms = ms[len(ms)-8:]
	}
	return "DEV-" + ms
}

func (g *GoFPDF) Generate(rec models.QuoteRecord, totals models.Totals) ([]byte, error) {
	now := g.clock.Now()
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	t := func(s string) string { return tr(format.CleanText(s)) }

	pdf.SetTitle("Devis "+rec.Title, true)
	pdf.SetCreator(g.company.Name, true)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, 25)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 5, t(fmt.Sprintf("%s - Page %d/{nb}", g.company.Name, pdf.PageNo())), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*margin

	// Header band
	setFill(pdf, primary)
	pdf.Rect(0, 0, pageW, 40, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.Text(margin, 25, "DEVIS")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(margin, 11)
	pdf.CellFormat(contentW, 6, t(g.company.Name), "", 2, "R", false, 0, "")
	pdf.CellFormat(contentW, 6, t(g.company.Tagline), "", 0, "R", false, 0, "")

	// Number and date
	pdf.SetXY(margin, 48)
	setText(pdf, text)
	pdf.CellFormat(contentW/2, 6, t("N° "+Number(now)), "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 6, t("Date : "+now.Format("02/01/2006")), "", 1, "R", false, 0, "")
	pdf.Ln(6)

	// Client block
	clientLines := []string{rec.ClientName}
	for _, s := range []string{rec.ClientCompany, rec.ClientEmail, format.Phone(rec.ClientPhone)} {
		if strings.TrimSpace(s) != "" {
			clientLines = append(clientLines, s)
		}
	}
	y := pdf.GetY()
	setFill(pdf, lightGray)
	pdf.Rect(margin, y, contentW, float64(10+5*len(clientLines)), "F")
	pdf.SetXY(margin+5, y+3)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW-10, 6, "CLIENT", "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, l := range clientLines {
		pdf.CellFormat(contentW-10, 5, t(l), "", 2, "L", false, 0, "")
	}
	pdf.SetXY(margin, y+float64(10+5*len(clientLines))+6)

	// Venue
	if rec.Title != "" || rec.Address != "" {
		g.sectionBar(pdf, t("LIEU DE L'ÉVÉNEMENT"), contentW)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(contentW, 6, t(rec.Title), "", "L", false)
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(contentW, 5, t(rec.Address), "", "L", false)
		pdf.Ln(3)
	}
	if rec.PresentationText != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(contentW, 5, t(rec.PresentationText), "", "J", false)
		pdf.Ln(4)
	}

	if details := eventDetails(rec); details != "" {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(contentW, 5, t(details), "", "L", false)
		pdf.Ln(4)
	}

	g.linesTable(pdf, t, rec.Lines, contentW)
	g.totalsBlock(pdf, t, totals, pageW)

	if rec.AccessInfo != "" {
		g.sectionBar(pdf, t("INFORMATIONS D'ACCÈS"), contentW)
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(contentW, 5, t(rec.AccessInfo), "", "L", false)
		pdf.Ln(4)
	}
	if rec.Notes != "" {
		g.sectionBar(pdf, "NOTES", contentW)
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(contentW, 5, t(rec.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *GoFPDF) sectionBar(pdf *gofpdf.Fpdf, title string, w float64) {
	setFill(pdf, secondary)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(w, 8, "  "+title, "", 1, "L", true, 0, "")
	setText(pdf, text)
	pdf.Ln(3)
}

func (g *GoFPDF) linesTable(pdf *gofpdf.Fpdf, t func(string) string, lines []models.PrestationLine, w float64) {
	if len(lines) == 0 {
		return
	}
	cols := []float64{w - 25 - 35 - 35, 25, 35, 35}
	heads := []string{"Description", "Qté", "Prix Unit. HT", "Total HT"}

	setFill(pdf, primary)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range heads {
		pdf.CellFormat(cols[i], 8, t(h), "", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	setText(pdf, text)
	pdf.SetFont("Helvetica", "", 9)
	for i, l := range lines {
		fill := i%2 == 1
		setFill(pdf, lightGray)
		pdf.CellFormat(cols[0], 7, t(truncate(l.Description, 60)), "", 0, "L", fill, 0, "")
		pdf.CellFormat(cols[1], 7, strconv.FormatFloat(l.Quantity, 'f', -1, 64), "", 0, "C", fill, 0, "")
		pdf.CellFormat(cols[2], 7, t(format.PriceFloat(l.UnitPrice)), "", 0, "R", fill, 0, "")
		pdf.CellFormat(cols[3], 7, t(format.Price(l.LineTotal())), "", 1, "R", fill, 0, "")
	}
	pdf.Ln(6)
}

func (g *GoFPDF) totalsBlock(pdf *gofpdf.Fpdf, t func(string) string, totals models.Totals, pageW float64) {
	x := pageW - margin - 75
	row := func(label, value string, h float64, fill bool) {
		pdf.SetX(x)
		pdf.CellFormat(40, h, t(label), "", 0, "L", fill, 0, "")
		pdf.CellFormat(35, h, t(value), "", 1, "R", fill, 0, "")
	}
	setText(pdf, text)
	pdf.SetFont("Helvetica", "", 10)
	row("Sous-total HT :", format.Price(totals.SubtotalExclTax), 6, false)
	row("TVA (20%) :", format.Price(totals.Tax), 6, false)
	pdf.Ln(2)
	setFill(pdf, lightGray)
	pdf.SetFont("Helvetica", "B", 12)
	row("Total TTC :", format.Price(totals.TotalInclTax), 10, true)
	pdf.Ln(8)
}

// Filename suggests a download name: devis-<client>-<yyyy-mm-dd>.pdf.
func (g *GoFPDF) Filename(rec models.QuoteRecord) string {
	return Filename(rec, g.clock.Now())
}

func Filename(rec models.QuoteRecord, now time.Time) string {
	name := slug(rec.ClientName)
	if name == "" {
		name = "client"
	}
	return fmt.Sprintf("devis-%s-%s.pdf", name, now.Format("2006-01-02"))
}

// slug keeps ASCII letters and digits, drops accents and joins words with '-'.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFD.String(strings.ToLower(s)) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// eventDate prints an ISO date as dd/mm/yyyy and anything else unchanged.
// eventDetails is the one-line summary printed under the presentation.
func eventDetails(rec models.QuoteRecord) string {
	var details []string
	if rec.EventDate != "" {
		details = append(details, "Date : "+eventDate(rec.EventDate))
	}
	if rec.NumberOfGuests > 0 {
		details = append(details, fmt.Sprintf("Participants : %d personnes", rec.NumberOfGuests))
	}
	if rec.EventType != "" {
		details = append(details, "Type : "+format.Capitalize(rec.EventType))
	}
	return strings.Join(details, " | ")
}

func eventDate(s string) string {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return d.Format("02/01/2006")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func setFill(pdf *gofpdf.Fpdf, c [3]int) { pdf.SetFillColor(c[0], c[1], c[2]) }
func setText(pdf *gofpdf.Fpdf, c [3]int) { pdf.SetTextColor(c[0], c[1], c[2]) }
