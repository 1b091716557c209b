// Package render turns a stored invoice snapshot into a document.
package render

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/xraph/docket/invoice"
)

// ContentTypePDF is the media type produced by PDF.
const ContentTypePDF = "application/pdf"

// Renderer produces a document from an invoice. Output must depend only
// on the invoice value.
type Renderer interface {
	Render(inv *invoice.Invoice) ([]byte, error)
	ContentType() string
}

// Firm is the letterhead printed on every invoice.
type Firm struct {
	Name    string
	Address string
	Email   string
	Phone   string
}

// PDF renders A4 invoices with gofpdf core fonts. The document dates are
// pinned to the invoice creation time and the catalog is sorted, so the
// same snapshot always renders to the same bytes.
type PDF struct {
	firm Firm
}

// NewPDF creates a renderer with the given letterhead.
func NewPDF(firm Firm) *PDF { return &PDF{firm: firm} }

// ContentType implements Renderer.
func (p *PDF) ContentType() string { return ContentTypePDF }

// Render implements Renderer.
func (p *PDF) Render(inv *invoice.Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(inv.CreatedAt)
	pdf.SetModificationDate(inv.CreatedAt)
	pdf.SetTitle(inv.DisplayNumber(), true)
	pdf.SetCreator("docket", true)
	if p.firm.Name != "" {
		pdf.SetAuthor(p.firm.Name, true)
	}

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	p.header(pdf, tr, inv)
	billTo(pdf, tr, inv)
	lineItems(pdf, tr, inv)
	totals(pdf, tr, inv)

	if inv.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(40, 6, "Notes")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(190, 5, tr(inv.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render: pdf %s: %w", inv.DisplayNumber(), err)
	}
	return buf.Bytes(), nil
}

func (p *PDF) header(pdf *gofpdf.Fpdf, tr func(string) string, inv *invoice.Invoice) {
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(120, 10, tr(p.firm.Name))
	pdf.CellFormat(70, 10, "INVOICE", "", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, line := range []string{p.firm.Address, p.firm.Email, p.firm.Phone} {
		if line != "" {
			pdf.Cell(120, 5, tr(line))
			pdf.Ln(5)
		}
	}
	pdf.Ln(4)

	meta := [][2]string{
		{"Invoice number", inv.DisplayNumber()},
		{"Issued", inv.CreatedAt.Format("2 January 2006")},
		{"Due", inv.DueDate.Format("2 January 2006")},
		{"Status", string(inv.Status)},
	}
	for _, kv := range meta {
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(40, 6, kv[0])
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(80, 6, tr(kv[1]))
		pdf.Ln(6)
	}
	pdf.Ln(4)
}

func billTo(pdf *gofpdf.Fpdf, tr func(string) string, inv *invoice.Invoice) {
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(95, 8, "Bill To:")
	pdf.Cell(95, 8, "Matter:")
	pdf.Ln(8)

	top := pdf.GetY()
	pdf.SetFont("Arial", "", 11)
	for _, line := range []string{inv.BillTo.ClientName, inv.BillTo.ClientAddress, inv.BillTo.ClientEmail, inv.BillTo.ClientPhone} {
		if line != "" {
			pdf.Cell(95, 6, tr(line))
			pdf.Ln(6)
		}
	}
	leftEnd := pdf.GetY()

	pdf.SetXY(105, top)
	pdf.Cell(85, 6, tr(inv.BillTo.MatterTitle))
	rightEnd := top + 6
	if inv.BillTo.MatterReference != "" {
		pdf.SetXY(105, rightEnd)
		pdf.Cell(85, 6, tr("Ref: "+inv.BillTo.MatterReference))
		rightEnd += 6
	}

	pdf.SetXY(10, max(leftEnd, rightEnd))
	pdf.Ln(8)
}

func lineItems(pdf *gofpdf.Fpdf, tr func(string) string, inv *invoice.Invoice) {
	widths := []float64{25, 85, 20, 30, 30}
	pdf.SetFont("Arial", "B", 10)
	for i, h := range []string{"Date", "Description", "Hours", "Rate", "Amount"} {
		align := "L"
		if i >= 2 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 7, h, "B", 0, align, false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, li := range inv.LineItems {
		date, hours, rate := "", "", ""
		if li.Type == invoice.LineItemTime {
			date = li.EntryDate.Format("2006-01-02")
			hours = fmt.Sprintf("%d:%02d", li.DurationMinutes/60, li.DurationMinutes%60)
			if li.Rate != nil {
				rate = li.Rate.String()
			}
		}
		pdf.CellFormat(widths[0], 6, date, "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, tr(truncate(li.Description, 60)), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, hours, "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, tr(rate), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, tr(li.Amount.String()), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)
}

func totals(pdf *gofpdf.Fpdf, tr func(string) string, inv *invoice.Invoice) {
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(160, 7, "Subtotal:")
	pdf.CellFormat(30, 7, tr(inv.Subtotal.String()), "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(160, 8, "Total due:")
	pdf.CellFormat(30, 8, tr(inv.Total.String()), "T", 1, "R", false, 0, "")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
