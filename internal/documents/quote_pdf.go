package documents

import (
	"bytes"
	"fmt"

	"go-sales-crm/internal/models"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

// QuoteOptions control the parts of the PDF that do not come from the quote.
type QuoteOptions struct {
	CompanyName string
	// VerifyURL is encoded as a QR code in the header. Empty skips the code.
	VerifyURL string
}

// QuotePDF renders a quote with its line items and totals.
func QuotePDF(q *models.Quote, opts QuoteOptions) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 10, 10)
	pdf.SetTitle(q.QuoteNumber, true)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(120, 10, "QUOTATION")
	pdf.Ln(10)
	if opts.CompanyName != "" {
		pdf.SetFont("Arial", "", 11)
		pdf.Cell(120, 6, tr(opts.CompanyName))
		pdf.Ln(8)
	}

	if opts.VerifyURL != "" {
		png, err := qrcode.Encode(opts.VerifyURL, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("quote qr code: %w", err)
		}
		name := "qr_" + q.QuoteNumber
		pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
		pdf.ImageOptions(name, 165, 10, 30, 30, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(95, 6, "Quote No: "+q.QuoteNumber)
	pdf.Cell(60, 6, fmt.Sprintf("Revision: %d", q.RevisionNumber))
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(95, 6, "Customer: "+tr(q.CustomerName))
	pdf.Cell(60, 6, "Status: "+tr(q.StatusName))
	pdf.Ln(6)
	pdf.Cell(95, 6, "Quote Date: "+q.QuoteDate.Format("02-Jan-2006"))
	pdf.Cell(60, 6, "Valid Until: "+q.ValidUntil.Format("02-Jan-2006"))
	pdf.Ln(6)
	if q.QuoteName != "" {
		pdf.Cell(190, 6, "Reference: "+tr(q.QuoteName))
		pdf.Ln(6)
	}
	pdf.Ln(6)

	// Line items
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(10, 8, "#", "1", 0, "C", true, 0, "")
	pdf.CellFormat(80, 8, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Unit Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(20, 8, "Disc %", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 8, "Line Total", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, li := range q.LineItems {
		name := li.ProductName
		if name == "" && li.Description != nil {
			name = *li.Description
		}
		pdf.CellFormat(10, 8, fmt.Sprint(li.LineNumber), "1", 0, "C", false, 0, "")
		pdf.CellFormat(80, 8, tr(name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, fmt.Sprint(li.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 8, Money(li.UnitPrice, ""), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 8, fmt.Sprintf("%.2f", li.DiscountPercent), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, Money(li.LineTotal, ""), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// Totals
	totals := []struct {
		label  string
		amount float64
	}{
		{"Subtotal", q.Subtotal},
		{"Less Discount", q.DiscountAmount},
		{fmt.Sprintf("Tax (%.2f%%)", q.TaxRate), q.TaxAmount},
		{"Shipping", q.ShippingAmount},
	}
	for _, t := range totals {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(150, 7, t.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, Money(t.amount, ""), "1", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(150, 8, "Total", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, Money(q.TotalAmount, q.CurrencyCode), "1", 1, "R", false, 0, "")

	if q.Notes != nil && *q.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(190, 5, tr(*q.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render quote pdf: %w", err)
	}
	return buf.Bytes(), nil
}
