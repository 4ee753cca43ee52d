// Package invoice renders order invoices as PDF documents.
package invoice

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/shopfront/apiserver/types"
)

const (
	pageWidth   = 190.0
	nameColumn  = 120.0
	priceColumn = 70.0
	rowHeight   = 7.0
)

// Number formats the invoice number for an order.
func Number(order types.Order) string {
	id := strings.ToUpper(strings.ReplaceAll(order.ID.String(), "-", ""))
	if len(id) > 12 {
		id = id[:12]
	}
	return "INV-" + order.CreatedAt.UTC().Format("20060102") + "-" + id
}

// Render writes a PDF invoice for order and returns its bytes.
func Render(order types.Order, issuedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+Number(order), false)
	pdf.SetCreator("shopfront", false)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "INVOICE")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, rowHeight, "Invoice no : "+Number(order))
	pdf.Ln(rowHeight)
	pdf.Cell(0, rowHeight, "Issued     : "+issuedAt.UTC().Format("2006-01-02 15:04 MST"))
	pdf.Ln(rowHeight)
	pdf.Cell(0, rowHeight, "Order      : "+order.ID.String())
	pdf.Ln(rowHeight)
	pdf.Cell(0, rowHeight, "Status     : "+string(order.Status))
	pdf.Ln(rowHeight)
	if order.Payment != "" {
		pdf.Cell(0, rowHeight, "Payment    : "+tr(order.Payment))
		pdf.Ln(rowHeight)
	}
	pdf.Ln(4)

	if order.User != nil {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, rowHeight, "Billed to")
		pdf.Ln(rowHeight)
		pdf.SetFont("Helvetica", "", 11)
		name := strings.TrimSpace(order.User.FirstName + " " + order.User.LastName)
		if name == "" {
			name = order.User.Username
		}
		pdf.Cell(0, rowHeight, tr(name))
		pdf.Ln(rowHeight)
		pdf.Cell(0, rowHeight, order.User.Email)
		pdf.Ln(rowHeight)
		if order.User.Address != "" {
			pdf.MultiCell(pageWidth, 6, tr(order.User.Address), "", "", false)
		}
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(nameColumn, rowHeight, "Product", "1", 0, "L", true, 0, "")
	pdf.CellFormat(priceColumn, rowHeight, "Price", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	for _, p := range order.Products {
		pdf.CellFormat(nameColumn, rowHeight, tr(p.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(priceColumn, rowHeight, formatPrice(p.Price), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(nameColumn, rowHeight, "Total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(priceColumn, rowHeight, formatPrice(order.Total()), "1", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	return buf.Bytes(), nil
}

func formatPrice(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
