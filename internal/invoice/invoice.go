// Package invoice renders an order into a PDF document. Rendering is
// synchronous; callers decide what to do when it fails.
package invoice

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/safar/go-shop-api/internal/models"
)

func Render(order *models.Order) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+order.Code, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Invoice")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Order %s", order.Code))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Placed %s", order.CreatedAt.Format("2006-01-02 15:04")))
	pdf.Ln(6)
	if order.Address != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Deliver to: %s", order.Address))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(90, 8, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 8, "Qty", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Unit", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Subtotal", "1", 0, "R", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	for _, item := range order.Items {
		pdf.CellFormat(90, 8, item.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 8, fmt.Sprintf("%d", item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, item.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, item.Subtotal.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(8)
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(150, 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, order.TotalAmount.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.Ln(8)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	return buf.Bytes(), nil
}
