// Package document renders printable purchasing documents.
package document

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/pkg/validation"
)

// QuotationRequest is everything printed on a quotation request sent to
// a supplier
type QuotationRequest struct {
	Quotation *domain.Quotation
	Order     *domain.Order
	Product   *domain.Product
	Supplier  *domain.Supplier
	IssuedAt  time.Time
}

// RenderQuotationRequest renders an A4 quotation request and returns the
// PDF bytes
func RenderQuotationRequest(req QuotationRequest) ([]byte, error) {
	if req.Quotation == nil || req.Order == nil || req.Product == nil || req.Supplier == nil {
		return nil, fmt.Errorf("pdf: incomplete quotation request")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle("Solicitud de cotización", true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, "Maestranza", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(contentW, 6, tr("Solicitud de cotización"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Emitida: "+req.IssuedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, tr("N° ")+req.Quotation.ID, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW, 6, "Proveedor", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, tr(req.Supplier.Name), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, "RUT: "+req.Supplier.RUT, "", 1, "L", false, 0, "")
	if req.Supplier.Email != "" {
		pdf.CellFormat(contentW, 5, req.Supplier.Email, "", 1, "L", false, 0, "")
	}
	if req.Supplier.Address != "" {
		pdf.CellFormat(contentW, 5, tr(req.Supplier.Address), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	col1 := contentW * 0.40
	col2 := contentW * 0.20
	col3 := contentW * 0.15
	col4 := contentW * 0.25

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "Producto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, "SKU", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, "Cantidad", "B", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 6, "Precio ref.", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(col1, 6, tr(truncate(req.Product.Name, 40)), "", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, req.Product.SKU, "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, fmt.Sprintf("%d", req.Order.QuantityOrdered), "", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 6, validation.FormatCLP(req.Quotation.UnitPrice), "", 1, "R", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(col1+col2+col3, 7, "Monto estimado:", "T", 0, "L", false, 0, "")
	pdf.CellFormat(col4, 7, validation.FormatCLP(req.Quotation.Amount), "T", 1, "R", false, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.MultiCell(contentW, 4, tr("Favor responder con precio unitario, plazo de entrega y condiciones de pago, indicando el número de solicitud."), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render quotation request: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
