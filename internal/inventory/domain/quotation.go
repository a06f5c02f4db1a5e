package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quotation states
const (
	QuotationPending  = "pending"
	QuotationAccepted = "accepted"
	QuotationRejected = "rejected"
)

// Quotation is a supplier's price offer for an order
type Quotation struct {
	ID         string          `db:"id" json:"id"`
	OrderID    string          `db:"order_id" json:"order_id"`
	SupplierID string          `db:"supplier_id" json:"supplier_id"`
	State      string          `db:"state" json:"state"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
	PDFURL     *string         `db:"pdf_url" json:"pdf_url,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`

	SupplierName string `db:"supplier_name" json:"supplier_name,omitempty"`
}

// IsFinal reports whether the quotation was accepted or rejected
func (q *Quotation) IsFinal() bool {
	return q.State == QuotationAccepted || q.State == QuotationRejected
}

// PriceHistory is one recorded price for a product and supplier pair
type PriceHistory struct {
	ID         string          `db:"id" json:"id"`
	ProductID  string          `db:"product_id" json:"product_id"`
	SupplierID string          `db:"supplier_id" json:"supplier_id"`
	Price      decimal.Decimal `db:"price" json:"price"`
	RecordedAt time.Time       `db:"recorded_at" json:"recorded_at"`

	ProductName  string `db:"product_name" json:"product_name,omitempty"`
	SupplierName string `db:"supplier_name" json:"supplier_name,omitempty"`
}
