package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Exit reasons
const (
	ExitLoss             = "loss"
	ExitInternalUse      = "internal_use"
	ExitReturnToSupplier = "return_to_supplier"
	ExitManualAdjustment = "manual_adjustment"
)

// IsValidExitReason reports whether r is a known exit reason
func IsValidExitReason(r string) bool {
	switch r {
	case ExitLoss, ExitInternalUse, ExitReturnToSupplier, ExitManualAdjustment:
		return true
	}
	return false
}

// Entry records goods received into stock
type Entry struct {
	ID         string          `db:"id" json:"id"`
	ProductID  string          `db:"product_id" json:"product_id"`
	OrderID    *string         `db:"order_id" json:"order_id,omitempty"`
	SupplierID *string         `db:"supplier_id" json:"supplier_id,omitempty"`
	Quantity   int             `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
	Total      decimal.Decimal `db:"total" json:"total"`
	CreatedBy  *string         `db:"created_by" json:"created_by,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`

	ProductName  string  `db:"product_name" json:"product_name,omitempty"`
	SupplierName *string `db:"supplier_name" json:"supplier_name,omitempty"`
}

// IsOrderLinked reports whether the entry was generated by an order
func (e *Entry) IsOrderLinked() bool {
	return e.OrderID != nil
}

// ComputeTotal returns quantity × unit price
func ComputeTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// Exit records goods leaving stock. Exits are immutable.
type Exit struct {
	ID            string    `db:"id" json:"id"`
	ProductID     string    `db:"product_id" json:"product_id"`
	Quantity      int       `db:"quantity" json:"quantity"`
	Reason        string    `db:"reason" json:"reason"`
	ResponsibleID *string   `db:"responsible_id" json:"responsible_id,omitempty"`
	Note          string    `db:"note" json:"note"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`

	ProductName string `db:"product_name" json:"product_name,omitempty"`
}

// PhysicalCount records a manual stock count. It does not change stock
// until it is reconciled.
type PhysicalCount struct {
	ID            string    `db:"id" json:"id"`
	ProductID     string    `db:"product_id" json:"product_id"`
	StockReal     int       `db:"stock_real" json:"stock_real"`
	Difference    int       `db:"difference" json:"difference"`
	ResponsibleID *string   `db:"responsible_id" json:"responsible_id,omitempty"`
	Reconciled    bool      `db:"reconciled" json:"reconciled"`
	CountedAt     time.Time `db:"counted_at" json:"counted_at"`

	ProductName string `db:"product_name" json:"product_name,omitempty"`
}
