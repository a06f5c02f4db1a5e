// Package domain holds the warehouse records and their state enums.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultStockMinimum is used when a product is created without a minimum
const DefaultStockMinimum = 20

// Product is a stocked article. Stock only moves through entries, exits
// and explicit reconciliation.
type Product struct {
	ID           string          `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Description  string          `db:"description" json:"description"`
	Barcode      string          `db:"barcode" json:"barcode"`
	SKU          string          `db:"sku" json:"sku"`
	Price        decimal.Decimal `db:"price" json:"price"`
	Stock        int             `db:"stock" json:"stock"`
	StockMinimum int             `db:"stock_minimum" json:"stock_minimum"`
	LotID        string          `db:"lot_id" json:"lot_id"`
	Enabled      bool            `db:"enabled" json:"enabled"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`

	// Read model
	LotCode      string  `db:"lot_code" json:"lot_code,omitempty"`
	SupplierID   *string `db:"supplier_id" json:"supplier_id,omitempty"`
	SupplierName *string `db:"supplier_name" json:"supplier_name,omitempty"`
}

// IsLowStock reports whether the product is at or below its minimum
func (p *Product) IsLowStock() bool {
	return p.Stock <= p.StockMinimum
}

// ProductView is the API shape of a product
type ProductView struct {
	*Product
	IsLowStock bool `json:"is_low_stock"`
}

// View wraps the product with its derived fields
func (p *Product) View() *ProductView {
	return &ProductView{Product: p, IsLowStock: p.IsLowStock()}
}

// Lot groups products received together from one supplier
type Lot struct {
	ID              string     `db:"id" json:"id"`
	Code            string     `db:"code" json:"code"`
	SupplierID      *string    `db:"supplier_id" json:"supplier_id,omitempty"`
	CategoryID      *string    `db:"category_id" json:"category_id,omitempty"`
	ManufactureDate *time.Time `db:"manufacture_date" json:"manufacture_date,omitempty"`
	ExpiryDate      *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	Notes           string     `db:"notes" json:"notes"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`

	SupplierName *string `db:"supplier_name" json:"supplier_name,omitempty"`
	CategoryName *string `db:"category_name" json:"category_name,omitempty"`
}

// Supplier sells lots to the warehouse
type Supplier struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	RUT       string    `db:"rut" json:"rut"`
	Email     string    `db:"email" json:"email"`
	Address   string    `db:"address" json:"address"`
	ComunaID  *int      `db:"comuna_id" json:"comuna_id,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Category classifies lots
type Category struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Comuna is the smallest administrative unit, with its parents flattened in
type Comuna struct {
	ID      int    `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	City    string `db:"city" json:"city"`
	Region  string `db:"region" json:"region"`
	Country string `db:"country" json:"country"`
}
