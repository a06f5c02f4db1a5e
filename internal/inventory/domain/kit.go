package domain

import "time"

// Kit is a named bundle of products
type Kit struct {
	ID          string     `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Description string     `db:"description" json:"description"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	Items       []*KitItem `db:"-" json:"items"`
}

// KitItem is one product line of a kit
type KitItem struct {
	ID        string `db:"id" json:"id"`
	KitID     string `db:"kit_id" json:"kit_id"`
	ProductID string `db:"product_id" json:"product_id"`
	Quantity  int    `db:"quantity" json:"quantity"`

	ProductName string `db:"product_name" json:"product_name,omitempty"`
}
