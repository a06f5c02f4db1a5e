package domain

import "time"

// Order states. Every state other than pending is terminal.
const (
	OrderPending   = "pending"
	OrderCompleted = "completed"
	OrderCancelled = "cancelled"
	OrderDeleted   = "deleted"
	OrderAnnulled  = "annulled"
	OrderRejected  = "rejected"
	OrderInactive  = "inactive"
)

// Order is a purchase order to a supplier, usually generated from an alert
type Order struct {
	ID              string    `db:"id" json:"id"`
	ProductID       string    `db:"product_id" json:"product_id"`
	SupplierID      string    `db:"supplier_id" json:"supplier_id"`
	AlertID         *string   `db:"alert_id" json:"alert_id,omitempty"`
	QuantityOrdered int       `db:"quantity_ordered" json:"quantity_ordered"`
	State           string    `db:"state" json:"state"`
	UsedForEntry    bool      `db:"used_for_entry" json:"used_for_entry"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`

	ProductName  string `db:"product_name" json:"product_name,omitempty"`
	SKU          string `db:"sku" json:"sku,omitempty"`
	SupplierName string `db:"supplier_name" json:"supplier_name,omitempty"`
}

// IsPending reports whether the order can still change
func (o *Order) IsPending() bool {
	return o.State == OrderPending
}

// IsValidOrderState reports whether s is a known order state
func IsValidOrderState(s string) bool {
	switch s {
	case OrderPending, OrderCompleted, OrderCancelled, OrderDeleted,
		OrderAnnulled, OrderRejected, OrderInactive:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from one state to another
func CanTransition(from, to string) bool {
	return from == OrderPending && to != OrderPending && IsValidOrderState(to)
}

// OrderItem is an extra product line attached to a pending order
type OrderItem struct {
	ID        string    `db:"id" json:"id"`
	OrderID   string    `db:"order_id" json:"order_id"`
	ProductID string    `db:"product_id" json:"product_id"`
	AlertID   string    `db:"alert_id" json:"alert_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	ProductName string `db:"product_name" json:"product_name,omitempty"`
}
