package domain

import "time"

// Alert states
const (
	AlertActive   = "active"
	AlertPending  = "pending"
	AlertArchived = "archived"
	AlertSilenced = "silenced"
	AlertInactive = "inactive"
)

// OpenAlertStates are the states counted by the one-open-alert-per-product rule
var OpenAlertStates = []string{AlertActive, AlertPending}

// Alert flags a product at or below its stock minimum
type Alert struct {
	ID             string     `db:"id" json:"id"`
	ProductID      string     `db:"product_id" json:"product_id"`
	State          string     `db:"state" json:"state"`
	Message        string     `db:"message" json:"message"`
	SuggestedStock *int       `db:"suggested_stock" json:"suggested_stock,omitempty"`
	UsedForOrder   bool       `db:"used_for_order" json:"used_for_order"`
	OrderID        *string    `db:"order_id" json:"order_id,omitempty"`
	SilencedAt     *time.Time `db:"silenced_at" json:"silenced_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`

	ProductName string `db:"product_name" json:"product_name,omitempty"`
	SKU         string `db:"sku" json:"sku,omitempty"`
}

// IsOpen reports whether the alert is active or pending
func (a *Alert) IsOpen() bool {
	return a.State == AlertActive || a.State == AlertPending
}

// CanSpawnOrder reports whether an order may still be generated from the alert
func (a *Alert) CanSpawnOrder() bool {
	return a.IsOpen() && !a.UsedForOrder && a.OrderID == nil
}

// IsValidAlertState reports whether s is a known alert state
func IsValidAlertState(s string) bool {
	switch s {
	case AlertActive, AlertPending, AlertArchived, AlertSilenced, AlertInactive:
		return true
	}
	return false
}
