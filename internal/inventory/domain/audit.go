package domain

import "time"

// Audit actions
const (
	AuditCreate = "create"
	AuditUpdate = "update"
	AuditDelete = "delete"
)

// Audited model names
const (
	ModelProduct       = "product"
	ModelLot           = "lot"
	ModelSupplier      = "supplier"
	ModelCategory      = "category"
	ModelAlert         = "alert"
	ModelOrder         = "order"
	ModelOrderItem     = "order_item"
	ModelEntry         = "entry"
	ModelExit          = "exit"
	ModelPhysicalCount = "physical_count"
	ModelQuotation     = "quotation"
	ModelKit           = "kit"
)

// AuditEntry is an append-only record of a change
type AuditEntry struct {
	ID          string    `db:"id" json:"id"`
	UserID      *string   `db:"user_id" json:"user_id,omitempty"`
	Model       string    `db:"model" json:"model"`
	ObjectID    string    `db:"object_id" json:"object_id"`
	Action      string    `db:"action" json:"action"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Notification is an in-app message for one user
type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Message   string    `db:"message" json:"message"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
