package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventAlertCreated       = "inventory.alert.created"
	EventOrderCreated       = "inventory.order.created"
	EventStockChanged       = "inventory.stock.changed"
	EventQuotationRequested = "inventory.quotation.requested"
)

// Exchange names
const (
	ExchangeInventoryEvents = "inventory.events"
	ExchangeDeadLetter      = "dlx.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// AlertCreatedEvent is published after a low-stock alert is committed.
type AlertCreatedEvent struct {
	AlertID      string  `json:"alert_id"`
	ProductID    string  `json:"product_id"`
	State        string  `json:"state"`
	UsedForOrder bool    `json:"used_for_order"`
	OrderID      *string `json:"order_id,omitempty"`
}

// OrderCreatedEvent is published after an order is generated from an alert
// or created manually.
type OrderCreatedEvent struct {
	OrderID    string  `json:"order_id"`
	AlertID    *string `json:"alert_id,omitempty"`
	ProductID  string  `json:"product_id"`
	SupplierID string  `json:"supplier_id"`
	Quantity   int     `json:"quantity"`
}

// StockChangedEvent is published after any committed stock mutation.
type StockChangedEvent struct {
	ProductID string `json:"product_id"`
	Before    int    `json:"before"`
	After     int    `json:"after"`
	Cause     string `json:"cause"`
	RecordID  string `json:"record_id"`
}

// QuotationRequestedEvent is published the first time a quotation is
// requested for an order.
type QuotationRequestedEvent struct {
	QuotationID string `json:"quotation_id"`
	OrderID     string `json:"order_id"`
	SupplierID  string `json:"supplier_id"`
}
