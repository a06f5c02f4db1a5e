package events

import (
	"context"

	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/messaging"
)

// Source identifies this service on published events
const Source = "inventory-service"

// InventoryEventPublisher publishes inventory-related events. A nil
// publisher drops every event, so services work without messaging.
// Publishing failures are logged and never fail the caller.
type InventoryEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewInventoryEventPublisher wraps a RabbitMQ publisher or a LocalBus
func NewInventoryEventPublisher(publisher messaging.EventPublisher, log *logger.Logger) *InventoryEventPublisher {
	return &InventoryEventPublisher{
		publisher: publisher,
		logger:    log.WithComponent("events"),
	}
}

// PublishAlertCreated publishes an alert created event
func (p *InventoryEventPublisher) PublishAlertCreated(ctx context.Context, alert *domain.Alert) {
	if p == nil {
		return
	}

	data := messaging.AlertCreatedEvent{
		AlertID:      alert.ID,
		ProductID:    alert.ProductID,
		State:        alert.State,
		UsedForOrder: alert.UsedForOrder,
		OrderID:      alert.OrderID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventAlertCreated, data); err != nil {
		p.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to publish alert created event")
	}
}

// PublishOrderCreated publishes an order created event
func (p *InventoryEventPublisher) PublishOrderCreated(ctx context.Context, order *domain.Order) {
	if p == nil {
		return
	}

	data := messaging.OrderCreatedEvent{
		OrderID:    order.ID,
		AlertID:    order.AlertID,
		ProductID:  order.ProductID,
		SupplierID: order.SupplierID,
		Quantity:   order.QuantityOrdered,
	}

	if err := p.publisher.Publish(ctx, messaging.EventOrderCreated, data); err != nil {
		p.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to publish order created event")
	}
}

// StockChange describes a committed stock mutation
type StockChange struct {
	ProductID string
	Before    int
	After     int
	Cause     string
	RecordID  string
}

// PublishStockChanged publishes a stock changed event
func (p *InventoryEventPublisher) PublishStockChanged(ctx context.Context, change StockChange) {
	if p == nil || change.ProductID == "" {
		return
	}

	data := messaging.StockChangedEvent{
		ProductID: change.ProductID,
		Before:    change.Before,
		After:     change.After,
		Cause:     change.Cause,
		RecordID:  change.RecordID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockChanged, data); err != nil {
		p.logger.Error().Err(err).Str("product_id", change.ProductID).Msg("failed to publish stock changed event")
	}
}

// PublishQuotationRequested publishes a quotation requested event
func (p *InventoryEventPublisher) PublishQuotationRequested(ctx context.Context, q *domain.Quotation) {
	if p == nil {
		return
	}

	data := messaging.QuotationRequestedEvent{
		QuotationID: q.ID,
		OrderID:     q.OrderID,
		SupplierID:  q.SupplierID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventQuotationRequested, data); err != nil {
		p.logger.Error().Err(err).Str("quotation_id", q.ID).Msg("failed to publish quotation requested event")
	}
}
