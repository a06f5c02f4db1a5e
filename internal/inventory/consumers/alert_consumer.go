package consumers

import (
	"context"

	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/pkg/actor"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/messaging"
)

// AlertQueue is the durable queue the inventory service consumes alert
// events from
const AlertQueue = "inventory-service.alert-events"

// OrderGenerator creates the replenishment order for an open alert
type OrderGenerator interface {
	CreateOrderFromAlert(ctx context.Context, alertID string) (*domain.Order, error)
}

// AlertConsumer turns alert created events into replenishment orders
type AlertConsumer struct {
	orders OrderGenerator
	logger *logger.Logger
}

// NewAlertConsumer creates a new alert consumer
func NewAlertConsumer(orders OrderGenerator, log *logger.Logger) *AlertConsumer {
	return &AlertConsumer{
		orders: orders,
		logger: log.WithComponent("alert_consumer"),
	}
}

// Register attaches the handlers to a LocalBus or a RabbitMQ consumer
func (c *AlertConsumer) Register(registry messaging.HandlerRegistry) {
	registry.RegisterHandler(messaging.EventAlertCreated, c.handleAlertCreated)
}

// NewRabbitAlertConsumer declares the alert queue, binds it to the
// inventory exchange and registers the handlers
func NewRabbitAlertConsumer(rmq *messaging.RabbitMQ, orders OrderGenerator, log *logger.Logger) (*messaging.Consumer, error) {
	consumer, err := messaging.NewConsumer(rmq, AlertQueue, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeInventoryEvents, messaging.EventAlertCreated); err != nil {
		return nil, err
	}

	NewAlertConsumer(orders, log).Register(consumer)
	return consumer, nil
}

func (c *AlertConsumer) handleAlertCreated(ctx context.Context, event *messaging.Event) error {
	var data messaging.AlertCreatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	log := c.logger.With().Str("alert_id", data.AlertID).Str("product_id", data.ProductID).Logger()
	if data.State != domain.AlertActive && data.State != domain.AlertPending || data.UsedForOrder || data.OrderID != nil {
		log.Debug().Str("state", data.State).Msg("alert cannot spawn an order, skipping")
		return nil
	}

	ctx = actor.WithActor(ctx, actor.SystemActor())
	order, err := c.orders.CreateOrderFromAlert(ctx, data.AlertID)
	switch {
	case err == nil:
		log.Info().Str("order_id", order.ID).Msg("order created from alert event")
		return nil
	case errors.Is(err, errors.ErrStateConflict), errors.Is(err, errors.ErrNotFound):
		// Redelivered or already handled by the retry sweep.
		log.Debug().Err(err).Msg("alert already processed")
		return nil
	case errors.Is(err, errors.ErrValidation):
		// A redelivery would fail the same way; the retry sweep picks it up once fixed.
		log.Warn().Err(err).Msg("order could not be generated from alert")
		return nil
	default:
		return err
	}
}
