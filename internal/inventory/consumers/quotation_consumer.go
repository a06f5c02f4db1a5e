package consumers

import (
	"context"

	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/pkg/actor"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/messaging"
)

// QuotationQueue is the durable queue quotation requests are rendered from
const QuotationQueue = "inventory-service.quotation-events"

// QuotationRenderer renders the request document of a pending quotation
type QuotationRenderer interface {
	RenderRequestPDF(ctx context.Context, id string) (*domain.Quotation, error)
}

// QuotationConsumer renders the request PDF as soon as a quotation is
// requested from a supplier
type QuotationConsumer struct {
	consumer   *messaging.Consumer
	quotations QuotationRenderer
	logger     *logger.Logger
}

// NewQuotationConsumer creates a quotation consumer for in-process buses
func NewQuotationConsumer(quotations QuotationRenderer, log *logger.Logger) *QuotationConsumer {
	return &QuotationConsumer{
		quotations: quotations,
		logger:     log.WithComponent("quotation_consumer"),
	}
}

// NewRabbitQuotationConsumer declares the quotation queue and binds it to
// the inventory exchange
func NewRabbitQuotationConsumer(rmq *messaging.RabbitMQ, quotations QuotationRenderer, log *logger.Logger) (*QuotationConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, QuotationQueue, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeInventoryEvents, messaging.EventQuotationRequested); err != nil {
		return nil, err
	}

	c := NewQuotationConsumer(quotations, log)
	c.consumer = consumer
	c.Register(consumer)
	return c, nil
}

// Register attaches the handlers to a LocalBus or a RabbitMQ consumer
func (c *QuotationConsumer) Register(registry messaging.HandlerRegistry) {
	registry.RegisterHandler(messaging.EventQuotationRequested, c.handleQuotationRequested)
}

// Start starts consuming messages. Only valid for RabbitMQ consumers.
func (c *QuotationConsumer) Start(ctx context.Context) error {
	if c.consumer == nil {
		return errors.Internal("quotation consumer has no broker connection")
	}
	return c.consumer.Start(ctx)
}

func (c *QuotationConsumer) handleQuotationRequested(ctx context.Context, event *messaging.Event) error {
	var data messaging.QuotationRequestedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	log := c.logger.With().Str("quotation_id", data.QuotationID).Str("order_id", data.OrderID).Logger()

	ctx = actor.WithActor(ctx, actor.SystemActor())
	q, err := c.quotations.RenderRequestPDF(ctx, data.QuotationID)
	switch {
	case err == nil:
		log.Info().Str("pdf_url", *q.PDFURL).Msg("quotation request rendered")
		return nil
	case errors.Is(err, errors.ErrStateConflict), errors.Is(err, errors.ErrNotFound):
		log.Debug().Err(err).Msg("quotation no longer pending, skipping")
		return nil
	default:
		return err
	}
}
