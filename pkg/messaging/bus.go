package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/maestranza/maestranza-backend/pkg/logger"
)

// EventPublisher is implemented by the RabbitMQ Publisher and LocalBus.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// HandlerRegistry is implemented by the RabbitMQ Consumer and LocalBus.
type HandlerRegistry interface {
	RegisterHandler(eventType string, handler MessageHandler)
}

// LocalBus delivers events synchronously to in-process handlers. It is used
// when RabbitMQ is disabled and in tests.
type LocalBus struct {
	source   string
	logger   *logger.Logger
	mu       sync.RWMutex
	handlers map[string][]MessageHandler
}

// NewLocalBus creates an empty in-process bus
func NewLocalBus(source string, log *logger.Logger) *LocalBus {
	if log == nil {
		log = logger.NewNop()
	}
	return &LocalBus{
		source:   source,
		logger:   log,
		handlers: make(map[string][]MessageHandler),
	}
}

// RegisterHandler adds a handler for eventType. Several handlers may share a type.
func (b *LocalBus) RegisterHandler(eventType string, handler MessageHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish runs every handler registered for eventType before returning.
// All handlers run even if one fails; their errors are joined.
func (b *LocalBus) Publish(ctx context.Context, eventType string, data interface{}) error {
	event, err := NewEvent(eventType, b.source, getCorrelationID(ctx), data)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	b.mu.RLock()
	handlers := append([]MessageHandler(nil), b.handlers[eventType]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Debug().Str("event_type", eventType).Msg("no handler registered for event type")
		return nil
	}

	var errs []error
	for _, h := range handlers {
		if err := h(WithCorrelationID(ctx, event.CorrelationID), event); err != nil {
			b.logger.Error().
				Err(err).
				Str("event_type", eventType).
				Str("event_id", event.ID).
				Msg("failed to process event")
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
