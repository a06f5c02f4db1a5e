package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/maestranza/maestranza-backend/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// maxDeliveries is how many times a failing message is retried before it
// is rejected into the dead letter exchange.
const maxDeliveries = 3

// MessageHandler is a function that handles a message
type MessageHandler func(ctx context.Context, event *Event) error

// Consumer handles consuming events from RabbitMQ
type Consumer struct {
	rmq       *RabbitMQ
	queueName string
	mu        sync.RWMutex
	handlers  map[string]MessageHandler
	logger    *logger.Logger
}

// NewConsumer declares queueName (dead-lettered to dlx.events) and returns a consumer for it
func NewConsumer(rmq *RabbitMQ, queueName string, log *logger.Logger) (*Consumer, error) {
	if _, err := rmq.DeclareQueue(queueName); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	return &Consumer{
		rmq:       rmq,
		queueName: queueName,
		handlers:  make(map[string]MessageHandler),
		logger:    log,
	}, nil
}

// Subscribe binds the queue to an exchange with a routing key pattern
func (c *Consumer) Subscribe(exchange, routingKeyPattern string) error {
	if err := c.rmq.DeclareExchange(exchange); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := c.rmq.BindQueue(c.queueName, exchange, routingKeyPattern); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	c.logger.Info().
		Str("queue", c.queueName).
		Str("exchange", exchange).
		Str("routing_key", routingKeyPattern).
		Msg("subscribed to exchange")

	return nil
}

// RegisterHandler registers a handler for a specific event type
func (c *Consumer) RegisterHandler(eventType string, handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[eventType] = handler
}

// Start consumes from the queue in a goroutine until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.rmq.Channel().Consume(
		c.queueName, // queue
		"",          // consumer tag (auto-generated)
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info().Str("queue", c.queueName).Msg("consumer started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info().Str("queue", c.queueName).Msg("consumer stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn().Str("queue", c.queueName).Msg("message channel closed")
					return
				}
				c.handleMessage(ctx, msg)
			}
		}
	}()

	return nil
}

func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	var event Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error().Err(err).Msg("failed to unmarshal event")
		_ = msg.Reject(false)
		return
	}

	ctx = WithCorrelationID(ctx, event.CorrelationID)

	c.mu.RLock()
	handler, ok := c.handlers[event.Type]
	c.mu.RUnlock()
	if !ok {
		c.logger.Debug().Str("event_type", event.Type).Msg("no handler registered for event type")
		_ = msg.Ack(false)
		return
	}

	if err := handler(ctx, &event); err != nil {
		retries := retryCount(msg.Headers)
		log := c.logger.Error().
			Err(err).
			Str("event_type", event.Type).
			Str("event_id", event.ID).
			Int("retry_count", retries)

		if retries >= maxDeliveries {
			log.Msg("max retries exceeded, sending to DLQ")
			_ = msg.Reject(false)
			return
		}

		log.Msg("failed to process event, requeueing")
		_ = msg.Nack(false, true)
		return
	}

	_ = msg.Ack(false)
}

// retryCount reads the delivery count RabbitMQ records in the x-death header.
func retryCount(headers amqp.Table) int {
	deaths, ok := headers["x-death"].([]interface{})
	if !ok {
		return 0
	}

	for _, death := range deaths {
		var entry map[string]interface{}
		switch d := death.(type) {
		case amqp.Table:
			entry = d
		case map[string]interface{}:
			entry = d
		default:
			continue
		}
		if count, ok := entry["count"].(int64); ok {
			return int(count)
		}
	}

	return 0
}
