package messaging

import (
	"context"
	"fmt"
	"time"

	"cafe-orders/internal/logger"

	"github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Delivery is the part of an AMQP delivery handlers need
type Delivery struct {
	RoutingKey    string
	CorrelationID string
	Body          []byte
}

// MessageHandler processes one delivery. A returned error requeues it.
type MessageHandler func(ctx context.Context, d Delivery) error

// Consumer handles message consumption from RabbitMQ
type Consumer struct {
	conn        *Connection
	logger      *logger.Logger
	queueName   string
	consumerTag string
	prefetch    int
}

// NewConsumer creates a new message consumer
func NewConsumer(conn *Connection, log *logger.Logger, queueName, consumerTag string, prefetch int) *Consumer {
	return &Consumer{
		conn:        conn,
		logger:      log,
		queueName:   queueName,
		consumerTag: consumerTag,
		prefetch:    prefetch,
	}
}

// StartConsuming consumes until ctx is done, reconnecting when the broker
// closes the delivery channel.
func (c *Consumer) StartConsuming(ctx context.Context, handler MessageHandler) error {
	for {
		msgs, err := c.subscribe()
		if err != nil {
			return err
		}

		c.logger.Info("consumer_started",
			fmt.Sprintf("Started consuming from queue %s", c.queueName),
			"", map[string]interface{}{
				"queue":    c.queueName,
				"consumer": c.consumerTag,
				"prefetch": c.prefetch,
			})

		if done := c.drain(ctx, msgs, handler); done {
			c.logger.Info("consumer_stopped", "Consumer stopped by context", "", nil)
			return ctx.Err()
		}

		c.logger.Error("consumer_channel_closed", "Message channel closed, attempting to reconnect", "", nil, nil)
		if err := c.conn.Reconnect(); err != nil {
			return fmt.Errorf("failed to reconnect after channel closed: %w", err)
		}
	}
}

func (c *Consumer) subscribe() (<-chan amqp091.Delivery, error) {
	var msgs <-chan amqp091.Delivery
	err := c.conn.withChannel(func(ch *amqp091.Channel) error {
		if err := ch.Qos(c.prefetch, 0, false); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}

		var err error
		msgs, err = ch.Consume(
			c.queueName,   // queue
			c.consumerTag, // consumer
			false,         // auto-ack (we'll ack manually)
			false,         // exclusive
			false,         // no-local
			false,         // no-wait
			nil,           // args
		)
		if err != nil {
			return fmt.Errorf("failed to register consumer: %w", err)
		}
		return nil
	})
	return msgs, err
}

// drain processes deliveries and reports whether ctx ended the loop
func (c *Consumer) drain(ctx context.Context, msgs <-chan amqp091.Delivery, handler MessageHandler) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case d, ok := <-msgs:
			if !ok {
				return false
			}
			c.processMessage(ctx, d, handler)
		}
	}
}

// processMessage handles a single message
func (c *Consumer) processMessage(ctx context.Context, delivery amqp091.Delivery, handler MessageHandler) {
	startTime := time.Now()
	requestID := delivery.CorrelationId

	c.logger.Debug("message_received",
		"Processing message",
		requestID, map[string]interface{}{
			"queue":        c.queueName,
			"routing_key":  delivery.RoutingKey,
			"message_size": len(delivery.Body),
			"delivery_tag": delivery.DeliveryTag,
		})

	msgCtx := otel.GetTextMapPropagator().Extract(ctx, HeaderCarrier(delivery.Headers))
	msgCtx = logger.WithRequestID(msgCtx, requestID)

	processingCtx, cancel := context.WithTimeout(msgCtx, 30*time.Second)
	defer cancel()

	err := handler(processingCtx, Delivery{
		RoutingKey:    delivery.RoutingKey,
		CorrelationID: requestID,
		Body:          delivery.Body,
	})

	duration := time.Since(startTime)

	if err != nil {
		c.logger.Error("message_processing_failed",
			"Failed to process message",
			requestID, err, map[string]interface{}{
				"queue":        c.queueName,
				"routing_key":  delivery.RoutingKey,
				"duration_ms":  duration.Milliseconds(),
				"delivery_tag": delivery.DeliveryTag,
			})

		// Redelivered messages that fail again are dropped.
		requeue := !delivery.Redelivered
		if nackErr := delivery.Nack(false, requeue); nackErr != nil {
			c.logger.Error("message_nack_failed", "Failed to nack message", requestID, nackErr, nil)
		}
		return
	}

	c.logger.Debug("message_processed",
		"Successfully processed message",
		requestID, map[string]interface{}{
			"queue":        c.queueName,
			"routing_key":  delivery.RoutingKey,
			"duration_ms":  duration.Milliseconds(),
			"delivery_tag": delivery.DeliveryTag,
		})

	if ackErr := delivery.Ack(false); ackErr != nil {
		c.logger.Error("message_ack_failed", "Failed to ack message", requestID, ackErr, nil)
	}
}

// HeaderCarrier exposes string AMQP headers to a text map propagator
func HeaderCarrier(headers amqp091.Table) propagation.MapCarrier {
	carrier := propagation.MapCarrier{}
	for k, v := range headers {
		if s, ok := v.(string); ok {
			carrier[k] = s
		}
	}
	return carrier
}

// Close stops consuming messages
func (c *Consumer) Close() error {
	if c.conn != nil && !c.conn.IsClosed() {
		err := c.conn.withChannel(func(ch *amqp091.Channel) error {
			return ch.Cancel(c.consumerTag, false)
		})
		if err != nil {
			c.logger.Error("consumer_cancel_failed", "Failed to cancel consumer", "", err, nil)
		}
		return c.conn.Close()
	}
	return nil
}
