package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cafe-orders/internal/logger"

	"github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Publisher publishes order events to the order_events exchange
type Publisher struct {
	conn   *Connection
	logger *logger.Logger
}

// NewPublisher creates a new message publisher
func NewPublisher(conn *Connection, log *logger.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: log,
	}
}

// Publish sends message as persistent JSON with the given routing key.
// The caller's trace context travels in the message headers.
func (p *Publisher) Publish(ctx context.Context, routingKey string, message any) error {
	requestID := logger.RequestIDFrom(ctx)

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers := amqp091.Table{}
	for k, v := range carrier {
		headers[k] = v
	}

	publishing := amqp091.Publishing{
		ContentType:   "application/json",
		Body:          body,
		DeliveryMode:  amqp091.Persistent,
		Timestamp:     time.Now(),
		CorrelationId: requestID,
		Headers:       headers,
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = p.conn.withChannel(func(ch *amqp091.Channel) error {
		return ch.PublishWithContext(
			ctx,
			ExchangeOrderEvents, // exchange
			routingKey,          // routing key
			false,               // mandatory
			false,               // immediate
			publishing,
		)
	})
	if err != nil {
		p.logger.Error("message_publish_failed",
			fmt.Sprintf("Failed to publish message to exchange %s", ExchangeOrderEvents),
			requestID, err, map[string]interface{}{
				"exchange":    ExchangeOrderEvents,
				"routing_key": routingKey,
			})
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.Debug("message_published",
		fmt.Sprintf("Published message to exchange %s", ExchangeOrderEvents),
		requestID, map[string]interface{}{
			"exchange":     ExchangeOrderEvents,
			"routing_key":  routingKey,
			"message_size": len(body),
		})

	return nil
}

// Close closes the publisher
func (p *Publisher) Close() error {
	return p.conn.Close()
}
