// Package audit consumes order events and writes a human readable trail.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"cafe-orders/internal/logger"
	"cafe-orders/internal/messaging"
	"cafe-orders/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

// Consumer delivers messages until ctx ends
type Consumer interface {
	StartConsuming(ctx context.Context, handler messaging.MessageHandler) error
	Close() error
}

// Subscriber writes one line per order event
type Subscriber struct {
	consumer Consumer
	logger   *logger.Logger
	out      io.Writer
}

// NewSubscriber creates a new audit subscriber writing to out
func NewSubscriber(consumer Consumer, log *logger.Logger, out io.Writer) *Subscriber {
	return &Subscriber{
		consumer: consumer,
		logger:   log,
		out:      out,
	}
}

// Start consumes until ctx is cancelled, then closes the consumer
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	s.logger.Info("service_started", "Audit subscriber started", requestID, nil)

	err := s.consumer.StartConsuming(ctx, s.HandleEvent)

	if closeErr := s.consumer.Close(); closeErr != nil {
		s.logger.Error("consumer_close_failed", "Failed to close consumer", requestID, closeErr, nil)
	}
	s.logger.Info("graceful_shutdown", "Audit subscriber stopped", requestID, nil)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleEvent decodes a delivery by routing key and records it
func (s *Subscriber) HandleEvent(ctx context.Context, d messaging.Delivery) error {
	requestID := logger.RequestIDFrom(ctx)

	line, fields, err := formatEvent(d)
	if err != nil {
		return fmt.Errorf("failed to parse %s event: %w", d.RoutingKey, err)
	}

	if _, err := fmt.Fprintln(s.out, line); err != nil {
		return fmt.Errorf("failed to write audit line: %w", err)
	}
	s.logger.Info("event_recorded", "Order event recorded", requestID, fields)
	return nil
}

// formatEvent renders an event as one audit line plus structured fields.
// Unknown routing keys are recorded verbatim.
func formatEvent(d messaging.Delivery) (string, map[string]interface{}, error) {
	switch d.RoutingKey {
	case models.RoutingOrderPlaced:
		var msg models.OrderPlacedMessage
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			return "", nil, err
		}
		units := 0
		for _, l := range msg.Lines {
			units += l.Quantity
		}
		line := fmt.Sprintf("[%s] Order %d placed: %d line(s), %d unit(s), total %d",
			msg.Timestamp.Format(timeLayout), msg.OrderID, len(msg.Lines), units, msg.TotalPrice)
		return line, map[string]interface{}{
			"routing_key": d.RoutingKey,
			"order_id":    msg.OrderID,
			"total_price": msg.TotalPrice,
			"lines":       len(msg.Lines),
		}, nil

	case models.RoutingOrderStatusChanged:
		var msg models.StatusChangedMessage
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			return "", nil, err
		}
		var line string
		switch msg.NewStatus {
		case models.StatusCompleted:
			line = fmt.Sprintf("[%s] Order %d completed", msg.Timestamp.Format(timeLayout), msg.OrderID)
		default:
			line = fmt.Sprintf("[%s] Order %d status changed from '%s' to '%s'",
				msg.Timestamp.Format(timeLayout), msg.OrderID, msg.OldStatus, msg.NewStatus)
		}
		return line, map[string]interface{}{
			"routing_key": d.RoutingKey,
			"order_id":    msg.OrderID,
			"old_status":  msg.OldStatus,
			"new_status":  msg.NewStatus,
		}, nil

	default:
		return fmt.Sprintf("Unrecognised event %s: %s", d.RoutingKey, d.Body), map[string]interface{}{
			"routing_key": d.RoutingKey,
		}, nil
	}
}
