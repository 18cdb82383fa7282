package tracking

import (
	"context"

	"cafe-orders/internal/apperror"
	"cafe-orders/internal/database"
	"cafe-orders/internal/logger"
	"cafe-orders/internal/metrics"
	"cafe-orders/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Deps wires a Service. Events and Metrics are optional.
type Deps struct {
	Tx      TxRunner
	Status  StatusStore
	Reader  OrderReader
	Events  EventPublisher
	Metrics *metrics.Metrics
	Strict  bool
	Logger  *logger.Logger
}

// Service advances order statuses and serves the order read model
type Service struct {
	tx      TxRunner
	status  StatusStore
	reader  OrderReader
	events  EventPublisher
	metrics *metrics.Metrics
	strict  bool
	logger  *logger.Logger
	tracer  trace.Tracer
}

func NewService(d Deps) *Service {
	return &Service{
		tx:      d.Tx,
		status:  d.Status,
		reader:  d.Reader,
		events:  d.Events,
		metrics: d.Metrics,
		strict:  d.Strict,
		logger:  d.Logger,
		tracer:  otel.Tracer("cafe-orders/tracking"),
	}
}

// AdvanceStatus sets an order's status. The raw value is checked before
// storage is touched; in strict mode a backward move is a conflict.
func (s *Service) AdvanceStatus(ctx context.Context, orderID int64, raw string) (models.StatusChange, error) {
	ctx, span := s.tracer.Start(ctx, "tracking.AdvanceStatus",
		trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	requestID := logger.RequestIDFrom(ctx)

	next, err := models.ParseStatus(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperror.KindOf(err).String())
		return models.StatusChange{}, err
	}

	change := models.StatusChange{OrderID: orderID, Status: next}
	err = s.tx.WithTx(ctx, func(q database.Querier) error {
		current, err := s.status.LockStatus(ctx, q, orderID)
		if err != nil {
			return err
		}
		if !current.CanTransition(next, s.strict) {
			return apperror.Withf(apperror.ErrStatusTransition, "%s to %s", current, next)
		}
		change.OldStatus = current
		return s.status.UpdateStatus(ctx, q, orderID, next)
	})
	if err != nil {
		kind := apperror.KindOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind.String())
		if kind == apperror.Storage {
			s.logger.Error("status_update_failed", "Failed to update order status", requestID, err, map[string]interface{}{
				"order_id": orderID,
			})
		}
		return models.StatusChange{}, err
	}

	if s.metrics != nil {
		s.metrics.StatusChanges.WithLabelValues(string(next)).Inc()
	}
	span.SetAttributes(attribute.String("order.status", string(next)))
	s.logger.Info("order_status_changed", "Order status updated", requestID, map[string]interface{}{
		"order_id":   orderID,
		"old_status": change.OldStatus,
		"new_status": next,
	})

	s.publish(ctx, models.NewStatusChangedMessage(change, requestID))
	return change, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID int64) (models.OrderDetail, error) {
	ctx, span := s.tracer.Start(ctx, "tracking.GetOrder",
		trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	detail, err := s.reader.GetOrder(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperror.KindOf(err).String())
	}
	return detail, err
}

func (s *Service) ListOrders(ctx context.Context) ([]models.OrderSummary, error) {
	ctx, span := s.tracer.Start(ctx, "tracking.ListOrders")
	defer span.End()

	orders, err := s.reader.ListOrders(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperror.KindOf(err).String())
		return nil, err
	}
	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	return orders, nil
}

// publish is best effort: the change is already committed
func (s *Service) publish(ctx context.Context, event *models.StatusChangedMessage) {
	if s.events == nil {
		return
	}

	result := "ok"
	if err := s.events.Publish(ctx, models.RoutingOrderStatusChanged, event); err != nil {
		result = "error"
		s.logger.Warn("event_publish_failed", "Failed to publish status event", event.RequestID, map[string]interface{}{
			"order_id": event.OrderID,
			"error":    err.Error(),
		})
	}
	if s.metrics != nil {
		s.metrics.EventsPublished.WithLabelValues(models.RoutingOrderStatusChanged, result).Inc()
	}
}
