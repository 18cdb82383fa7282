package order

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cafe-orders/internal/apperror"
	"cafe-orders/internal/database"
	"cafe-orders/internal/idempotency"
	"cafe-orders/internal/logger"
	"cafe-orders/internal/metrics"
	"cafe-orders/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TxRunner scopes work to one storage transaction
type TxRunner interface {
	WithTx(ctx context.Context, fn func(q database.Querier) error) error
}

// CatalogReader looks up priced, row-locked menu items
type CatalogReader interface {
	LockMenuItems(ctx context.Context, q database.Querier, ids []int64) (map[int64]models.MenuItem, error)
	OptionsForItem(ctx context.Context, q database.Querier, menuItemID int64, optionIDs []int64) ([]models.Option, error)
}

// StockReserver decrements stock inside a transaction
type StockReserver interface {
	Reserve(ctx context.Context, q database.Querier, menuItemID int64, qty int) error
}

// OrderWriter persists the order graph
type OrderWriter interface {
	InsertOrder(ctx context.Context, q database.Querier, total int64, status models.OrderStatus) (int64, error)
	InsertLine(ctx context.Context, q database.Querier, line models.OrderLine) (int64, error)
	InsertLineOptions(ctx context.Context, q database.Querier, lineID int64, optionIDs []int64) error
}

// KeyRecorder stores an idempotency key with the order inside its transaction
type KeyRecorder interface {
	Insert(ctx context.Context, q database.Querier, key string, rec idempotency.Record) error
}

// EventPublisher announces committed changes
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Deps wires a Coordinator. Keys, Events and Metrics are optional.
type Deps struct {
	Tx      TxRunner
	Catalog CatalogReader
	Stock   StockReserver
	Orders  OrderWriter
	Keys    KeyRecorder
	Events  EventPublisher
	Metrics *metrics.Metrics
	Limits  models.Limits
	Logger  *logger.Logger
}

// Coordinator places orders: it prices every line from the catalog,
// reserves stock and persists the order graph as one transaction.
type Coordinator struct {
	tx      TxRunner
	catalog CatalogReader
	stock   StockReserver
	orders  OrderWriter
	keys    KeyRecorder
	events  EventPublisher
	metrics *metrics.Metrics
	limits  models.Limits
	logger  *logger.Logger
	tracer  trace.Tracer
}

func NewCoordinator(d Deps) *Coordinator {
	return &Coordinator{
		tx:      d.Tx,
		catalog: d.Catalog,
		stock:   d.Stock,
		orders:  d.Orders,
		keys:    d.Keys,
		events:  d.Events,
		metrics: d.Metrics,
		limits:  d.Limits,
		logger:  d.Logger,
		tracer:  otel.Tracer("cafe-orders/order"),
	}
}

// pricedLine is a request line after catalog lookup
type pricedLine struct {
	req     models.LineRequest
	options []models.Option
	price   int64
}

// PlaceOrder creates an order with status received. Nothing is written
// unless every line can be priced and reserved.
func (c *Coordinator) PlaceOrder(ctx context.Context, req models.PlaceOrderRequest) (models.PlaceOrderResult, error) {
	ctx, span := c.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.Int("order.lines", len(req.Lines))))
	defer span.End()

	requestID := logger.RequestIDFrom(ctx)

	event, err := c.placeOrder(ctx, &req)
	if err != nil {
		kind := apperror.KindOf(err)
		c.countOrder(kind.String())
		span.RecordError(err)
		span.SetStatus(codes.Error, kind.String())

		if kind == apperror.Storage {
			c.logger.Error("order_placement_failed", "Failed to place order", requestID, err, nil)
		} else {
			c.logger.Info("order_rejected", "Order rejected", requestID, map[string]interface{}{
				"reason": err.Error(),
				"kind":   kind.String(),
			})
		}
		return models.PlaceOrderResult{}, err
	}

	c.countOrder("success")
	span.SetAttributes(
		attribute.Int64("order.id", event.OrderID),
		attribute.Int64("order.total_price", event.TotalPrice),
	)
	c.logger.Info("order_placed", "Order placed", requestID, map[string]interface{}{
		"order_id":    event.OrderID,
		"total_price": event.TotalPrice,
		"lines":       len(event.Lines),
	})

	event.RequestID = requestID
	c.publish(ctx, models.RoutingOrderPlaced, event)

	return models.PlaceOrderResult{OrderID: event.OrderID, Status: event.Status}, nil
}

func (c *Coordinator) placeOrder(ctx context.Context, req *models.PlaceOrderRequest) (*models.OrderPlacedMessage, error) {
	if err := req.Validate(c.limits); err != nil {
		return nil, err
	}

	var event *models.OrderPlacedMessage
	err := c.tx.WithTx(ctx, func(q database.Querier) error {
		items, err := c.catalog.LockMenuItems(ctx, q, menuItemIDs(req.Lines))
		if err != nil {
			return err
		}

		lines, total, err := c.priceLines(ctx, q, req.Lines, items)
		if err != nil {
			return err
		}

		if req.TotalPrice != nil && *req.TotalPrice != total {
			return apperror.Withf(apperror.ErrTotalMismatch, "submitted %d, computed %d", *req.TotalPrice, total)
		}

		orderID, err := c.orders.InsertOrder(ctx, q, total, models.StatusReceived)
		if err != nil {
			return err
		}

		if req.IdempotencyKey != "" && c.keys != nil {
			rec := idempotency.Record{OrderID: orderID, RequestHash: req.RequestHash}
			if err := c.keys.Insert(ctx, q, req.IdempotencyKey, rec); err != nil {
				return err
			}
		}

		event = &models.OrderPlacedMessage{
			OrderID:    orderID,
			Status:     models.StatusReceived,
			TotalPrice: total,
			Lines:      make([]models.PlacedLine, 0, len(lines)),
			Timestamp:  time.Now().UTC(),
		}

		for i, line := range lines {
			optionIDs := make([]int64, len(line.options))
			for j, opt := range line.options {
				optionIDs[j] = opt.ID
			}

			lineID, err := c.orders.InsertLine(ctx, q, models.OrderLine{
				OrderID:    orderID,
				MenuItemID: line.req.MenuItemID,
				Quantity:   line.req.Quantity,
				Price:      line.price,
			})
			if err != nil {
				return fmt.Errorf("items[%d]: %w", i, err)
			}
			if err := c.orders.InsertLineOptions(ctx, q, lineID, optionIDs); err != nil {
				return fmt.Errorf("items[%d]: %w", i, err)
			}
			if err := c.stock.Reserve(ctx, q, line.req.MenuItemID, line.req.Quantity); err != nil {
				return fmt.Errorf("items[%d]: %w", i, err)
			}

			event.Lines = append(event.Lines, models.PlacedLine{
				MenuItemID: line.req.MenuItemID,
				OptionIDs:  optionIDs,
				Quantity:   line.req.Quantity,
				Price:      line.price,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// priceLines checks stock and prices each line against the locked items.
// Stock is tracked across lines so repeated items share one budget.
func (c *Coordinator) priceLines(ctx context.Context, q database.Querier, reqLines []models.LineRequest, items map[int64]models.MenuItem) ([]pricedLine, int64, error) {
	remaining := make(map[int64]int, len(items))
	for id, item := range items {
		remaining[id] = item.Stock
	}

	lines := make([]pricedLine, 0, len(reqLines))
	var total int64
	for i, line := range reqLines {
		item, ok := items[line.MenuItemID]
		if !ok {
			return nil, 0, apperror.Withf(apperror.ErrMenuItemNotFound, "items[%d]: menu item %d", i, line.MenuItemID)
		}
		if line.Quantity > remaining[item.ID] {
			return nil, 0, apperror.Withf(apperror.ErrInsufficientStock,
				"items[%d]: %s requested %d, available %d", i, item.Name, line.Quantity, remaining[item.ID])
		}
		remaining[item.ID] -= line.Quantity

		available, err := c.catalog.OptionsForItem(ctx, q, item.ID, models.UniqueIDs(line.OptionIDs))
		if err != nil {
			return nil, 0, err
		}
		selected := models.SelectOptions(available, line.OptionIDs)

		optionPrices := make([]int64, len(selected))
		for j, opt := range selected {
			optionPrices[j] = opt.Price
		}
		price, err := models.LinePrice(item.Price, optionPrices, line.Quantity)
		if err != nil {
			return nil, 0, fmt.Errorf("items[%d]: %w", i, err)
		}
		if total, err = models.AddPrice(total, price); err != nil {
			return nil, 0, err
		}

		lines = append(lines, pricedLine{req: line, options: selected, price: price})
	}
	return lines, total, nil
}

// menuItemIDs returns the distinct referenced ids in ascending order
func menuItemIDs(lines []models.LineRequest) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.MenuItemID)
	}
	ids = models.UniqueIDs(ids)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (c *Coordinator) countOrder(outcome string) {
	if c.metrics != nil {
		c.metrics.OrdersPlaced.WithLabelValues(outcome).Inc()
	}
}

// publish sends an event after commit. Failures are logged, never returned.
func (c *Coordinator) publish(ctx context.Context, routingKey string, message any) {
	if c.events == nil {
		return
	}

	result := "ok"
	if err := c.events.Publish(ctx, routingKey, message); err != nil {
		result = "error"
		c.logger.Warn("event_publish_failed", "Failed to publish order event", logger.RequestIDFrom(ctx), map[string]interface{}{
			"routing_key": routingKey,
			"error":       err.Error(),
		})
	}
	if c.metrics != nil {
		c.metrics.EventsPublished.WithLabelValues(routingKey, result).Inc()
	}
}
