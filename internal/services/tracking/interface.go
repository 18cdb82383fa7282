package tracking

import (
	"context"

	"cafe-orders/internal/database"
	"cafe-orders/internal/models"
)

// TxRunner scopes work to one storage transaction
type TxRunner interface {
	WithTx(ctx context.Context, fn func(q database.Querier) error) error
}

// StatusStore reads and writes an order's status inside a transaction
type StatusStore interface {
	LockStatus(ctx context.Context, q database.Querier, orderID int64) (models.OrderStatus, error)
	UpdateStatus(ctx context.Context, q database.Querier, orderID int64, status models.OrderStatus) error
}

// OrderReader is the joined read model of orders and their lines
type OrderReader interface {
	GetOrder(ctx context.Context, orderID int64) (models.OrderDetail, error)
	ListOrders(ctx context.Context) ([]models.OrderSummary, error)
}

// EventPublisher announces committed changes
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}
