package order

import (
	"context"

	"cafe-orders/internal/database"
	"cafe-orders/internal/models"
)

// Repository writes the order graph through the caller's transaction
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// InsertOrder creates the order row and returns its id
func (r *Repository) InsertOrder(ctx context.Context, q database.Querier, total int64, status models.OrderStatus) (int64, error) {
	var order models.Order
	err := q.QueryRow(ctx, database.InsertOrderSQL, total, status).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return 0, database.Classify(err, "failed to insert order")
	}
	return order.ID, nil
}

// InsertLine creates one order line and returns its id
func (r *Repository) InsertLine(ctx context.Context, q database.Querier, line models.OrderLine) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, database.InsertOrderLineSQL, line.OrderID, line.MenuItemID, line.Quantity, line.Price).Scan(&id)
	if err != nil {
		return 0, database.Classify(err, "failed to insert order line")
	}
	return id, nil
}

// InsertLineOptions attaches options to a line
func (r *Repository) InsertLineOptions(ctx context.Context, q database.Querier, lineID int64, optionIDs []int64) error {
	for _, optionID := range optionIDs {
		if _, err := q.Exec(ctx, database.InsertOrderLineOptionSQL, lineID, optionID); err != nil {
			return database.Classify(err, "failed to insert order line option")
		}
	}
	return nil
}
