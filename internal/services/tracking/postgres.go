package tracking

import (
	"context"
	"errors"

	"cafe-orders/internal/apperror"
	"cafe-orders/internal/database"
	"cafe-orders/internal/models"

	"github.com/jackc/pgx/v5"
)

// Repository is the PostgreSQL StatusStore and OrderReader
type Repository struct {
	db database.Querier
}

func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// LockStatus returns the order's status and holds its row lock until q ends
func (r *Repository) LockStatus(ctx context.Context, q database.Querier, orderID int64) (models.OrderStatus, error) {
	var status models.OrderStatus
	err := q.QueryRow(ctx, database.LockOrderStatusSQL, orderID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperror.Withf(apperror.ErrOrderNotFound, "order %d", orderID)
	}
	if err != nil {
		return "", database.Classify(err, "failed to lock order status")
	}
	return status, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, q database.Querier, orderID int64, status models.OrderStatus) error {
	tag, err := q.Exec(ctx, database.UpdateOrderStatusSQL, orderID, status)
	if err != nil {
		return database.Classify(err, "failed to update order status")
	}
	if tag.RowsAffected() == 0 {
		return apperror.Withf(apperror.ErrOrderNotFound, "order %d", orderID)
	}
	return nil
}

// GetOrder loads an order with its lines and their selected options
func (r *Repository) GetOrder(ctx context.Context, orderID int64) (models.OrderDetail, error) {
	var detail models.OrderDetail
	err := r.db.QueryRow(ctx, database.GetOrderSQL, orderID).
		Scan(&detail.ID, &detail.OrderTime, &detail.TotalPrice, &detail.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.OrderDetail{}, apperror.Withf(apperror.ErrOrderNotFound, "order %d", orderID)
	}
	if err != nil {
		return models.OrderDetail{}, database.Classify(err, "failed to load order")
	}

	rows, err := r.db.Query(ctx, database.GetOrderLinesSQL, orderID)
	if err != nil {
		return models.OrderDetail{}, database.Classify(err, "failed to load order lines")
	}
	defer rows.Close()

	detail.Items = []models.LineDetail{}
	index := make(map[int64]int)
	for rows.Next() {
		var lineID int64
		var line models.LineDetail
		if err := rows.Scan(&lineID, &line.MenuItemID, &line.MenuName, &line.Quantity, &line.Price); err != nil {
			return models.OrderDetail{}, database.Classify(err, "failed to scan order line")
		}
		line.SelectedOptions = []models.Option{}
		index[lineID] = len(detail.Items)
		detail.Items = append(detail.Items, line)
	}
	if err := rows.Err(); err != nil {
		return models.OrderDetail{}, database.Classify(err, "failed to load order lines")
	}

	optRows, err := r.db.Query(ctx, database.GetOrderLineOptionsSQL, orderID)
	if err != nil {
		return models.OrderDetail{}, database.Classify(err, "failed to load order line options")
	}
	defer optRows.Close()

	for optRows.Next() {
		var lineID int64
		var opt models.Option
		if err := optRows.Scan(&lineID, &opt.ID, &opt.Name, &opt.Price); err != nil {
			return models.OrderDetail{}, database.Classify(err, "failed to scan order line option")
		}
		if i, ok := index[lineID]; ok {
			detail.Items[i].SelectedOptions = append(detail.Items[i].SelectedOptions, opt)
		}
	}
	if err := optRows.Err(); err != nil {
		return models.OrderDetail{}, database.Classify(err, "failed to load order line options")
	}

	return detail, nil
}

// ListOrders returns every order newest first with a "name x qty" summary
func (r *Repository) ListOrders(ctx context.Context) ([]models.OrderSummary, error) {
	rows, err := r.db.Query(ctx, database.ListOrdersSQL)
	if err != nil {
		return nil, database.Classify(err, "failed to list orders")
	}
	defer rows.Close()

	orders := []models.OrderSummary{}
	for rows.Next() {
		var o models.OrderSummary
		if err := rows.Scan(&o.ID, &o.OrderTime, &o.TotalPrice, &o.Status, &o.MenuSummary); err != nil {
			return nil, database.Classify(err, "failed to scan order")
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Classify(err, "failed to list orders")
	}
	return orders, nil
}
