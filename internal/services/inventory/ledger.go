package inventory

import (
	"context"
	"errors"

	"cafe-orders/internal/apperror"
	"cafe-orders/internal/database"
	"cafe-orders/internal/models"

	"github.com/jackc/pgx/v5"
)

// Ledger reads and adjusts per-item stock. Stock never goes negative.
type Ledger struct {
	db database.Querier
}

func NewLedger(db database.Querier) *Ledger {
	return &Ledger{db: db}
}

// ReadStock returns the current stock of a menu item
func (l *Ledger) ReadStock(ctx context.Context, menuItemID int64) (int, error) {
	var stock int
	err := l.db.QueryRow(ctx, database.GetStockSQL, menuItemID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperror.Withf(apperror.ErrMenuItemNotFound, "menu item %d", menuItemID)
	}
	if err != nil {
		return 0, database.Classify(err, "failed to read stock")
	}
	return stock, nil
}

// ListStock returns the stock of every menu item ordered by id
func (l *Ledger) ListStock(ctx context.Context) ([]models.StockEntry, error) {
	rows, err := l.db.Query(ctx, database.ListStockSQL)
	if err != nil {
		return nil, database.Classify(err, "failed to list stock")
	}
	defer rows.Close()

	entries := []models.StockEntry{}
	for rows.Next() {
		var e models.StockEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Stock); err != nil {
			return nil, database.Classify(err, "failed to scan stock")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Classify(err, "failed to list stock")
	}
	return entries, nil
}

// SetStock overwrites a menu item's stock. Negative values are rejected
// before storage is touched.
func (l *Ledger) SetStock(ctx context.Context, menuItemID int64, value int) (models.StockEntry, error) {
	if value < 0 {
		return models.StockEntry{}, apperror.ValidationError{Field: "stock", Message: "must be a number greater than or equal to 0"}
	}

	var e models.StockEntry
	err := l.db.QueryRow(ctx, database.SetStockSQL, menuItemID, value).Scan(&e.ID, &e.Name, &e.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.StockEntry{}, apperror.Withf(apperror.ErrMenuItemNotFound, "menu item %d", menuItemID)
	}
	if err != nil {
		return models.StockEntry{}, database.Classify(err, "failed to set stock")
	}
	return e, nil
}

// Reserve decrements stock by qty inside q's transaction. The decrement is
// guarded in SQL, so a short item yields ErrInsufficientStock and no change.
func (l *Ledger) Reserve(ctx context.Context, q database.Querier, menuItemID int64, qty int) error {
	tag, err := q.Exec(ctx, database.ReserveStockSQL, menuItemID, qty)
	if err != nil {
		return database.Classify(err, "failed to reserve stock")
	}
	if tag.RowsAffected() == 0 {
		return apperror.Withf(apperror.ErrInsufficientStock, "menu item %d: cannot reserve %d", menuItemID, qty)
	}
	return nil
}
