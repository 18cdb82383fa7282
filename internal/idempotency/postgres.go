package idempotency

import (
	"context"
	"errors"

	"cafe-orders/internal/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const codeUniqueViolation = "23505"

// Records is the durable key to order mapping. Insert runs inside the
// order's transaction, so a committed order always has its key recorded.
type Records struct {
	db database.Querier
}

func NewRecords(db database.Querier) *Records {
	return &Records{db: db}
}

// Insert records key for an order within q
func (r *Records) Insert(ctx context.Context, q database.Querier, key string, rec Record) error {
	_, err := q.Exec(ctx, database.InsertOrderIdempotencySQL, key, rec.RequestHash, rec.OrderID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return ErrDuplicate
	}
	if err != nil {
		return database.Classify(err, "failed to record idempotency key")
	}
	return nil
}

// Lookup returns the record for key, if one was committed
func (r *Records) Lookup(ctx context.Context, key string) (Record, bool, error) {
	var rec Record
	err := r.db.QueryRow(ctx, database.GetOrderIdempotencySQL, key).Scan(&rec.OrderID, &rec.RequestHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, database.Classify(err, "failed to look up idempotency key")
	}
	return rec, true, nil
}
