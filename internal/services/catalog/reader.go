package catalog

import (
	"context"

	"cafe-orders/internal/database"
	"cafe-orders/internal/models"
)

// Reader is the read-only view of menu items and their options
type Reader struct {
	db database.Querier
}

func NewReader(db database.Querier) *Reader {
	return &Reader{db: db}
}

// ListMenu returns every menu item ordered by id, each with its options
func (r *Reader) ListMenu(ctx context.Context) ([]models.MenuItemView, error) {
	rows, err := r.db.Query(ctx, database.ListMenuItemsSQL)
	if err != nil {
		return nil, database.Classify(err, "failed to list menu items")
	}
	defer rows.Close()

	var items []models.MenuItemView
	index := make(map[int64]int)
	for rows.Next() {
		var v models.MenuItemView
		if err := rows.Scan(&v.ID, &v.Name, &v.Description, &v.Price, &v.Image, &v.Stock); err != nil {
			return nil, database.Classify(err, "failed to scan menu item")
		}
		v.Options = []models.Option{}
		index[v.ID] = len(items)
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Classify(err, "failed to list menu items")
	}

	opts, err := r.scanOptions(ctx, r.db, database.ListOptionsSQL)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if i, ok := index[opt.MenuItemID]; ok {
			items[i].Options = append(items[i].Options, opt)
		}
	}

	if items == nil {
		items = []models.MenuItemView{}
	}
	return items, nil
}

// LockMenuItems loads and row-locks the given items inside q's transaction.
// Missing ids are simply absent from the result.
func (r *Reader) LockMenuItems(ctx context.Context, q database.Querier, ids []int64) (map[int64]models.MenuItem, error) {
	rows, err := q.Query(ctx, database.LockMenuItemsSQL, ids)
	if err != nil {
		return nil, database.Classify(err, "failed to lock menu items")
	}
	defer rows.Close()

	items := make(map[int64]models.MenuItem, len(ids))
	for rows.Next() {
		var m models.MenuItem
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Price, &m.Image, &m.Stock); err != nil {
			return nil, database.Classify(err, "failed to scan menu item")
		}
		items[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, database.Classify(err, "failed to lock menu items")
	}
	return items, nil
}

// OptionsForItem returns the requested options that belong to menuItemID
func (r *Reader) OptionsForItem(ctx context.Context, q database.Querier, menuItemID int64, optionIDs []int64) ([]models.Option, error) {
	if len(optionIDs) == 0 {
		return nil, nil
	}
	return r.scanOptions(ctx, q, database.OptionsForItemSQL, menuItemID, optionIDs)
}

func (r *Reader) scanOptions(ctx context.Context, q database.Querier, sql string, args ...any) ([]models.Option, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, database.Classify(err, "failed to load options")
	}
	defer rows.Close()

	var opts []models.Option
	for rows.Next() {
		var o models.Option
		if err := rows.Scan(&o.ID, &o.MenuItemID, &o.Name, &o.Price); err != nil {
			return nil, database.Classify(err, "failed to scan option")
		}
		opts = append(opts, o)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Classify(err, "failed to load options")
	}
	return opts, nil
}
