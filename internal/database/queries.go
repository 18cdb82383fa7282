package database

// Migration bookkeeping
const (
	createMigrationsTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			migration_name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`

	selectAppliedMigrationsSQL = `SELECT migration_name FROM schema_migrations`

	insertMigrationSQL = `INSERT INTO schema_migrations (migration_name) VALUES ($1)`
)

// Catalog queries
const (
	ListMenuItemsSQL = `
		SELECT id, name, description, price, image, stock
		FROM menu_items
		ORDER BY id`

	ListOptionsSQL = `
		SELECT id, menu_item_id, name, price
		FROM options
		ORDER BY menu_item_id, id`

	// Rows are locked in id order so concurrent multi-line orders
	// acquire them in the same sequence.
	LockMenuItemsSQL = `
		SELECT id, name, description, price, image, stock
		FROM menu_items
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`

	OptionsForItemSQL = `
		SELECT id, menu_item_id, name, price
		FROM options
		WHERE menu_item_id = $1 AND id = ANY($2)
		ORDER BY id`
)

// Inventory queries
const (
	GetStockSQL = `SELECT stock FROM menu_items WHERE id = $1`

	ListStockSQL = `
		SELECT id, name, stock
		FROM menu_items
		ORDER BY id`

	SetStockSQL = `
		UPDATE menu_items SET stock = $2
		WHERE id = $1
		RETURNING id, name, stock`

	ReserveStockSQL = `
		UPDATE menu_items SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`
)

// Order queries
const (
	InsertOrderSQL = `
		INSERT INTO orders (total_price, status)
		VALUES ($1, $2)
		RETURNING id, created_at`

	InsertOrderLineSQL = `
		INSERT INTO order_lines (order_id, menu_item_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	InsertOrderLineOptionSQL = `
		INSERT INTO order_line_options (order_line_id, option_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	GetOrderSQL = `
		SELECT id, created_at, total_price, status
		FROM orders WHERE id = $1`

	GetOrderLinesSQL = `
		SELECT ol.id, ol.menu_item_id, mi.name, ol.quantity, ol.price
		FROM order_lines ol
		JOIN menu_items mi ON mi.id = ol.menu_item_id
		WHERE ol.order_id = $1
		ORDER BY ol.id`

	GetOrderLineOptionsSQL = `
		SELECT olo.order_line_id, o.id, o.name, o.price
		FROM order_line_options olo
		JOIN options o ON o.id = olo.option_id
		JOIN order_lines ol ON ol.id = olo.order_line_id
		WHERE ol.order_id = $1
		ORDER BY olo.order_line_id, o.id`

	ListOrdersSQL = `
		SELECT o.id, o.created_at, o.total_price, o.status,
		       COALESCE(string_agg(mi.name || ' x ' || ol.quantity, ', ' ORDER BY ol.id), '')
		FROM orders o
		LEFT JOIN order_lines ol ON ol.order_id = o.id
		LEFT JOIN menu_items mi ON mi.id = ol.menu_item_id
		GROUP BY o.id
		ORDER BY o.created_at DESC, o.id DESC`

	LockOrderStatusSQL = `SELECT status FROM orders WHERE id = $1 FOR UPDATE`

	UpdateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`

	InsertOrderIdempotencySQL = `
		INSERT INTO order_idempotency (idempotency_key, request_hash, order_id)
		VALUES ($1, $2, $3)`

	GetOrderIdempotencySQL = `
		SELECT order_id, request_hash FROM order_idempotency WHERE idempotency_key = $1`
)
