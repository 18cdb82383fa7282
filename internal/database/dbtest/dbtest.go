// Package dbtest starts a throwaway PostgreSQL container with the schema
// applied, for integration tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cafe-orders/internal/database"
	"cafe-orders/internal/logger"
	"cafe-orders/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	image    = "postgres:16-alpine"
	user     = "cafe"
	password = "cafe"
	dbName   = "cafe_orders"
)

// New returns a migrated database backed by a fresh container. The test is
// skipped under -short or when no container runtime is available.
func New(t *testing.T) *database.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     user,
				"POSTGRES_PASSWORD": password,
				"POSTGRES_DB":       dbName,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}

	url := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port.Port(), dbName)
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	db := database.NewFromPool(pool, logger.Discard())
	if err := db.RunMigrations(ctx, migrations.Files); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// SeedMenuItem inserts a menu item and returns its id
func SeedMenuItem(t *testing.T, db *database.DB, name string, price int64, stock int) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(context.Background(),
		`INSERT INTO menu_items (name, price, stock) VALUES ($1, $2, $3) RETURNING id`,
		name, price, stock).Scan(&id)
	if err != nil {
		t.Fatalf("failed to seed menu item: %v", err)
	}
	return id
}

// SeedOption inserts an option for menuItemID and returns its id
func SeedOption(t *testing.T, db *database.DB, menuItemID int64, name string, price int64) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(context.Background(),
		`INSERT INTO options (menu_item_id, name, price) VALUES ($1, $2, $3) RETURNING id`,
		menuItemID, name, price).Scan(&id)
	if err != nil {
		t.Fatalf("failed to seed option: %v", err)
	}
	return id
}

// Count returns the row count of table
func Count(t *testing.T, db *database.DB, table string) int {
	t.Helper()

	var n int
	if err := db.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}
