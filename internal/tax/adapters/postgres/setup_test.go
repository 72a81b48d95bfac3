//go:build integration

package postgres_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dejobratic/salestax/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	testpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testpostgres.Run(ctx,
		"postgres:16-alpine",
		testpostgres.WithDatabase("salestax"),
		testpostgres.WithUsername("test"),
		testpostgres.WithPassword("test"),
		testpostgres.BasicWaitStrategies(),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	migrationsPath := filepath.Join(findProjectRoot(t), "migrations")
	version, err := database.RunMigrations(connStr, migrationsPath)
	if err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	if version != 2 {
		t.Fatalf("expected schema version 2, got %d", version)
	}

	pool, err := database.NewPool(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
	})

	return pool
}

func findProjectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

type seedOrder struct {
	id        string
	handling  int64
	prices    []int64
	shipments []*int64
	fields    map[string]string
}

func seed(t *testing.T, pool *pgxpool.Pool, order seedOrder) {
	t.Helper()
	ctx := context.Background()

	if _, err := pool.Exec(ctx,
		`INSERT INTO order_groups (order_group_id, handling_charge) VALUES ($1, $2)`,
		order.id, order.handling,
	); err != nil {
		t.Fatalf("failed to insert order group: %v", err)
	}

	for _, price := range order.prices {
		if _, err := pool.Exec(ctx,
			`INSERT INTO ordered_documents (order_group_id, price) VALUES ($1, $2)`,
			order.id, price,
		); err != nil {
			t.Fatalf("failed to insert ordered document: %v", err)
		}
	}

	for _, amount := range order.shipments {
		if _, err := pool.Exec(ctx,
			`INSERT INTO shipments (order_group_id, shipping_amount) VALUES ($1, $2)`,
			order.id, amount,
		); err != nil {
			t.Fatalf("failed to insert shipment: %v", err)
		}
	}

	for name, value := range order.fields {
		if _, err := pool.Exec(ctx,
			`INSERT INTO order_fields (order_group_id, field_name, field_value) VALUES ($1, $2, $3)`,
			order.id, name, value,
		); err != nil {
			t.Fatalf("failed to insert order field: %v", err)
		}
	}
}

func cents(v int64) *int64 {
	return &v
}
