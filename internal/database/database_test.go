//go:build integration

package database_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dejobratic/salestax/internal/database"
	"github.com/testcontainers/testcontainers-go"
	testpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestMigrationsAndPool(t *testing.T) {
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

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	migrationsPath := filepath.Join(wd, "..", "..", "migrations")

	first, err := database.RunMigrations(connStr, migrationsPath)
	if err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	second, err := database.RunMigrations(connStr, migrationsPath)
	if err != nil {
		t.Fatalf("re-running migrations should be a no-op: %v", err)
	}
	if first != second || first == 0 {
		t.Errorf("expected a stable non-zero version, got %d then %d", first, second)
	}

	pool, err := database.NewPool(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}

	if err := database.CheckHealth(ctx, pool); err != nil {
		t.Errorf("expected healthy pool: %v", err)
	}

	var tables int
	if err := pool.QueryRow(ctx,
		`SELECT count(*) FROM information_schema.tables WHERE table_name IN ('order_groups', 'ordered_documents', 'shipments', 'order_fields', 'tax_calculations')`,
	).Scan(&tables); err != nil {
		t.Fatalf("failed to count tables: %v", err)
	}
	if tables != 5 {
		t.Errorf("expected 5 tables, got %d", tables)
	}

	pool.Close()
	if err := database.CheckHealth(ctx, pool); err == nil {
		t.Error("expected closed pool to fail health check")
	}

	if _, err := database.NewPool(ctx, "postgres://%zz"); err == nil {
		t.Error("expected invalid url to fail")
	}
}
