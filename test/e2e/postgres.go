//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marmos91/ormkit/pkg/database"
)

// PostgresHelper manages the PostgreSQL server used by E2E tests.
type PostgresHelper struct {
	Container testcontainers.Container
	Host      string
	Port      int
	Database  string
	User      string
	Password  string
}

// Shared PostgreSQL container for E2E tests (started once per test run)
var sharedPostgresHelper *PostgresHelper

// NewPostgresHelper returns the shared PostgreSQL helper, starting a container
// on first use. POSTGRES_HOST points the tests at an existing server instead.
func NewPostgresHelper(t *testing.T) *PostgresHelper {
	t.Helper()

	if sharedPostgresHelper != nil {
		return sharedPostgresHelper
	}

	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		port := 5432
		if p := os.Getenv("POSTGRES_PORT"); p != "" {
			n, err := strconv.Atoi(p)
			if err != nil {
				t.Fatalf("invalid POSTGRES_PORT %q: %v", p, err)
			}
			port = n
		}
		sharedPostgresHelper = &PostgresHelper{
			Host:     host,
			Port:     port,
			Database: envOr("POSTGRES_DATABASE", "ormkit_e2e"),
			User:     envOr("POSTGRES_USER", "ormkit"),
			Password: envOr("POSTGRES_PASSWORD", "ormkit"),
		}
		return sharedPostgresHelper
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "ormkit_e2e",
			"POSTGRES_USER":     "ormkit_e2e",
			"POSTGRES_PASSWORD": "ormkit_e2e",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("5432/tcp"),
		),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get container port: %v", err)
	}

	// No t.Cleanup: the container outlives the first test and is
	// terminated by TestMain.
	sharedPostgresHelper = &PostgresHelper{
		Container: container,
		Host:      host,
		Port:      port.Int(),
		Database:  "ormkit_e2e",
		User:      "ormkit_e2e",
		Password:  "ormkit_e2e",
	}
	return sharedPostgresHelper
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Config returns a database configuration for the server.
func (ph *PostgresHelper) Config(policy database.DestructiveMigration) database.Config {
	return database.Config{
		Type: database.TypePostgres,
		Postgres: database.PostgresConfig{
			Host:     ph.Host,
			Port:     ph.Port,
			Database: ph.Database,
			User:     ph.User,
			Password: ph.Password,
			SSLMode:  "disable",
		},
		DestructiveMigration: policy,
	}
}

// ConnectionString returns a PostgreSQL connection URL.
func (ph *PostgresHelper) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		ph.User, ph.Password, ph.Host, ph.Port, ph.Database)
}

// DropTables removes every table ormkit created so that each test starts
// from an empty database.
func (ph *PostgresHelper) DropTables(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, ph.ConnectionString())
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS users, ormkit_schema CASCADE`); err != nil {
		t.Fatalf("failed to drop tables: %v", err)
	}
}

// CountRows returns the number of rows in table, read outside of GORM.
func (ph *PostgresHelper) CountRows(t *testing.T, table string) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, ph.ConnectionString())
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	var n int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}
