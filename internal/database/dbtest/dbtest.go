// Package dbtest opens migrated stores for tests.
package dbtest

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Tomlord1122/todo-list/internal/config"
	"github.com/Tomlord1122/todo-list/internal/database"
)

func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SQLite returns a migrated store backed by a file in t.TempDir().
func SQLite(t testing.TB) database.Service {
	t.Helper()
	return open(t, config.Database{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "todo.db"),
	})
}

// Postgres starts a throwaway postgres container and returns a migrated
// store on it. The test is skipped under -short or without a Docker daemon.
func Postgres(t *testing.T) database.Service {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("todos"),
		postgres.WithUsername("todo"),
		postgres.WithPassword("todo"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if ctr != nil {
		t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })
	}
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	return open(t, config.Database{Driver: config.DriverPostgres, DSN: dsn})
}

func open(t testing.TB, cfg config.Database) database.Service {
	t.Helper()
	srv, err := database.New(cfg, Logger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	require.NoError(t, srv.Migrate(context.Background()))
	return srv
}
