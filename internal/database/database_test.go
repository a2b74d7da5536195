package database

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tomlord1122/todo-list/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestSQLite(t *testing.T) (Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "todo.db")
	srv, err := New(config.Database{Driver: config.DriverSQLite, Path: path}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv, path
}

func TestNewSQLiteCreatesFileOnMigrate(t *testing.T) {
	t.Parallel()

	srv, path := openTestSQLite(t)
	require.Equal(t, config.DriverSQLite, srv.Driver())
	require.NoError(t, srv.Migrate(context.Background()))

	_, err := os.Stat(path)
	require.NoError(t, err)
	require.True(t, srv.GetDB().Migrator().HasTable("todos"))
}

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	srv, _ := openTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, srv.Migrate(ctx))
	require.NoError(t, srv.GetDB().Exec(`INSERT INTO todos (title) VALUES (?)`, "keep me").Error)

	require.NoError(t, srv.Migrate(ctx))

	var count int64
	require.NoError(t, srv.GetDB().Table("todos").Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestSQLiteSchemaDefaults(t *testing.T) {
	t.Parallel()

	srv, _ := openTestSQLite(t)
	require.NoError(t, srv.Migrate(context.Background()))
	require.NoError(t, srv.GetDB().Exec(`INSERT INTO todos (title) VALUES (?)`, "a").Error)

	var completed int
	require.NoError(t, srv.GetDB().Raw(`SELECT completed FROM todos WHERE title = ?`, "a").Scan(&completed).Error)
	require.Equal(t, 0, completed)

	err := srv.GetDB().Exec(`INSERT INTO todos (title) VALUES (NULL)`).Error
	require.Error(t, err)
}

func TestHealthReportsUpThenDownAfterClose(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "todo.db")
	srv, err := New(config.Database{Driver: config.DriverSQLite, Path: path}, discardLogger())
	require.NoError(t, err)

	stats := srv.Health(context.Background())
	require.Equal(t, "up", stats["status"])
	require.Equal(t, config.DriverSQLite, stats["driver"])
	require.Contains(t, stats, "open_connections")

	require.NoError(t, srv.Close())

	stats = srv.Health(context.Background())
	require.Equal(t, "down", stats["status"])
	require.NotContains(t, stats["error"], path)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := New(config.Database{Driver: "mysql"}, discardLogger())
	require.Error(t, err)
}

func TestSQLiteDSNCarriesPragmas(t *testing.T) {
	t.Parallel()

	dsn := sqliteDSN("data/todo.db")
	require.Contains(t, dsn, "file:data/todo.db?")
	require.Contains(t, dsn, "_pragma=busy_timeout(5000)")
	require.Contains(t, dsn, "_txlock=immediate")
}
