package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Tomlord1122/todo-list/internal/config"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Service owns the connection pool. Callers take a per-request session with
// GetDB().WithContext(ctx); the pool hands the connection back when the
// statement or transaction finishes.
type Service interface {
	Health(ctx context.Context) map[string]string
	Migrate(ctx context.Context) error
	Close() error
	GetDB() *gorm.DB
	Driver() string
}

type service struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	driver string
	target string
	logger *slog.Logger
}

func New(cfg config.Database, log *slog.Logger) (Service, error) {
	if log == nil {
		log = slog.Default()
	}

	var (
		sqlDB     *sql.DB
		dialector gorm.Dialector
		target    string
		err       error
	)
	switch cfg.Driver {
	case config.DriverSQLite, "":
		sqlDB, target, err = openSQLite(cfg)
		if err != nil {
			return nil, err
		}
		dialector = &sqlite.Dialector{DriverName: "sqlite", Conn: sqlDB}
		sqlDB.SetMaxOpenConns(16)
		sqlDB.SetMaxIdleConns(8)
	case config.DriverPostgres:
		sqlDB, target, err = openPostgres(cfg)
		if err != nil {
			return nil, err
		}
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	default:
		return nil, fmt.Errorf("open database: unknown driver %q", cfg.Driver)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(log)})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open database %s: %w", target, err)
	}

	driver := cfg.Driver
	if driver == "" {
		driver = config.DriverSQLite
	}
	log.Info("database opened", slog.String("driver", driver), slog.String("target", target))

	return &service{db: db, sqlDB: sqlDB, driver: driver, target: target, logger: log}, nil
}

func openSQLite(cfg config.Database) (*sql.DB, string, error) {
	if cfg.Path == "" {
		return nil, "", fmt.Errorf("open sqlite: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, "", fmt.Errorf("open sqlite: create parent dir: %w", err)
	}

	db, err := sql.Open("sqlite", sqliteDSN(cfg.Path))
	if err != nil {
		return nil, "", fmt.Errorf("open sqlite %q: %w", cfg.Path, err)
	}
	return db, cfg.Path, nil
}

// sqliteDSN applies the pragmas on every pooled connection, not just the
// first one. Immediate transactions take the write lock up front so a
// read-then-write unit of work waits on busy_timeout instead of failing.
func sqliteDSN(path string) string {
	params := []string{
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
		"_pragma=foreign_keys(1)",
		"_txlock=immediate",
	}
	return "file:" + path + "?" + strings.Join(params, "&")
}

func openPostgres(cfg config.Database) (*sql.DB, string, error) {
	dsn := cfg.DSN
	target := "postgres"
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			cfg.Host, cfg.Username, cfg.Password, cfg.Name, cfg.Port)
		if cfg.Schema != "" {
			dsn += " search_path=" + cfg.Schema
		}
		target = fmt.Sprintf("%s:%s/%s", cfg.Host, cfg.Port, cfg.Name)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, "", fmt.Errorf("open postgres: %w", err)
	}
	return db, target, nil
}

func newGormLogger(log *slog.Logger) logger.Interface {
	level := logger.Warn
	if log.Enabled(context.Background(), slog.LevelDebug) {
		level = logger.Info
	}
	return logger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelInfo),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

func (s *service) GetDB() *gorm.DB {
	return s.db
}

func (s *service) Driver() string {
	return s.driver
}

// Migrate applies the schema script for the active driver. The script only
// uses CREATE ... IF NOT EXISTS, so running it on every start is safe.
func (s *service) Migrate(ctx context.Context) error {
	script, err := schemaFS.ReadFile("schema/" + s.driver + ".sql")
	if err != nil {
		return fmt.Errorf("migrate: load schema for %s: %w", s.driver, err)
	}
	if err := s.db.WithContext(ctx).Exec(strings.TrimSpace(string(script))).Error; err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	s.logger.Info("schema applied", slog.String("driver", s.driver))
	return nil
}

func (s *service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	stats := make(map[string]string)
	if err := s.sqlDB.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = "database unreachable"
		s.logger.Error("db down", slog.Any("error", err))
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"
	stats["driver"] = s.driver

	dbStats := s.sqlDB.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()
	stats["max_idle_closed"] = strconv.FormatInt(dbStats.MaxIdleClosed, 10)
	stats["max_lifetime_closed"] = strconv.FormatInt(dbStats.MaxLifetimeClosed, 10)

	if limit := dbStats.MaxOpenConnections; limit > 0 && dbStats.OpenConnections > limit*8/10 {
		stats["message"] = "The database is experiencing heavy load."
	}
	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	return stats
}

func (s *service) Close() error {
	s.logger.Info("closing database", slog.String("target", s.target))
	return s.sqlDB.Close()
}
