package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tomlord1122/todo-list/internal/database"
	"github.com/Tomlord1122/todo-list/internal/repository"
	"github.com/Tomlord1122/todo-list/internal/server"
	"github.com/Tomlord1122/todo-list/internal/service"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Create the schema if needed and serve the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func newMigrateCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database and todos table if absent, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, closer, err := setup(opts)
			if err != nil {
				return err
			}
			defer closer.Close()

			dbService, err := database.New(cfg.Database, logger)
			if err != nil {
				return err
			}
			defer dbService.Close()

			return dbService.Migrate(cmd.Context())
		},
	}
}

// runServe blocks until the command context is cancelled (SIGINT/SIGTERM
// from main) or the listener fails.
func runServe(cmd *cobra.Command, opts *globalOptions) error {
	cfg, logger, closer, err := setup(opts)
	if err != nil {
		return err
	}
	defer closer.Close()

	dbService, err := database.New(cfg.Database, logger)
	if err != nil {
		return err
	}
	if err := dbService.Migrate(cmd.Context()); err != nil {
		_ = dbService.Close()
		return err
	}

	todoRepo := repository.NewGormTodoRepository(dbService.GetDB())
	todoService := service.NewTodoService(todoRepo, logger)
	apiServer := server.NewServer(cfg.Server, todoService, dbService, logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	done := make(chan struct{})
	go gracefulShutdown(ctx, apiServer, dbService, logger, done)

	logger.Info("starting server", slog.String("addr", apiServer.Addr))
	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		cancel()
		<-done
		return fmt.Errorf("http server: %w", err)
	}

	<-done
	logger.Info("graceful shutdown complete")
	return nil
}

func gracefulShutdown(ctx context.Context, apiServer *http.Server, dbService database.Service, logger *slog.Logger, done chan<- struct{}) {
	defer close(done)

	<-ctx.Done()
	logger.Info("shutting down gracefully")

	// In-flight requests get shutdownTimeout to finish.
	ctxTimeout, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		logger.Error("server forced to shutdown", slog.Any("error", err))
	}

	if err := dbService.Close(); err != nil {
		logger.Error("close database", slog.Any("error", err))
	}
}
