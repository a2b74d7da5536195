package server

import (
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/Tomlord1122/todo-list/internal/config"
	"github.com/Tomlord1122/todo-list/internal/database"
	"github.com/Tomlord1122/todo-list/internal/service"
)

type Server struct {
	todoService service.TodoService
	db          database.Service
	logger      *slog.Logger
	index       *template.Template
}

// New wires the handlers. Use RegisterRoutes for the http.Handler, or
// NewServer for a ready-to-run http.Server.
func New(todoService service.TodoService, dbService database.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		todoService: todoService,
		db:          dbService,
		logger:      logger,
		index:       template.Must(template.ParseFS(webFS, "web/templates/index.html")),
	}
}

func NewServer(cfg config.Server, todoService service.TodoService, dbService database.Service, logger *slog.Logger) *http.Server {
	appServer := New(todoService, dbService, logger)

	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      appServer.RegisterRoutes(),
		ErrorLog:     slog.NewLogLogger(appServer.logger.Handler(), slog.LevelError),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
