package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Tomlord1122/todo-list/internal/domain"
	"github.com/Tomlord1122/todo-list/internal/repository"
)

// CreateTodoRequest holds the data needed to create a new todo.
// Handlers fill it field by field from the request body; it is never
// decoded directly.
type CreateTodoRequest struct {
	Title string
}

// UpdateTodoRequest holds the data for updating an existing todo.
// Using pointers allows distinguishing between a field being omitted
// vs. being set to its zero value (e.g., setting Completed to false).
type UpdateTodoRequest struct {
	Title     *string
	Completed *bool
}

// TodoService defines the operations for managing todos.
// It contains the core business logic
type TodoService interface {
	// ListTodos returns every todo, newest first. Never nil.
	ListTodos(ctx context.Context) ([]domain.Todo, error)

	// CreateTodo trims the title and stores a new, not yet completed todo.
	// An empty title yields domain.ErrTitleRequired.
	CreateTodo(ctx context.Context, req CreateTodoRequest) (domain.Todo, error)

	// GetTodo reports found=false when the id does not exist.
	GetTodo(ctx context.Context, id int64) (todo domain.Todo, found bool, err error)

	// UpdateTodo applies the supplied fields in one transaction and returns
	// the reloaded todo. Fails with domain.ErrNotFound or domain.ErrTitleEmpty.
	UpdateTodo(ctx context.Context, id int64, req UpdateTodoRequest) (domain.Todo, error)

	// DeleteTodo hard-deletes a todo. Fails with domain.ErrNotFound.
	DeleteTodo(ctx context.Context, id int64) error
}

// todoService implements the TodoService interface.
type todoService struct {
	repo   repository.TodoRepository
	logger *slog.Logger
}

// NewTodoService creates a new instance of todoService.
func NewTodoService(repo repository.TodoRepository, logger *slog.Logger) TodoService {
	if logger == nil {
		logger = slog.Default()
	}
	return &todoService{
		repo:   repo,
		logger: logger,
	}
}

func (s *todoService) ListTodos(ctx context.Context) ([]domain.Todo, error) {
	todos, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []domain.Todo{}
	}
	return todos, nil
}

func (s *todoService) CreateTodo(ctx context.Context, req CreateTodoRequest) (domain.Todo, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Todo{}, domain.ErrTitleRequired
	}

	todo, err := s.repo.Insert(ctx, title)
	if err != nil {
		return domain.Todo{}, err
	}
	s.logger.DebugContext(ctx, "todo created", slog.Int64("id", todo.ID))
	return todo, nil
}

func (s *todoService) GetTodo(ctx context.Context, id int64) (domain.Todo, bool, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *todoService) UpdateTodo(ctx context.Context, id int64, req UpdateTodoRequest) (domain.Todo, error) {
	var updated domain.Todo
	err := s.repo.Transaction(ctx, func(tx repository.TodoRepository) error {
		// Existence is checked before the title so an unknown id is always a 404.
		current, found, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrNotFound
		}

		patch := domain.TodoPatch{Completed: req.Completed}
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return domain.ErrTitleEmpty
			}
			patch.Title = &title
		}
		if patch.IsEmpty() {
			updated = current
			return nil
		}

		if err := tx.UpdateFields(ctx, id, patch); err != nil {
			return err
		}
		updated, found, err = tx.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("reload todo %d: %w", id, domain.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return domain.Todo{}, err
	}
	s.logger.DebugContext(ctx, "todo updated", slog.Int64("id", id))
	return updated, nil
}

func (s *todoService) DeleteTodo(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	s.logger.DebugContext(ctx, "todo deleted", slog.Int64("id", id))
	return nil
}
