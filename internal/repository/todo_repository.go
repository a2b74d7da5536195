package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Tomlord1122/todo-list/internal/domain"
)

// TodoRepository defines the row-level operations on the todos table.
type TodoRepository interface {
	List(ctx context.Context) ([]domain.Todo, error)
	Insert(ctx context.Context, title string) (domain.Todo, error)
	// FindByID reports found=false, with a nil error, when no row matches.
	FindByID(ctx context.Context, id int64) (todo domain.Todo, found bool, err error)
	UpdateFields(ctx context.Context, id int64, patch domain.TodoPatch) error
	Delete(ctx context.Context, id int64) (deleted bool, err error)
	// Transaction runs fn against a repository bound to a single transaction.
	// Returning an error from fn rolls it back.
	Transaction(ctx context.Context, fn func(tx TodoRepository) error) error
}

// todoRow mirrors the todos table. Columns are scanned by name.
type todoRow struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Title     string `gorm:"column:title;not null"`
	Completed int    `gorm:"column:completed;not null"`
}

func (todoRow) TableName() string {
	return "todos"
}

func (r todoRow) toDomain() domain.Todo {
	return domain.Todo{
		ID:        r.ID,
		Title:     r.Title,
		Completed: completedFromColumn(r.Completed),
	}
}

// completedToColumn and completedFromColumn are the only places the
// completed flag changes representation.
func completedToColumn(completed bool) int {
	if completed {
		return 1
	}
	return 0
}

func completedFromColumn(v int) bool {
	return v != 0
}

// gormTodoRepository implements TodoRepository using GORM
type gormTodoRepository struct {
	db *gorm.DB
}

// NewGormTodoRepository creates a new GORM todo repository
func NewGormTodoRepository(db *gorm.DB) TodoRepository {
	return &gormTodoRepository{db: db}
}

func (r *gormTodoRepository) session(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// List retrieves all todos, newest first
func (r *gormTodoRepository) List(ctx context.Context) ([]domain.Todo, error) {
	var rows []todoRow
	if err := r.session(ctx).Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}

	todos := make([]domain.Todo, 0, len(rows))
	for _, row := range rows {
		todos = append(todos, row.toDomain())
	}
	return todos, nil
}

// Insert adds a new, not yet completed todo and returns it with its id
func (r *gormTodoRepository) Insert(ctx context.Context, title string) (domain.Todo, error) {
	row := todoRow{Title: title, Completed: completedToColumn(false)}
	if err := r.session(ctx).Create(&row).Error; err != nil {
		return domain.Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	return row.toDomain(), nil
}

// FindByID retrieves a todo by its ID
func (r *gormTodoRepository) FindByID(ctx context.Context, id int64) (domain.Todo, bool, error) {
	var row todoRow
	err := r.session(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Todo{}, false, nil
	}
	if err != nil {
		return domain.Todo{}, false, fmt.Errorf("find todo %d: %w", id, err)
	}
	return row.toDomain(), true, nil
}

// UpdateFields writes only the columns present in patch. An empty patch is
// a no-op.
func (r *gormTodoRepository) UpdateFields(ctx context.Context, id int64, patch domain.TodoPatch) error {
	updates := make(map[string]any, 2)
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Completed != nil {
		updates["completed"] = completedToColumn(*patch.Completed)
	}
	if len(updates) == 0 {
		return nil
	}

	err := r.session(ctx).Model(&todoRow{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		return fmt.Errorf("update todo %d: %w", id, err)
	}
	return nil
}

// Delete removes the row permanently.
func (r *gormTodoRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result := r.session(ctx).Where("id = ?", id).Delete(&todoRow{})
	if result.Error != nil {
		return false, fmt.Errorf("delete todo %d: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Transaction runs fn inside a single database transaction
func (r *gormTodoRepository) Transaction(ctx context.Context, fn func(tx TodoRepository) error) error {
	return r.session(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTodoRepository{db: tx})
	})
}
