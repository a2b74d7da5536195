package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tomlord1122/todo-list/internal/database/dbtest"
	"github.com/Tomlord1122/todo-list/internal/domain"
)

func TestCompletedColumnConversion(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1, completedToColumn(true))
	require.Equal(t, 0, completedToColumn(false))
	require.True(t, completedFromColumn(1))
	require.False(t, completedFromColumn(0))
	// Rows written by other tools may hold any truthy integer.
	require.True(t, completedFromColumn(2))
	require.True(t, completedFromColumn(-1))

	for _, v := range []bool{true, false} {
		require.Equal(t, v, completedFromColumn(completedToColumn(v)))
	}
}

func TestGormTodoRepositorySQLite(t *testing.T) {
	t.Parallel()
	runContract(t, func(t *testing.T) TodoRepository {
		return NewGormTodoRepository(dbtest.SQLite(t).GetDB())
	})
}

func TestGormTodoRepositoryPostgres(t *testing.T) {
	repo := NewGormTodoRepository(dbtest.Postgres(t).GetDB())
	// One container for the whole suite; each case cleans the table first.
	runContract(t, func(t *testing.T) TodoRepository {
		require.NoError(t, repo.(*gormTodoRepository).db.Exec(`DELETE FROM todos`).Error)
		return repo
	})
}

func runContract(t *testing.T, newRepo func(t *testing.T) TodoRepository) {
	ctx := context.Background()

	t.Run("list empty", func(t *testing.T) {
		repo := newRepo(t)
		todos, err := repo.List(ctx)
		require.NoError(t, err)
		require.NotNil(t, todos)
		require.Empty(t, todos)
	})

	t.Run("insert assigns increasing ids and completed false", func(t *testing.T) {
		repo := newRepo(t)
		a, err := repo.Insert(ctx, "first")
		require.NoError(t, err)
		b, err := repo.Insert(ctx, "second")
		require.NoError(t, err)

		require.Greater(t, a.ID, int64(0))
		require.Greater(t, b.ID, a.ID)
		require.False(t, a.Completed)
		require.Equal(t, "first", a.Title)
	})

	t.Run("list orders by id descending", func(t *testing.T) {
		repo := newRepo(t)
		var ids []int64
		for _, title := range []string{"one", "two", "three"} {
			todo, err := repo.Insert(ctx, title)
			require.NoError(t, err)
			ids = append(ids, todo.ID)
		}

		todos, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, todos, 3)
		require.Equal(t, []int64{ids[2], ids[1], ids[0]}, []int64{todos[0].ID, todos[1].ID, todos[2].ID})
		require.Equal(t, "three", todos[0].Title)
	})

	t.Run("find by id round trips insert", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Insert(ctx, "round trip")
		require.NoError(t, err)

		got, found, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, created, got)
	})

	t.Run("find missing id is not an error", func(t *testing.T) {
		repo := newRepo(t)
		_, found, err := repo.FindByID(ctx, 9999)
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("update fields independently", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Insert(ctx, "original")
		require.NoError(t, err)

		done := true
		require.NoError(t, repo.UpdateFields(ctx, created.ID, domain.TodoPatch{Completed: &done}))
		got, _, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, "original", got.Title)
		require.True(t, got.Completed)

		title := "renamed"
		require.NoError(t, repo.UpdateFields(ctx, created.ID, domain.TodoPatch{Title: &title}))
		got, _, err = repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, "renamed", got.Title)
		require.True(t, got.Completed)

		require.NoError(t, repo.UpdateFields(ctx, created.ID, domain.TodoPatch{}))
		again, _, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, got, again)
	})

	t.Run("delete is hard and reports missing rows", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Insert(ctx, "doomed")
		require.NoError(t, err)

		deleted, err := repo.Delete(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, deleted)

		_, found, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.False(t, found)

		deleted, err = repo.Delete(ctx, created.ID)
		require.NoError(t, err)
		require.False(t, deleted)
	})

	t.Run("ids are not reused after deleting the newest row", func(t *testing.T) {
		repo := newRepo(t)
		first, err := repo.Insert(ctx, "a")
		require.NoError(t, err)
		_, err = repo.Delete(ctx, first.ID)
		require.NoError(t, err)

		second, err := repo.Insert(ctx, "b")
		require.NoError(t, err)
		require.Greater(t, second.ID, first.ID)
	})

	t.Run("transaction rolls back on error", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Insert(ctx, "stable")
		require.NoError(t, err)

		boom := errors.New("boom")
		err = repo.Transaction(ctx, func(tx TodoRepository) error {
			title := "changed"
			if err := tx.UpdateFields(ctx, created.ID, domain.TodoPatch{Title: &title}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, _, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, "stable", got.Title)
	})

	t.Run("transaction commits", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Insert(ctx, "before")
		require.NoError(t, err)

		err = repo.Transaction(ctx, func(tx TodoRepository) error {
			title := "after"
			done := true
			return tx.UpdateFields(ctx, created.ID, domain.TodoPatch{Title: &title, Completed: &done})
		})
		require.NoError(t, err)

		got, _, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, domain.Todo{ID: created.ID, Title: "after", Completed: true}, got)
	})
}
