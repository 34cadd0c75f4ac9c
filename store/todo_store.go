package store

import (
	"context"

	"github.com/Skryldev/graphql-todo/db"
	"github.com/Skryldev/graphql-todo/logging"
	"github.com/Skryldev/graphql-todo/models"
	"github.com/Skryldev/graphql-todo/repo"
	"github.com/Skryldev/graphql-todo/validation"
)

// TodoStore exposes the todo operations of the API.
type TodoStore struct {
	todos repo.TodoRepository
}

// NewTodoStore returns a TodoStore over r.
func NewTodoStore(r repo.TodoRepository) *TodoStore {
	return &TodoStore{todos: r}
}

// ListTodos returns every todo with its owner, newest first.
func (s *TodoStore) ListTodos(ctx context.Context) ([]*models.TodoWithUser, error) {
	todos, err := s.todos.List(ctx)
	if err != nil {
		return nil, fail(ctx, "store.ListTodos", "Failed to fetch todos", err)
	}
	return todos, nil
}

// GetTodo returns the todo with id, or nil when there is none.
func (s *TodoStore) GetTodo(ctx context.Context, id int64) (*models.TodoWithUser, error) {
	t, err := s.todos.GetByID(ctx, id)
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fail(ctx, "store.GetTodo", "Failed to fetch todo", err)
	}
	return t, nil
}

// CreateTodo inserts an incomplete todo owned by userID. An unknown owner is
// a Conflict.
func (s *TodoStore) CreateTodo(ctx context.Context, title string, userID int64) (*models.TodoWithUser, error) {
	const op = "store.CreateTodo"

	params := models.CreateTodoParams{Title: title, UserID: userID}
	if err := validation.Struct(params); err != nil {
		return nil, invalid(ctx, op, err)
	}

	t, err := s.todos.Insert(ctx, params)
	if err != nil {
		return nil, fail(ctx, op, "Failed to create todo", err)
	}
	logging.Ctx(ctx).Debug().Int64("todo_id", t.ID).Int64("user_id", userID).Msg("todo created")
	return t, nil
}

// UpdateTodo writes the non-nil fields and refreshes updated_at. With no
// field it fails with a Validation error and issues no statement. An unknown
// id yields nil.
func (s *TodoStore) UpdateTodo(ctx context.Context, id int64, title *string, completed *bool) (*models.TodoWithUser, error) {
	const op = "store.UpdateTodo"

	params := models.UpdateTodoParams{ID: id, Title: title, Completed: completed}
	if !params.HasChanges() {
		return nil, fail(ctx, op, MsgNoFields, repo.ErrNoFields)
	}

	t, err := s.todos.Update(ctx, params)
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fail(ctx, op, "Failed to update todo", err)
	}
	return t, nil
}

// DeleteTodo reports whether a todo was removed.
func (s *TodoStore) DeleteTodo(ctx context.Context, id int64) (bool, error) {
	removed, err := s.todos.Delete(ctx, id)
	if err != nil {
		return false, fail(ctx, "store.DeleteTodo", "Failed to delete todo", err)
	}
	return removed, nil
}
