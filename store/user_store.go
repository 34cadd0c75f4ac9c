package store

import (
	"context"

	"github.com/Skryldev/graphql-todo/db"
	"github.com/Skryldev/graphql-todo/logging"
	"github.com/Skryldev/graphql-todo/models"
	"github.com/Skryldev/graphql-todo/repo"
	"github.com/Skryldev/graphql-todo/validation"
)

// UserStore exposes the user operations of the API.
type UserStore struct {
	users repo.UserRepository
}

// NewUserStore returns a UserStore over r.
func NewUserStore(r repo.UserRepository) *UserStore {
	return &UserStore{users: r}
}

// ListUsers returns every user, newest first.
func (s *UserStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fail(ctx, "store.ListUsers", "Failed to fetch users", err)
	}
	return users, nil
}

// GetUser returns the user with id, or nil.
func (s *UserStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fail(ctx, "store.GetUser", "Failed to fetch user", err)
	}
	return u, nil
}

// GetUserByEmail returns the user owning email, or nil.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fail(ctx, "store.GetUserByEmail", "Failed to fetch user by email", err)
	}
	return u, nil
}

// CreateUser inserts a user. A taken email is a Conflict.
func (s *UserStore) CreateUser(ctx context.Context, name, email string) (*models.User, error) {
	const op = "store.CreateUser"

	params := models.CreateUserParams{Name: name, Email: email}
	if err := validation.Struct(params); err != nil {
		return nil, invalid(ctx, op, err)
	}

	u, err := s.users.Insert(ctx, params)
	if err != nil {
		return nil, fail(ctx, op, "Failed to create user", err)
	}
	logging.Ctx(ctx).Debug().Int64("user_id", u.ID).Msg("user created")
	return u, nil
}

// UpdateUser writes the non-nil fields, with the same conventions as
// TodoStore.UpdateTodo.
func (s *UserStore) UpdateUser(ctx context.Context, id int64, name, email *string) (*models.User, error) {
	const op = "store.UpdateUser"

	params := models.UpdateUserParams{ID: id, Name: name, Email: email}
	if !params.HasChanges() {
		return nil, fail(ctx, op, MsgNoFields, repo.ErrNoFields)
	}
	if err := validation.Struct(params); err != nil {
		return nil, invalid(ctx, op, err)
	}

	u, err := s.users.Update(ctx, params)
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fail(ctx, op, "Failed to update user", err)
	}
	return u, nil
}

// DeleteUser reports whether a user was removed. A user that still owns
// todos is kept and the call fails with a Conflict.
func (s *UserStore) DeleteUser(ctx context.Context, id int64) (bool, error) {
	removed, err := s.users.Delete(ctx, id)
	if err != nil {
		return false, fail(ctx, "store.DeleteUser", "Failed to delete user", err)
	}
	return removed, nil
}
