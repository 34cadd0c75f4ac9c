package models

import "time"

// Todo represents a row in the "todos" table.
type Todo struct {
	ID        int64
	Title     string
	Completed bool
	UserID    int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Owner is the slice of a User embedded in a TodoWithUser.
type Owner struct {
	ID    int64
	Name  string
	Email string
}

// TodoWithUser is a todo joined with its owning user. It is a read model
// produced by the repository and never written back.
type TodoWithUser struct {
	Todo
	User Owner
}

// CreateTodoParams holds the fields required to create a todo. Completed
// always starts false.
type CreateTodoParams struct {
	Title  string `json:"title"`
	UserID int64  `json:"userId" validate:"gt=0"`
}

// UpdateTodoParams is a partial update; nil fields are left untouched.
type UpdateTodoParams struct {
	ID        int64   `json:"id"`
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

// HasChanges reports whether at least one updatable field is set.
func (p UpdateTodoParams) HasChanges() bool {
	return p.Title != nil || p.Completed != nil
}
