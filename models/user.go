package models

import "time"

// User represents a row in the "users" table.
// Fields map 1-to-1 with columns; no automatic relation loading.
type User struct {
	ID        int64
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateUserParams holds the fields required to create a new user.
type CreateUserParams struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email,max=255"`
}

// UpdateUserParams holds fields that can be updated. All fields are pointers
// so callers only set what needs changing; the repository builds the SQL
// from the non-nil ones. A set field may not be empty.
type UpdateUserParams struct {
	ID    int64   `json:"id"`
	Name  *string `json:"name" validate:"omitnil,min=1,max=255"`
	Email *string `json:"email" validate:"omitnil,min=1,email,max=255"`
}

// HasChanges reports whether at least one updatable field is set.
func (p UpdateUserParams) HasChanges() bool {
	return p.Name != nil || p.Email != nil
}
