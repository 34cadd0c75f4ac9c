package repo

import (
	"strings"

	"github.com/Skryldev/graphql-todo/db"
	"github.com/Skryldev/graphql-todo/models"
)

// scanner is satisfied by *db.Row and *db.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Column maps one selected column onto a field of T.
type Column[T any] struct {
	// Name is the SQL expression as it appears in the SELECT list.
	Name string
	// Field names the destination field, for documentation and tests.
	Field string
	dest  func(*T) any
}

// Projection is an ordered column → field mapping table. The SELECT list and
// the Scan destinations are both derived from it, so they cannot drift apart.
type Projection[T any] []Column[T]

// SelectList renders the comma-separated column list.
func (p Projection[T]) SelectList() string {
	names := make([]string, len(p))
	for i, c := range p {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

// Dest returns scan destinations pointing into v, in column order.
func (p Projection[T]) Dest(v *T) []any {
	dest := make([]any, len(p))
	for i, c := range p {
		dest[i] = c.dest(v)
	}
	return dest
}

// Scan reads one row into a new T.
func (p Projection[T]) Scan(s scanner) (*T, error) {
	v := new(T)
	if err := s.Scan(p.Dest(v)...); err != nil {
		return nil, err
	}
	return v, nil
}

// ScanAll drains rows into a non-nil slice and closes them.
func (p Projection[T]) ScanAll(rows *db.Rows) ([]*T, error) {
	defer rows.Close()
	out := make([]*T, 0)
	for rows.Next() {
		v, err := p.Scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// TodoWithUserProjection flattens a `todos t JOIN users u` row:
//
//	t.id         → ID
//	t.title      → Title
//	t.completed  → Completed
//	t.user_id    → UserID
//	t.created_at → CreatedAt
//	t.updated_at → UpdatedAt
//	u.id         → User.ID
//	u.name       → User.Name
//	u.email      → User.Email
var TodoWithUserProjection = Projection[models.TodoWithUser]{
	{Name: "t.id", Field: "ID", dest: func(v *models.TodoWithUser) any { return &v.ID }},
	{Name: "t.title", Field: "Title", dest: func(v *models.TodoWithUser) any { return &v.Title }},
	{Name: "t.completed", Field: "Completed", dest: func(v *models.TodoWithUser) any { return &v.Completed }},
	{Name: "t.user_id", Field: "UserID", dest: func(v *models.TodoWithUser) any { return &v.UserID }},
	{Name: "t.created_at", Field: "CreatedAt", dest: func(v *models.TodoWithUser) any { return &v.CreatedAt }},
	{Name: "t.updated_at", Field: "UpdatedAt", dest: func(v *models.TodoWithUser) any { return &v.UpdatedAt }},
	{Name: "u.id", Field: "User.ID", dest: func(v *models.TodoWithUser) any { return &v.User.ID }},
	{Name: "u.name", Field: "User.Name", dest: func(v *models.TodoWithUser) any { return &v.User.Name }},
	{Name: "u.email", Field: "User.Email", dest: func(v *models.TodoWithUser) any { return &v.User.Email }},
}

// UserProjection maps a plain users row.
var UserProjection = Projection[models.User]{
	{Name: "id", Field: "ID", dest: func(v *models.User) any { return &v.ID }},
	{Name: "name", Field: "Name", dest: func(v *models.User) any { return &v.Name }},
	{Name: "email", Field: "Email", dest: func(v *models.User) any { return &v.Email }},
	{Name: "created_at", Field: "CreatedAt", dest: func(v *models.User) any { return &v.CreatedAt }},
	{Name: "updated_at", Field: "UpdatedAt", dest: func(v *models.User) any { return &v.UpdatedAt }},
}
