// Package graph is the GraphQL surface of the todo server. Every field
// delegates to a store operation; the package adds no rules of its own.
package graph

import (
	"context"
	_ "embed"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/Skryldev/graphql-todo/models"
)

//go:embed schema.graphql
var schemaSDL string

// SDL returns the schema definition served by NewSchema.
func SDL() string { return schemaSDL }

// Todos is the todo side of the store layer.
type Todos interface {
	ListTodos(ctx context.Context) ([]*models.TodoWithUser, error)
	GetTodo(ctx context.Context, id int64) (*models.TodoWithUser, error)
	CreateTodo(ctx context.Context, title string, userID int64) (*models.TodoWithUser, error)
	UpdateTodo(ctx context.Context, id int64, title *string, completed *bool) (*models.TodoWithUser, error)
	DeleteTodo(ctx context.Context, id int64) (bool, error)
}

// Users is the user side of the store layer.
type Users interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, name, email string) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, name, email *string) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) (bool, error)
}

// MaxQueryDepth bounds selection nesting; the schema itself is two levels
// deep.
const MaxQueryDepth = 8

// NewSchema parses the embedded SDL against a Resolver over todos and users.
func NewSchema(todos Todos, users Users, opts ...graphql.SchemaOpt) (*graphql.Schema, error) {
	opts = append([]graphql.SchemaOpt{graphql.MaxDepth(MaxQueryDepth)}, opts...)
	return graphql.ParseSchema(schemaSDL, NewResolver(todos, users), opts...)
}
