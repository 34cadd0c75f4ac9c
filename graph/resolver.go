package graph

import (
	"context"

	"github.com/Skryldev/graphql-todo/models"
)

// Resolver is the root resolver for both Query and Mutation.
type Resolver struct {
	todos Todos
	users Users
}

// NewResolver returns a root resolver delegating to todos and users.
func NewResolver(todos Todos, users Users) *Resolver {
	return &Resolver{todos: todos, users: users}
}

// ─────────────────────────────────────────────────────────────────────────────
// Query
// ─────────────────────────────────────────────────────────────────────────────

func (r *Resolver) GetTodos(ctx context.Context) (*[]*TodoResolver, error) {
	todos, err := r.todos.ListTodos(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*TodoResolver, len(todos))
	for i, t := range todos {
		out[i] = &TodoResolver{t: t}
	}
	return &out, nil
}

func (r *Resolver) GetTodo(ctx context.Context, args struct{ ID int32 }) (*TodoResolver, error) {
	t, err := r.todos.GetTodo(ctx, int64(args.ID))
	return todoOrNil(t, err)
}

func (r *Resolver) GetUsers(ctx context.Context) (*[]*UserResolver, error) {
	users, err := r.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*UserResolver, len(users))
	for i, u := range users {
		out[i] = newUserResolver(u)
	}
	return &out, nil
}

func (r *Resolver) GetUser(ctx context.Context, args struct{ ID int32 }) (*UserResolver, error) {
	u, err := r.users.GetUser(ctx, int64(args.ID))
	return userOrNil(u, err)
}

func (r *Resolver) GetUserByEmail(ctx context.Context, args struct{ Email string }) (*UserResolver, error) {
	u, err := r.users.GetUserByEmail(ctx, args.Email)
	return userOrNil(u, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Mutation
// ─────────────────────────────────────────────────────────────────────────────

func (r *Resolver) CreateTodo(ctx context.Context, args struct {
	Title  string
	UserID int32
}) (*TodoResolver, error) {
	t, err := r.todos.CreateTodo(ctx, args.Title, int64(args.UserID))
	return todoOrNil(t, err)
}

func (r *Resolver) UpdateTodo(ctx context.Context, args struct {
	ID        int32
	Title     *string
	Completed *bool
}) (*TodoResolver, error) {
	t, err := r.todos.UpdateTodo(ctx, int64(args.ID), args.Title, args.Completed)
	return todoOrNil(t, err)
}

func (r *Resolver) DeleteTodo(ctx context.Context, args struct{ ID int32 }) (*bool, error) {
	removed, err := r.todos.DeleteTodo(ctx, int64(args.ID))
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

func (r *Resolver) CreateUser(ctx context.Context, args struct {
	Name  string
	Email string
}) (*UserResolver, error) {
	u, err := r.users.CreateUser(ctx, args.Name, args.Email)
	return userOrNil(u, err)
}

func (r *Resolver) UpdateUser(ctx context.Context, args struct {
	ID    int32
	Name  *string
	Email *string
}) (*UserResolver, error) {
	u, err := r.users.UpdateUser(ctx, int64(args.ID), args.Name, args.Email)
	return userOrNil(u, err)
}

func (r *Resolver) DeleteUser(ctx context.Context, args struct{ ID int32 }) (*bool, error) {
	removed, err := r.users.DeleteUser(ctx, int64(args.ID))
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Object resolvers
// ─────────────────────────────────────────────────────────────────────────────

// TodoResolver resolves the Todo type.
type TodoResolver struct{ t *models.TodoWithUser }

func (r *TodoResolver) ID() int32        { return int32(r.t.ID) }
func (r *TodoResolver) Title() *string   { return &r.t.Title }
func (r *TodoResolver) Completed() *bool { return &r.t.Completed }

func (r *TodoResolver) User() *UserResolver {
	return &UserResolver{id: r.t.User.ID, name: r.t.User.Name, email: r.t.User.Email}
}

// UserResolver resolves the User type, both for users and todo owners.
type UserResolver struct {
	id          int64
	name, email string
}

func newUserResolver(u *models.User) *UserResolver {
	return &UserResolver{id: u.ID, name: u.Name, email: u.Email}
}

func (r *UserResolver) ID() int32      { return int32(r.id) }
func (r *UserResolver) Name() *string  { return &r.name }
func (r *UserResolver) Email() *string { return &r.email }

// todoOrNil keeps a nil store result a nil resolver: the field is null, not
// an empty object.
func todoOrNil(t *models.TodoWithUser, err error) (*TodoResolver, error) {
	if err != nil || t == nil {
		return nil, err
	}
	return &TodoResolver{t: t}, nil
}

func userOrNil(u *models.User, err error) (*UserResolver, error) {
	if err != nil || u == nil {
		return nil, err
	}
	return newUserResolver(u), nil
}
