package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skryldev/graphql-todo/db"
	"github.com/Skryldev/graphql-todo/models"
)

// ErrOwnerMissing is returned by TodoRepository.Update when the todo row was
// updated but joining it to its owner produced no row. The update is rolled
// back.
var ErrOwnerMissing = errors.New("repo: todo owner not found")

// TodoRepository defines the contract for todo persistence operations.
// Reads and write results are TodoWithUser rows (todo joined with owner).
type TodoRepository interface {
	List(ctx context.Context) ([]*models.TodoWithUser, error)
	GetByID(ctx context.Context, id int64) (*models.TodoWithUser, error)
	Insert(ctx context.Context, params models.CreateTodoParams) (*models.TodoWithUser, error)
	Update(ctx context.Context, params models.UpdateTodoParams) (*models.TodoWithUser, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type todoRepo struct {
	q   db.Querier
	now func() time.Time
}

// NewTodoRepo returns a TodoRepository backed by q. Insert and Update run the
// write and the joined read in one transaction: a fresh one when q is a
// *db.DB, the caller's when q is a *db.Tx.
func NewTodoRepo(q db.Querier, opts ...Option) TodoRepository {
	return &todoRepo{q: q, now: newOptions(opts).now}
}

var (
	sqlSelectTodoWithUser = `
		SELECT ` + TodoWithUserProjection.SelectList() + `
		FROM   todos t
		JOIN   users u ON u.id = t.user_id`

	sqlListTodos = sqlSelectTodoWithUser + `
		ORDER  BY t.created_at DESC, t.id DESC`

	sqlGetTodoByID = sqlSelectTodoWithUser + `
		WHERE  t.id = $1`
)

const sqlInsertTodo = `
		INSERT INTO todos (title, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		RETURNING id`

// List returns every todo with its owner, newest creation time first.
func (r *todoRepo) List(ctx context.Context) ([]*models.TodoWithUser, error) {
	rows, err := r.q.Query(ctx, sqlListTodos)
	if err != nil {
		return nil, err
	}
	todos, err := TodoWithUserProjection.ScanAll(rows)
	if err != nil {
		return nil, fmt.Errorf("repo/todo: list: %w", err)
	}
	return todos, nil
}

// GetByID returns one todo with its owner.
// Returns db.ErrNotFound when no record matches.
func (r *todoRepo) GetByID(ctx context.Context, id int64) (*models.TodoWithUser, error) {
	return getTodo(ctx, r.q, id)
}

// Insert creates a todo (completed=false) and returns it joined with its
// owner. An unknown UserID is rejected by the foreign key
// (db.ErrForeignKeyViolation).
func (r *todoRepo) Insert(ctx context.Context, params models.CreateTodoParams) (*models.TodoWithUser, error) {
	var out *models.TodoWithUser
	err := db.InTx(ctx, r.q, func(q db.Querier) error {
		var id int64
		if err := q.QueryRow(ctx, sqlInsertTodo, params.Title, params.UserID, r.now()).Scan(&id); err != nil {
			return fmt.Errorf("repo/todo: insert: %w", err)
		}
		t, err := getTodo(ctx, q, id)
		if err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}

// Update applies a partial update and returns the todo joined with its owner.
// Returns ErrNoFields without touching the database when params carries no
// change, db.ErrNotFound when the id does not exist and ErrOwnerMissing when
// the owner join fails.
func (r *todoRepo) Update(ctx context.Context, params models.UpdateTodoParams) (*models.TodoWithUser, error) {
	b := NewSetBuilder()
	SetIf(b, "title", params.Title)
	SetIf(b, "completed", params.Completed)
	b.Touch("updated_at", r.now())

	query, args, err := b.Build("todos", "id", params.ID)
	if err != nil {
		return nil, err
	}
	query += "\n\t\tRETURNING id"

	var out *models.TodoWithUser
	err = db.InTx(ctx, r.q, func(q db.Querier) error {
		var id int64
		if err := q.QueryRow(ctx, query, args...).Scan(&id); err != nil {
			return fmt.Errorf("repo/todo: update: %w", err)
		}
		t, err := getTodo(ctx, q, id)
		if db.IsNotFound(err) {
			return ErrOwnerMissing
		}
		if err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}

// Delete removes a todo and reports whether a row was removed.
func (r *todoRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteByID(ctx, r.q, "todos", id)
}

func getTodo(ctx context.Context, q db.Querier, id int64) (*models.TodoWithUser, error) {
	t, err := TodoWithUserProjection.Scan(q.QueryRow(ctx, sqlGetTodoByID, id))
	if err != nil {
		return nil, fmt.Errorf("repo/todo: %w", err)
	}
	return t, nil
}

var _ TodoRepository = (*todoRepo)(nil)
