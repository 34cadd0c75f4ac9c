package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Skryldev/graphql-todo/db"
	"github.com/Skryldev/graphql-todo/models"
)

// UserRepository persists users. Lookups that match nothing return
// db.ErrNotFound; a taken email surfaces as db.ErrDuplicateKey.
type UserRepository interface {
	List(ctx context.Context) ([]*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	BatchInsert(ctx context.Context, params []models.CreateUserParams) ([]*models.User, error)
	Update(ctx context.Context, params models.UpdateUserParams) (*models.User, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type userRepo struct {
	q   db.Querier
	now func() time.Time
}

// NewUserRepo returns a UserRepository on q, which may be a pool or a
// transaction.
func NewUserRepo(q db.Querier, opts ...Option) UserRepository {
	return &userRepo{q: q, now: newOptions(opts).now}
}

var (
	sqlSelectUser = `
		SELECT ` + UserProjection.SelectList() + `
		FROM   users`

	sqlListUsers      = sqlSelectUser + ` ORDER BY created_at DESC, id DESC`
	sqlUserByID       = sqlSelectUser + ` WHERE id = $1`
	sqlUserByEmail    = sqlSelectUser + ` WHERE email = $1`
	sqlInsertUserStmt = `
		INSERT INTO users (name, email, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		RETURNING id`
)

// List returns every user, newest first.
func (r *userRepo) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.q.Query(ctx, sqlListUsers)
	if err != nil {
		return nil, err
	}
	users, err := UserProjection.ScanAll(rows)
	if err != nil {
		return nil, fmt.Errorf("repo/user: list: %w", err)
	}
	return users, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return userBy(ctx, r.q, sqlUserByID, id)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return userBy(ctx, r.q, sqlUserByEmail, email)
}

// Insert stores a user and reads it back with its id and timestamps.
func (r *userRepo) Insert(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	users, err := r.BatchInsert(ctx, []models.CreateUserParams{params})
	if err != nil {
		return nil, err
	}
	return users[0], nil
}

// BatchInsert stores all users through one prepared statement in a single
// transaction. Results keep the order of params.
func (r *userRepo) BatchInsert(ctx context.Context, params []models.CreateUserParams) ([]*models.User, error) {
	if len(params) == 0 {
		return nil, nil
	}

	var out []*models.User
	err := db.InTx(ctx, r.q, func(q db.Querier) error {
		stmt, err := q.Prepare(ctx, sqlInsertUserStmt)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := r.now()
		ids := make([]int64, len(params))
		for i, p := range params {
			if err := stmt.QueryRow(ctx, p.Name, p.Email, now).Scan(&ids[i]); err != nil {
				return fmt.Errorf("repo/user: insert %q: %w", p.Email, err)
			}
		}
		out = make([]*models.User, len(ids))
		for i, id := range ids {
			if out[i], err = userBy(ctx, q, sqlUserByID, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes the non-nil fields of params and refreshes updated_at.
// It returns ErrNoFields without a statement when nothing is set.
func (r *userRepo) Update(ctx context.Context, params models.UpdateUserParams) (*models.User, error) {
	b := NewSetBuilder()
	SetIf(b, "name", params.Name)
	SetIf(b, "email", params.Email)
	b.Touch("updated_at", r.now())

	query, args, err := b.Build("users", "id", params.ID)
	if err != nil {
		return nil, err
	}

	var out *models.User
	err = db.InTx(ctx, r.q, func(q db.Querier) error {
		var id int64
		if err := q.QueryRow(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
			return fmt.Errorf("repo/user: update: %w", err)
		}
		out, err = userBy(ctx, q, sqlUserByID, id)
		return err
	})
	return out, err
}

// Delete reports whether a row was removed. Users that still own todos are
// kept by the foreign key (db.ErrForeignKeyViolation).
func (r *userRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteByID(ctx, r.q, "users", id)
}

func userBy(ctx context.Context, q db.Querier, query string, arg any) (*models.User, error) {
	u, err := UserProjection.Scan(q.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, fmt.Errorf("repo/user: %w", err)
	}
	return u, nil
}

// deleteByID removes the row with primary key id from table. table is
// always a constant supplied by this package.
func deleteByID(ctx context.Context, q db.Querier, table string, id int64) (bool, error) {
	res, err := q.Exec(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

var _ UserRepository = (*userRepo)(nil)
