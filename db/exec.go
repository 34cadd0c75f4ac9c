package db

import (
	"context"
	"database/sql"
	"time"
)

// conn is the statement surface shared by *sql.DB and *sql.Tx.
type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// runner issues statements on a conn with hook dispatch and error mapping.
// DB and Tx embed it, so both get the same Querier methods.
type runner struct {
	conn    conn
	hooks   hookChain
	errMap  ErrorMapper
	timeout time.Duration
}

// Exec runs a statement that returns no rows.
func (r runner) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	done := r.trace(ctx, query, args)
	res, err := r.conn.ExecContext(ctx, query, args...)
	return res, done(err)
}

// Query runs a statement that returns rows. The caller closes them.
func (r runner) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	ctx, cancel := r.bound(ctx)
	done := r.trace(ctx, query, args)
	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err = done(err); err != nil {
		cancel()
		return nil, err
	}
	return &Rows{Rows: rows, cancel: cancel}, nil
}

// QueryRow runs a statement expected to return at most one row. Hooks see
// the statement complete when the row is scanned.
func (r runner) QueryRow(ctx context.Context, query string, args ...any) *Row {
	ctx, cancel := r.bound(ctx)
	done := r.trace(ctx, query, args)
	return &Row{raw: r.conn.QueryRowContext(ctx, query, args...), done: done, cancel: cancel}
}

// Prepare creates a prepared statement. The caller closes it.
func (r runner) Prepare(ctx context.Context, query string) (*Stmt, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	s, err := r.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, r.mapErr(err)
	}
	return &Stmt{stmt: s, query: query, r: r}, nil
}

// trace fires BeforeQuery and returns the completion func that maps the
// driver error and fires AfterQuery with it.
func (r runner) trace(ctx context.Context, query string, args []any) func(error) error {
	start := time.Now()
	r.hooks.before(ctx, query, args)
	return func(err error) error {
		err = r.mapErr(err)
		r.hooks.after(ctx, query, args, time.Since(start), err)
		return err
	}
}

func (r runner) mapErr(err error) error {
	if err == nil {
		return nil
	}
	return r.errMap.Map(err)
}

// bound applies the default timeout when ctx has no deadline. The returned
// cancel func is never nil.
func (r runner) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Row is a single-row result. Scan returns ErrNotFound when nothing matched.
type Row struct {
	raw    *sql.Row
	done   func(error) error
	cancel context.CancelFunc
}

// Scan copies the row into dest and releases the statement context.
func (r *Row) Scan(dest ...any) error {
	defer r.cancel()
	return r.done(r.raw.Scan(dest...))
}

// Rows is a result set from Query. Close releases the statement context.
type Rows struct {
	*sql.Rows
	cancel context.CancelFunc
}

func (r *Rows) Close() error {
	defer r.cancel()
	return r.Rows.Close()
}

// Stmt is a prepared statement bound to the DB or Tx that prepared it.
type Stmt struct {
	stmt  *sql.Stmt
	query string
	r     runner
}

func (s *Stmt) Exec(ctx context.Context, args ...any) (sql.Result, error) {
	done := s.r.trace(ctx, s.query, args)
	res, err := s.stmt.ExecContext(ctx, args...)
	return res, done(err)
}

func (s *Stmt) QueryRow(ctx context.Context, args ...any) *Row {
	done := s.r.trace(ctx, s.query, args)
	return &Row{raw: s.stmt.QueryRowContext(ctx, args...), done: done, cancel: func() {}}
}

func (s *Stmt) Close() error { return s.stmt.Close() }
