package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Querier is what repositories are built on. *DB and *Tx both satisfy it,
// so a repository works the same inside and outside a transaction.
type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *Row
	Prepare(ctx context.Context, query string) (*Stmt, error)
}

// TxRunner can start transactions. *DB implements it, *Tx does not.
type TxRunner interface {
	ExecTx(ctx context.Context, fn func(*Tx) error, opts ...TxOptions) error
}

// Tx is a transaction with the same statement methods as DB.
type Tx struct {
	runner
	sqltx *sql.Tx
}

func (t *Tx) Raw() *sql.Tx { return t.sqltx }

// TxOptions sets the isolation level and read-only flag of a transaction.
type TxOptions struct {
	Isolation sql.IsolationLevel
	ReadOnly  bool
}

// ExecTx runs fn in a transaction. It commits when fn returns nil and rolls
// back when fn errors or panics; a panic is re-raised after the rollback.
// Transactions do not nest.
func (d *DB) ExecTx(ctx context.Context, fn func(*Tx) error, opts ...TxOptions) (err error) {
	ctx, cancel := d.bound(ctx)
	defer cancel()

	var sqlOpts *sql.TxOptions
	if len(opts) > 0 {
		sqlOpts = &sql.TxOptions{Isolation: opts[0].Isolation, ReadOnly: opts[0].ReadOnly}
	}
	sqltx, err := d.sqldb.BeginTx(ctx, sqlOpts)
	if err != nil {
		return d.mapErr(err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		rbErr := sqltx.Rollback()
		if p := recover(); p != nil {
			panic(p)
		}
		if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = fmt.Errorf("todo/db: rollback: %v: %w", rbErr, err)
		}
	}()

	tx := &Tx{
		runner: runner{conn: sqltx, hooks: d.hooks, errMap: d.errMap},
		sqltx:  sqltx,
	}
	if err = fn(tx); err != nil {
		return d.mapErr(err)
	}
	if err = sqltx.Commit(); err != nil {
		return d.mapErr(err)
	}
	committed = true
	return nil
}

// InTx runs fn in a new transaction when q is a TxRunner and directly on q
// otherwise, which joins the transaction q already is.
func InTx(ctx context.Context, q Querier, fn func(Querier) error) error {
	if r, ok := q.(TxRunner); ok {
		return r.ExecTx(ctx, func(tx *Tx) error { return fn(tx) })
	}
	return fn(q)
}

var (
	_ Querier  = (*DB)(nil)
	_ Querier  = (*Tx)(nil)
	_ TxRunner = (*DB)(nil)
)
