// Package db is the SQL-first persistence layer underneath the todo
// repositories. Statements are written by hand next to the repository that
// issues them; this package only adds hooks, error translation and
// transaction plumbing on top of database/sql.
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Config describes a connection pool.
type Config struct {
	DSN        string
	DriverName string // "postgres" or "sqlite3"

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// PingTimeout bounds the connectivity check in Open. Defaults to 5s.
	PingTimeout time.Duration

	// DefaultTimeout is applied to statements whose context has no deadline.
	// Zero disables it.
	DefaultTimeout time.Duration

	// Hooks observe every statement. nil entries are ignored.
	Hooks []Hook
}

const defaultPingTimeout = 5 * time.Second

// DB wraps a *sql.DB pool. It is safe for concurrent use and satisfies
// Querier and TxRunner.
type DB struct {
	runner
	sqldb  *sql.DB
	driver string
}

// Open opens the pool described by cfg and pings it once.
func Open(cfg Config) (*DB, error) {
	switch {
	case cfg.DriverName == "":
		return nil, errors.New("todo/db: DriverName must not be empty")
	case cfg.DSN == "":
		return nil, errors.New("todo/db: DSN must not be empty")
	}

	sqldb, err := sql.Open(cfg.DriverName, cfg.DSN)
	if err != nil {
		return nil, &DBError{Sentinel: ErrConnectionFailed, Cause: err, Message: "open"}
	}
	tunePool(sqldb, cfg)

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, &DBError{Sentinel: ErrConnectionFailed, Cause: err, Message: "ping"}
	}

	return &DB{
		runner: runner{
			conn:    sqldb,
			hooks:   newHookChain(cfg.Hooks),
			errMap:  DefaultErrorMapper(),
			timeout: cfg.DefaultTimeout,
		},
		sqldb:  sqldb,
		driver: cfg.DriverName,
	}, nil
}

func tunePool(sqldb *sql.DB, cfg Config) {
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// Raw exposes the pool, e.g. for the migration runner or pool metrics.
func (d *DB) Raw() *sql.DB { return d.sqldb }

// DriverName reports the database/sql driver the pool was opened with.
func (d *DB) DriverName() string { return d.driver }

// SetErrorMapper replaces the error mapper. Transactions and statements
// created afterwards use the new mapper.
func (d *DB) SetErrorMapper(m ErrorMapper) { d.errMap = m }

func (d *DB) Close() error { return d.sqldb.Close() }

// Ping reports whether the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := d.bound(ctx)
	defer cancel()
	return d.mapErr(d.sqldb.PingContext(ctx))
}

func (d *DB) Stats() sql.DBStats { return d.sqldb.Stats() }
