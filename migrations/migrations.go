// Package migrations embeds the schema migrations for every supported driver
// and applies them with golang-migrate.
//
// Layout: <driver>/<version>_<name>.{up,down}.sql, where <driver> is the
// database/sql driver name ("postgres", "sqlite3").
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
)

//go:embed postgres/*.sql sqlite3/*.sql
var files embed.FS

// Drivers lists the driver names that have a migration set.
var Drivers = []string{"postgres", "sqlite3"}

func checkDriver(driverName string) error {
	for _, d := range Drivers {
		if d == driverName {
			return nil
		}
	}
	return fmt.Errorf("migrations: no migrations for driver %q", driverName)
}

// Statements returns the contents of every up migration for driverName in
// version order. It is meant for bootstrapping throwaway databases (tests,
// `migrate schema`), which do not need a version table.
func Statements(driverName string) ([]string, error) {
	if err := checkDriver(driverName); err != nil {
		return nil, err
	}
	names, err := fs.Glob(files, driverName+"/*.up.sql")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		b, err := files.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("migrations: read %s: %w", name, err)
		}
		out = append(out, strings.TrimSpace(string(b)))
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Runner — golang-migrate bound to the embedded source
// ─────────────────────────────────────────────────────────────────────────────

// Runner is a *migrate.Migrate over the embedded migrations. It owns a
// dedicated connection pool, released by Close.
type Runner struct {
	*migrate.Migrate
	sqldb *sql.DB
}

// Open prepares a Runner for driverName against dsn. Log lines from
// golang-migrate are forwarded to logger.
//
//nolint:gocritic // zerolog.Logger is passed by value by design of the library
func Open(driverName, dsn string, logger zerolog.Logger) (*Runner, error) {
	if err := checkDriver(driverName); err != nil {
		return nil, err
	}

	src, err := iofs.New(files, driverName)
	if err != nil {
		return nil, fmt.Errorf("migrations: source: %w", err)
	}

	sqldb, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("migrations: open: %w", err)
	}

	var drv database.Driver
	switch driverName {
	case "postgres":
		drv, err = postgres.WithInstance(sqldb, &postgres.Config{})
	case "sqlite3":
		drv, err = sqlite3.WithInstance(sqldb, &sqlite3.Config{})
	}
	if err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("migrations: database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driverName, drv)
	if err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("migrations: init: %w", err)
	}
	m.Log = &migrateLogger{l: logger}

	return &Runner{Migrate: m, sqldb: sqldb}, nil
}

// Close releases the source, the database driver and the pool.
func (r *Runner) Close() error {
	srcErr, dbErr := r.Migrate.Close()
	poolErr := r.sqldb.Close()
	return errors.Join(srcErr, dbErr, poolErr)
}

// Up applies every pending migration. An up-to-date schema is not an error.
//
//nolint:gocritic // see Open
func Up(driverName, dsn string, logger zerolog.Logger) error {
	r, err := Open(driverName, dsn, logger)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.Migrate.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: up: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────

type migrateLogger struct{ l zerolog.Logger }

func (m *migrateLogger) Printf(format string, v ...any) {
	m.l.Info().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (m *migrateLogger) Verbose() bool { return zerolog.GlobalLevel() <= zerolog.DebugLevel }
