// Package testdb opens throwaway in-memory SQLite databases carrying the
// application schema. It is imported only from tests.
package testdb

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Skryldev/graphql-todo/db"
	"github.com/Skryldev/graphql-todo/migrations"
)

// Open returns a migrated in-memory database with foreign keys enforced.
// Every :memory: connection is a separate database, so the pool is pinned to
// one connection. The database is closed when t finishes.
func Open(t testing.TB, hooks ...db.Hook) *db.DB {
	t.Helper()

	database, err := db.OpenWithDriver("sqlite3",
		db.DriverOptions{Database: ":memory:"},
		db.Config{MaxOpenConns: 1, Hooks: hooks},
	)
	if err != nil {
		t.Fatalf("testdb: open: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	stmts, err := migrations.Statements("sqlite3")
	if err != nil {
		t.Fatalf("testdb: migrations: %v", err)
	}
	ctx := context.Background()
	for _, s := range stmts {
		if _, err := database.Exec(ctx, s); err != nil {
			t.Fatalf("testdb: schema: %v", err)
		}
	}
	return database
}
