package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Skryldev/graphql-todo/config"
	"github.com/Skryldev/graphql-todo/db"
	"github.com/Skryldev/graphql-todo/repo"
)

func sqliteConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	return config.DatabaseConfig{
		Driver:   "sqlite3",
		Name:     filepath.Join(t.TempDir(), "todo.db"),
		MaxConns: 1,
	}
}

func TestDispatch_UpSeedDown(t *testing.T) {
	cfg := sqliteConfig(t)
	log := zerolog.Nop()

	for _, args := range [][]string{{"up"}, {"version"}, {"seed"}} {
		if err := dispatch(args, cfg, log); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}

	database, err := db.OpenWithDriver(cfg.Driver, cfg.DriverOptions(), cfg.PoolConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	users, err := repo.NewUserRepo(database).List(context.Background())
	database.Close()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != len(seedUsers) {
		t.Fatalf("seeded %d users, want %d", len(users), len(seedUsers))
	}

	if err := dispatch([]string{"seed"}, cfg, log); err == nil {
		t.Fatal("second seed should fail on duplicate emails")
	}

	if err := dispatch([]string{"down", "2"}, cfg, log); err != nil {
		t.Fatalf("down: %v", err)
	}
}

func TestDispatch_BadArguments(t *testing.T) {
	cfg := sqliteConfig(t)
	log := zerolog.Nop()

	for _, args := range [][]string{{"down", "0"}, {"force"}, {"force", "x"}} {
		if err := dispatch(args, cfg, log); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}
}

func TestDispatch_Schema(t *testing.T) {
	if err := dispatch([]string{"schema"}, sqliteConfig(t), zerolog.Nop()); err != nil {
		t.Fatalf("schema: %v", err)
	}
}
