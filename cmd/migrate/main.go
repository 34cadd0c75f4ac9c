// Command migrate manages the todo schema with the embedded migrations.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/Skryldev/graphql-todo/config"
	"github.com/Skryldev/graphql-todo/db"
	"github.com/Skryldev/graphql-todo/logging"
	"github.com/Skryldev/graphql-todo/migrations"
	"github.com/Skryldev/graphql-todo/models"
	"github.com/Skryldev/graphql-todo/repo"
)

// seedUsers are inserted by `migrate seed`.
var seedUsers = []models.CreateUserParams{
	{Name: "Ada Lovelace", Email: "ada@example.com"},
	{Name: "Grace Hopper", Email: "grace@example.com"},
	{Name: "Linus Torvalds", Email: "linus@example.com"},
}

func main() {
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fatalf("%v", err)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log := logging.WithComponent("migrate")

	if err := dispatch(args, cfg.Database, log); err != nil {
		log.Fatal().Err(err).Str("command", args[0]).Msg("migrate failed")
	}
}

//nolint:gocritic // zerolog.Logger is passed by value by design of the library
func dispatch(args []string, cfg config.DatabaseConfig, log zerolog.Logger) error {
	switch args[0] {
	case "schema":
		stmts, err := migrations.Statements(cfg.Driver)
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(stmts, "\n\n"))
		return nil
	case "seed":
		return seed(cfg, log)
	case "up", "down", "version", "force", "drop":
	default:
		usage()
		os.Exit(1)
	}

	dsn, err := db.BuildDSN(cfg.Driver, cfg.DriverOptions())
	if err != nil {
		return err
	}
	r, err := migrations.Open(cfg.Driver, dsn, log)
	if err != nil {
		return err
	}
	defer r.Close()

	switch args[0] {
	case "up":
		if err := r.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("up: %w", err)
		}
		log.Info().Msg("up completed")

	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("down: invalid steps argument %q", args[1])
			}
			steps = n
		}
		if err := r.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("down: %w", err)
		}
		log.Info().Int("steps", steps).Msg("down completed")

	case "version":
		v, dirty, err := r.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("version: none")
			return nil
		}
		if err != nil {
			return fmt.Errorf("version: %w", err)
		}
		fmt.Printf("version: %d  dirty: %v\n", v, dirty)

	case "force":
		if len(args) < 2 {
			return errors.New("force: version argument required")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("force: invalid version %q", args[1])
		}
		if err := r.Force(v); err != nil {
			return fmt.Errorf("force: %w", err)
		}
		log.Info().Int("version", v).Msg("forced")

	case "drop":
		if !confirm("drop will destroy all tables. Type 'yes' to confirm:") {
			fmt.Println("aborted")
			return nil
		}
		if err := r.Drop(); err != nil {
			return fmt.Errorf("drop: %w", err)
		}
		log.Info().Msg("all tables dropped")
	}
	return nil
}

// seed inserts seedUsers in a single transaction; an existing email aborts
// the whole batch.
//
//nolint:gocritic // see dispatch
func seed(cfg config.DatabaseConfig, log zerolog.Logger) error {
	database, err := db.OpenWithDriver(cfg.Driver, cfg.DriverOptions(), cfg.PoolConfig())
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	var users []*models.User
	err = database.ExecTx(ctx, func(tx *db.Tx) error {
		var err error
		users, err = repo.NewUserRepo(tx).BatchInsert(ctx, seedUsers)
		return err
	})
	if db.IsDuplicateKey(err) {
		return fmt.Errorf("seed: users already present: %w", err)
	}
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	for _, u := range users {
		log.Info().Int64("id", u.ID).Str("email", u.Email).Msg("seeded user")
	}
	return nil
}

func confirm(prompt string) bool {
	fmt.Fprintln(os.Stderr, "WARNING: "+prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line) == "yes"
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: migrate <command> [args]

Commands:
  up           Apply all pending migrations
  down [N]     Rollback N migrations (default: 1)
  version      Print current migration version
  force <V>    Force set migration version (bypass dirty state)
  drop         Drop all tables (dev only)
  seed         Insert sample users in one transaction
  schema       Print the up migrations for the configured driver

Configuration is read like the server's: config.yaml (or CONFIG_PATH),
.env and DB_* environment variables (DB_DRIVER, DB_HOST, DB_NAME, ...).`)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "migrate: "+format+"\n", args...)
	os.Exit(1)
}
