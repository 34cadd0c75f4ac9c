// Command server runs the todo GraphQL API.
//
//	server            # reads config.yaml / .env / environment
//	DB_AUTO_MIGRATE=true server
package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/Skryldev/graphql-todo/api"
	"github.com/Skryldev/graphql-todo/config"
	"github.com/Skryldev/graphql-todo/db"
	"github.com/Skryldev/graphql-todo/graph"
	"github.com/Skryldev/graphql-todo/internal/supervisor"
	"github.com/Skryldev/graphql-todo/logging"
	"github.com/Skryldev/graphql-todo/metrics"
	"github.com/Skryldev/graphql-todo/migrations"
	"github.com/Skryldev/graphql-todo/repo"
	"github.com/Skryldev/graphql-todo/store"
)

// slowQueryThreshold marks statements logged at warn level.
const slowQueryThreshold = 200 * time.Millisecond

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger is not configured yet; the zerolog default writes JSON
		// to stderr.
		logging.Fatal().Err(err).Msg("load configuration")
	}

	logger := logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

//nolint:gocritic // zerolog.Logger is passed by value by design of the library
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	database, err := openDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := metrics.RegisterDBStats(database.Raw(), cfg.Database.Name); err != nil {
		logger.Warn().Err(err).Msg("pool statistics not exported")
	}

	if cfg.Database.AutoMigrate {
		dsn, err := db.BuildDSN(cfg.Database.Driver, cfg.Database.DriverOptions())
		if err != nil {
			return err
		}
		if err := migrations.Up(cfg.Database.Driver, dsn, logging.WithComponent("migrate")); err != nil {
			return err
		}
		logger.Info().Msg("migrations applied")
	}

	schema, err := graph.NewSchema(
		store.NewTodoStore(repo.NewTodoRepo(database)),
		store.NewUserStore(repo.NewUserRepo(database)),
	)
	if err != nil {
		return err
	}

	router := api.NewRouter(api.Options{
		Schema:            schema,
		DB:                database,
		CORSOrigins:       cfg.Server.CORSOrigins,
		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitWindow:   cfg.Server.RateLimitWindow,
	})

	tree := supervisor.New("todo-server", logger, supervisor.Config{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	tree.Add(&supervisor.HTTPService{
		Addr:            cfg.Server.Addr(),
		Handler:         router,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		OnListen: func(addr net.Addr) {
			logger.Info().Str("addr", addr.String()).Str("driver", cfg.Database.Driver).Msg("listening")
		},
	})

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// openDatabase waits for the database to accept connections. Only connection
// failures and timeouts are retried.
//
//nolint:gocritic // see run
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*db.DB, error) {
	hooks := []db.Hook{
		db.NewLogHook(db.LogHookConfig{Logger: &logger, SlowQueryThreshold: slowQueryThreshold}),
		db.NewMetricsHook(metrics.DBCollector{}),
	}

	var database *db.DB
	err := db.WithRetry(ctx, db.RetryConfig{
		MaxAttempts: 10,
		Delay:       time.Second,
		OnRetry: func(attempt int, err error) {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("database not ready, retrying")
		},
	}, func() error {
		var err error
		database, err = db.OpenWithDriver(cfg.Driver, cfg.DriverOptions(), cfg.PoolConfig(hooks...))
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("driver", cfg.Driver).Msg("database connected")
	return database, nil
}
