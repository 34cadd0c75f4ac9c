// Package logging configures the process-wide zerolog logger and carries
// request-scoped loggers through context.Context.
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Ctx(ctx).Info().Int64("todo_id", id).Msg("todo created")
//
// The global logger is zerolog's log.Logger, so anything that falls back to
// it (the db log hook, for instance) shares level and output.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error, disabled.
	// Default: info
	Level string

	// Format is json or console. Default: json
	Format string

	// Output defaults to os.Stderr.
	Output io.Writer
}

// Init replaces the global logger. Call it once from main before anything
// logs; it is not safe to call concurrently with logging.
func Init(cfg Config) zerolog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	zlog.Logger = zerolog.New(out).With().Timestamp().Logger()
	return zlog.Logger
}

// ParseLevel converts a level name to a zerolog.Level. Unknown names map to
// info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns the global logger.
func Logger() zerolog.Logger { return zlog.Logger }

// Fatal starts a fatal-level message on the global logger. os.Exit(1) is
// called after the message is written.
//
//	logging.Fatal().Err(err).Msg("load configuration")
func Fatal() *zerolog.Event { return zlog.Fatal() }

// WithComponent returns a child of the global logger tagged with component.
func WithComponent(component string) zerolog.Logger {
	return zlog.Logger.With().Str("component", component).Logger()
}

// ─────────────────────────────────────────────────────────────────────────────
// Request scope
// ─────────────────────────────────────────────────────────────────────────────

type contextKey struct{}

var requestIDKey contextKey

// NewRequestID returns a random request id.
func NewRequestID() string { return uuid.NewString() }

// ContextWithRequestID stores id in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ContextWithLogger attaches l to ctx using zerolog's own context key, so
// zerolog.Ctx and Ctx both find it.
//
//nolint:gocritic // zerolog.Logger is passed by value by design of the library
func ContextWithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

// Ctx returns the logger attached to ctx. Without one it derives a logger
// from the global one, adding request_id when ctx carries it.
func Ctx(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	l := zlog.Logger
	if id := RequestIDFromContext(ctx); id != "" {
		l = l.With().Str("request_id", id).Logger()
	}
	return &l
}
