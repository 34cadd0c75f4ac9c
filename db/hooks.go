package db

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Hook observes statements. Implementations must be safe for concurrent use
// and should not block. A panicking hook is logged and skipped.
type Hook interface {
	BeforeQuery(ctx context.Context, query string, args []any)
	// AfterQuery receives the driver time and the mapped error handed back
	// to the caller.
	AfterQuery(ctx context.Context, query string, args []any, d time.Duration, err error)
}

// AfterHook is a Hook that only cares about finished statements.
type AfterHook func(ctx context.Context, query string, args []any, d time.Duration, err error)

func (AfterHook) BeforeQuery(context.Context, string, []any) {}

func (f AfterHook) AfterQuery(ctx context.Context, query string, args []any, d time.Duration, err error) {
	f(ctx, query, args, d, err)
}

type hookChain []Hook

func newHookChain(hooks []Hook) hookChain {
	var c hookChain
	for _, h := range hooks {
		if h != nil {
			c = append(c, h)
		}
	}
	return c
}

func (c hookChain) before(ctx context.Context, query string, args []any) {
	for _, h := range c {
		guard("BeforeQuery", func() { h.BeforeQuery(ctx, query, args) })
	}
}

func (c hookChain) after(ctx context.Context, query string, args []any, d time.Duration, err error) {
	for _, h := range c {
		guard("AfterQuery", func() { h.AfterQuery(ctx, query, args, d, err) })
	}
}

func guard(phase string, call func()) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Interface("panic", r).Str("phase", phase).Msg("todo/db: hook panicked")
		}
	}()
	call()
}

// LogHookConfig configures NewLogHook.
type LogHookConfig struct {
	// Logger is used when the statement context carries none. Defaults to
	// the zerolog global logger.
	Logger *zerolog.Logger
	// SlowQueryThreshold turns successful statements slower than this into
	// warnings. Zero disables it.
	SlowQueryThreshold time.Duration
	// LogArgs adds bound parameters to entries. They may contain PII.
	LogArgs bool
}

const maxLoggedQuery = 500

// NewLogHook logs every statement with zerolog: failures at error, slow
// statements at warn, everything else at debug. A logger attached to the
// statement context wins over cfg.Logger so entries keep the request id.
func NewLogHook(cfg LogHookConfig) Hook {
	fallback := cfg.Logger
	if fallback == nil {
		fallback = &zlog.Logger
	}
	return AfterHook(func(ctx context.Context, query string, args []any, d time.Duration, err error) {
		logger := fallback
		if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
			logger = l
		}

		var ev *zerolog.Event
		switch {
		case err != nil && !IsNotFound(err):
			ev = logger.Error().Err(err)
		case cfg.SlowQueryThreshold > 0 && d > cfg.SlowQueryThreshold:
			ev = logger.Warn().Bool("slow", true)
		default:
			ev = logger.Debug()
		}
		ev = ev.Str("query", compactQuery(query)).Dur("duration", d)
		if cfg.LogArgs && len(args) > 0 {
			ev = ev.Interface("args", args)
		}
		ev.Msg("sql statement")
	})
}

// compactQuery folds whitespace and truncates long statements.
func compactQuery(q string) string {
	q = strings.Join(strings.Fields(q), " ")
	if len(q) > maxLoggedQuery {
		return q[:maxLoggedQuery] + "…"
	}
	return q
}

// MetricsCollector receives one observation per statement. success is false
// for any error other than ErrNotFound.
type MetricsCollector interface {
	RecordQuery(query string, duration time.Duration, success bool)
}

func NewMetricsHook(c MetricsCollector) Hook {
	return AfterHook(func(_ context.Context, query string, _ []any, d time.Duration, err error) {
		c.RecordQuery(query, d, err == nil || IsNotFound(err))
	})
}
