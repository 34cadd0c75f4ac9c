// Package supervisor runs the server's long-lived services under a suture
// supervisor: a crashed service is restarted with backoff, and cancelling the
// context stops every service within the shutdown timeout.
package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

// Config tunes restart behaviour. Zero values take the defaults noted.
type Config struct {
	FailureThreshold float64       // default 5
	FailureDecay     float64       // seconds, default 30
	FailureBackoff   time.Duration // default 15s
	ShutdownTimeout  time.Duration // default 10s
}

// Tree is the root supervisor.
type Tree struct {
	root *suture.Supervisor
}

// New returns a Tree that logs supervisor events on logger.
//
//nolint:gocritic // zerolog.Logger is passed by value by design of the library
func New(name string, logger zerolog.Logger, cfg Config) *Tree {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = 30
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = 15 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	return &Tree{root: suture.New(name, suture.Spec{
		EventHook:        EventHook(logger),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	})}
}

// Add starts svc under the tree, now or when the tree starts.
func (t *Tree) Add(svc suture.Service) suture.ServiceToken { return t.root.Add(svc) }

// Serve blocks until ctx is cancelled or a service terminates the tree.
func (t *Tree) Serve(ctx context.Context) error { return t.root.Serve(ctx) }

// ServeBackground runs Serve in a goroutine and delivers its result.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error { return t.root.ServeBackground(ctx) }

// EventHook writes suture events as zerolog entries: service failures and
// backoff at warn level, everything else at info.
//
//nolint:gocritic // see New
func EventHook(logger zerolog.Logger) suture.EventHook {
	l := logger.With().Str("component", "supervisor").Logger()
	return func(e suture.Event) {
		ev := l.Info()
		switch e.Type() {
		case suture.EventTypeServicePanic, suture.EventTypeServiceTerminate, suture.EventTypeBackoff:
			ev = l.Warn()
		}
		ev.Fields(e.Map()).Msg(e.String())
	}
}
