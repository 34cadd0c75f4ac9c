// Package api assembles the HTTP surface of the todo server: the GraphQL
// endpoint, health probes and Prometheus metrics behind one chi router.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Skryldev/graphql-todo/graph"
)

// Pinger reports whether the backing database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures NewRouter.
type Options struct {
	Schema *graphql.Schema
	DB     Pinger

	CORSOrigins []string

	// RateLimitRequests per RateLimitWindow per client IP; 0 disables.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// ReadyTimeout bounds the database ping of /readyz. Default: 2s
	ReadyTimeout time.Duration
}

// NewRouter returns the server handler.
//
//	POST /graphql   GraphQL endpoint (rate limited)
//	GET  /healthz   liveness
//	GET  /readyz    readiness, pings the database
//	GET  /metrics   Prometheus exposition
func NewRouter(opts Options) http.Handler {
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 2 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(Metrics)

	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(opts.DB, opts.ReadyTimeout))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if opts.RateLimitRequests > 0 {
			r.Use(httprate.Limit(
				opts.RateLimitRequests,
				opts.RateLimitWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
			))
		}
		r.Use(AccessLog)
		r.Method(http.MethodPost, "/graphql", &graph.Handler{Schema: opts.Schema})
	})

	return r
}
