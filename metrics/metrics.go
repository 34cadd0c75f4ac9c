// Package metrics holds the Prometheus instruments of the todo server.
// Instruments are registered on the default registry at init; the api
// package serves them at /metrics.
package metrics

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Skryldev/graphql-todo/db"
)

var (
	// Database
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todo_db_query_duration_seconds",
			Help:    "Duration of SQL statements in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"statement"}, // SELECT, INSERT, UPDATE, DELETE, OTHER
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_db_query_errors_total",
			Help: "Total number of failed SQL statements",
		},
		[]string{"statement"},
	)

	// HTTP
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todo_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	APIRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "todo_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// GraphQL
	GraphQLErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_graphql_errors_total",
			Help: "Total number of GraphQL errors returned, by error code",
		},
		[]string{"code"},
	)
)

// RecordAPIRequest observes one finished HTTP request.
func RecordAPIRequest(method, route string, status int, d time.Duration) {
	APIRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// RecordGraphQLError counts one GraphQL error by its extensions code.
func RecordGraphQLError(code string) {
	if code == "" {
		code = "UNKNOWN"
	}
	GraphQLErrors.WithLabelValues(code).Inc()
}

// ─────────────────────────────────────────────────────────────────────────────
// db.MetricsCollector
// ─────────────────────────────────────────────────────────────────────────────

// DBCollector feeds db.NewMetricsHook into the database instruments.
type DBCollector struct{}

// RecordQuery implements db.MetricsCollector.
func (DBCollector) RecordQuery(query string, d time.Duration, success bool) {
	stmt := StatementKind(query)
	DBQueryDuration.WithLabelValues(stmt).Observe(d.Seconds())
	if !success {
		DBQueryErrors.WithLabelValues(stmt).Inc()
	}
}

// StatementKind returns the leading SQL keyword of query, bounded to a small
// label set.
func StatementKind(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "OTHER"
	}
	switch kw := strings.ToUpper(fields[0]); kw {
	case "SELECT", "INSERT", "UPDATE", "DELETE":
		return kw
	default:
		return "OTHER"
	}
}

var _ db.MetricsCollector = DBCollector{}

// RegisterDBStats exports the connection pool statistics of sqldb (open,
// in use, idle, wait counts) labelled with dbName.
func RegisterDBStats(sqldb *sql.DB, dbName string) error {
	return prometheus.Register(collectors.NewDBStatsCollector(sqldb, dbName))
}
