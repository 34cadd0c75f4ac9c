package api_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Skryldev/graphql-todo/api"
	"github.com/Skryldev/graphql-todo/graph"
	"github.com/Skryldev/graphql-todo/internal/testdb"
	"github.com/Skryldev/graphql-todo/repo"
	"github.com/Skryldev/graphql-todo/store"
)

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newRouter(t *testing.T, mutate func(*api.Options)) http.Handler {
	t.Helper()
	database := testdb.Open(t)
	schema, err := graph.NewSchema(
		store.NewTodoStore(repo.NewTodoRepo(database)),
		store.NewUserStore(repo.NewUserRepo(database)),
	)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	opts := api.Options{
		Schema:            schema,
		DB:                database,
		CORSOrigins:       []string{"*"},
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}
	if mutate != nil {
		mutate(&opts)
	}
	return api.NewRouter(opts)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func graphqlRequest(query string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"`+query+`"}`))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ─────────────────────────────────────────────────────────────────────────────
// Health
// ─────────────────────────────────────────────────────────────────────────────

func TestHealthz(t *testing.T) {
	rec := serve(newRouter(t, nil), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("healthz = %d %s", rec.Code, rec.Body)
	}
}

func TestReadyz(t *testing.T) {
	rec := serve(newRouter(t, nil), httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz = %d %s", rec.Code, rec.Body)
	}
}

func TestReadyz_DatabaseDown(t *testing.T) {
	h := newRouter(t, func(o *api.Options) { o.DB = fakePinger{err: errors.New("connection refused")} })

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz = %d, want 503", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatal("readiness body must not leak the cause")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GraphQL route
// ─────────────────────────────────────────────────────────────────────────────

func TestGraphQL_Route(t *testing.T) {
	rec := serve(newRouter(t, nil), graphqlRequest("{ getTodos { id } }"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	if got := rec.Body.String(); !strings.Contains(got, `"getTodos":[]`) {
		t.Fatalf("body = %s", got)
	}
}

func TestGraphQL_GetNotAllowed(t *testing.T) {
	rec := serve(newRouter(t, nil), httptest.NewRequest(http.MethodGet, "/graphql", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestGraphQL_RateLimited(t *testing.T) {
	h := newRouter(t, func(o *api.Options) { o.RateLimitRequests = 1 })

	if rec := serve(h, graphqlRequest("{ getTodos { id } }")); rec.Code != http.StatusOK {
		t.Fatalf("first request = %d", rec.Code)
	}
	if rec := serve(h, graphqlRequest("{ getTodos { id } }")); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", rec.Code)
	}
	// Probes are outside the limiter.
	if rec := serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	rec := serve(newRouter(t, nil), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get(api.RequestIDHeader) == "" {
		t.Fatal("missing generated request id")
	}
}

func TestRequestID_Propagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(api.RequestIDHeader, "req-7")

	rec := serve(newRouter(t, nil), req)
	if got := rec.Header().Get(api.RequestIDHeader); got != "req-7" {
		t.Fatalf("request id = %q, want req-7", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/graphql", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := serve(newRouter(t, nil), req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestMetrics_Exposed(t *testing.T) {
	h := newRouter(t, nil)
	serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"todo_http_request_duration_seconds", `route="/healthz"`} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics output is missing %s", want)
		}
	}
}
