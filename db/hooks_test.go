package db_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Skryldev/graphql-todo/db"
	"github.com/Skryldev/graphql-todo/internal/testdb"
)

type recordedCall struct {
	query string
	err   error
}

// recorder keeps every AfterQuery call.
type recorder struct {
	mu     sync.Mutex
	before int
	calls  []recordedCall
}

func (r *recorder) BeforeQuery(context.Context, string, []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.before++
}

func (r *recorder) AfterQuery(_ context.Context, query string, _ []any, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{query: query, err: err})
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.before, r.calls = 0, nil
}

func TestHooks_SeeEveryStatement(t *testing.T) {
	rec := &recorder{}
	d := testdb.Open(t, rec)
	rec.reset()
	ctx := context.Background()

	_, _ = d.Exec(ctx, `SELECT 1`)
	_ = d.ExecTx(ctx, func(tx *db.Tx) error {
		_, err := tx.Exec(ctx, `SELECT 2`)
		return err
	})

	if rec.before != 2 || len(rec.calls) != 2 {
		t.Fatalf("before=%d after=%d, want 2/2", rec.before, len(rec.calls))
	}
}

func TestHooks_QueryRowCompletesOnScan(t *testing.T) {
	rec := &recorder{}
	d := testdb.Open(t, rec)
	rec.reset()

	row := d.QueryRow(context.Background(), `SELECT id FROM users WHERE id = $1`, 1)
	if len(rec.calls) != 0 {
		t.Fatal("AfterQuery fired before Scan")
	}
	var id int64
	_ = row.Scan(&id)

	if len(rec.calls) != 1 || !db.IsNotFound(rec.calls[0].err) {
		t.Fatalf("calls = %+v, want one ErrNotFound", rec.calls)
	}
}

type panicHook struct{}

func (panicHook) BeforeQuery(context.Context, string, []any) { panic("before") }
func (panicHook) AfterQuery(context.Context, string, []any, time.Duration, error) {
	panic("after")
}

func TestHooks_PanicsAreContained(t *testing.T) {
	rec := &recorder{}
	d := testdb.Open(t, panicHook{}, nil, rec)
	rec.reset()

	if _, err := d.Exec(context.Background(), `SELECT 1`); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if len(rec.calls) != 1 {
		t.Fatal("hooks after a panicking one must still run")
	}
}

func TestLogHook(t *testing.T) {
	var fallback, scoped bytes.Buffer
	base := zerolog.New(&fallback)
	d := testdb.Open(t, db.NewLogHook(db.LogHookConfig{Logger: &base, LogArgs: true}))
	fallback.Reset()

	_, _ = d.Exec(context.Background(), `INSERT INTO nowhere
		VALUES ($1)`, 7)
	out := fallback.String()
	for _, want := range []string{`"level":"error"`, `"query":"INSERT INTO nowhere VALUES ($1)"`, `"args":[7]`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %s", want, out)
		}
	}

	reqLogger := zerolog.New(&scoped).With().Str("request_id", "req-42").Logger()
	_, _ = d.Exec(reqLogger.WithContext(context.Background()), `SELECT 1`)
	if !strings.Contains(scoped.String(), `"request_id":"req-42"`) {
		t.Fatalf("context logger not used: %q", scoped.String())
	}
}

func TestLogHook_SlowStatementWarns(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	d := testdb.Open(t, db.NewLogHook(db.LogHookConfig{Logger: &logger, SlowQueryThreshold: time.Nanosecond}))
	buf.Reset()

	_, _ = d.Exec(context.Background(), `SELECT 1`)
	if !strings.Contains(buf.String(), `"slow":true`) {
		t.Fatalf("expected a slow warning, got %s", buf.String())
	}
}

type tally struct{ ok, failed int }

func (c *tally) RecordQuery(_ string, _ time.Duration, success bool) {
	if success {
		c.ok++
	} else {
		c.failed++
	}
}

func TestMetricsHook(t *testing.T) {
	c := &tally{}
	d := testdb.Open(t, db.NewMetricsHook(c))
	*c = tally{}
	ctx := context.Background()

	_, _ = d.Exec(ctx, `SELECT 1`)
	_, _ = d.Exec(ctx, `SELECT * FROM nowhere`)
	var id int64
	_ = d.QueryRow(ctx, `SELECT id FROM users WHERE id = 1`).Scan(&id) // not found counts as success

	if c.ok != 2 || c.failed != 1 {
		t.Fatalf("ok=%d failed=%d, want 2/1", c.ok, c.failed)
	}
}
