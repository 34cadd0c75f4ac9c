package supervisor_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/Skryldev/graphql-todo/internal/supervisor"
)

// ─────────────────────────────────────────────────────────────────────────────
// HTTPService
// ─────────────────────────────────────────────────────────────────────────────

func TestHTTPService_ServesAndStops(t *testing.T) {
	addrCh := make(chan net.Addr, 1)
	svc := &supervisor.HTTPService{
		Addr: "127.0.0.1:0",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "pong")
		}),
		ShutdownTimeout: time.Second,
		OnListen:        func(a net.Addr) { addrCh <- a },
	}

	tree := supervisor.New("test", zerolog.Nop(), supervisor.Config{ShutdownTimeout: 2 * time.Second})
	tree.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	done := tree.ServeBackground(ctx)

	var addr net.Addr
	select {
	case addr = <-addrCh:
	case <-time.After(5 * time.Second):
		t.Fatal("service never listened")
	}

	res, err := http.Get("http://" + addr.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if string(body) != "pong" {
		t.Fatalf("body = %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("tree stopped with %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop")
	}

	if _, err := http.Get("http://" + addr.String()); err == nil {
		t.Fatal("server still accepting after shutdown")
	}
}

func TestHTTPService_ListenFailureTerminatesTree(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	tree := supervisor.New("test", zerolog.Nop(), supervisor.Config{FailureBackoff: 10 * time.Millisecond})
	tree.Add(&supervisor.HTTPService{Addr: busy.Addr().String(), Handler: http.NotFoundHandler()})

	select {
	case err := <-tree.ServeBackground(context.Background()):
		if err == nil {
			t.Fatal("expected the tree to stop with an error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("listen failure was retried instead of terminating the tree")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// EventHook
// ─────────────────────────────────────────────────────────────────────────────

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

type flaky struct{ calls int }

func (f *flaky) Serve(ctx context.Context) error {
	f.calls++
	if f.calls == 1 {
		return errors.New("first run fails")
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestEventHook_LogsServiceFailure(t *testing.T) {
	var buf syncBuffer
	logger := zerolog.New(&buf)

	tree := supervisor.New("test", logger, supervisor.Config{FailureBackoff: 10 * time.Millisecond})
	tree.Add(&flaky{})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	<-tree.ServeBackground(ctx)

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, `"component":"supervisor"`) {
		t.Fatalf("service failure not logged as warning: %s", out)
	}
}

var _ suture.Service = (*supervisor.HTTPService)(nil)
