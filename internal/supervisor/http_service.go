package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/Skryldev/graphql-todo/logging"
)

// HTTPService serves Handler on Addr as a supervised service. Every (re)start
// builds a fresh http.Server. A listen failure terminates the whole tree
// instead of being retried.
type HTTPService struct {
	Addr            string
	Handler         http.Handler
	ShutdownTimeout time.Duration

	// OnListen, when set, is called with the bound address before serving.
	OnListen func(net.Addr)
}

// Serve implements suture.Service.
func (h *HTTPService) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.Addr)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("component", "supervisor").Str("addr", h.Addr).Msg("listen failed")
		return suture.ErrTerminateSupervisorTree
	}
	if h.OnListen != nil {
		h.OnListen(ln.Addr())
	}

	srv := &http.Server{
		Handler:           h.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := h.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	<-errCh
	return ctx.Err()
}

func (h *HTTPService) String() string { return "http-server" }
