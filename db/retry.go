package db

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig controls WithRetry.
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
	// RetryOn reports whether err is worth another attempt. Defaults to
	// connection failures and timeouts.
	RetryOn func(error) bool
	// OnRetry is called before each wait with the failed attempt number.
	OnRetry func(attempt int, err error)
}

// WithRetry calls fn until it succeeds, returns a non-retryable error or
// runs out of attempts. It is meant for waiting on the database at startup,
// not for request-path statements.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	retryable := cfg.RetryOn
	if retryable == nil {
		retryable = isTransient
	}
	attempts := max(cfg.MaxAttempts, 1)

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}
		wait := time.NewTimer(cfg.Delay)
		select {
		case <-ctx.Done():
			wait.Stop()
			return ctx.Err()
		case <-wait.C:
		}
	}
	return fmt.Errorf("todo/db: giving up after %d attempts: %w", attempts, err)
}

func isTransient(err error) bool { return IsConnectionFailed(err) || IsTimeout(err) }
