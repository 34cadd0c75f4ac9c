package repo

import "time"

// Option configures a repository.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock sets the source of created_at and updated_at values. The default
// is the current UTC time.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) options {
	o := options{now: utcNow}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func utcNow() time.Time { return time.Now().UTC() }
