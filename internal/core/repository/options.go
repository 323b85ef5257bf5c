package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultQueryTimeout bounds every store call when no timeout is configured.
const DefaultQueryTimeout = 3 * time.Second

type options struct {
	queryTimeout time.Duration
	now          func() time.Time
}

// Option configures a repository.
type Option func(*options)

// WithQueryTimeout bounds each store call. Non-positive values are ignored.
func WithQueryTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.queryTimeout = d
		}
	}
}

// WithClock replaces time.Now for stores that derive a TTL from a session's
// expiry. Pass the same clock the auth service uses.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func newOptions(opts []Option) options {
	o := options{queryTimeout: DefaultQueryTimeout, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.queryTimeout)
}

// withCallerDeadline keeps a deadline the caller already set and falls back
// to the query timeout otherwise. DeleteExpired runs under the sweep budget.
func (o options) withCallerDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return o.withTimeout(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
