// Package ratelimit provides a minimum-interval gate used to space out
// page loads against a single news site.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a minimum interval between grants. It is safe for
// concurrent use: when several workers contend, grants are serialized so
// that consecutive grants are at least the configured interval apart.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a Limiter with the given minimum interval between grants.
// A non-positive interval disables limiting.
func New(minInterval time.Duration) *Limiter {
	if minInterval <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// Wait blocks until the caller may proceed or the context is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// TimeUntilReady reports how long a caller would wait right now, without
// consuming the grant. Zero or negative means a call to Wait would not
// block.
func (l *Limiter) TimeUntilReady() time.Duration {
	now := time.Now()
	r := l.limiter.ReserveN(now, 1)
	d := r.DelayFrom(now)
	r.CancelAt(now)
	return d
}
