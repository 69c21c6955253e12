package providers

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter paces outbound requests to one backend.
// A nil *RateLimiter never blocks.
type RateLimiter struct {
	limiter *rate.Limiter
	rps     float64
}

// NewRateLimiter creates a limiter allowing rps requests per second with a
// burst of one. Returns nil when rps <= 0 (unlimited).
func NewRateLimiter(rps float64) *RateLimiter {
	if rps <= 0 {
		return nil
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		rps:     rps,
	}
}

// Wait blocks until a request may proceed or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return ctx.Err()
	}
	return r.limiter.Wait(ctx)
}

// RequestsPerSecond returns the configured rate, 0 for unlimited.
func (r *RateLimiter) RequestsPerSecond() float64 {
	if r == nil {
		return 0
	}
	return r.rps
}
