package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter paces outbound hosted requests with a token bucket so a burst
// of chunk calls does not trip the provider's own 429s.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a RateLimiter allowing requestsPerSecond sustained
// with the given burst. A non-positive rate returns nil, which never waits.
//
// Example:
//
//	limiter := NewRateLimiter(0.5, 1) // one request every two seconds
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Wait blocks until a token is available or the context is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}
