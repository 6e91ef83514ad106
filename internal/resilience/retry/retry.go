// Package retry repeats an operation against one target with a pause
// between failed attempts. The orchestrator uses it to spend the attempt
// budget of a single generation candidate.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"time"

	"transcript-polisher/internal/domain/entity"
)

// Config holds the configuration for retry logic.
type Config struct {
	// MaxAttempts is the maximum number of attempts, including the first
	MaxAttempts int

	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration

	// Multiplier grows the delay after each retry; 1.0 keeps it fixed
	Multiplier float64

	// JitterFraction is the fraction of delay to add as random jitter (0.0 to 1.0)
	JitterFraction float64

	// Retryable decides whether an error is worth another attempt.
	// Nil uses IsRetryable.
	Retryable func(err error) bool

	// OnRetry is called before each pause. Nil logs a warning.
	OnRetry func(ctx context.Context, attempt int, err error, delay time.Duration)
}

// DefaultConfig returns an exponential backoff configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   1 * time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// FixedDelayConfig pauses the same delay between every attempt.
// Generation candidates are retried this way.
func FixedDelayConfig(attempts int, delay time.Duration) Config {
	return Config{
		MaxAttempts:    attempts,
		InitialDelay:   delay,
		MaxDelay:       delay,
		Multiplier:     1.0,
		JitterFraction: 0,
	}
}

// ErrAttemptsExhausted wraps the last error once every attempt failed.
var ErrAttemptsExhausted = errors.New("max retry attempts exceeded")

// Do runs fn until it succeeds, returns a non-retryable error, the attempt
// budget runs out, or ctx is done. The attempt number (starting at 1) is
// passed to fn. A budget below one still makes a single attempt.
func Do[T any](ctx context.Context, cfg Config, fn func(attempt int) (T, error)) (T, error) {
	var zero T
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}
	maxAttempts := max(cfg.MaxAttempts, 1)
	delay := cfg.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				slog.DebugContext(ctx, "operation succeeded after retry",
					slog.Int("attempt", attempt))
			}
			return result, nil
		}
		lastErr = err

		if !retryable(err) {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(ctx, attempt, err, delay)
		} else {
			slog.WarnContext(ctx, "operation failed, retrying",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", maxAttempts),
				slog.Duration("delay", delay),
				slog.Any("error", err))
		}

		if err := Sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("retry aborted: %w", err)
		}

		delay = nextDelay(delay, cfg)
	}

	return zero, fmt.Errorf("%w (%d): %w", ErrAttemptsExhausted, maxAttempts, lastErr)
}

// WithBackoff is Do for operations without a result.
func WithBackoff(ctx context.Context, cfg Config, fn func(attempt int) error) error {
	_, err := Do(ctx, cfg, func(attempt int) (struct{}, error) {
		return struct{}{}, fn(attempt)
	})
	return err
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRetryable reports whether an error is worth retrying against the same
// target. Classified generation errors decide for themselves: everything
// except a rate limit is retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var genErr *entity.GenerationError
	if errors.As(err, &genErr) {
		return genErr.Retryable()
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == http.StatusRequestTimeout
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// HTTPError is a non-2xx response from a backend speaking plain HTTP.
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func nextDelay(delay time.Duration, cfg Config) time.Duration {
	if cfg.Multiplier > 0 {
		delay = time.Duration(float64(delay) * cfg.Multiplier)
	}
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	return addJitter(delay, cfg.JitterFraction)
}

// addJitter adds random jitter to a duration to prevent thundering herd.
func addJitter(duration time.Duration, jitterFraction float64) time.Duration {
	if jitterFraction <= 0 {
		return duration
	}
	if jitterFraction > 1.0 {
		jitterFraction = 1.0
	}
	// #nosec G404 -- jitter does not need cryptographic randomness
	jitter := time.Duration(rand.Float64() * float64(duration) * jitterFraction)
	return duration + jitter
}
