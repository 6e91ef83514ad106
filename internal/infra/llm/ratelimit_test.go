package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter_DisabledNeverWaits(t *testing.T) {
	var limiter *RateLimiter = NewRateLimiter(0, 1)
	assert.Nil(t, limiter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, limiter.Wait(ctx))
}

func TestRateLimiter_Wait(t *testing.T) {
	limiter := NewRateLimiter(20, 1)
	require.NotNil(t, limiter)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Wait(context.Background()))
	}

	// First token is immediate, the next two are spaced 50ms apart.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestRateLimiter_WaitRespectsContext(t *testing.T) {
	limiter := NewRateLimiter(0.01, 1)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.Error(t, limiter.Wait(ctx))
}
