package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type generation struct {
	content string
}

func testConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      2,
		Interval:         10 * time.Second,
		Timeout:          100 * time.Millisecond,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

func TestNew(t *testing.T) {
	cb := New(testConfig("local:http://gpu-1:11434"))

	require.NotNil(t, cb)
	assert.Equal(t, "local:http://gpu-1:11434", cb.Name())
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, float64(0), testutil.ToFloat64(stateGauge.WithLabelValues("local:http://gpu-1:11434")))
}

func TestExecute_Typed(t *testing.T) {
	cb := New(testConfig("typed"))

	got, err := Execute(cb, func() (*generation, error) {
		return &generation{content: "潤飾完成"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "潤飾完成", got.content)
}

func TestExecute_ErrorReturnsZero(t *testing.T) {
	cb := New(testConfig("zero"))
	boom := errors.New("connection refused")

	got, err := Execute(cb, func() (*generation, error) {
		return &generation{content: "partial"}, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, got)
}

func TestExecute_NilBreakerPassesThrough(t *testing.T) {
	calls := 0

	got, err := Execute(nil, func() (int, error) {
		calls++
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, calls)
}

func TestCircuitBreaker_TripsOpen(t *testing.T) {
	cb := New(testConfig("trips"))
	boom := errors.New("HTTP 502")
	fail := func() (string, error) { return "", boom }

	// 4 failures + 1 success stays below MinRequests when checked
	for i := 0; i < 4; i++ {
		_, err := Execute(cb, fail)
		require.ErrorIs(t, err, boom)
	}
	_, err := Execute(cb, func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.False(t, cb.IsOpen())

	// 5 of 6 failed
	_, err = Execute(cb, fail)
	require.ErrorIs(t, err, boom)
	assert.True(t, cb.IsOpen())
	assert.Equal(t, float64(gobreaker.StateOpen), testutil.ToFloat64(stateGauge.WithLabelValues("trips")))

	_, err = Execute(cb, func() (string, error) {
		t.Error("function should not be called when circuit is open")
		return "", nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, IsRejection(err))
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cb := New(testConfig("recovers"))
	boom := errors.New("timeout")

	for i := 0; i < 6; i++ {
		_, _ = Execute(cb, func() (string, error) { return "", boom })
	}
	require.Equal(t, gobreaker.StateOpen, cb.State())

	time.Sleep(150 * time.Millisecond)

	got, err := Execute(cb, func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.NotEqual(t, gobreaker.StateOpen, cb.State())
}

func TestCircuitBreaker_IsSuccessfulKeepsClosed(t *testing.T) {
	rateLimited := errors.New("rate limited")
	cfg := testConfig("neutral")
	cfg.MinRequests = 2
	cfg.FailureThreshold = 0.5
	cfg.IsSuccessful = func(err error) bool {
		return errors.Is(err, rateLimited)
	}
	cb := New(cfg)

	for i := 0; i < 5; i++ {
		_, err := Execute(cb, func() (string, error) { return "", rateLimited })
		require.ErrorIs(t, err, rateLimited)
	}

	assert.False(t, cb.IsOpen())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("hosted")

	assert.Equal(t, "hosted", cfg.Name)
	assert.Equal(t, uint32(3), cfg.MaxRequests)
	assert.Equal(t, 60*time.Second, cfg.Interval)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 0.6, cfg.FailureThreshold)
	assert.Equal(t, uint32(5), cfg.MinRequests)
	assert.Nil(t, cfg.IsSuccessful)
}

func TestIsRejection(t *testing.T) {
	assert.True(t, IsRejection(gobreaker.ErrOpenState))
	assert.True(t, IsRejection(gobreaker.ErrTooManyRequests))
	assert.False(t, IsRejection(errors.New("connection refused")))
}

func TestGroup_GetReusesBreakers(t *testing.T) {
	g := NewGroup(testConfig("generation"))

	a := g.Get("http://gpu-1:11434")
	b := g.Get("http://gpu-1:11434")
	c := g.Get("hosted")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, "generation:http://gpu-1:11434", a.Name())
	assert.Equal(t, "generation:hosted", c.Name())
}

func TestGroup_BreakersAreIndependent(t *testing.T) {
	g := NewGroup(testConfig("independent"))
	boom := errors.New("HTTP 500")

	for i := 0; i < 6; i++ {
		_, _ = Execute(g.Get("http://gpu-1:11434"), func() (string, error) { return "", boom })
	}

	assert.True(t, g.Get("http://gpu-1:11434").IsOpen())
	assert.False(t, g.Get("http://gpu-2:11434").IsOpen())
	assert.Equal(t, []BreakerState{
		{Key: "http://gpu-1:11434", State: "open"},
		{Key: "http://gpu-2:11434", State: "closed"},
	}, g.States())
}

func TestGroup_Nil(t *testing.T) {
	var g *Group

	assert.Nil(t, g.Get("hosted"))
	assert.Nil(t, g.States())
}

func TestGroup_ConcurrentGet(t *testing.T) {
	g := NewGroup(testConfig("concurrent"))

	var wg sync.WaitGroup
	got := make([]*CircuitBreaker, 16)
	for i := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i] = g.Get("hosted")
		}()
	}
	wg.Wait()

	for _, cb := range got {
		assert.Same(t, got[0], cb)
	}
}
