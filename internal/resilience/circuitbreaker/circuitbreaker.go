// Package circuitbreaker guards generation endpoints with circuit breakers
// built on github.com/sony/gobreaker. An endpoint that keeps failing is
// rejected immediately until its open timeout elapses.
package circuitbreaker

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

// stateGauge exposes breaker state: 0 closed, 1 half-open, 2 open.
var stateGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "generation_circuit_breaker_state",
		Help: "Circuit breaker state per generation endpoint (0=closed, 1=half-open, 2=open)",
	},
	[]string{"breaker"},
)

// Config holds the configuration for a circuit breaker.
type Config struct {
	// Name identifies the breaker in logs and metrics
	Name string

	// MaxRequests is the maximum number of requests allowed in half-open state
	MaxRequests uint32

	// Interval is the cyclic period of the closed state to clear success/failure counts
	Interval time.Duration

	// Timeout is how long to stay open before probing again
	Timeout time.Duration

	// FailureThreshold is the failure ratio that trips the circuit, e.g. 0.6
	FailureThreshold float64

	// MinRequests is the minimum number of requests before the ratio counts
	MinRequests uint32

	// IsSuccessful reports errors that say nothing about endpoint health
	// (a rate-limited model, an odd payload). Nil counts every error as a failure.
	IsSuccessful func(err error) bool
}

// DefaultConfig returns the breaker defaults for one endpoint.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// CircuitBreaker wraps gobreaker.CircuitBreaker.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New creates a circuit breaker. State changes are logged and exported.
func New(cfg Config) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			stateGauge.WithLabelValues(name).Set(float64(to))
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}
	if cfg.IsSuccessful != nil {
		settings.IsSuccessful = func(err error) bool {
			return err == nil || cfg.IsSuccessful(err)
		}
	}

	stateGauge.WithLabelValues(cfg.Name).Set(float64(gobreaker.StateClosed))
	return &CircuitBreaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		name:    cfg.Name,
	}
}

// Execute runs fn through cb. A nil breaker runs fn directly. While the
// circuit is open it fails with gobreaker.ErrOpenState without calling fn.
func Execute[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	if cb == nil {
		return fn()
	}

	var zero T
	result, err := cb.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	if v, ok := result.(T); ok {
		return v, nil
	}
	return zero, nil
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}

// Name returns the name of the circuit breaker.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// IsOpen returns true if the circuit breaker is in the open state.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.breaker.State() == gobreaker.StateOpen
}

// IsRejection reports whether err came from the breaker itself rather than
// from the wrapped call.
func IsRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// Group hands out one breaker per key, created on first use from a shared
// template. A nil *Group disables circuit breaking. It is safe for
// concurrent use.
type Group struct {
	template Config

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewGroup creates a Group. Breaker names are template.Name + ":" + key.
func NewGroup(template Config) *Group {
	return &Group{
		template: template,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for key. It returns nil on a nil Group.
func (g *Group) Get(key string) *CircuitBreaker {
	if g == nil {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if cb, ok := g.breakers[key]; ok {
		return cb
	}
	cfg := g.template
	cfg.Name = g.template.Name + ":" + key
	cb := New(cfg)
	g.breakers[key] = cb
	return cb
}

// BreakerState is the state of one breaker in a Group.
type BreakerState struct {
	Key   string `json:"key"`
	State string `json:"state"`
}

// States lists the breakers created so far, sorted by key.
func (g *Group) States() []BreakerState {
	if g == nil {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	states := make([]BreakerState, 0, len(g.breakers))
	for key, cb := range g.breakers {
		states = append(states, BreakerState{Key: key, State: cb.State().String()})
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Key < states[j].Key })
	return states
}
