package generate

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"transcript-polisher/internal/resilience/circuitbreaker"
)

// ModelLister lists the models an endpoint advertises. *llm.Client satisfies it.
type ModelLister interface {
	ListModels(ctx context.Context, endpoint string) ([]string, error)
}

// BreakerReporter exposes endpoint circuit breaker states. *llm.Client
// satisfies it; listers that do not are reported without breakers.
type BreakerReporter interface {
	BreakerStates() []circuitbreaker.BreakerState
}

// EndpointStatus reports one local endpoint.
type EndpointStatus struct {
	URL       string   `json:"url"`
	Reachable bool     `json:"reachable"`
	Models    []string `json:"models"`
	Error     string   `json:"error,omitempty"`
}

// HostedStatus reports the hosted backend settings.
type HostedStatus struct {
	Enabled  bool   `json:"enabled"`
	Protocol string `json:"protocol,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	Model    string `json:"model,omitempty"`
}

// Status is a point-in-time view of every configured backend.
type Status struct {
	Priority     []string                      `json:"priority"`
	DefaultModel string                        `json:"default_model"`
	Models       []string                      `json:"models"`
	Endpoints    []EndpointStatus              `json:"endpoints"`
	Hosted       HostedStatus                  `json:"hosted"`
	Cooldowns    []Cooldown                    `json:"cooldowns"`
	Breakers     []circuitbreaker.BreakerState `json:"breakers,omitempty"`
	CheckedAt    time.Time                     `json:"checked_at"`
}

// StatusReporter probes configured backends for health reporting.
type StatusReporter struct {
	registry  *Registry
	lister    ModelLister
	cooldowns *CooldownTracker
	now       func() time.Time
}

// NewStatusReporter creates a StatusReporter.
func NewStatusReporter(registry *Registry, lister ModelLister, cooldowns *CooldownTracker) *StatusReporter {
	return &StatusReporter{
		registry:  registry,
		lister:    lister,
		cooldowns: cooldowns,
		now:       time.Now,
	}
}

// Status probes every local endpoint concurrently. Probe failures are
// reported per endpoint, never as an error.
func (s *StatusReporter) Status(ctx context.Context) Status {
	endpoints := s.registry.LocalEndpoints()
	results := make([]EndpointStatus, len(endpoints))

	g, gctx := errgroup.WithContext(ctx)
	for i, endpoint := range endpoints {
		g.Go(func() error {
			st := EndpointStatus{URL: endpoint, Models: []string{}}
			models, err := s.lister.ListModels(gctx, endpoint)
			if err != nil {
				st.Error = err.Error()
				slog.DebugContext(gctx, "status probe failed",
					slog.String("endpoint", endpoint),
					slog.String("error", err.Error()))
			} else {
				st.Reachable = true
				st.Models = models
			}
			results[i] = st
			return nil
		})
	}
	_ = g.Wait()

	priority := make([]string, 0, 2)
	for _, kind := range s.registry.Priority() {
		priority = append(priority, string(kind))
	}

	hosted := s.registry.Hosted()
	hs := HostedStatus{Enabled: hosted.Enabled}
	if hosted.Enabled {
		hs.Protocol = hosted.Protocol
		hs.Endpoint = hosted.Endpoint
		hs.Model = hosted.Model
	}

	var breakers []circuitbreaker.BreakerState
	if br, ok := s.lister.(BreakerReporter); ok {
		breakers = br.BreakerStates()
	}

	now := s.now()
	return Status{
		Priority:     priority,
		DefaultModel: s.registry.DefaultModel(),
		Models:       s.registry.LocalModels(),
		Endpoints:    results,
		Hosted:       hs,
		Cooldowns:    s.cooldowns.Snapshot(now),
		Breakers:     breakers,
		CheckedAt:    now,
	}
}
