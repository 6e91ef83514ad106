// Package generate runs model generation with failover across configured
// backends, endpoints and models, tracking rate-limited models in a shared
// cooldown table.
package generate

import (
	"log/slog"

	"transcript-polisher/internal/config"
	"transcript-polisher/internal/domain/entity"
)

// defaultPriority applies when the configured priority names no known backend.
var defaultPriority = []entity.BackendKind{entity.BackendLocal, entity.BackendHosted}

// Registry is the immutable view of configured backends.
type Registry struct {
	priority  []entity.BackendKind
	endpoints []string
	models    []string
	hosted    config.HostedConfig
}

// NewRegistry builds a Registry from a loaded configuration. Unknown
// priority entries are ignored and duplicates keep their first position.
func NewRegistry(cfg *config.GenerationConfig) *Registry {
	r := &Registry{
		endpoints: append([]string(nil), cfg.Local.EndpointURLs...),
		models:    append([]string(nil), cfg.Local.Models...),
		hosted:    cfg.Hosted,
	}

	seen := make(map[entity.BackendKind]bool, 2)
	for _, p := range cfg.Priority {
		kind, ok := entity.ParseBackendKind(p)
		if !ok {
			slog.Warn("ignoring unknown backend in priority", slog.String("backend", p))
			continue
		}
		if seen[kind] {
			continue
		}
		seen[kind] = true
		r.priority = append(r.priority, kind)
	}
	if len(r.priority) == 0 {
		r.priority = append(r.priority, defaultPriority...)
	}

	return r
}

// Priority returns the backend order. Hosted is omitted while disabled.
func (r *Registry) Priority() []entity.BackendKind {
	out := make([]entity.BackendKind, 0, len(r.priority))
	for _, kind := range r.priority {
		if kind == entity.BackendHosted && !r.hosted.Enabled {
			continue
		}
		out = append(out, kind)
	}
	return out
}

// LocalEndpoints returns the local endpoints in failover order.
func (r *Registry) LocalEndpoints() []string {
	return append([]string(nil), r.endpoints...)
}

// LocalModels returns the local models in preference order.
func (r *Registry) LocalModels() []string {
	return append([]string(nil), r.models...)
}

// DefaultModel returns the first local model, or "" when none is configured.
func (r *Registry) DefaultModel() string {
	if len(r.models) == 0 {
		return ""
	}
	return r.models[0]
}

// Hosted returns the hosted backend settings.
func (r *Registry) Hosted() config.HostedConfig {
	return r.hosted
}

// Empty reports whether no candidate could ever be produced.
func (r *Registry) Empty() bool {
	return len(r.Plan(r.models)) == 0
}

// Plan expands the registry into the ordered candidate list for the given
// local models: backend priority first, then endpoint order, then model
// order. The hosted backend contributes its single configured model.
func (r *Registry) Plan(models []string) []entity.Candidate {
	var plan []entity.Candidate
	for _, kind := range r.Priority() {
		switch kind {
		case entity.BackendLocal:
			for _, endpoint := range r.endpoints {
				for _, model := range models {
					plan = append(plan, entity.Candidate{
						Backend:  entity.BackendLocal,
						Endpoint: endpoint,
						Model:    model,
					})
				}
			}
		case entity.BackendHosted:
			plan = append(plan, entity.Candidate{
				Backend:  entity.BackendHosted,
				Endpoint: r.hosted.Endpoint,
				Model:    r.hosted.Model,
			})
		}
	}
	return plan
}
