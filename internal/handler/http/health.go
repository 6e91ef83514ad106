// Package http provides the HTTP surface of the transcript polisher: health
// and backend status endpoints, Prometheus metrics and the shared middleware.
// Polish endpoints live in the polish subpackage.
package http

import (
	"context"
	"net/http"
	"time"

	"transcript-polisher/internal/handler/http/respond"
	"transcript-polisher/internal/usecase/generate"
)

// Health states reported by the health endpoints.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthResponse represents the JSON response for GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"` // RFC 3339
	Version   string `json:"version"`
}

// HealthHandler reports that the process is up. It does not touch any backend.
type HealthHandler struct {
	Version string
}

// ServeHTTP always answers 200 OK while the process can serve requests.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	respond.JSON(w, http.StatusOK, HealthResponse{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.Version,
	})
}

// StatusSource produces a backend status report. *generate.StatusReporter satisfies it.
type StatusSource interface {
	Status(ctx context.Context) generate.Status
}

// BackendsResponse represents the JSON response for GET /health/backends.
type BackendsResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Report  generate.Status `json:"report"`
}

// BackendsHandler probes the generation backends.
type BackendsHandler struct {
	Source StatusSource
	// Timeout bounds the whole probe fan-out. Zero means 10s.
	Timeout time.Duration
}

// ServeHTTP returns 200 when at least one backend can take work and 503
// otherwise. Unreachable endpoints or active cooldowns next to a usable
// backend report "degraded".
func (h *BackendsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	report := h.Source.Status(ctx)
	status, msg := assess(report)

	code := http.StatusOK
	if status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	respond.JSON(w, code, BackendsResponse{Status: status, Message: msg, Report: report})
}

func assess(report generate.Status) (string, string) {
	reachable := 0
	for _, ep := range report.Endpoints {
		if ep.Reachable {
			reachable++
		}
	}
	localUsable := reachable > 0 && len(report.Models) > 0

	switch {
	case !localUsable && !report.Hosted.Enabled:
		if len(report.Endpoints) == 0 {
			return StatusUnhealthy, "no backends configured"
		}
		return StatusUnhealthy, "no local endpoint reachable and hosted backend disabled"
	case reachable < len(report.Endpoints):
		return StatusDegraded, "some local endpoints are unreachable"
	case len(report.Cooldowns) > 0:
		return StatusDegraded, "some models are cooling down after rate limits"
	default:
		return StatusHealthy, ""
	}
}
