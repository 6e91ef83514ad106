// Package llm talks to generation backends: Ollama-style local services over
// plain HTTP and a hosted endpoint through the OpenAI or Anthropic SDK.
// Every failure leaving this package is an *entity.GenerationError, except
// cancellation of the caller's context which is returned as is.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"transcript-polisher/internal/config"
	"transcript-polisher/internal/domain/entity"
	"transcript-polisher/internal/observability/tracing"
	"transcript-polisher/internal/resilience/circuitbreaker"
)

// hostedBreakerKey names the single breaker guarding the hosted endpoint.
const hostedBreakerKey = "hosted"

// Client performs single generation attempts and liveness probes.
// It is safe for concurrent use.
type Client struct {
	httpClient   *http.Client
	hosted       hostedBackend
	hostedModel  string
	limiter      *RateLimiter
	metrics      AttemptMetricsRecorder
	probeTimeout time.Duration
	breakers     *circuitbreaker.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for every backend.
// The client should not set its own Timeout; attempts carry a deadline.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMetrics overrides the attempt metrics recorder.
func WithMetrics(m AttemptMetricsRecorder) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient builds a Client from the generation configuration.
func NewClient(cfg *config.GenerationConfig, opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{},
		metrics:      NewPrometheusAttemptMetrics(),
		probeTimeout: cfg.ProbeTimeout(),
		breakers:     newBreakerGroup(cfg.CircuitBreaker),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.Hosted.Enabled {
		c.hosted = newHostedBackend(cfg.Hosted, c.httpClient)
		c.hostedModel = cfg.Hosted.Model
		c.limiter = NewRateLimiter(cfg.Hosted.RequestsPerSecond, 1)

		slog.Info("hosted generation backend configured",
			slog.String("protocol", cfg.Hosted.Protocol),
			slog.String("endpoint", cfg.Hosted.Endpoint),
			slog.String("model", cfg.Hosted.Model))
	}

	return c
}

// HostedModel returns the configured hosted model, or "" when hosted is disabled.
func (c *Client) HostedModel() string {
	return c.hostedModel
}

// Attempt performs exactly one generation call against cand. timeout bounds
// this attempt only; zero means no per-attempt deadline.
func (c *Client) Attempt(ctx context.Context, cand entity.Candidate, prompt string, timeout time.Duration) (*entity.Generation, error) {
	attemptCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	attemptCtx, span := tracing.GetTracer().Start(attemptCtx, "generation.attempt")
	defer span.End()
	span.SetAttributes(
		attribute.String("generation.backend", string(cand.Backend)),
		attribute.String("generation.endpoint", cand.Endpoint),
		attribute.String("generation.model", cand.Model),
	)

	slog.DebugContext(ctx, "generation attempt started",
		slog.String("candidate", cand.String()),
		slog.Int("prompt_length", len([]rune(prompt))))

	start := time.Now()
	gen, err := c.attempt(ctx, attemptCtx, cand, prompt)
	duration := time.Since(start)

	if err != nil {
		outcome := "canceled"
		if genErr, ok := err.(*entity.GenerationError); ok {
			outcome = string(genErr.Kind)
		}
		c.metrics.RecordAttempt(string(cand.Backend), cand.Model, outcome, duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)

		slog.WarnContext(ctx, "generation attempt failed",
			slog.String("candidate", cand.String()),
			slog.String("outcome", outcome),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, err
	}

	c.metrics.RecordAttempt(string(cand.Backend), cand.Model, "success", duration)
	c.metrics.RecordTokens(string(cand.Backend), cand.Model, gen.TokensUsed)
	span.SetAttributes(attribute.Int("generation.tokens", gen.TokensUsed))

	slog.InfoContext(ctx, "generation attempt succeeded",
		slog.String("candidate", cand.String()),
		slog.Int("output_length", len([]rune(gen.Content))),
		slog.Int("tokens", gen.TokensUsed),
		slog.Duration("duration", duration))

	return gen, nil
}

func (c *Client) attempt(parent, attemptCtx context.Context, cand entity.Candidate, prompt string) (*entity.Generation, error) {
	var call func() (*entity.Generation, error)
	key := breakerKey(cand)

	switch cand.Backend {
	case entity.BackendLocal:
		call = func() (*entity.Generation, error) {
			return c.generateLocal(attemptCtx, cand.Endpoint, cand.Model, prompt)
		}
	case entity.BackendHosted:
		if c.hosted == nil {
			return nil, &entity.GenerationError{
				Kind:      entity.FailureUnreachable,
				Candidate: cand,
				Message:   "hosted backend is not enabled",
			}
		}
		if err := c.limiter.Wait(attemptCtx); err != nil {
			return nil, classify(parent, attemptCtx, cand, err)
		}
		call = func() (*entity.Generation, error) {
			return c.hosted.generate(attemptCtx, cand.Model, prompt)
		}
	default:
		return nil, &entity.GenerationError{
			Kind:      entity.FailureUnreachable,
			Candidate: cand,
			Message:   fmt.Sprintf("unknown backend %q", cand.Backend),
		}
	}

	classified := func() (*entity.Generation, error) {
		gen, err := call()
		if err != nil {
			return nil, classify(parent, attemptCtx, cand, err)
		}
		return gen, nil
	}

	gen, err := circuitbreaker.Execute(c.breakers.Get(key), classified)
	if err != nil {
		return nil, classify(parent, attemptCtx, cand, err)
	}
	return gen, nil
}

// breakerKey scopes local breakers to one model on one endpoint, so a
// failing model never blocks its neighbours. The hosted API has one breaker.
func breakerKey(cand entity.Candidate) string {
	if cand.Backend == entity.BackendHosted {
		return hostedBreakerKey
	}
	return cand.Endpoint + "|" + cand.Model
}

// newBreakerGroup returns nil when circuit breaking is disabled.
func newBreakerGroup(cfg config.CircuitBreakerConfig) *circuitbreaker.Group {
	if !cfg.Enabled {
		return nil
	}

	tpl := circuitbreaker.DefaultConfig("generation")
	if cfg.MaxRequests > 0 {
		tpl.MaxRequests = cfg.MaxRequests
	}
	if cfg.IntervalSeconds > 0 {
		tpl.Interval = time.Duration(cfg.IntervalSeconds) * time.Second
	}
	if cfg.TimeoutSeconds > 0 {
		tpl.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if cfg.FailureThreshold > 0 {
		tpl.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.MinRequests > 0 {
		tpl.MinRequests = cfg.MinRequests
	}
	tpl.IsSuccessful = breakerNeutral
	return circuitbreaker.NewGroup(tpl)
}

// BreakerStates lists the breakers used so far, keyed by endpoint and model.
func (c *Client) BreakerStates() []circuitbreaker.BreakerState {
	return c.breakers.States()
}

// IsReachable probes a local endpoint with a short deadline.
func (c *Client) IsReachable(ctx context.Context, endpoint string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	if _, err := c.fetchTags(probeCtx, endpoint); err != nil {
		slog.DebugContext(ctx, "endpoint probe failed",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

// ListModels returns the model names advertised by a local endpoint.
func (c *Client) ListModels(ctx context.Context, endpoint string) ([]string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	tags, err := c.fetchTags(probeCtx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("list models at %s: %w", endpoint, err)
	}

	models := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, m.Name)
	}
	return models, nil
}
