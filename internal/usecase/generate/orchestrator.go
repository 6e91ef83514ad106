package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"transcript-polisher/internal/config"
	"transcript-polisher/internal/domain/entity"
	"transcript-polisher/internal/observability/tracing"
	"transcript-polisher/internal/resilience/retry"
)

// maxErrorNotes bounds the causes carried by an exhausted failure.
const maxErrorNotes = 5

// Generator performs single attempts and reachability probes.
// *llm.Client satisfies it.
type Generator interface {
	Attempt(ctx context.Context, cand entity.Candidate, prompt string, timeout time.Duration) (*entity.Generation, error)
	IsReachable(ctx context.Context, endpoint string) bool
}

// Orchestrator walks the candidate plan until one attempt succeeds.
type Orchestrator struct {
	registry  *Registry
	generator Generator
	cooldowns *CooldownTracker
	metrics   MetricsRecorder

	cooldown   time.Duration
	timeout    time.Duration
	retries    int
	retryDelay time.Duration
	now        func() time.Time
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithClock overrides the time source used for cooldown bookkeeping.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithRetryDelay overrides the pause between failed attempts on one candidate.
func WithRetryDelay(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.retryDelay = d
	}
}

// WithMetricsRecorder overrides the orchestrator metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// NewOrchestrator wires the registry, generator and shared cooldown tracker.
// Defaults for timeout, retries and delays come from cfg.
func NewOrchestrator(cfg *config.GenerationConfig, registry *Registry, generator Generator, cooldowns *CooldownTracker, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		registry:   registry,
		generator:  generator,
		cooldowns:  cooldowns,
		metrics:    NewPrometheusMetrics(),
		cooldown:   cfg.CooldownDuration(),
		timeout:    cfg.Timeout(),
		retries:    cfg.RetriesPerTarget,
		retryDelay: cfg.RetryDelay(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate returns the first successful generation in plan order.
// It fails with entity.ErrNoBackendsConfigured when nothing can be tried and
// with an *entity.ExhaustedError once every candidate has failed.
// Cancellation of ctx stops the walk and is returned as is.
func (o *Orchestrator) Generate(ctx context.Context, req entity.GenerateRequest) (*entity.Generation, error) {
	ctx, span := tracing.GetTracer().Start(ctx, "generation.generate")
	defer span.End()

	gen, err := o.generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.metrics.RecordOutcome("none", outcomeOf(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.String("generation.backend", string(gen.Backend)),
		attribute.String("generation.model", gen.Model),
	)
	o.metrics.RecordOutcome(string(gen.Backend), "success")
	return gen, nil
}

func (o *Orchestrator) generate(ctx context.Context, req entity.GenerateRequest) (*entity.Generation, error) {
	models := o.registry.LocalModels()
	if req.Model != "" {
		models = []string{req.Model}
	}

	models, reset := o.cooldowns.Filter(models, o.now())
	if reset {
		o.metrics.RecordCooldownReset()
		slog.WarnContext(ctx, "every candidate model is cooling down, cooldowns reset",
			slog.Int("models", len(models)))
	}

	plan := o.registry.Plan(models)
	if len(plan) == 0 {
		return nil, entity.ErrNoBackendsConfigured
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = o.timeout
	}
	retries := req.Retries
	if retries <= 0 {
		retries = o.retries
	}

	notes := newErrorNotes(maxErrorNotes)
	reachable := make(map[string]bool)

	for _, cand := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if cand.Backend == entity.BackendLocal {
			ok, probed := reachable[cand.Endpoint]
			if !probed {
				ok = o.generator.IsReachable(ctx, cand.Endpoint)
				reachable[cand.Endpoint] = ok
				if !ok {
					notes.add(fmt.Sprintf("[local:%s] endpoint unreachable", cand.Endpoint))
					slog.WarnContext(ctx, "skipping unreachable endpoint",
						slog.String("endpoint", cand.Endpoint))
				}
			}
			if !ok {
				continue
			}
			if !o.cooldowns.IsAvailable(cand.Model, o.now()) {
				slog.DebugContext(ctx, "skipping model in cooldown",
					slog.String("candidate", cand.String()))
				continue
			}
		}

		gen, err := o.tryCandidate(ctx, cand, req.Prompt, timeout, retries, notes)
		if err == nil {
			return gen, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}

	slog.ErrorContext(ctx, "all generation candidates exhausted",
		slog.Int("candidates", len(plan)),
		slog.Any("causes", notes.items()))

	return nil, &entity.ExhaustedError{Causes: notes.items()}
}

// tryCandidate spends the retry budget on one candidate. A rate limit ends
// the budget at once and, for local models, starts a cooldown.
func (o *Orchestrator) tryCandidate(ctx context.Context, cand entity.Candidate, prompt string, timeout time.Duration, retries int, notes *errorNotes) (*entity.Generation, error) {
	policy := retry.FixedDelayConfig(retries, o.retryDelay)
	policy.OnRetry = func(ctx context.Context, attempt int, err error, delay time.Duration) {
		slog.InfoContext(ctx, "generation attempt failed, retrying",
			slog.String("candidate", cand.String()),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", retries),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))
	}

	return retry.Do(ctx, policy, func(attempt int) (*entity.Generation, error) {
		gen, err := o.generator.Attempt(ctx, cand, prompt, timeout)
		if err == nil {
			return gen, nil
		}
		if ctx.Err() == nil {
			notes.add(fmt.Sprintf("[%s attempt %d] %v", cand, attempt, err))
		}
		if entity.IsRateLimited(err) && cand.Backend == entity.BackendLocal {
			o.cooldowns.MarkRateLimited(cand.Model, o.now(), o.cooldown)
			o.metrics.RecordCooldownMarked(cand.Model)
			slog.WarnContext(ctx, "model rate limited, cooling down",
				slog.String("model", cand.Model),
				slog.Duration("cooldown", o.cooldown))
		}
		return nil, err
	})
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, entity.ErrNoBackendsConfigured):
		return "no_backends"
	case errors.Is(err, entity.ErrAllCandidatesExhausted):
		return "exhausted"
	default:
		return "canceled"
	}
}

// errorNotes keeps the most recent failure notes.
type errorNotes struct {
	limit int
	notes []string
}

func newErrorNotes(limit int) *errorNotes {
	return &errorNotes{limit: limit}
}

func (e *errorNotes) add(note string) {
	e.notes = append(e.notes, note)
	if len(e.notes) > e.limit {
		e.notes = e.notes[len(e.notes)-e.limit:]
	}
}

func (e *errorNotes) items() []string {
	return append([]string(nil), e.notes...)
}
