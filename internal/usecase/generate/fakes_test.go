package generate

import (
	"context"
	"sync"
	"time"

	"transcript-polisher/internal/config"
	"transcript-polisher/internal/domain/entity"
)

// fakeGenerator replays scripted outcomes per candidate. A candidate with no
// script left succeeds with "<model> output".
type fakeGenerator struct {
	mu          sync.Mutex
	unreachable map[string]bool
	scripts     map[string][]error
	calls       []entity.Candidate
	probes      []string
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		unreachable: make(map[string]bool),
		scripts:     make(map[string][]error),
	}
}

func (f *fakeGenerator) script(cand entity.Candidate, errs ...error) {
	f.scripts[cand.String()] = append(f.scripts[cand.String()], errs...)
}

func (f *fakeGenerator) failAlways(cand entity.Candidate, kind entity.FailureKind, attempts int) {
	for i := 0; i < attempts; i++ {
		f.script(cand, &entity.GenerationError{Kind: kind, Candidate: cand, Message: "scripted"})
	}
}

func (f *fakeGenerator) Attempt(ctx context.Context, cand entity.Candidate, prompt string, timeout time.Duration) (*entity.Generation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, cand)
	key := cand.String()
	if queue := f.scripts[key]; len(queue) > 0 {
		f.scripts[key] = queue[1:]
		if queue[0] != nil {
			return nil, queue[0]
		}
	}
	return &entity.Generation{
		Content:  cand.Model + " output",
		Model:    cand.Model,
		Backend:  cand.Backend,
		Endpoint: cand.Endpoint,
	}, nil
}

func (f *fakeGenerator) IsReachable(ctx context.Context, endpoint string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.probes = append(f.probes, endpoint)
	return !f.unreachable[endpoint]
}

func (f *fakeGenerator) ListModels(ctx context.Context, endpoint string) ([]string, error) {
	if f.unreachable[endpoint] {
		return nil, context.DeadlineExceeded
	}
	return []string{"A", "B"}, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeMetrics struct {
	mu       sync.Mutex
	marks    []string
	resets   int
	outcomes []string
}

func (f *fakeMetrics) RecordCooldownMarked(model string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marks = append(f.marks, model)
}

func (f *fakeMetrics) RecordCooldownReset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

func (f *fakeMetrics) RecordOutcome(backend, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, backend+":"+outcome)
}

const (
	endpointDown = "http://10.0.0.5:11434"
	endpointUp   = "http://10.0.0.6:11434"
	hostedURL    = "https://api.ollama.com/v1"
)

func scenarioConfig() *config.GenerationConfig {
	cfg := config.DefaultGenerationConfig()
	cfg.Priority = []string{"local", "hosted"}
	cfg.Local.EndpointURLs = []string{endpointDown, endpointUp}
	cfg.Local.Models = []string{"A", "B"}
	cfg.Hosted.Enabled = true
	cfg.Hosted.Endpoint = hostedURL
	cfg.Hosted.Model = "cloud-model"
	cfg.RetriesPerTarget = 2
	cfg.RetryDelayMS = 0
	return &cfg
}

func local(endpoint, model string) entity.Candidate {
	return entity.Candidate{Backend: entity.BackendLocal, Endpoint: endpoint, Model: model}
}

func hosted() entity.Candidate {
	return entity.Candidate{Backend: entity.BackendHosted, Endpoint: hostedURL, Model: "cloud-model"}
}
