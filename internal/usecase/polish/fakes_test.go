package polish

import (
	"context"
	"strings"
	"sync"
	"time"

	"transcript-polisher/internal/domain/entity"
)

// fakeGenerator answers through respond; every prompt is recorded.
type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	reqs    []entity.GenerateRequest
	respond func(call int, prompt string) (string, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, req entity.GenerateRequest) (*entity.Generation, error) {
	f.mu.Lock()
	call := len(f.prompts)
	f.prompts = append(f.prompts, req.Prompt)
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := f.respond(call, req.Prompt)
	if err != nil {
		return nil, err
	}
	return &entity.Generation{Content: content, Model: "test-model", Backend: entity.BackendLocal}, nil
}

func echoUpper(_ int, prompt string) (string, error) {
	return strings.ToUpper(prompt), nil
}

type fakeMetrics struct {
	mu         sync.Mutex
	chunks     []string
	reassembly []string
	runs       []string
}

func (f *fakeMetrics) RecordChunk(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = append(f.chunks, outcome)
}

func (f *fakeMetrics) RecordReassembly(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reassembly = append(f.reassembly, outcome)
}

func (f *fakeMetrics) RecordRun(operation, outcome string, _ int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, operation+":"+outcome)
}
