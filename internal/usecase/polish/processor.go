package polish

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"transcript-polisher/internal/domain/entity"
	"transcript-polisher/internal/observability/logging"
	"transcript-polisher/internal/observability/tracing"
)

// chunkSeparator joins processed chunks. Overlapping text is not removed.
const chunkSeparator = "\n\n"

// Generator produces text for a prompt with failover.
// *generate.Orchestrator satisfies it.
type Generator interface {
	Generate(ctx context.Context, req entity.GenerateRequest) (*entity.Generation, error)
}

// RequestOptions carries the per-call generation knobs shared by every
// request a document run makes.
type RequestOptions struct {
	Model   string
	Timeout time.Duration
	Retries int
}

func (o RequestOptions) request(prompt string) entity.GenerateRequest {
	return entity.GenerateRequest{
		Prompt:  prompt,
		Model:   o.Model,
		Timeout: o.Timeout,
		Retries: o.Retries,
	}
}

// Processor polishes chunks one at a time.
type Processor struct {
	generator Generator
	metrics   MetricsRecorder
}

// NewProcessor creates a Processor.
func NewProcessor(generator Generator, metrics MetricsRecorder) *Processor {
	return &Processor{generator: generator, metrics: metrics}
}

// Process runs prompt over each span of document in order. The result
// slice is index-aligned with spans. A chunk whose generation fails keeps
// its original text, so no span is ever dropped.
func (p *Processor) Process(ctx context.Context, document string, spans []entity.Span, prompt string, opts RequestOptions) []entity.ChunkResult {
	runes := []rune(document)
	results := make([]entity.ChunkResult, len(spans))
	logger := logging.FromContext(ctx)

	for i, span := range spans {
		chunk := sliceRunes(runes, span)
		results[i] = p.processChunk(ctx, logger, i, len(spans), span, chunk, prompt, opts)
	}
	return results
}

func (p *Processor) processChunk(ctx context.Context, logger *slog.Logger, index, total int, span entity.Span, chunk, prompt string, opts RequestOptions) entity.ChunkResult {
	ctx, spanTrace := tracing.GetTracer().Start(ctx, "polish.chunk")
	defer spanTrace.End()
	spanTrace.SetAttributes(
		attribute.Int("chunk.index", index),
		attribute.Int("chunk.runes", span.Len()),
	)

	logger.InfoContext(ctx, "processing chunk",
		slog.Int("chunk", index+1),
		slog.Int("total", total),
		slog.Int("runes", span.Len()))

	gen, err := p.generator.Generate(ctx, opts.request(render(prompt, chunk, "")))
	if err != nil {
		logger.WarnContext(ctx, "chunk generation failed, keeping original text",
			slog.Int("chunk", index+1),
			slog.String("error", err.Error()))
		p.metrics.RecordChunk("passthrough")
		spanTrace.SetAttributes(attribute.Bool("chunk.passthrough", true))
		return entity.ChunkResult{Span: span, Text: chunk, Err: err}
	}

	p.metrics.RecordChunk("polished")
	return entity.ChunkResult{Span: span, Text: gen.Content, Transformed: true, Model: gen.Model}
}

// Join concatenates chunk texts in order with a blank line between them.
func Join(results []entity.ChunkResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Text
	}
	return strings.Join(parts, chunkSeparator)
}
