package polish

import (
	"context"
	"log/slog"

	"transcript-polisher/internal/observability/logging"
)

// Reassembler runs one formatting pass over the joined chunks.
type Reassembler struct {
	generator Generator
	metrics   MetricsRecorder
}

// NewReassembler creates a Reassembler.
func NewReassembler(generator Generator, metrics MetricsRecorder) *Reassembler {
	return &Reassembler{generator: generator, metrics: metrics}
}

// Reassemble asks for a formatted version of merged. If generation fails
// the merged text is returned unchanged with ok=false.
func (r *Reassembler) Reassemble(ctx context.Context, merged, prompt string, opts RequestOptions) (text, model string, ok bool) {
	logger := logging.FromContext(ctx)

	gen, err := r.generator.Generate(ctx, opts.request(render(prompt, merged, "")))
	if err != nil {
		logger.WarnContext(ctx, "reassembly failed, returning merged chunks",
			slog.String("error", err.Error()))
		r.metrics.RecordReassembly("merged")
		return merged, "", false
	}

	r.metrics.RecordReassembly("formatted")
	return gen.Content, gen.Model, true
}
