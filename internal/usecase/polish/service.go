// Package polish turns raw transcripts into polished transcripts and
// summaries. Short transcripts go through one generation; long ones are
// split into overlapping chunks, polished chunk by chunk and reformatted.
package polish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"transcript-polisher/internal/config"
	"transcript-polisher/internal/observability/logging"
	"transcript-polisher/internal/observability/tracing"
)

// ErrEmptyTranscript is returned when there is nothing to process.
var ErrEmptyTranscript = errors.New("transcript is empty")

// PolishResult is the outcome of Polish.
type PolishResult struct {
	RunID    string `json:"run_id"`
	Content  string `json:"content"`
	Template string `json:"template"`
	Model    string `json:"model,omitempty"`
	Chunked  bool   `json:"chunked"`
	Chunks   int    `json:"chunks"`
	// FailedChunks counts chunks kept verbatim after a generation failure.
	FailedChunks int  `json:"failed_chunks"`
	Reassembled  bool `json:"reassembled"`
}

// SummaryResult is the outcome of Summarize.
type SummaryResult struct {
	RunID    string `json:"run_id"`
	Summary  string `json:"summary"`
	Template string `json:"template"`
	Model    string `json:"model"`
}

// ProcessRequest describes a full polish-then-summarize run.
type ProcessRequest struct {
	Transcript string
	Title      string
	Template   string
	SkipPolish bool
}

// ProcessResult is the outcome of Process. Polished holds the raw
// transcript when polishing was skipped or failed.
type ProcessResult struct {
	RunID        string `json:"run_id"`
	Polished     string `json:"polished"`
	Summary      string `json:"summary"`
	Template     string `json:"template"`
	PolishModel  string `json:"polish_model,omitempty"`
	SummaryModel string `json:"summary_model"`
	PolishError  string `json:"polish_error,omitempty"`
}

// Service runs documents through polish and summary.
type Service struct {
	generator   Generator
	templates   *Templates
	chunking    config.ChunkingConfig
	processor   *Processor
	reassembler *Reassembler
	metrics     MetricsRecorder
	opts        RequestOptions
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRequestOptions pins the model, timeout or retries for every request.
func WithRequestOptions(opts RequestOptions) ServiceOption {
	return func(s *Service) {
		s.opts = opts
	}
}

// WithMetrics overrides the metrics recorder.
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a Service.
func NewService(generator Generator, templates *Templates, chunking config.ChunkingConfig, opts ...ServiceOption) *Service {
	s := &Service{
		generator: generator,
		templates: templates,
		chunking:  chunking,
		metrics:   NewPrometheusMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.processor = NewProcessor(generator, s.metrics)
	s.reassembler = NewReassembler(generator, s.metrics)
	return s
}

// Templates returns the template registry.
func (s *Service) Templates() *Templates {
	return s.templates
}

// Polish cleans up a transcript. Transcripts longer than the chunking
// threshold take the chunked path, which always yields text: failed chunks
// pass through verbatim and a failed reassembly returns the joined chunks.
func (s *Service) Polish(ctx context.Context, transcript, templateName string) (*PolishResult, error) {
	ctx, runID := startRun(ctx)
	start := time.Now()

	res, err := s.polish(ctx, transcript, templateName)
	s.finishRun(ctx, "polish", start, res, err)
	if err != nil {
		return nil, err
	}
	res.RunID = runID
	return res, nil
}

func (s *Service) polish(ctx context.Context, transcript, templateName string) (*PolishResult, error) {
	if transcript == "" {
		return nil, ErrEmptyTranscript
	}

	ctx, span := tracing.GetTracer().Start(ctx, "polish.document")
	defer span.End()

	tpl, key := s.templates.Get(templateName)
	length := len([]rune(transcript))
	logger := logging.FromContext(ctx)
	span.SetAttributes(attribute.Int("document.runes", length), attribute.String("template", key))

	if length <= s.chunking.Threshold {
		logger.InfoContext(ctx, "polishing transcript",
			slog.String("template", key),
			slog.Int("length", length))

		gen, err := s.generator.Generate(ctx, s.opts.request(render(tpl.PolishPrompt, transcript, "")))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "polish failed")
			return nil, fmt.Errorf("polish transcript: %w", err)
		}
		return &PolishResult{Content: gen.Content, Template: key, Model: gen.Model, Chunks: 1}, nil
	}

	spans, err := Split(transcript, s.chunking.ChunkSize, s.chunking.Overlap)
	if err != nil {
		return nil, fmt.Errorf("split transcript: %w", err)
	}

	logger.InfoContext(ctx, "polishing long transcript in chunks",
		slog.String("template", key),
		slog.Int("length", length),
		slog.Int("chunks", len(spans)))

	results := s.processor.Process(ctx, transcript, spans, tpl.chunkPrompt(), s.opts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := 0
	for _, r := range results {
		if !r.Transformed {
			failed++
		}
	}

	merged := Join(results)
	content, model, ok := s.reassembler.Reassemble(ctx, merged, tpl.formatPrompt(), s.opts)

	logger.InfoContext(ctx, "chunked polish completed",
		slog.Int("input_length", length),
		slog.Int("output_length", len([]rune(content))),
		slog.Int("failed_chunks", failed),
		slog.Bool("reassembled", ok))

	return &PolishResult{
		Content:      content,
		Template:     key,
		Model:        model,
		Chunked:      true,
		Chunks:       len(spans),
		FailedChunks: failed,
		Reassembled:  ok,
	}, nil
}

// Summarize produces a structured summary of transcript using the
// template's summary prompt.
func (s *Service) Summarize(ctx context.Context, transcript, title, templateName string) (*SummaryResult, error) {
	ctx, runID := startRun(ctx)
	start := time.Now()

	res, err := s.summarize(ctx, transcript, title, templateName)
	s.finishRun(ctx, "summarize", start, nil, err)
	if err != nil {
		return nil, err
	}
	res.RunID = runID
	return res, nil
}

func (s *Service) summarize(ctx context.Context, transcript, title, templateName string) (*SummaryResult, error) {
	if transcript == "" {
		return nil, ErrEmptyTranscript
	}

	ctx, span := tracing.GetTracer().Start(ctx, "polish.summarize")
	defer span.End()

	tpl, key := s.templates.Get(templateName)
	logging.FromContext(ctx).InfoContext(ctx, "generating summary",
		slog.String("template", key),
		slog.String("title", title))

	gen, err := s.generator.Generate(ctx, s.opts.request(render(tpl.SummaryPrompt, transcript, title)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "summary failed")
		return nil, fmt.Errorf("generate summary: %w", err)
	}

	return &SummaryResult{Summary: gen.Content, Template: key, Model: gen.Model}, nil
}

// Process polishes (unless skipped) and then summarizes. A polish failure
// is tolerated and the raw transcript is summarized instead; only a summary
// failure is returned as an error.
func (s *Service) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	ctx, runID := startRun(ctx)
	start := time.Now()
	logger := logging.FromContext(ctx)

	if req.Transcript == "" {
		s.finishRun(ctx, "process", start, nil, ErrEmptyTranscript)
		return nil, ErrEmptyTranscript
	}

	res := &ProcessResult{RunID: runID, Polished: req.Transcript}

	if !req.SkipPolish {
		polished, err := s.polish(ctx, req.Transcript, req.Template)
		switch {
		case err == nil:
			res.Polished = polished.Content
			res.PolishModel = polished.Model
		case ctx.Err() != nil:
			s.finishRun(ctx, "process", start, nil, err)
			return nil, err
		default:
			res.PolishError = err.Error()
			logger.WarnContext(ctx, "polish failed, summarizing raw transcript",
				slog.String("error", err.Error()))
		}
	}

	summary, err := s.summarize(ctx, res.Polished, req.Title, req.Template)
	s.finishRun(ctx, "process", start, nil, err)
	if err != nil {
		return nil, err
	}

	res.Summary = summary.Summary
	res.SummaryModel = summary.Model
	res.Template = summary.Template
	return res, nil
}

func startRun(ctx context.Context) (context.Context, string) {
	runID := uuid.NewString()
	return logging.WithRunID(ctx, runID), runID
}

func (s *Service) finishRun(ctx context.Context, operation string, start time.Time, res *PolishResult, err error) {
	duration := time.Since(start)
	chunks := 0
	if res != nil {
		chunks = res.Chunks
	}

	if err != nil {
		s.metrics.RecordRun(operation, "failure", chunks, duration)
		logging.FromContext(ctx).ErrorContext(ctx, operation+" failed",
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return
	}

	s.metrics.RecordRun(operation, "success", chunks, duration)
	logging.FromContext(ctx).InfoContext(ctx, operation+" completed",
		slog.Duration("duration", duration))
}
