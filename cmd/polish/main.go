// Package main provides a CLI command for polishing and summarizing transcripts.
// Usage: polish [--mode polish|summarize|process] [--template NAME] [--output json] FILE
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"transcript-polisher/internal/config"
	"transcript-polisher/internal/infra/llm"
	"transcript-polisher/internal/observability/logging"
	"transcript-polisher/internal/usecase/generate"
	"transcript-polisher/internal/usecase/polish"
)

// options holds the parsed command-line flags.
type options struct {
	mode         string
	template     string
	title        string
	podcast      string
	audioURL     string
	model        string
	timeout      time.Duration
	retries      int
	display      bool
	skipPolish   bool
	outputFormat string
	input        string
}

func main() {
	opts := parseFlags()
	logger := logging.NewTextLogger()
	slog.SetDefault(logger)

	transcript, err := readInput(opts.input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadGenerationConfig()
	if err != nil {
		logger.Error("failed to load generation configuration", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: Failed to load generation configuration: %v\n", err)
		os.Exit(1)
	}

	templates, err := polish.LoadTemplates(cfg.TemplatesPath)
	if err != nil {
		logger.Error("failed to load prompt templates", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: Failed to load prompt templates: %v\n", err)
		os.Exit(1)
	}

	client := llm.NewClient(cfg)
	registry := generate.NewRegistry(cfg)
	orchestrator := generate.NewOrchestrator(cfg, registry, client, generate.NewCooldownTracker())
	svc := polish.NewService(orchestrator, templates, cfg.Chunking,
		polish.WithRequestOptions(polish.RequestOptions{
			Model:   opts.model,
			Timeout: opts.timeout,
			Retries: opts.retries,
		}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("processing transcript",
		slog.String("mode", opts.mode),
		slog.String("template", opts.template),
		slog.Int("runes", len([]rune(transcript))))

	out, err := run(ctx, svc, opts, transcript)
	if err != nil {
		logger.Error("processing failed", slog.String("mode", opts.mode), slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: %s failed: %v\n", opts.mode, err)
		os.Exit(1)
	}

	if err := write(os.Stdout, opts.outputFormat, out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to write output: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.mode, "mode", "polish", "What to do: polish, summarize or process")
	flag.StringVar(&opts.template, "template", polish.DefaultTemplate, "Prompt template name")
	flag.StringVar(&opts.title, "title", "", "Episode title, used by summaries and display formatting")
	flag.StringVar(&opts.podcast, "podcast", "", "Podcast name for display formatting")
	flag.StringVar(&opts.audioURL, "audio-url", "", "Audio URL for display formatting")
	flag.StringVar(&opts.model, "model", "", "Pin a single local model")
	flag.DurationVar(&opts.timeout, "timeout", 0, "Per-attempt timeout (default from configuration)")
	flag.IntVar(&opts.retries, "retries", 0, "Attempts per candidate (default from configuration)")
	flag.BoolVar(&opts.display, "display", false, "Wrap the polished transcript with front matter for the site")
	flag.BoolVar(&opts.skipPolish, "skip-polish", false, "In process mode, summarize the raw transcript")
	flag.StringVar(&opts.outputFormat, "output", "text", "Output format: text or json")
	flag.Usage = usage
	flag.Parse()

	switch opts.mode {
	case "polish", "summarize", "process":
	default:
		fmt.Fprintf(os.Stderr, "Error: Invalid mode '%s' (must be 'polish', 'summarize' or 'process')\n\n", opts.mode)
		usage()
		os.Exit(1)
	}
	if opts.outputFormat != "text" && opts.outputFormat != "json" {
		fmt.Fprintf(os.Stderr, "Error: Invalid output '%s' (must be 'text' or 'json')\n\n", opts.outputFormat)
		usage()
		os.Exit(1)
	}

	switch flag.NArg() {
	case 0:
		opts.input = "-"
	case 1:
		opts.input = flag.Arg(0)
	default:
		usage()
		os.Exit(1)
	}
	return opts
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: polish [--mode polish|summarize|process] [--template NAME] [--output json] [FILE]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Reads the transcript from FILE, or stdin when FILE is omitted or '-'.")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Examples:")
	fmt.Fprintln(os.Stderr, "  polish episode.txt")
	fmt.Fprintln(os.Stderr, "  polish --mode summarize --title 'EP 42' --template stock_analysis episode.txt")
	fmt.Fprintln(os.Stderr, "  polish --mode process --display --podcast '財經早餐' --title 'EP 42' episode.txt")
	fmt.Fprintln(os.Stderr, "  cat episode.txt | polish --output json")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}

func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		// #nosec G304 -- path is a CLI argument
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read transcript: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New("transcript is empty")
	}
	return string(data), nil
}

// Runner is the slice of the polish service the CLI drives.
type Runner interface {
	Polish(ctx context.Context, transcript, templateName string) (*polish.PolishResult, error)
	Summarize(ctx context.Context, transcript, title, templateName string) (*polish.SummaryResult, error)
	Process(ctx context.Context, req polish.ProcessRequest) (*polish.ProcessResult, error)
}

// Output is the CLI result in either mode.
type Output struct {
	Mode      string                `json:"mode"`
	Polish    *polish.PolishResult  `json:"polish,omitempty"`
	Summary   *polish.SummaryResult `json:"summary,omitempty"`
	Process   *polish.ProcessResult `json:"process,omitempty"`
	Formatted string                `json:"formatted,omitempty"`
}

func run(ctx context.Context, svc Runner, opts options, transcript string) (*Output, error) {
	out := &Output{Mode: opts.mode}
	meta := polish.DisplayMeta{Title: opts.title, Podcast: opts.podcast, AudioURL: opts.audioURL}

	switch opts.mode {
	case "summarize":
		res, err := svc.Summarize(ctx, transcript, opts.title, opts.template)
		if err != nil {
			return nil, err
		}
		out.Summary = res
	case "process":
		res, err := svc.Process(ctx, polish.ProcessRequest{
			Transcript: transcript,
			Title:      opts.title,
			Template:   opts.template,
			SkipPolish: opts.skipPolish,
		})
		if err != nil {
			return nil, err
		}
		out.Process = res
		if opts.display {
			out.Formatted = polish.FormatForDisplay(res.Polished, meta)
		}
	default:
		res, err := svc.Polish(ctx, transcript, opts.template)
		if err != nil {
			return nil, err
		}
		out.Polish = res
		if opts.display {
			out.Formatted = polish.FormatForDisplay(res.Content, meta)
		}
	}
	return out, nil
}

func write(w io.Writer, format string, out *Output) error {
	if format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		return encoder.Encode(out)
	}

	switch {
	case out.Formatted != "":
		_, err := fmt.Fprintln(w, out.Formatted)
		if err == nil && out.Process != nil {
			_, err = fmt.Fprintf(w, "\n---\n\n%s\n", out.Process.Summary)
		}
		return err
	case out.Polish != nil:
		_, err := fmt.Fprintln(w, out.Polish.Content)
		return err
	case out.Summary != nil:
		_, err := fmt.Fprintln(w, out.Summary.Summary)
		return err
	case out.Process != nil:
		if out.Process.PolishError != "" {
			fmt.Fprintf(os.Stderr, "Warning: polish failed, raw transcript kept: %s\n", out.Process.PolishError)
		}
		_, err := fmt.Fprintf(w, "%s\n\n---\n\n%s\n", out.Process.Polished, out.Process.Summary)
		return err
	}
	return nil
}
