// Package main provides a CLI command that reports generation backend status.
// Usage: status [--output json] [--timeout 10s]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"transcript-polisher/internal/config"
	"transcript-polisher/internal/infra/llm"
	"transcript-polisher/internal/observability/logging"
	"transcript-polisher/internal/usecase/generate"
)

func main() {
	var (
		outputFormat string
		timeout      time.Duration
	)
	flag.StringVar(&outputFormat, "output", "text", "Output format: text or json")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "Overall probe timeout")
	flag.Parse()

	if outputFormat != "text" && outputFormat != "json" {
		fmt.Fprintf(os.Stderr, "Error: Invalid output '%s' (must be 'text' or 'json')\n", outputFormat)
		os.Exit(1)
	}

	logger := logging.NewTextLogger()
	slog.SetDefault(logger)

	cfg, err := config.LoadGenerationConfig()
	if err != nil {
		logger.Error("failed to load generation configuration", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: Failed to load generation configuration: %v\n", err)
		os.Exit(1)
	}

	reporter := generate.NewStatusReporter(generate.NewRegistry(cfg), llm.NewClient(cfg), generate.NewCooldownTracker())

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	status := reporter.Status(ctx)

	if outputFormat == "json" {
		err = outputJSON(os.Stdout, status)
	} else {
		err = outputText(os.Stdout, status)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to write output: %v\n", err)
		os.Exit(1)
	}
}

// outputText prints the status in human-readable format.
func outputText(w io.Writer, st generate.Status) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Priority: %s\n", strings.Join(st.Priority, " → "))
	fmt.Fprintf(&b, "Default model: %s\n", orNone(st.DefaultModel))
	fmt.Fprintf(&b, "Models: %s\n\n", orNone(strings.Join(st.Models, ", ")))

	fmt.Fprintf(&b, "Local endpoints (%d):\n", len(st.Endpoints))
	for _, ep := range st.Endpoints {
		if ep.Reachable {
			fmt.Fprintf(&b, "  ✓ %s (%d models: %s)\n", ep.URL, len(ep.Models), strings.Join(ep.Models, ", "))
		} else {
			fmt.Fprintf(&b, "  ✗ %s: %s\n", ep.URL, ep.Error)
		}
	}

	b.WriteString("\nHosted: ")
	if st.Hosted.Enabled {
		fmt.Fprintf(&b, "%s %s (%s)\n", st.Hosted.Protocol, st.Hosted.Endpoint, st.Hosted.Model)
	} else {
		b.WriteString("disabled\n")
	}

	if len(st.Cooldowns) > 0 {
		b.WriteString("\nCooling down:\n")
		for _, c := range st.Cooldowns {
			fmt.Fprintf(&b, "  %s for %s\n", c.Model, c.Remaining.Round(time.Second))
		}
	}

	if len(st.Breakers) > 0 {
		b.WriteString("\nCircuit breakers:\n")
		for _, br := range st.Breakers {
			fmt.Fprintf(&b, "  %s: %s\n", br.Key, br.State)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// outputJSON prints the status in JSON format.
func outputJSON(w io.Writer, st generate.Status) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(st)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
