package entity

import (
	"fmt"
	"strings"
	"time"
)

// BackendKind identifies a generation service family.
type BackendKind string

const (
	// BackendLocal is a self-hosted Ollama-style service reachable on the network.
	BackendLocal BackendKind = "local"
	// BackendHosted is a hosted API endpoint (OpenAI-compatible or Anthropic).
	BackendHosted BackendKind = "hosted"
)

// ParseBackendKind converts a configuration string into a BackendKind.
// "cloud" is accepted as an alias for hosted.
func ParseBackendKind(s string) (BackendKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local":
		return BackendLocal, true
	case "hosted", "cloud":
		return BackendHosted, true
	default:
		return "", false
	}
}

// Candidate is a concrete (backend, endpoint, model) tuple eligible for an attempt.
type Candidate struct {
	Backend  BackendKind
	Endpoint string
	Model    string
}

// String renders the candidate for logs and error notes.
func (c Candidate) String() string {
	return fmt.Sprintf("%s:%s@%s", c.Backend, c.Model, c.Endpoint)
}

// GenerateRequest describes one orchestrated generation.
type GenerateRequest struct {
	Prompt string
	// Model pins a single local model and bypasses model iteration.
	Model string
	// Timeout applies to each attempt, not to the whole call.
	Timeout time.Duration
	// Retries is the attempt budget per candidate.
	Retries int
}

// Generation is a successful generation outcome.
type Generation struct {
	Content    string
	Model      string
	Backend    BackendKind
	Endpoint   string
	TokensUsed int
}

// FailureKind classifies why a single attempt failed.
type FailureKind string

const (
	FailureUnreachable FailureKind = "unreachable"
	FailureTimeout     FailureKind = "timeout"
	FailureRateLimited FailureKind = "rate_limited"
	FailureMalformed   FailureKind = "malformed_response"
	FailureUpstream    FailureKind = "upstream"
)

// Span is a half-open [Start, End) range of rune offsets into a document.
type Span struct {
	Start int
	End   int
}

// Len returns the span length in runes.
func (s Span) Len() int {
	return s.End - s.Start
}

// ChunkResult is the processed form of one span. Text holds the generated
// content, or the original chunk text when Transformed is false.
type ChunkResult struct {
	Span        Span
	Text        string
	Transformed bool
	Model       string
	Err         error
}
