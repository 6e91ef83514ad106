package entity

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for domain layer operations. Only these reach callers of
// the orchestrator; per-attempt failures stay inside it.
var (
	// ErrValidationFailed matches every *ValidationError
	ErrValidationFailed = errors.New("validation failed")

	// ErrNoBackendsConfigured indicates the registry has nothing to try
	ErrNoBackendsConfigured = errors.New("no backends configured")

	// ErrAllCandidatesExhausted indicates every candidate failed
	ErrAllCandidatesExhausted = errors.New("all generation candidates exhausted")
)

// ValidationError reports which configuration field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidationFailed) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// GenerationError is the failure outcome of a single attempt.
type GenerationError struct {
	Kind       FailureKind
	Candidate  Candidate
	StatusCode int
	Message    string
	Err        error
}

// Error returns a compact description suitable for aggregation.
func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying transport error, if any.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same candidate may be attempted again immediately.
// Rate-limited candidates are retried later through the cooldown tracker instead.
func (e *GenerationError) Retryable() bool {
	return e.Kind != FailureRateLimited
}

// IsRateLimited reports whether err carries a rate-limit classification.
func IsRateLimited(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Kind == FailureRateLimited
}

// ExhaustedError is returned when every candidate failed. Causes holds a
// bounded tail of the per-attempt error notes.
type ExhaustedError struct {
	Causes []string
}

// Error joins the retained causes.
func (e *ExhaustedError) Error() string {
	if len(e.Causes) == 0 {
		return ErrAllCandidatesExhausted.Error()
	}
	return fmt.Sprintf("%s: %s", ErrAllCandidatesExhausted.Error(), strings.Join(e.Causes, "; "))
}

// Is makes errors.Is(err, ErrAllCandidatesExhausted) hold.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllCandidatesExhausted
}
