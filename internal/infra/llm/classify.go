package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"

	"transcript-polisher/internal/domain/entity"
	"transcript-polisher/internal/resilience/circuitbreaker"
	"transcript-polisher/internal/resilience/retry"
)

// maxErrorBody bounds how much of an upstream error body is kept.
const maxErrorBody = 200

// errMalformed marks payloads that decoded but lack the expected fields.
var errMalformed = errors.New("unexpected response payload")

// classify maps a raw transport or SDK error to a GenerationError.
// parent is the caller's context; attempt is the per-attempt context
// derived from it. Cancellation of the parent is returned unclassified so
// callers stop instead of retrying.
func classify(parent, attempt context.Context, c entity.Candidate, err error) error {
	if err == nil {
		return nil
	}

	var genErr *entity.GenerationError
	if errors.As(err, &genErr) {
		return genErr
	}

	if parent.Err() != nil {
		return parent.Err()
	}

	ge := &entity.GenerationError{Candidate: c, Err: err}

	switch {
	case circuitbreaker.IsRejection(err):
		ge.Kind = entity.FailureUnreachable
		ge.Message = "circuit breaker open"

	case errors.Is(attempt.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		ge.Kind = entity.FailureTimeout
		ge.Message = "request timed out"

	case statusCode(err) != 0:
		ge.StatusCode = statusCode(err)
		ge.Message = truncate(statusMessage(err), maxErrorBody)
		if ge.StatusCode == http.StatusTooManyRequests {
			ge.Kind = entity.FailureRateLimited
		} else {
			ge.Kind = entity.FailureUpstream
		}

	case isDecodeError(err):
		ge.Kind = entity.FailureMalformed
		ge.Message = err.Error()

	default:
		ge.Kind = entity.FailureUnreachable
		ge.Message = err.Error()
	}

	return ge
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isDecodeError(err error) bool {
	if errors.Is(err, errMalformed) {
		return true
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

// statusCode extracts an HTTP status from the error types of the local
// client and both hosted SDKs.
func statusCode(err error) int {
	var httpErr *retry.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var anthErr *anthropic.Error
	if errors.As(err, &anthErr) {
		return anthErr.StatusCode
	}
	return 0
}

func statusMessage(err error) string {
	var httpErr *retry.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Message
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err.Error()
	}
	return err.Error()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// breakerNeutral reports failures that do not reflect backend health.
func breakerNeutral(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	var genErr *entity.GenerationError
	if !errors.As(err, &genErr) {
		return false
	}
	switch genErr.Kind {
	case entity.FailureRateLimited, entity.FailureMalformed:
		return true
	case entity.FailureUpstream:
		// 4xx such as "model not found" says nothing about the server.
		return genErr.StatusCode < http.StatusInternalServerError
	default:
		return false
	}
}
