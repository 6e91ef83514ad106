package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"transcript-polisher/internal/domain/entity"
	"transcript-polisher/internal/resilience/retry"
)

// ollamaGenerateRequest is the request body for /api/generate
type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// ollamaGenerateResponse is the non-streaming response from /api/generate.
// Response is a pointer so a missing field can be told apart from an empty one.
type ollamaGenerateResponse struct {
	Response  *string `json:"response"`
	EvalCount int     `json:"eval_count"`
	Done      bool    `json:"done"`
}

// ollamaTagsResponse is the response from /api/tags (partial - we only need names)
type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// generateLocal performs one non-streaming /api/generate call. Errors are
// returned raw; the caller classifies them.
func (c *Client) generateLocal(ctx context.Context, endpoint, model, prompt string) (*entity.Generation, error) {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Response == nil {
		return nil, fmt.Errorf("missing response field: %w", errMalformed)
	}

	return &entity.Generation{
		Content:    *out.Response,
		Model:      model,
		Backend:    entity.BackendLocal,
		Endpoint:   endpoint,
		TokensUsed: out.EvalCount,
	}, nil
}

// fetchTags calls /api/tags, which doubles as the liveness probe.
func (c *Client) fetchTags(ctx context.Context, endpoint string) (*ollamaTagsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return &tags, nil
}
