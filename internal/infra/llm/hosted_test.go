package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcript-polisher/internal/config"
	"transcript-polisher/internal/domain/entity"
	"transcript-polisher/internal/infra/llm"
)

func hostedConfig(protocol, endpoint string) *config.GenerationConfig {
	cfg := testConfig()
	cfg.Hosted = config.HostedConfig{
		Enabled:    true,
		Protocol:   protocol,
		Endpoint:   endpoint,
		Model:      "deepseek-v3.1:671b-cloud",
		Credential: "test-key",
		MaxTokens:  1024,
	}
	return cfg
}

func hostedCandidate(endpoint string) entity.Candidate {
	return entity.Candidate{Backend: entity.BackendHosted, Endpoint: endpoint, Model: "deepseek-v3.1:671b-cloud"}
}

func TestClient_Attempt_OpenAICompatible(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			Stream *bool `json:"stream"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "deepseek-v3.1:671b-cloud", body.Model)
		// go-openai omits a false stream flag; servers default to one response.
		assert.Nil(t, body.Stream)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "user", body.Messages[0].Role)
		assert.Equal(t, "summarize", body.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "summary"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5}
		}`))
	}))
	defer srv.Close()

	endpoint := srv.URL + "/v1"
	client := llm.NewClient(hostedConfig(config.ProtocolOpenAI, endpoint), llm.WithMetrics(&fakeMetrics{}))

	gen, err := client.Attempt(context.Background(), hostedCandidate(endpoint), "summarize", time.Second)

	require.NoError(t, err)
	assert.Equal(t, "summary", gen.Content)
	assert.Equal(t, entity.BackendHosted, gen.Backend)
	assert.Equal(t, 5, gen.TokensUsed)
	assert.Equal(t, "deepseek-v3.1:671b-cloud", client.HostedModel())
}

func TestClient_Attempt_OpenAICompatible_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind entity.FailureKind
	}{
		{
			name:     "rate limited",
			status:   http.StatusTooManyRequests,
			body:     `{"error":{"message":"rate limit exceeded","type":"rate_limit_error"}}`,
			wantKind: entity.FailureRateLimited,
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			body:     `{"error":{"message":"overloaded","type":"server_error"}}`,
			wantKind: entity.FailureUpstream,
		},
		{
			name:     "empty choices",
			status:   http.StatusOK,
			body:     `{"id":"chatcmpl-1","object":"chat.completion","choices":[]}`,
			wantKind: entity.FailureMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			endpoint := srv.URL + "/v1"
			client := llm.NewClient(hostedConfig(config.ProtocolOpenAI, endpoint), llm.WithMetrics(&fakeMetrics{}))

			_, err := client.Attempt(context.Background(), hostedCandidate(endpoint), "p", time.Second)

			genErr := requireGenerationError(t, err, tt.wantKind)
			if tt.status != http.StatusOK {
				assert.Equal(t, tt.status, genErr.StatusCode)
			}
		})
	}
}

func TestClient_Attempt_Anthropic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var body struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "deepseek-v3.1:671b-cloud", body.Model)
		assert.Equal(t, 1024, body.MaxTokens)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "deepseek-v3.1:671b-cloud",
			"content": [{"type": "text", "text": "polished"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 4}
		}`))
	}))
	defer srv.Close()

	client := llm.NewClient(hostedConfig(config.ProtocolAnthropic, srv.URL), llm.WithMetrics(&fakeMetrics{}))

	gen, err := client.Attempt(context.Background(), hostedCandidate(srv.URL), "p", time.Second)

	require.NoError(t, err)
	assert.Equal(t, "polished", gen.Content)
	assert.Equal(t, 7, gen.TokensUsed)
}

func TestClient_Attempt_Anthropic_RateLimited(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	client := llm.NewClient(hostedConfig(config.ProtocolAnthropic, srv.URL), llm.WithMetrics(&fakeMetrics{}))

	_, err := client.Attempt(context.Background(), hostedCandidate(srv.URL), "p", time.Second)

	genErr := requireGenerationError(t, err, entity.FailureRateLimited)
	assert.Equal(t, http.StatusTooManyRequests, genErr.StatusCode)
	assert.Equal(t, int32(1), hits.Load(), "sdk retries must be disabled")
}
