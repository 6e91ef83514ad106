package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"

	"transcript-polisher/internal/config"
	"transcript-polisher/internal/domain/entity"
)

// hostedBackend issues one generation call against the hosted endpoint.
type hostedBackend interface {
	generate(ctx context.Context, model, prompt string) (*entity.Generation, error)
}

func newHostedBackend(cfg config.HostedConfig, httpClient *http.Client) hostedBackend {
	if cfg.Protocol == config.ProtocolAnthropic {
		return newAnthropicBackend(cfg, httpClient)
	}
	return newOpenAIBackend(cfg, httpClient)
}

// openAIBackend speaks the OpenAI-compatible chat completions protocol
// (Ollama Cloud, OpenAI, and most gateways).
type openAIBackend struct {
	client   *openai.Client
	endpoint string
}

func newOpenAIBackend(cfg config.HostedConfig, httpClient *http.Client) *openAIBackend {
	clientConfig := openai.DefaultConfig(cfg.Credential)
	clientConfig.BaseURL = cfg.Endpoint
	clientConfig.HTTPClient = httpClient

	return &openAIBackend{
		client:   openai.NewClientWithConfig(clientConfig),
		endpoint: cfg.Endpoint,
	}
}

func (o *openAIBackend) generate(ctx context.Context, model, prompt string) (*entity.Generation, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}

	// Validate response structure (safety check to prevent panic on array access)
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai api returned empty choices: %w", errMalformed)
	}

	return &entity.Generation{
		Content:    resp.Choices[0].Message.Content,
		Model:      model,
		Backend:    entity.BackendHosted,
		Endpoint:   o.endpoint,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// anthropicBackend speaks the Anthropic Messages API.
type anthropicBackend struct {
	client    anthropic.Client
	endpoint  string
	maxTokens int
}

func newAnthropicBackend(cfg config.HostedConfig, httpClient *http.Client) *anthropicBackend {
	opts := []option.RequestOption{
		option.WithBaseURL(strings.TrimRight(cfg.Endpoint, "/") + "/"),
		option.WithHTTPClient(httpClient),
		// Retries belong to the orchestrator.
		option.WithMaxRetries(0),
	}
	if cfg.Credential != "" {
		opts = append(opts, option.WithAPIKey(cfg.Credential))
	}

	return &anthropicBackend{
		client:    anthropic.NewClient(opts...),
		endpoint:  cfg.Endpoint,
		maxTokens: cfg.MaxTokens,
	}
}

func (a *anthropicBackend) generate(ctx context.Context, model, prompt string) (*entity.Generation, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(a.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	if len(message.Content) == 0 {
		return nil, fmt.Errorf("anthropic api returned empty content: %w", errMalformed)
	}

	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return nil, fmt.Errorf("anthropic api returned unexpected block type: %w", errMalformed)
	}

	return &entity.Generation{
		Content:    textBlock.Text,
		Model:      model,
		Backend:    entity.BackendHosted,
		Endpoint:   a.endpoint,
		TokensUsed: int(message.Usage.InputTokens + message.Usage.OutputTokens),
	}, nil
}
