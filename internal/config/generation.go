package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"transcript-polisher/internal/domain/entity"
	envcfg "transcript-polisher/pkg/config"
)

// DefaultConfigPath is read when GENERATION_CONFIG is not set. A missing
// file at this path is not an error.
const DefaultConfigPath = "config/generation.yaml"

// Hosted protocols understood by the generation client.
const (
	ProtocolOpenAI    = "openai"
	ProtocolAnthropic = "anthropic"
)

// GenerationConfig holds the backend definitions and orchestration knobs.
// It is immutable after Load and shared by the registry, the client and
// the polish service.
type GenerationConfig struct {
	// Priority is the backend try order. Default: [local, hosted]
	Priority []string `yaml:"priority"`

	Local  LocalConfig  `yaml:"local"`
	Hosted HostedConfig `yaml:"hosted"`

	// CooldownDurationSeconds is how long a rate-limited model is skipped. Default: 7200
	CooldownDurationSeconds int `yaml:"cooldown_duration_seconds"`

	// RetriesPerTarget is the attempt budget per candidate. Default: 2
	RetriesPerTarget int `yaml:"retries_per_target"`

	// TimeoutSeconds bounds a single generation attempt. Default: 300
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// RetryDelayMS is the pause between failed attempts on one candidate. Default: 1000
	RetryDelayMS int `yaml:"retry_delay_ms"`

	// ProbeTimeoutSeconds bounds the reachability probe. Default: 5
	ProbeTimeoutSeconds int `yaml:"probe_timeout_seconds"`

	Chunking       ChunkingConfig       `yaml:"chunking"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`

	// TemplatesPath points at the prompt template YAML. Empty uses built-ins.
	TemplatesPath string `yaml:"templates_path"`
}

// LocalConfig describes the self-hosted Ollama endpoints.
type LocalConfig struct {
	EndpointURLs []string `yaml:"endpoint_urls"`
	Models       []string `yaml:"models"`

	// Older single-endpoint layout; folded into EndpointURLs/Models by normalize.
	PrimaryURL  string `yaml:"primary_url"`
	FallbackURL string `yaml:"fallback_url"`
	Model       string `yaml:"model"`
}

// HostedConfig describes the hosted backend.
type HostedConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Protocol string `yaml:"protocol"`
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	// Credential is sent as a bearer token (openai) or API key (anthropic).
	Credential string `yaml:"credential"`
	// MaxTokens caps the response for protocols that require it (anthropic).
	MaxTokens int `yaml:"max_tokens"`
	// RequestsPerSecond paces hosted calls; 0 disables pacing.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// ChunkingConfig controls the long-document path.
type ChunkingConfig struct {
	// Threshold is the rune count above which a document is chunked. Default: 8000
	Threshold int `yaml:"threshold"`
	// ChunkSize is the maximum span length in runes. Default: 6000
	ChunkSize int `yaml:"chunk_size"`
	// Overlap is the number of runes shared by adjacent spans. Default: 500
	Overlap int `yaml:"overlap"`
}

// CircuitBreakerConfig configures the per endpoint and model breakers.
type CircuitBreakerConfig struct {
	Enabled bool `yaml:"enabled"`

	// MaxRequests in half-open state.
	MaxRequests uint32 `yaml:"max_requests"`

	// IntervalSeconds for clearing failure counts.
	IntervalSeconds int `yaml:"interval_seconds"`

	// TimeoutSeconds before transitioning from open to half-open.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// FailureThreshold ratio to trip circuit (0.0 to 1.0).
	FailureThreshold float64 `yaml:"failure_threshold"`

	// MinRequests before calculating failure ratio.
	MinRequests uint32 `yaml:"min_requests"`
}

// DefaultGenerationConfig returns the defaults. No backend is configured,
// so generating against the defaults fails fast.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Priority: []string{string(entity.BackendLocal), string(entity.BackendHosted)},
		Hosted: HostedConfig{
			Protocol:  ProtocolOpenAI,
			Endpoint:  "https://api.ollama.com/v1",
			Model:     "deepseek-v3.1:671b-cloud",
			MaxTokens: 8192,
		},
		CooldownDurationSeconds: 7200,
		RetriesPerTarget:        2,
		TimeoutSeconds:          300,
		RetryDelayMS:            1000,
		ProbeTimeoutSeconds:     5,
		Chunking: ChunkingConfig{
			Threshold: 8000,
			ChunkSize: 6000,
			Overlap:   500,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      3,
			IntervalSeconds:  60,
			TimeoutSeconds:   60,
			FailureThreshold: 0.6,
			MinRequests:      5,
		},
	}
}

// LoadGenerationConfig loads the YAML file named by GENERATION_CONFIG (or
// DefaultConfigPath), applies environment overrides and validates the result.
//
// Environment variables:
//   - GENERATION_CONFIG: YAML file path
//   - BACKEND_PRIORITY: comma-separated backend kinds
//   - LOCAL_ENDPOINT_URLS, LOCAL_MODELS: comma-separated lists
//   - HOSTED_ENABLED, HOSTED_PROTOCOL, HOSTED_ENDPOINT, HOSTED_MODEL
//   - HOSTED_API_KEY, or HOSTED_API_KEY_FILE naming a file that holds it
//   - HOSTED_REQUESTS_PER_SECOND
//   - COOLDOWN_DURATION_SECONDS, RETRIES_PER_TARGET, TIMEOUT_SECONDS
//   - TEMPLATES_PATH
func LoadGenerationConfig() (*GenerationConfig, error) {
	path := os.Getenv("GENERATION_CONFIG")
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	cfg, err := LoadGenerationConfigFile(path)
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		defaults := DefaultGenerationConfig()
		cfg = &defaults
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generation configuration: %w", err)
	}

	return cfg, nil
}

// LoadGenerationConfigFile reads a YAML file on top of the defaults. It does
// not apply environment overrides or validate.
func LoadGenerationConfigFile(path string) (*GenerationConfig, error) {
	// #nosec G304 -- path is provided by trusted source (CLI flag or env), not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseGenerationConfig(data)
}

// ParseGenerationConfig decodes YAML on top of the defaults and normalizes it.
func ParseGenerationConfig(data []byte) (*GenerationConfig, error) {
	cfg := DefaultGenerationConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *GenerationConfig) applyEnv() {
	c.Priority = envcfg.GetEnvStringList("BACKEND_PRIORITY", c.Priority)
	c.Local.EndpointURLs = envcfg.GetEnvStringList("LOCAL_ENDPOINT_URLS", c.Local.EndpointURLs)
	c.Local.Models = envcfg.GetEnvStringList("LOCAL_MODELS", c.Local.Models)
	c.Hosted.Enabled = envcfg.GetEnvBool("HOSTED_ENABLED", c.Hosted.Enabled)
	c.Hosted.Protocol = envcfg.GetEnvString("HOSTED_PROTOCOL", c.Hosted.Protocol)
	c.Hosted.Endpoint = envcfg.GetEnvString("HOSTED_ENDPOINT", c.Hosted.Endpoint)
	c.Hosted.Model = envcfg.GetEnvString("HOSTED_MODEL", c.Hosted.Model)
	c.Hosted.Credential = envcfg.GetEnvSecret("HOSTED_API_KEY", c.Hosted.Credential)
	c.Hosted.RequestsPerSecond = envcfg.GetEnvFloat("HOSTED_REQUESTS_PER_SECOND", c.Hosted.RequestsPerSecond)
	c.CooldownDurationSeconds = envcfg.GetEnvInt("COOLDOWN_DURATION_SECONDS", c.CooldownDurationSeconds)
	c.RetriesPerTarget = envcfg.GetEnvInt("RETRIES_PER_TARGET", c.RetriesPerTarget)
	c.TimeoutSeconds = envcfg.GetEnvInt("TIMEOUT_SECONDS", c.TimeoutSeconds)
	c.TemplatesPath = envcfg.GetEnvString("TEMPLATES_PATH", c.TemplatesPath)
}

// normalize folds the older primary/fallback layout into the list form,
// trims trailing slashes and drops duplicate endpoints and models.
func (c *GenerationConfig) normalize() {
	urls := make([]string, 0, len(c.Local.EndpointURLs)+2)
	urls = append(urls, c.Local.EndpointURLs...)
	if len(c.Local.EndpointURLs) == 0 {
		urls = append(urls, c.Local.PrimaryURL, c.Local.FallbackURL)
	}
	c.Local.EndpointURLs = dedupe(urls, func(s string) string {
		return strings.TrimRight(strings.TrimSpace(s), "/")
	})

	models := c.Local.Models
	if len(models) == 0 && c.Local.Model != "" {
		models = []string{c.Local.Model}
	}
	c.Local.Models = dedupe(models, strings.TrimSpace)

	c.Hosted.Endpoint = strings.TrimRight(strings.TrimSpace(c.Hosted.Endpoint), "/")
	c.Hosted.Protocol = strings.ToLower(strings.TrimSpace(c.Hosted.Protocol))
	if c.Hosted.Protocol == "" {
		c.Hosted.Protocol = ProtocolOpenAI
	}
}

func dedupe(values []string, clean func(string) string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = clean(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Validate checks configuration correctness.
func (c *GenerationConfig) Validate() error {
	for i, p := range c.Priority {
		if _, ok := entity.ParseBackendKind(p); !ok {
			return &entity.ValidationError{
				Field:   fmt.Sprintf("priority[%d]", i),
				Message: fmt.Sprintf("unknown backend kind %q", p),
			}
		}
	}

	for i, u := range c.Local.EndpointURLs {
		if err := entity.ValidateEndpointURL(fmt.Sprintf("local.endpoint_urls[%d]", i), u); err != nil {
			return err
		}
	}

	if c.Hosted.Enabled {
		if err := entity.ValidateEndpointURL("hosted.endpoint", c.Hosted.Endpoint); err != nil {
			return err
		}
		if c.Hosted.Model == "" {
			return &entity.ValidationError{Field: "hosted.model", Message: "cannot be empty when hosted is enabled"}
		}
		if c.Hosted.Protocol != ProtocolOpenAI && c.Hosted.Protocol != ProtocolAnthropic {
			return &entity.ValidationError{
				Field:   "hosted.protocol",
				Message: fmt.Sprintf("must be %q or %q", ProtocolOpenAI, ProtocolAnthropic),
			}
		}
		if c.Hosted.Protocol == ProtocolAnthropic && c.Hosted.MaxTokens <= 0 {
			return &entity.ValidationError{Field: "hosted.max_tokens", Message: "must be positive for anthropic"}
		}
	}

	if c.Hosted.RequestsPerSecond < 0 {
		return &entity.ValidationError{Field: "hosted.requests_per_second", Message: "must not be negative"}
	}

	if err := envcfg.ValidatePositiveDuration(c.CooldownDuration()); err != nil {
		return &entity.ValidationError{Field: "cooldown_duration_seconds", Message: err.Error()}
	}
	if c.RetriesPerTarget <= 0 {
		return &entity.ValidationError{Field: "retries_per_target", Message: "must be positive"}
	}
	if err := envcfg.ValidatePositiveDuration(c.Timeout()); err != nil {
		return &entity.ValidationError{Field: "timeout_seconds", Message: err.Error()}
	}
	if err := envcfg.ValidateNonNegativeDuration(c.RetryDelay()); err != nil {
		return &entity.ValidationError{Field: "retry_delay_ms", Message: err.Error()}
	}
	if err := envcfg.ValidatePositiveDuration(c.ProbeTimeout()); err != nil {
		return &entity.ValidationError{Field: "probe_timeout_seconds", Message: err.Error()}
	}

	if c.Chunking.ChunkSize <= 0 {
		return &entity.ValidationError{Field: "chunking.chunk_size", Message: "must be positive"}
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.ChunkSize {
		return &entity.ValidationError{Field: "chunking.overlap", Message: "must be between 0 and chunk_size-1"}
	}
	if c.Chunking.Threshold <= 0 {
		return &entity.ValidationError{Field: "chunking.threshold", Message: "must be positive"}
	}

	if c.CircuitBreaker.Enabled {
		if c.CircuitBreaker.MaxRequests == 0 {
			return &entity.ValidationError{Field: "circuit_breaker.max_requests", Message: "must be positive"}
		}
		if c.CircuitBreaker.TimeoutSeconds <= 0 {
			return &entity.ValidationError{Field: "circuit_breaker.timeout_seconds", Message: "must be positive"}
		}
		if err := envcfg.ValidateRatio(c.CircuitBreaker.FailureThreshold); err != nil {
			return &entity.ValidationError{Field: "circuit_breaker.failure_threshold", Message: err.Error()}
		}
	}

	return nil
}

// CooldownDuration returns the rate-limit cooldown window.
func (c *GenerationConfig) CooldownDuration() time.Duration {
	return time.Duration(c.CooldownDurationSeconds) * time.Second
}

// Timeout returns the per-attempt timeout.
func (c *GenerationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryDelay returns the pause between failed attempts on one candidate.
func (c *GenerationConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

// ProbeTimeout returns the reachability probe timeout.
func (c *GenerationConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}
