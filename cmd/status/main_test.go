package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcript-polisher/internal/resilience/circuitbreaker"
	"transcript-polisher/internal/usecase/generate"
)

func sampleStatus() generate.Status {
	return generate.Status{
		Priority:     []string{"local", "hosted"},
		DefaultModel: "gemma3:27b",
		Models:       []string{"gemma3:27b", "qwen3:32b"},
		Endpoints: []generate.EndpointStatus{
			{URL: "http://gpu-1:11434", Reachable: true, Models: []string{"gemma3:27b"}},
			{URL: "http://gpu-2:11434", Models: []string{}, Error: "connection refused"},
		},
		Hosted:    generate.HostedStatus{Enabled: true, Protocol: "openai", Endpoint: "https://api.ollama.com/v1", Model: "deepseek-v3.1:671b-cloud"},
		Cooldowns: []generate.Cooldown{{Model: "qwen3:32b", Remaining: 90*time.Minute + 400*time.Millisecond}},
		Breakers:  []circuitbreaker.BreakerState{{Key: "http://gpu-2:11434", State: "open"}},
	}
}

func TestOutputText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, outputText(&buf, sampleStatus()))

	out := buf.String()
	assert.Contains(t, out, "Priority: local → hosted")
	assert.Contains(t, out, "✓ http://gpu-1:11434 (1 models: gemma3:27b)")
	assert.Contains(t, out, "✗ http://gpu-2:11434: connection refused")
	assert.Contains(t, out, "Hosted: openai https://api.ollama.com/v1 (deepseek-v3.1:671b-cloud)")
	assert.Contains(t, out, "qwen3:32b for 1h30m0s")
	assert.Contains(t, out, "http://gpu-2:11434: open")
}

func TestOutputText_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, outputText(&buf, generate.Status{}))

	out := buf.String()
	assert.Contains(t, out, "Default model: (none)")
	assert.Contains(t, out, "Hosted: disabled")
	assert.NotContains(t, out, "Cooling down")
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, outputJSON(&buf, sampleStatus()))

	var decoded generate.Status
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "gemma3:27b", decoded.DefaultModel)
	assert.False(t, decoded.Endpoints[1].Reachable)
}
