package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvString(t *testing.T) {
	t.Setenv("TEST_ENV_STRING", "")
	assert.Equal(t, "fallback", GetEnvString("TEST_ENV_STRING", "fallback"))

	t.Setenv("TEST_ENV_STRING", "value")
	assert.Equal(t, "value", GetEnvString("TEST_ENV_STRING", "fallback"))
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{value: "", want: 2},
		{value: "5", want: 5},
		{value: " 7 ", want: 7},
		{value: "x", want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_ENV_INT", tt.value)
			assert.Equal(t, tt.want, GetEnvInt("TEST_ENV_INT", 2))
		})
	}
}

func TestGetEnvFloat(t *testing.T) {
	t.Setenv("TEST_ENV_FLOAT", "0.5")
	assert.InDelta(t, 0.5, GetEnvFloat("TEST_ENV_FLOAT", 1), 1e-9)

	t.Setenv("TEST_ENV_FLOAT", "half")
	assert.InDelta(t, 1.0, GetEnvFloat("TEST_ENV_FLOAT", 1), 1e-9)
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{value: "", def: true, want: true},
		{value: "true", want: true},
		{value: "1", want: true},
		{value: "False", def: true, want: false},
		{value: "yes", def: true, want: true},
		{value: "yes", def: false, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_ENV_BOOL", tt.value)
			assert.Equal(t, tt.want, GetEnvBool("TEST_ENV_BOOL", tt.def))
		})
	}
}

func TestGetEnvStringList(t *testing.T) {
	t.Setenv("TEST_ENV_LIST", "gemma3:27b, qwen3:32b,,")
	assert.Equal(t, []string{"gemma3:27b", "qwen3:32b"}, GetEnvStringList("TEST_ENV_LIST", nil))

	t.Setenv("TEST_ENV_LIST", " , ")
	assert.Equal(t, []string{"default"}, GetEnvStringList("TEST_ENV_LIST", []string{"default"}))

	t.Setenv("TEST_ENV_LIST", "")
	assert.Nil(t, GetEnvStringList("TEST_ENV_LIST", nil))
}

func TestGetEnvSecret(t *testing.T) {
	t.Setenv("TEST_SECRET", "sk-from-env")
	t.Setenv("TEST_SECRET_FILE", "")
	assert.Equal(t, "sk-from-env", GetEnvSecret("TEST_SECRET", ""))

	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("sk-from-file\n"), 0o600))
	t.Setenv("TEST_SECRET_FILE", path)
	assert.Equal(t, "sk-from-file", GetEnvSecret("TEST_SECRET", ""))

	t.Setenv("TEST_SECRET_FILE", filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, "sk-from-env", GetEnvSecret("TEST_SECRET", ""))

	t.Setenv("TEST_SECRET", "")
	assert.Equal(t, "fallback", GetEnvSecret("TEST_SECRET", "fallback"))
}

func TestValidateRatio(t *testing.T) {
	assert.NoError(t, ValidateRatio(0.6))
	assert.NoError(t, ValidateRatio(1))
	assert.Error(t, ValidateRatio(0))
	assert.Error(t, ValidateRatio(1.5))
}

func TestValidateDurations(t *testing.T) {
	assert.NoError(t, ValidatePositiveDuration(time.Second))
	assert.Error(t, ValidatePositiveDuration(0))

	assert.NoError(t, ValidateNonNegativeDuration(0))
	assert.Error(t, ValidateNonNegativeDuration(-time.Millisecond))
}
