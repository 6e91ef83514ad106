// Package config provides environment variable helpers shared by the
// configuration loaders. Every helper falls back to the supplied default
// when the variable is unset, and logs a warning when it is set but invalid.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// getEnv reads key and parses it with parse. Unset or blank values return
// def silently; unparsable values return def with a warning naming kind.
func getEnv[T any](key string, def T, kind string, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}

	value, err := parse(raw)
	if err != nil {
		slog.Warn("invalid environment variable, using default",
			slog.String("key", key),
			slog.String("kind", kind),
			slog.String("value", raw),
			slog.Any("default", def),
			slog.String("error", err.Error()))
		return def
	}
	return value
}

// GetEnvString returns the value of an environment variable or the default value if not set.
//
// Example:
//
//	endpoint := GetEnvString("HOSTED_ENDPOINT", "https://api.ollama.com/v1")
func GetEnvString(key, defaultValue string) string {
	return getEnv(key, defaultValue, "string", func(s string) (string, error) {
		return s, nil
	})
}

// GetEnvInt returns the value of an environment variable as an integer.
//
// Example:
//
//	retries := GetEnvInt("RETRIES_PER_TARGET", 2)
func GetEnvInt(key string, defaultValue int) int {
	return getEnv(key, defaultValue, "integer", strconv.Atoi)
}

// GetEnvFloat returns the value of an environment variable as a float64.
func GetEnvFloat(key string, defaultValue float64) float64 {
	return getEnv(key, defaultValue, "float", func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// GetEnvBool returns the value of an environment variable as a boolean.
// Accepted values are those of strconv.ParseBool.
func GetEnvBool(key string, defaultValue bool) bool {
	return getEnv(key, defaultValue, "boolean", strconv.ParseBool)
}

// GetEnvStringList returns a comma-separated list of strings from an environment variable.
// The values are trimmed of whitespace and empty values are filtered out.
//
// Example:
//
//	// LOCAL_MODELS="gemma3:27b, qwen3:32b"
//	models := GetEnvStringList("LOCAL_MODELS", nil) // ["gemma3:27b", "qwen3:32b"]
func GetEnvStringList(key string, defaultValue []string) []string {
	return getEnv(key, defaultValue, "list", func(s string) ([]string, error) {
		parts := strings.Split(s, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) == 0 {
			return nil, fmt.Errorf("no values in %q", s)
		}
		return result, nil
	})
}

// GetEnvSecret reads a secret from key, or from the file named by
// key+"_FILE" when that is set (container secrets). The file wins over the
// plain variable. Surrounding whitespace is trimmed.
//
// Example:
//
//	// HOSTED_API_KEY_FILE=/run/secrets/hosted_api_key
//	key := GetEnvSecret("HOSTED_API_KEY", "")
func GetEnvSecret(key, defaultValue string) string {
	fileKey := key + "_FILE"
	path := strings.TrimSpace(os.Getenv(fileKey))
	if path == "" {
		return GetEnvString(key, defaultValue)
	}

	// #nosec G304 -- path comes from the operator's environment
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("failed to read secret file, using default",
			slog.String("key", fileKey),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return GetEnvString(key, defaultValue)
	}
	return strings.TrimSpace(string(data))
}
