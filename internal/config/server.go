package config

import (
	"time"

	pkgconfig "transcript-polisher/internal/pkg/config"
)

// ServerConfig holds the HTTP service settings.
type ServerConfig struct {
	// ListenAddr is the "host:port" the API listens on. Default: ":8080"
	ListenAddr string

	// ShutdownTimeout bounds graceful shutdown. Default: 30s
	ShutdownTimeout time.Duration

	// ReadHeaderTimeout guards against slow clients. Default: 10s
	ReadHeaderTimeout time.Duration

	// MaxBodyBytes caps request bodies; transcripts can be long. Default: 10 MiB
	MaxBodyBytes int

	// TracingEnabled installs the span-logging tracer provider. Default: false
	TracingEnabled bool

	// FallbackApplied is true when any variable was invalid and its default was used.
	FallbackApplied bool
}

var serverConfigMetrics = pkgconfig.NewConfigMetrics("server")

// LoadServerConfig reads the server settings from the environment. Invalid
// values fall back to their defaults; the returned warnings explain each
// fallback and should be logged by the caller.
//
// Environment variables:
//   - LISTEN_ADDR
//   - SHUTDOWN_TIMEOUT, READ_HEADER_TIMEOUT (time.ParseDuration format)
//   - MAX_BODY_BYTES
//   - TRACING_ENABLED
func LoadServerConfig() (*ServerConfig, []string) {
	var warnings []string
	cfg := &ServerConfig{}

	collect := func(field string, r pkgconfig.ConfigLoadResult) pkgconfig.ConfigLoadResult {
		if r.FallbackApplied {
			warnings = append(warnings, r.Warnings...)
			serverConfigMetrics.RecordFallback(field)
			cfg.FallbackApplied = true
		}
		return r
	}

	cfg.ListenAddr = collect("listen_addr",
		pkgconfig.LoadEnvWithFallback("LISTEN_ADDR", ":8080", pkgconfig.ValidateListenAddr)).Value.(string)
	cfg.ShutdownTimeout = collect("shutdown_timeout",
		pkgconfig.LoadEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second, pkgconfig.ValidatePositiveDuration)).Value.(time.Duration)
	cfg.ReadHeaderTimeout = collect("read_header_timeout",
		pkgconfig.LoadEnvDuration("READ_HEADER_TIMEOUT", 10*time.Second, func(d time.Duration) error {
			return pkgconfig.ValidateDuration(d, time.Second, 5*time.Minute)
		})).Value.(time.Duration)
	cfg.MaxBodyBytes = collect("max_body_bytes",
		pkgconfig.LoadEnvInt("MAX_BODY_BYTES", 10<<20, func(n int) error {
			return pkgconfig.ValidateIntRange(n, 1<<10, 100<<20)
		})).Value.(int)
	cfg.TracingEnabled = collect("tracing_enabled",
		pkgconfig.LoadEnvBool("TRACING_ENABLED", false)).Value.(bool)

	serverConfigMetrics.SetFallbackActive(cfg.FallbackApplied)
	serverConfigMetrics.RecordLoadTimestamp()

	return cfg, warnings
}
