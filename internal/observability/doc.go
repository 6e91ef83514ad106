// Package observability groups the logging and tracing infrastructure.
//
// Subpackages:
//   - logging: slog loggers with request and run ids carried in the context
//   - tracing: OpenTelemetry tracer, HTTP middleware and a log-backed exporter
//
// Prometheus collectors live next to the code they measure (infra/llm,
// usecase/generate, usecase/polish, handler/http) and are exposed on /metrics.
//
// Example usage:
//
//	import (
//	    "transcript-polisher/internal/observability/logging"
//	    "transcript-polisher/internal/observability/tracing"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    shutdown := tracing.Init(logger)
//	    defer shutdown(context.Background())
//	}
package observability
