// Package tracing provides OpenTelemetry tracing integration.
//
// Generation attempts, chunk processing and HTTP requests each open a span
// through GetTracer. Spans are discarded unless Init installs an SDK tracer
// provider, which the server does when TRACING_ENABLED=true. Finished spans
// are written to the structured log.
//
// Example usage:
//
//	shutdown := tracing.Init(logger)
//	defer func() { _ = shutdown(context.Background()) }()
//
//	ctx, span := tracing.GetTracer().Start(ctx, "polish.chunk")
//	defer span.End()
package tracing
