package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies spans created by this service.
const TracerName = "transcript-polisher"

// GetTracer returns the tracer for creating spans. It is resolved from the
// global provider on every call, so spans are no-ops until Init (or a test)
// installs a provider.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "generation.attempt")
//	defer span.End()
func GetTracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
