package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope under which all analysis spans are
// emitted.
const tracerName = "github.com/meetplot/meetplot"

// Tracer resolves the module's tracer from the globally registered provider,
// so spans work (as no-ops) even before InitProvider runs.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan opens a span named after the pipeline stage, e.g. "parse
// transcript" or "compose report". The caller owns span.End().
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// CorrelationID is the identifier handed back to API clients in the
// X-Correlation-ID header. It is simply the active trace ID, which keeps one
// identifier usable across logs, traces, and support requests. Empty when ctx
// carries no sampled-or-not span.
func CorrelationID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns the default slog logger with trace_id and span_id attached
// when ctx has an active span, and unchanged otherwise. Handlers log through
// this so every line of a request can be joined to its trace.
func Logger(ctx context.Context) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return slog.Default()
	}
	return slog.Default().With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}
