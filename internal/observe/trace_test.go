package observe

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// withTestTracer installs an in-memory tracer provider as the global one for
// the duration of the test.
func withTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(orig) })

	return exp
}

// captureLog redirects the default slog logger into a buffer.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(orig) })
	return &buf
}

func TestStartSpan(t *testing.T) {
	exp := withTestTracer(t)

	ctx, span := StartSpan(context.Background(), "parse transcript")

	cid := CorrelationID(ctx)
	if len(cid) != 32 {
		t.Errorf("CorrelationID inside span = %q, want 32-hex trace ID", cid)
	}
	for _, c := range cid {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Errorf("correlation ID has non-hex character %q", c)
			break
		}
	}

	span.End()
	spans := exp.GetSpans()
	if len(spans) != 1 || spans[0].Name != "parse transcript" {
		t.Fatalf("exported spans = %+v, want one span named %q", spans, "parse transcript")
	}
}

func TestCorrelationID_NoActiveSpan(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID(background) = %q, want empty", got)
	}
}

func TestCorrelationID_DistinctPerTrace(t *testing.T) {
	withTestTracer(t)

	seen := make(map[string]struct{}, 50)
	for range 50 {
		ctx, span := StartSpan(context.Background(), "compose report")
		cid := CorrelationID(ctx)
		span.End()
		if _, dup := seen[cid]; dup {
			t.Fatalf("duplicate correlation ID %s", cid)
		}
		seen[cid] = struct{}{}
	}
}

func TestLogger_CarriesSpanIdentity(t *testing.T) {
	withTestTracer(t)
	buf := captureLog(t)

	ctx, span := StartSpan(context.Background(), "save analysis")
	defer span.End()

	Logger(ctx).Info("saved")

	out := buf.String()
	if !strings.Contains(out, "trace_id="+CorrelationID(ctx)) {
		t.Errorf("log line missing trace_id: %s", out)
	}
	if !strings.Contains(out, "span_id=") {
		t.Errorf("log line missing span_id: %s", out)
	}
}

func TestLogger_PlainWithoutSpan(t *testing.T) {
	buf := captureLog(t)

	Logger(context.Background()).Info("no trace here")

	if out := buf.String(); strings.Contains(out, "trace_id") {
		t.Errorf("log line should not carry trace_id without a span: %s", out)
	}
}
