package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// installTestTracer swaps in a TracerProvider backed by an in-memory
// exporter for the duration of the test.
func installTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(orig) })
	return exp
}

func TestStartSpan_RecordsNamedSpan(t *testing.T) {
	exp := installTestTracer(t)

	_, span := StartSpan(context.Background(), "matcher.match")
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Name != "matcher.match" {
		t.Errorf("span name = %q, want matcher.match", spans[0].Name)
	}
}

func TestCorrelationID_MatchesActiveTraceID(t *testing.T) {
	installTestTracer(t)

	ctx, span := StartSpan(context.Background(), "navigate")
	defer span.End()

	cid := CorrelationID(ctx)
	if want := span.SpanContext().TraceID().String(); cid != want {
		t.Errorf("CorrelationID = %q, want the span's trace id %q", cid, want)
	}
	if len(cid) != 32 {
		t.Errorf("trace id length = %d, want 32 hex chars", len(cid))
	}
}

func TestCorrelationID_EmptyWithoutSpan(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID(background) = %q, want empty", got)
	}
}
