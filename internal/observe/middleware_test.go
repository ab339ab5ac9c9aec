package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// serveThrough runs one request through Middleware-wrapped next and
// returns the recorder.
func serveThrough(t *testing.T, m *Metrics, next http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	Middleware(m)(next).ServeHTTP(rec, req)
	return rec
}

func middlewareFixture(t *testing.T) (*Metrics, *sdkmetric.ManualReader, *tracetest.InMemoryExporter) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader, installTestTracer(t)
}

func TestMiddleware_EmitsServerSpanWithStatus(t *testing.T) {
	m, _, exp := middlewareFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := serveThrough(t, m, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("response status = %d, want 503", rec.Code)
	}

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Name != "HTTP GET /readyz" {
		t.Errorf("span name = %q, want HTTP GET /readyz", spans[0].Name)
	}
	var gotStatus int64
	for _, a := range spans[0].Attributes {
		if string(a.Key) == "http.response.status_code" {
			gotStatus = a.Value.AsInt64()
		}
	}
	if gotStatus != 503 {
		t.Errorf("span status attribute = %d, want 503", gotStatus)
	}
}

func TestMiddleware_SetsCorrelationHeader(t *testing.T) {
	m, _, _ := middlewareFixture(t)

	var seenInHandler string
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := serveThrough(t, m, func(w http.ResponseWriter, r *http.Request) {
		seenInHandler = CorrelationID(r.Context())
		w.WriteHeader(http.StatusOK)
	}, req)

	if seenInHandler == "" {
		t.Fatal("handler saw no trace id in its context")
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != seenInHandler {
		t.Errorf("X-Correlation-ID = %q, want the handler's trace id %q", got, seenInHandler)
	}
}

func TestMiddleware_JoinsIncomingTrace(t *testing.T) {
	m, _, _ := middlewareFixture(t)

	const upstreamTrace = "4bf92f3577b34da6a3ce929d0e0e4736"
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("traceparent", "00-"+upstreamTrace+"-00f067aa0ba902b7-01")

	rec := serveThrough(t, m, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, req)

	if got := rec.Header().Get("X-Correlation-ID"); got != upstreamTrace {
		t.Errorf("X-Correlation-ID = %q, want the upstream trace id %q", got, upstreamTrace)
	}
}

func TestMiddleware_RecordsRequestDuration(t *testing.T) {
	m, reader, _ := middlewareFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	serveThrough(t, m, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, req)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	met := findMetric(rm, "autoso.http.request.duration")
	if met == nil {
		t.Fatal("autoso.http.request.duration was not recorded")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) == 0 {
		t.Fatal("duration metric has no histogram data points")
	}

	dp := hist.DataPoints[0]
	if dp.Count != 1 {
		t.Errorf("sample count = %d, want 1", dp.Count)
	}
	attrs := map[string]string{}
	for _, kv := range dp.Attributes.ToSlice() {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}
	if attrs["method"] != http.MethodGet || attrs["path"] != "/healthz" {
		t.Errorf("duration attributes = %v, want method=GET path=/healthz", attrs)
	}
}
