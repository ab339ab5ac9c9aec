// Package observe provides the autopilot's observability primitives:
// OpenTelemetry metric instruments for every pipeline stage, a tracer, and
// HTTP middleware for the health/metrics surface.
//
// Metrics flow through the OTel Metrics API; [InitProvider] bridges them to
// a Prometheus exporter so they remain scrapeable. [DefaultMetrics] is the
// process-wide instance; tests should build their own via [NewMetrics] with
// a private MeterProvider to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all autopilot metrics.
const meterName = "github.com/mdonmez/autoso"

// latencyBuckets covers both the sub-100ms matcher path and multi-second
// ASR calls, in seconds.
var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// Metrics holds one instrument per pipeline signal. All fields are safe
// for concurrent use.
type Metrics struct {
	// Thread A (AudioStreamer).
	FramesCaptured metric.Int64Counter
	FramesDropped  metric.Int64Counter

	// Thread B (RecognizerWorker).
	HypothesesEmitted      metric.Int64Counter
	HypothesesDeduplicated metric.Int64Counter
	ASRDuration            metric.Float64Histogram

	// SpeechMatcher.
	MatcherCalls    metric.Int64Counter
	MatcherDuration metric.Float64Histogram

	// Thread C (NavigationWorker). NavigationDecisions carries a "case"
	// attribute: stay, forward_jump, or forward_early.
	NavigationDecisions metric.Int64Counter
	ActuatorAdvances    metric.Int64Counter
	ActuatorErrors      metric.Int64Counter

	// Queue depth gauges for audio_q and speech_q.
	AudioQueueDepth  metric.Int64UpDownCounter
	SpeechQueueDepth metric.Int64UpDownCounter

	// HTTP surface. Carries method and path attributes.
	HTTPRequestDuration metric.Float64Histogram
}

// instruments accumulates the first creation error so NewMetrics can build
// every field without an error check per instrument.
type instruments struct {
	meter metric.Meter
	err   error
}

func (b *instruments) counter(name, desc string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc))
	if b.err == nil {
		b.err = err
	}
	return c
}

func (b *instruments) upDown(name, desc string) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc))
	if b.err == nil {
		b.err = err
	}
	return c
}

func (b *instruments) latency(name, desc string) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	)
	if b.err == nil {
		b.err = err
	}
	return h
}

// NewMetrics creates every autopilot instrument on mp's meter.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	b := &instruments{meter: mp.Meter(meterName)}
	m := &Metrics{
		FramesCaptured: b.counter("autoso.streamer.frames_captured",
			"Total audio frames read from the capture device."),
		FramesDropped: b.counter("autoso.streamer.frames_dropped",
			"Total frames dropped because audio_q was full."),

		HypothesesEmitted: b.counter("autoso.recognizer.hypotheses_emitted",
			"Total partial hypotheses placed on speech_q."),
		HypothesesDeduplicated: b.counter("autoso.recognizer.hypotheses_deduplicated",
			"Total hypotheses suppressed as duplicates of the prior partial."),
		ASRDuration: b.latency("autoso.recognizer.asr_duration",
			"Latency of ASR transcription calls."),

		MatcherCalls: b.counter("autoso.matcher.calls",
			"Total SpeechMatcher.Match invocations."),
		MatcherDuration: b.latency("autoso.matcher.duration",
			"Latency of SpeechMatcher.Match calls."),

		NavigationDecisions: b.counter("autoso.navigator.decisions",
			"Total navigation decisions by case."),
		ActuatorAdvances: b.counter("autoso.actuator.advances",
			"Total successful Actuator.Advance calls."),
		ActuatorErrors: b.counter("autoso.actuator.errors",
			"Total failed Actuator.Advance calls."),

		AudioQueueDepth: b.upDown("autoso.queue.audio_depth",
			"Current number of frames buffered in audio_q."),
		SpeechQueueDepth: b.upDown("autoso.queue.speech_depth",
			"Current number of hypotheses buffered in speech_q."),

		HTTPRequestDuration: b.latency("autoso.http.request.duration",
			"HTTP request latency by method and path."),
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the process-wide [Metrics], created on first call
// against the global meter provider. Panics if instrument creation fails,
// which the global provider never does.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordDecision increments NavigationDecisions with the standard case
// attribute.
func (m *Metrics) RecordDecision(ctx context.Context, decisionCase string) {
	m.NavigationDecisions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("case", decisionCase)),
	)
}
