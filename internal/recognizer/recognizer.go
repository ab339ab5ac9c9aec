// Package recognizer implements RecognizerWorker: it consumes gated audio
// frames, accumulates them into a growing per-utterance PCM buffer, and
// calls an injected [asr.Provider] to produce deduplicated partial
// hypotheses onto a bounded queue for NavigationWorker.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mdonmez/autoso/internal/asr"
	"github.com/mdonmez/autoso/internal/normalize"
	"github.com/mdonmez/autoso/internal/resilience"
	"github.com/mdonmez/autoso/internal/streamer"
)

// Hypothesis is one partial transcription placed on speech_q.
type Hypothesis struct {
	Text       string
	ReceivedAt time.Time
}

// Config configures a Worker.
type Config struct {
	// Language is passed to the ASR provider on every call.
	Language string

	// QueueCapacity bounds the speech_q channel returned by [Worker.Run].
	// A full queue drops the oldest hypothesis: navigation only cares
	// about the latest one.
	QueueCapacity int

	// Breaker configures the circuit breaker guarding transient ASR
	// failures. A zero value uses [resilience.Config]'s defaults.
	Breaker resilience.Config
}

// Worker is RecognizerWorker.
type Worker struct {
	provider asr.Provider
	cfg      Config
	logger   *slog.Logger
	breaker  *resilience.Breaker

	hypothesesEmitted      func()
	hypothesesDeduplicated func()
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

// WithHypothesesEmittedCounter registers a callback invoked once per
// hypothesis placed on speech_q.
func WithHypothesesEmittedCounter(fn func()) Option {
	return func(w *Worker) { w.hypothesesEmitted = fn }
}

// WithHypothesesDeduplicatedCounter registers a callback invoked once per
// transcript suppressed because it normalizes the same as the previous one.
func WithHypothesesDeduplicatedCounter(fn func()) Option {
	return func(w *Worker) { w.hypothesesDeduplicated = fn }
}

// New creates a Worker wrapping provider with the circuit breaker described
// by cfg.Breaker.
func New(provider asr.Provider, cfg Config, opts ...Option) *Worker {
	w := &Worker{
		provider: provider,
		cfg:      cfg,
		logger:   slog.Default(),
		breaker:  resilience.New(cfg.Breaker),
	}
	for _, o := range opts {
		o(w)
	}
	w.logger = w.logger.With("component", "recognizer")
	return w
}

// Run consumes frames from in and returns speech_q. It returns when ctx is
// done or in closes. A sustained run of ASR failures that trips the
// circuit breaker is returned as a fatal error.
func (w *Worker) Run(ctx context.Context, in <-chan streamer.Frame) (<-chan Hypothesis, <-chan error) {
	out := make(chan Hypothesis, max(w.cfg.QueueCapacity, 1))
	fatal := make(chan error, 1)

	go func() {
		defer close(fatal)
		defer close(out)

		var buffer []int16
		var lastEmitted string
		haveLastEmitted := false

		for {
			select {
			case <-ctx.Done():
				return
			case frame, ok := <-in:
				if !ok {
					return
				}

				buffer = append(buffer, frame.Samples...)

				text, err := w.transcribe(ctx, buffer)
				if err != nil {
					if errors.Is(err, resilience.ErrCircuitOpen) {
						fatal <- fmt.Errorf("recognizer: ASR backend unavailable: %w", err)
						return
					}
					w.logger.Warn("transient ASR error, dropping frame", "error", err)
				} else {
					lastEmitted, haveLastEmitted = w.maybeEmit(out, text, lastEmitted, haveLastEmitted)
				}

				if frame.UtteranceEnd {
					buffer = nil
					lastEmitted = ""
					haveLastEmitted = false
				}
			}
		}
	}()

	return out, fatal
}

// transcribe calls the ASR provider through the circuit breaker.
func (w *Worker) transcribe(ctx context.Context, buffer []int16) (string, error) {
	if len(buffer) == 0 {
		return "", nil
	}
	var text string
	err := w.breaker.Execute(func() error {
		t, err := w.provider.Transcribe(ctx, buffer, w.cfg.Language)
		if err != nil {
			return err
		}
		text = t
		return nil
	})
	return text, err
}

// maybeEmit enqueues text on out unless it normalizes to the same string
// as the previously emitted hypothesis.
func (w *Worker) maybeEmit(out chan Hypothesis, text, lastEmitted string, haveLastEmitted bool) (string, bool) {
	if text == "" {
		return lastEmitted, haveLastEmitted
	}
	normalized := normalize.Text(text)
	if haveLastEmitted && normalized == lastEmitted {
		if w.hypothesesDeduplicated != nil {
			w.hypothesesDeduplicated()
		}
		return lastEmitted, haveLastEmitted
	}

	w.enqueue(out, Hypothesis{Text: text, ReceivedAt: time.Now()})
	return normalized, true
}

// enqueue drops the oldest hypothesis when out is full so the newest one
// always gets through.
func (w *Worker) enqueue(out chan Hypothesis, h Hypothesis) {
	select {
	case out <- h:
		if w.hypothesesEmitted != nil {
			w.hypothesesEmitted()
		}
		return
	default:
	}

	select {
	case <-out:
	default:
	}
	select {
	case out <- h:
		if w.hypothesesEmitted != nil {
			w.hypothesesEmitted()
		}
	default:
		w.logger.Warn("speech_q full, dropping hypothesis")
	}
}
