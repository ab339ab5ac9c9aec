// Package app wires the pipeline's five components — AudioStreamer,
// RecognizerWorker, SpeechMatcher, NavigationWorker, and an injected
// Actuator — into one running presentation-autopilot session.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mdonmez/autoso/internal/activation"
	"github.com/mdonmez/autoso/internal/actuator"
	"github.com/mdonmez/autoso/internal/asr"
	"github.com/mdonmez/autoso/internal/capture"
	"github.com/mdonmez/autoso/internal/config"
	"github.com/mdonmez/autoso/internal/embed"
	"github.com/mdonmez/autoso/internal/health"
	"github.com/mdonmez/autoso/internal/matcher"
	"github.com/mdonmez/autoso/internal/model"
	"github.com/mdonmez/autoso/internal/navigator"
	"github.com/mdonmez/autoso/internal/normalize"
	"github.com/mdonmez/autoso/internal/observe"
	"github.com/mdonmez/autoso/internal/recognizer"
	"github.com/mdonmez/autoso/internal/resilience"
	"github.com/mdonmez/autoso/internal/streamer"
	"github.com/mdonmez/autoso/internal/telemetry"
	"github.com/mdonmez/autoso/internal/vad"
)

// Providers bundles the injected capabilities a session needs. Capture has
// exactly one production backend (internal/capture/portaudio) so, unlike
// ASR/Embedding/VAD/Actuator, it is not config.Registry-managed — the host
// process wires it directly.
type Providers struct {
	Embed    embed.Provider
	ASR      asr.Provider
	VAD      vad.Engine
	Capture  capture.Source
	Actuator actuator.Actuator
}

// BuildProviders instantiates the Embedding, ASR, VAD, and Actuator
// providers from reg using cfg. captureSource must be supplied by the
// caller since capture has no registry entry.
func BuildProviders(reg *config.Registry, cfg *config.Config, captureSource capture.Source) (*Providers, error) {
	embedP, err := reg.CreateEmbedding(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("app: build embedding provider: %w", err)
	}
	asrP, err := reg.CreateASR(cfg.ASR)
	if err != nil {
		return nil, fmt.Errorf("app: build ASR provider: %w", err)
	}
	vadE, err := reg.CreateVAD(cfg.Audio)
	if err != nil {
		return nil, fmt.Errorf("app: build VAD engine: %w", err)
	}
	act, err := reg.CreateActuator(cfg.Actuator)
	if err != nil {
		return nil, fmt.Errorf("app: build actuator: %w", err)
	}
	return &Providers{
		Embed:    embedP,
		ASR:      asrP,
		VAD:      vadE,
		Capture:  captureSource,
		Actuator: act,
	}, nil
}

// App owns one presentation session's pipeline: the loaded corpus, the
// matcher and navigator over it, and the streamer/recognizer workers that
// feed hypotheses into NavigationWorker.
type App struct {
	cfg *config.Config

	corpus     *model.Corpus
	matcher    *matcher.Matcher
	nav        *navigator.Navigator
	streamer   *streamer.Streamer
	recognizer *recognizer.Worker
	actuator   actuator.Actuator
	telemetry  telemetry.Sink

	metrics *observe.Metrics
	logger  *slog.Logger

	sessionID string
}

// Option configures an App.
type Option func(*App)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithMetrics overrides the default observe.DefaultMetrics() instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithTelemetrySink overrides the default telemetry.NoopSink.
func WithTelemetrySink(s telemetry.Sink) Option {
	return func(a *App) { a.telemetry = s }
}

// WithSessionID sets the session identifier attached to every telemetry
// record. Default: "default".
func WithSessionID(id string) Option {
	return func(a *App) { a.sessionID = id }
}

// WithCorpus injects an already-loaded corpus, bypassing cfg.Corpus's file
// paths. Intended for tests.
func WithCorpus(c *model.Corpus) Option {
	return func(a *App) { a.corpus = c }
}

// New loads the corpus (unless WithCorpus was given), builds the matcher,
// navigator, streamer, and recognizer, and wires them against providers.
// Corpus loading and chunk embedding precomputation are treated as fatal
// startup failures: a session cannot run without a valid corpus and a
// working embedding backend.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		actuator:  providers.Actuator,
		telemetry: telemetry.NoopSink{},
		logger:    slog.Default(),
		metrics:   observe.DefaultMetrics(),
		sessionID: "default",
	}
	for _, o := range opts {
		o(a)
	}
	a.logger = a.logger.With("component", "app")

	if a.corpus == nil {
		corpus, err := model.Load(cfg.Corpus.TranscriptPath, cfg.Corpus.ChunksPath)
		if err != nil {
			return nil, fmt.Errorf("app: load corpus: %w", err)
		}
		a.corpus = corpus
	}

	a.matcher = matcher.New(
		a.corpus, providers.Embed,
		cfg.Matcher.QueryCacheSize, cfg.Matcher.SentenceCacheSize,
		matcher.WithWeights(cfg.Matcher.SemanticWeight, cfg.Matcher.PhoneticWeight),
		matcher.WithTopK(cfg.Matcher.TopK),
		matcher.WithScoreFloor(cfg.Matcher.ScoreFloor),
		matcher.WithLogger(a.logger),
		matcher.WithCallObserver(func(d time.Duration) {
			a.metrics.MatcherCalls.Add(ctx, 1)
			a.metrics.MatcherDuration.Record(ctx, d.Seconds())
		}),
	)
	if err := a.matcher.PrecomputeEmbeddings(ctx); err != nil {
		return nil, fmt.Errorf("app: precompute chunk embeddings: %w", err)
	}

	a.nav = navigator.New(a.corpus, a.matcher, navigator.WithLogger(a.logger))

	a.streamer = streamer.New(
		providers.Capture, providers.VAD,
		streamer.Config{
			Capture: capture.Config{
				SampleRateHz:    cfg.Audio.SampleRateHz,
				Channels:        cfg.Audio.Channels,
				FrameDurationMs: cfg.Audio.FrameDurationMs,
			},
			VAD: vad.Config{
				SampleRateHz:    cfg.Audio.SampleRateHz,
				FrameDurationMs: cfg.Audio.FrameDurationMs,
				HangoverFrames:  cfg.Audio.VADHangoverFrames,
			},
			QueueCapacity: cfg.Audio.QueueCapacity,
		},
		streamer.WithLogger(a.logger),
		streamer.WithFramesCapturedCounter(func() { a.metrics.FramesCaptured.Add(ctx, 1) }),
		streamer.WithFramesDroppedCounter(func() { a.metrics.FramesDropped.Add(ctx, 1) }),
	)

	a.recognizer = recognizer.New(
		providers.ASR,
		recognizer.Config{
			Language:      cfg.ASR.Language,
			QueueCapacity: cfg.ASR.QueueCapacity,
			Breaker: resilience.Config{
				Name:        "asr",
				MaxFailures: cfg.ASR.FailureThreshold,
			},
		},
		recognizer.WithLogger(a.logger),
		recognizer.WithHypothesesEmittedCounter(func() { a.metrics.HypothesesEmitted.Add(ctx, 1) }),
		recognizer.WithHypothesesDeduplicatedCounter(func() { a.metrics.HypothesesDeduplicated.Add(ctx, 1) }),
	)

	return a, nil
}

// Checkers returns readiness checks suitable for health.New.
func (a *App) Checkers() []health.Checker {
	return []health.Checker{
		{
			Name: "corpus",
			Check: func(context.Context) error {
				if a.corpus == nil || len(a.corpus.Chunks) == 0 {
					return fmt.Errorf("corpus not loaded")
				}
				return nil
			},
		},
	}
}

// Run drives the pipeline's three-thread lifecycle until ctx is cancelled,
// act's event stream closes, the capture device fails to open, or the ASR
// circuit breaker trips. It returns the recognizer's error when the
// breaker trips and nil otherwise; a device-open failure is logged by the
// streamer and ends the frame stream, after which Run returns nil.
func (a *App) Run(ctx context.Context, act activation.Activation) error {
	g, gctx := errgroup.WithContext(ctx)

	frames, err := a.streamer.Run(gctx, act)
	if err != nil {
		return fmt.Errorf("app: start streamer: %w", err)
	}

	hyps, fatal := a.recognizer.Run(gctx, frames)

	g.Go(func() error {
		select {
		case err, ok := <-fatal:
			if !ok {
				return nil
			}
			return err
		case <-gctx.Done():
			return nil
		}
	})

	g.Go(func() error {
		return a.runNavigation(gctx, hyps)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runNavigation is NavigationWorker (Thread C): it consumes hypotheses,
// calls the navigator, and carries out Forward decisions via the actuator.
func (a *App) runNavigation(ctx context.Context, hyps <-chan recognizer.Hypothesis) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case h, ok := <-hyps:
			if !ok {
				return nil
			}
			a.handleHypothesis(ctx, h)
		}
	}
}

// minNavigationWords is the shortest normalized hypothesis NavigationWorker
// will act on, and the window size — the trailing N words — fed to the
// matcher. A fixed 7-word window matches chunk length regardless of how
// long RecognizerWorker's buffered partial has grown, avoiding the length
// mismatch that collapses phonetic.sentenceScore when a long partial is
// matched against a short chunk.
const minNavigationWords = 7

// handleHypothesis runs one hypothesis through the navigator and, on a
// Forward decision, the actuator. Actuator and telemetry failures are
// logged and never abort the session: the pipeline degrades to holding
// the current slide rather than crash on a downstream fault.
func (a *App) handleHypothesis(ctx context.Context, h recognizer.Hypothesis) {
	words := strings.Fields(normalize.Text(h.Text))
	if len(words) < minNavigationWords {
		return
	}
	query := strings.Join(words[len(words)-minNavigationWords:], " ")
	prevIdx := a.nav.CurrentIndex()

	decision := a.nav.Decide(ctx, query)
	a.metrics.RecordDecision(ctx, decision.Case)

	if decision.Forward {
		delta := decision.TargetIndex - prevIdx
		if err := a.actuator.Advance(ctx, delta); err != nil {
			a.metrics.ActuatorErrors.Add(ctx, 1)
			a.logger.Error("actuator advance failed", "error", err, "target_index", decision.TargetIndex)
		} else {
			a.metrics.ActuatorAdvances.Add(ctx, 1)
		}
	}

	if err := a.telemetry.Record(ctx, telemetry.DecisionRecord{
		SessionID:      a.sessionID,
		Query:          query,
		ChunkID:        decision.MatchedChunkID,
		ChunkIndex:     decision.MatchedChunkIndex,
		Case:           decision.Case,
		FusedScore:     decision.Score,
		SemanticScore:  decision.Semantic,
		PhoneticScore:  decision.Phonetic,
		QueryEmbedding: decision.QueryEmbedding,
		DecidedAt:      time.Now(),
	}); err != nil {
		a.logger.Warn("telemetry record failed", "error", err)
	}
}

// ApplyConfigDiff applies a config.ConfigDiff's hot-reloadable fields to the
// running session. Only the matcher's fusion weights/top-K/score floor are
// touched here; LogLevel is process-global and applied by the caller via its
// own slog.LevelVar. Safe to call concurrently with Run.
func (a *App) ApplyConfigDiff(diff config.ConfigDiff) {
	if !diff.MatcherChanged {
		return
	}
	a.matcher.ApplyConfig(
		diff.NewMatcher.SemanticWeight, diff.NewMatcher.PhoneticWeight,
		diff.NewMatcher.TopK, diff.NewMatcher.ScoreFloor,
	)
	a.logger.Info("matcher config reloaded",
		"semantic_weight", diff.NewMatcher.SemanticWeight,
		"phonetic_weight", diff.NewMatcher.PhoneticWeight,
		"top_k", diff.NewMatcher.TopK,
		"score_floor", diff.NewMatcher.ScoreFloor,
	)
}

// Close releases the telemetry sink. The streamer/recognizer/actuator
// lifecycles are scoped to Run and need no separate teardown.
func (a *App) Close() error {
	return a.telemetry.Close()
}
