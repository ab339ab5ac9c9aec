// Command autoso is the main entry point for the presentation autopilot
// server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mdonmez/autoso/internal/activation"
	"github.com/mdonmez/autoso/internal/actuator"
	actuatornoop "github.com/mdonmez/autoso/internal/actuator/noop"
	actuatorremote "github.com/mdonmez/autoso/internal/actuator/remote"
	"github.com/mdonmez/autoso/internal/app"
	"github.com/mdonmez/autoso/internal/asr"
	asrmock "github.com/mdonmez/autoso/internal/asr/mock"
	"github.com/mdonmez/autoso/internal/asr/remote"
	"github.com/mdonmez/autoso/internal/asr/whisper"
	"github.com/mdonmez/autoso/internal/capture"
	capturemock "github.com/mdonmez/autoso/internal/capture/mock"
	"github.com/mdonmez/autoso/internal/capture/portaudio"
	"github.com/mdonmez/autoso/internal/config"
	"github.com/mdonmez/autoso/internal/embed"
	embedmock "github.com/mdonmez/autoso/internal/embed/mock"
	"github.com/mdonmez/autoso/internal/embed/ollama"
	"github.com/mdonmez/autoso/internal/health"
	"github.com/mdonmez/autoso/internal/observe"
	"github.com/mdonmez/autoso/internal/telemetry"
	"github.com/mdonmez/autoso/internal/telemetry/postgres"
	"github.com/mdonmez/autoso/internal/vad"
	"github.com/mdonmez/autoso/internal/vad/energy"
	vadmock "github.com/mdonmez/autoso/internal/vad/mock"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	demo := flag.Bool("demo", false, "use a manual activation trigger and mock capture instead of the microphone and SIGUSR1")
	flag.Parse()

	// ── Load configuration ─────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "autoso: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "autoso: %v\n", err)
		}
		return 1
	}

	// ── Logger ───────────────────────────────────────────────────────────────
	logger, logLevel := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("autoso starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"demo", *demo,
	)

	// ── Observability ──────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(context.Background(), observe.ProviderConfig{
		ServiceName: "autoso",
	})
	if err != nil {
		slog.Error("failed to initialise observability providers", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("observability shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Provider registry ──────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := app.BuildProviders(reg, cfg, buildCaptureSource(*demo))
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Telemetry sink ──────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, closeSink, err := buildTelemetrySink(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to build telemetry sink", "err", err)
		return 1
	}
	defer closeSink()

	// ── Application ────────────────────────────────────────────────────────
	printStartupSummary(cfg, *demo)

	application, err := app.New(ctx, cfg, providers,
		app.WithLogger(logger),
		app.WithMetrics(metrics),
		app.WithTelemetrySink(sink),
		app.WithSessionID(app.CorpusNameFromPath(cfg.Corpus.TranscriptPath)),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	act := buildActivation(*demo)
	sm := app.NewSessionManager(app.SessionManagerConfig{
		App:        application,
		Activation: act,
		CorpusName: app.CorpusNameFromPath(cfg.Corpus.TranscriptPath),
	})

	// ── Health/readiness HTTP server ────────────────────────────────────────
	mux := http.NewServeMux()
	health.New(application.Checkers()...).Register(mux)
	httpServer := &http.Server{Addr: cfg.Server.ListenAddr, Handler: observe.Middleware(metrics)(mux)}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("health server error", "err", err)
		}
	}()

	// ── Config hot reload ────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		diff := config.Diff(old, new)
		if diff.LogLevelChanged {
			logLevel.Set(slogLevel(diff.NewLogLevel))
			slog.Info("log level reloaded", "level", diff.NewLogLevel)
		}
		if diff.MatcherChanged {
			application.ApplyConfigDiff(diff)
		}
	})
	if err != nil {
		slog.Error("failed to start config watcher", "err", err)
		return 1
	}
	defer watcher.Stop()

	if err := sm.Start(ctx, "autoso"); err != nil {
		slog.Error("failed to start session", "err", err)
		return 1
	}
	if manual, ok := act.(*activation.Manual); ok {
		manual.Start()
	}

	slog.Info("server ready — press Ctrl+C to shut down")
	<-ctx.Done()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := sm.Stop(shutdownCtx); err != nil {
		slog.Warn("session stop error", "err", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("health server shutdown error", "err", err)
	}
	if err := act.Close(); err != nil {
		slog.Warn("activation close error", "err", err)
	}

	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ────────────────────────────────────────────────────────

// builtinProviders maps provider category names to the implementations that
// ship with autoso. Used for startup logging.
var builtinProviders = map[string][]string{
	"embedding": {"ollama", "mock"},
	"asr":       {"whisper-native", "remote", "mock"},
	"vad":       {"energy", "mock"},
	"actuator":  {"noop", "remote"},
}

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Embedding ────────────────────────────────────────────────────────────
	reg.RegisterEmbedding("ollama", func(entry config.EmbeddingConfig) (embed.Provider, error) {
		return ollama.New(ollama.Config{
			BaseURL:    entry.BaseURL,
			Model:      entry.ModelID,
			Dimensions: entry.Dimensions,
			KeepAlive:  entry.KeepAlive,
		})
	})
	reg.RegisterEmbedding("mock", func(entry config.EmbeddingConfig) (embed.Provider, error) {
		return &embedmock.Provider{Dims: entry.Dimensions, Model: entry.ModelID}, nil
	})

	// ── ASR ──────────────────────────────────────────────────────────────────
	reg.RegisterASR(config.ASREngineWhisperNative, func(entry config.ASRConfig) (asr.Provider, error) {
		var opts []whisper.Option
		if entry.Language != "" {
			opts = append(opts, whisper.WithLanguage(entry.Language))
		}
		return whisper.New(entry.ModelPath, opts...)
	})
	reg.RegisterASR(config.ASREngineRemote, func(entry config.ASRConfig) (asr.Provider, error) {
		return remote.New(entry.RemoteURL, entry.RemoteAPIKey), nil
	})
	reg.RegisterASR(config.ASREngineMock, func(config.ASRConfig) (asr.Provider, error) {
		return &asrmock.Provider{}, nil
	})

	// ── VAD ──────────────────────────────────────────────────────────────────
	reg.RegisterVAD(config.VADEngineEnergy, func(config.AudioConfig) (vad.Engine, error) {
		return energy.New(), nil
	})
	reg.RegisterVAD(config.VADEngineMock, func(config.AudioConfig) (vad.Engine, error) {
		return &vadmock.Engine{}, nil
	})

	// ── Actuator ─────────────────────────────────────────────────────────────
	reg.RegisterActuator(config.ActuatorKindNoop, func(config.ActuatorConfig) (actuator.Actuator, error) {
		return actuatornoop.New(), nil
	})
	reg.RegisterActuator(config.ActuatorKindRemote, func(entry config.ActuatorConfig) (actuator.Actuator, error) {
		return actuatorremote.Dial(context.Background(), entry.RemoteURL, nil)
	})

	for kind, names := range builtinProviders {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// buildCaptureSource returns the capture.Source used to open the microphone
// stream. Unlike ASR/Embedding/VAD/Actuator, capture has exactly one
// production backend, so it is constructed directly rather than through the
// registry; --demo substitutes a scripted mock so the pipeline can run
// without real hardware.
func buildCaptureSource(demo bool) capture.Source {
	if demo {
		return &capturemock.Source{Stream: &capturemock.Stream{}}
	}
	return portaudio.Source{}
}

// buildActivation returns the Activation that gates AudioStreamer's capture
// on/off. --demo substitutes a manually driven trigger (started immediately
// by the caller) for the production SIGUSR1 toggle.
func buildActivation(demo bool) activation.Activation {
	if demo {
		return activation.NewManual()
	}
	return activation.NewSignalActivation()
}

// buildTelemetrySink returns the telemetry.Sink for navigation decision
// logging and a func to close it. When cfg.Telemetry.PostgresDSN is unset,
// decisions are discarded.
func buildTelemetrySink(ctx context.Context, cfg *config.Config, logger *slog.Logger) (telemetry.Sink, func(), error) {
	if cfg.Telemetry.PostgresDSN == "" {
		return telemetry.NoopSink{}, func() {}, nil
	}

	pgSink, err := postgres.NewSink(ctx, cfg.Telemetry.PostgresDSN, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, nil, fmt.Errorf("build postgres telemetry sink: %w", err)
	}
	asyncSink := telemetry.NewAsyncSink(pgSink, cfg.Telemetry.BufferSize, logger)
	return asyncSink, func() {
		if err := asyncSink.Close(); err != nil {
			slog.Warn("telemetry sink close error", "err", err)
		}
	}, nil
}

// ── Startup summary ────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, demo bool) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║      autoso — startup summary         ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printField("Embedding", valueOrDefault(cfg.Embedding.Name, "(disabled)"))
	printField("ASR engine", string(cfg.ASR.Engine))
	printField("VAD engine", string(cfg.Audio.VAD))
	printField("Actuator", string(cfg.Actuator.Kind))
	if cfg.Telemetry.PostgresDSN != "" {
		printField("Telemetry", "postgres")
	} else {
		printField("Telemetry", "(disabled)")
	}
	printField("Capture", capAtDemo(demo))
	if cfg.Server.ListenAddr != "" {
		printField("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func capAtDemo(demo bool) string {
	if demo {
		return "mock (--demo)"
	}
	return "portaudio"
}

func valueOrDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func printField(label, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s : %-19s ║\n", label, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────

// newLogger builds a logger whose level is held in a [slog.LevelVar], so a
// config hot-reload can adjust verbosity without rebuilding the handler.
func newLogger(level config.LogLevel) (*slog.Logger, *slog.LevelVar) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slogLevel(level))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	return logger, levelVar
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
