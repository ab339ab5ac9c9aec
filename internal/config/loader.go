package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults for unset
// fields, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config populated with the autopilot's runtime
// defaults: 16kHz mono audio, 200ms frames, a 0.4/0.6 semantic/phonetic
// fusion, and top-5 ranking.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8090",
			LogLevel:   LogInfo,
		},
		Audio: AudioConfig{
			SampleRateHz:      16000,
			Channels:          1,
			FrameDurationMs:   200,
			VAD:               VADEngineEnergy,
			VADHangoverFrames: 1,
			QueueCapacity:     64,
		},
		ASR: ASRConfig{
			Engine:              ASREngineWhisperNative,
			Language:            "en",
			SilenceThresholdMs:  500,
			MaxBufferDurationMs: 10_000,
			QueueCapacity:       16,
			FailureWindow:       10,
			FailureThreshold:    5,
		},
		Embedding: EmbeddingConfig{
			Name: "ollama",
		},
		Matcher: MatcherConfig{
			SemanticWeight:    0.4,
			PhoneticWeight:    0.6,
			TopK:              5,
			QueryCacheSize:    4096,
			SentenceCacheSize: 65536,
		},
		Actuator: ActuatorConfig{
			Kind: ActuatorKindNoop,
		},
		Telemetry: TelemetryConfig{
			BufferSize: 256,
		},
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found; soft inconsistencies
// that don't prevent startup are logged as warnings instead.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Corpus.TranscriptPath == "" {
		errs = append(errs, errors.New("corpus.transcript_path is required"))
	}
	if cfg.Corpus.ChunksPath == "" {
		errs = append(errs, errors.New("corpus.chunks_path is required"))
	}

	if cfg.Audio.SampleRateHz != 16000 {
		slog.Warn("audio.sample_rate_hz is not 16000; the bundled VAD and ASR backends assume 16kHz mono PCM", "value", cfg.Audio.SampleRateHz)
	}
	if cfg.Audio.Channels != 1 {
		errs = append(errs, fmt.Errorf("audio.channels %d is invalid; the pipeline is mono-only", cfg.Audio.Channels))
	}
	if cfg.Audio.VAD != "" && !cfg.Audio.VAD.IsValid() {
		errs = append(errs, fmt.Errorf("audio.vad %q is invalid; valid values: energy, mock", cfg.Audio.VAD))
	}

	if cfg.ASR.Engine != "" && !cfg.ASR.Engine.IsValid() {
		errs = append(errs, fmt.Errorf("asr.engine %q is invalid; valid values: whisper-native, remote, mock", cfg.ASR.Engine))
	}
	if cfg.ASR.Engine == ASREngineWhisperNative && cfg.ASR.ModelPath == "" {
		errs = append(errs, errors.New("asr.model_path is required when asr.engine is whisper-native"))
	}
	if cfg.ASR.Engine == ASREngineRemote && cfg.ASR.RemoteURL == "" {
		errs = append(errs, errors.New("asr.remote_url is required when asr.engine is remote"))
	}

	if cfg.Actuator.Kind != "" && !cfg.Actuator.Kind.IsValid() {
		errs = append(errs, fmt.Errorf("actuator.kind %q is invalid; valid values: noop, remote", cfg.Actuator.Kind))
	}
	if cfg.Actuator.Kind == ActuatorKindRemote && cfg.Actuator.RemoteURL == "" {
		errs = append(errs, errors.New("actuator.remote_url is required when actuator.kind is remote"))
	}

	w, p := cfg.Matcher.SemanticWeight, cfg.Matcher.PhoneticWeight
	if w < 0 || p < 0 {
		errs = append(errs, fmt.Errorf("matcher weights must be non-negative, got semantic=%.2f phonetic=%.2f", w, p))
	} else if w+p == 0 {
		errs = append(errs, errors.New("matcher.semantic_weight and matcher.phonetic_weight cannot both be zero"))
	}
	if cfg.Matcher.TopK <= 0 {
		errs = append(errs, fmt.Errorf("matcher.top_k must be positive, got %d", cfg.Matcher.TopK))
	}

	if cfg.Embedding.Name == "" {
		slog.Warn("embedding.name is empty; matching will fall back to phonetic-only scoring for every query")
	}

	if cfg.Telemetry.PostgresDSN == "" {
		slog.Warn("telemetry.postgres_dsn is empty; navigation decisions will not be persisted")
	}

	return errors.Join(errs...)
}
