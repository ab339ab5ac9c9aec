package config_test

import (
	"strings"
	"testing"

	"github.com/mdonmez/autoso/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
corpus:
  transcript_path: "alice_transcript.json"
  chunks_path: "alice_chunks.json"
asr:
  engine: whisper-native
  model_path: "/models/ggml-base.en.bin"
matcher:
  semantic_weight: 0.4
  phonetic_weight: 0.6
  top_k: 3
actuator:
  kind: remote
  remote_url: "wss://clicker.local/advance"
`

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.ListenAddr)
	assert.Equal(t, config.LogDebug, cfg.Server.LogLevel)
	assert.Equal(t, "alice_transcript.json", cfg.Corpus.TranscriptPath)
	assert.Equal(t, config.ASREngineWhisperNative, cfg.ASR.Engine)
	assert.Equal(t, 3, cfg.Matcher.TopK)
	assert.Equal(t, config.ActuatorKindRemote, cfg.Actuator.Kind)
	// unspecified fields retain their Default() values.
	assert.Equal(t, 16000, cfg.Audio.SampleRateHz)
	assert.Equal(t, 64, cfg.Audio.QueueCapacity)
}

func TestLoadFromReader_MissingCorpusPaths(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transcript_path")
	assert.Contains(t, err.Error(), "chunks_path")
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	yaml := `
corpus:
  transcript_path: "a.json"
  chunks_path: "b.json"
server:
  log_level: verbose
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestValidate_MultiChannelRejected(t *testing.T) {
	yaml := `
corpus:
  transcript_path: "a.json"
  chunks_path: "b.json"
audio:
  channels: 2
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mono-only")
}

func TestValidate_WhisperRequiresModelPath(t *testing.T) {
	yaml := `
corpus:
  transcript_path: "a.json"
  chunks_path: "b.json"
asr:
  engine: whisper-native
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model_path")
}

func TestValidate_RemoteActuatorRequiresURL(t *testing.T) {
	yaml := `
corpus:
  transcript_path: "a.json"
  chunks_path: "b.json"
actuator:
  kind: remote
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote_url")
}

func TestValidate_ZeroedMatcherWeightsRejected(t *testing.T) {
	yaml := `
corpus:
  transcript_path: "a.json"
  chunks_path: "b.json"
matcher:
  semantic_weight: 0
  phonetic_weight: 0
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot both be zero")
}

func TestValidate_MultipleErrorsJoined(t *testing.T) {
	yaml := `
server:
  log_level: verbose
asr:
  engine: bogus
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	require.Error(t, err)
	errStr := err.Error()
	assert.Contains(t, errStr, "log_level")
	assert.Contains(t, errStr, "asr.engine")
}
