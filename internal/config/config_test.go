package config_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mdonmez/autoso/internal/actuator"
	"github.com/mdonmez/autoso/internal/asr"
	"github.com/mdonmez/autoso/internal/config"
	"github.com/mdonmez/autoso/internal/embed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_UnknownEmbedding(t *testing.T) {
	reg := config.NewRegistry()
	_, err := reg.CreateEmbedding(config.EmbeddingConfig{Name: "nonexistent"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrProviderNotRegistered))
}

func TestRegistry_UnknownASR(t *testing.T) {
	reg := config.NewRegistry()
	_, err := reg.CreateASR(config.ASRConfig{Engine: "nonexistent"})
	assert.True(t, errors.Is(err, config.ErrProviderNotRegistered))
}

func TestRegistry_UnknownVAD(t *testing.T) {
	reg := config.NewRegistry()
	_, err := reg.CreateVAD(config.AudioConfig{VAD: "nonexistent"})
	assert.True(t, errors.Is(err, config.ErrProviderNotRegistered))
}

func TestRegistry_UnknownActuator(t *testing.T) {
	reg := config.NewRegistry()
	_, err := reg.CreateActuator(config.ActuatorConfig{Kind: "nonexistent"})
	assert.True(t, errors.Is(err, config.ErrProviderNotRegistered))
}

func TestRegistry_RegisteredEmbedding(t *testing.T) {
	reg := config.NewRegistry()
	want := &stubEmbedding{}
	reg.RegisterEmbedding("stub", func(config.EmbeddingConfig) (embed.Provider, error) {
		return want, nil
	})
	got, err := reg.CreateEmbedding(config.EmbeddingConfig{Name: "stub"})
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestRegistry_RegisteredActuator(t *testing.T) {
	reg := config.NewRegistry()
	want := &stubActuator{}
	reg.RegisterActuator(config.ActuatorKindNoop, func(config.ActuatorConfig) (actuator.Actuator, error) {
		return want, nil
	})
	got, err := reg.CreateActuator(config.ActuatorConfig{Kind: config.ActuatorKindNoop})
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestRegistry_FactoryError(t *testing.T) {
	reg := config.NewRegistry()
	wantErr := errors.New("factory boom")
	reg.RegisterASR(config.ASREngineMock, func(config.ASRConfig) (asr.Provider, error) {
		return nil, wantErr
	})
	_, err := reg.CreateASR(config.ASRConfig{Engine: config.ASREngineMock})
	assert.True(t, errors.Is(err, wantErr))
}

// stubEmbedding satisfies embed.Provider for registry-wiring tests only.
type stubEmbedding struct{}

func (s *stubEmbedding) Embed(context.Context, string) ([]float32, error) { return nil, nil }
func (s *stubEmbedding) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, nil
}
func (s *stubEmbedding) Dimensions() int { return 0 }
func (s *stubEmbedding) ModelID() string { return "stub" }

// stubActuator satisfies actuator.Actuator for registry-wiring tests only.
type stubActuator struct{}

func (s *stubActuator) Advance(context.Context, uint32) error { return nil }
