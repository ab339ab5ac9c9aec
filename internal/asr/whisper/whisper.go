// Package whisper implements asr.Provider using the whisper.cpp CGO
// bindings. The whisper.cpp static library and headers must be available
// at link time via LIBRARY_PATH and C_INCLUDE_PATH.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/mdonmez/autoso/internal/asr"
)

var _ asr.Provider = (*Provider)(nil)

const defaultLanguage = "en"

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the default BCP-47 language code used when Transcribe
// is called with an empty language argument.
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// Provider implements asr.Provider using whisper.cpp Go bindings. The
// model is loaded once at construction and shared across all Transcribe
// calls; each call creates its own whisper.cpp context, since contexts
// are not safe for concurrent use even though the model is.
type Provider struct {
	model    whisperlib.Model
	language string
}

// New loads the whisper.cpp GGML model at modelPath. The caller must call
// Close when the provider is no longer needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("asr/whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("asr/whisper: load model %q: %w", modelPath, err)
	}

	p := &Provider{model: model, language: defaultLanguage}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe runs whisper.cpp inference over samples using a fresh
// context and returns the concatenated segment text.
func (p *Provider) Transcribe(ctx context.Context, samples []int16, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("asr/whisper: context already cancelled: %w", err)
	}
	if language == "" {
		language = p.language
	}

	floats := pcmToFloat32(samples)

	wctx, err := p.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("asr/whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(language); err != nil {
		return "", fmt.Errorf("asr/whisper: set language %q: %w", language, err)
	}
	if err := wctx.Process(floats, nil, nil, nil); err != nil {
		return "", fmt.Errorf("asr/whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("asr/whisper: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

// pcmToFloat32 normalizes 16-bit signed PCM samples to the [-1, 1] float32
// range whisper.cpp expects.
func pcmToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}
