// Package mock provides a test double for embed.Provider.
package mock

import (
	"context"
	"sync"

	"github.com/mdonmez/autoso/internal/embed"
)

var _ embed.Provider = (*Provider)(nil)

// EmbedCall records a single invocation of Provider.Embed.
type EmbedCall struct {
	Text string
}

// Provider is a mock embed.Provider. VectorFunc, if set, computes the
// vector to return for a given text deterministically (useful for testing
// cosine-similarity behavior); otherwise every call returns Vector.
type Provider struct {
	mu sync.Mutex

	Vector     []float32
	VectorFunc func(text string) []float32
	Dims       int
	Model      string
	Err        error

	EmbedCalls []EmbedCall
}

func (p *Provider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	p.EmbedCalls = append(p.EmbedCalls, EmbedCall{Text: text})
	p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	if p.VectorFunc != nil {
		return p.VectorFunc(text), nil
	}
	return p.Vector, nil
}

func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (p *Provider) Dimensions() int { return p.Dims }
func (p *Provider) ModelID() string { return p.Model }
