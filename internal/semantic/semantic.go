// Package semantic implements the semantic half of SpeechMatcher's fusion
// score: cosine similarity over vectors from an injected embed.Provider,
// with an LRU cache for query embeddings bounded by normalized query
// string (ASR partials repeat the same string across consecutive frames,
// so this cache is hot in practice).
package semantic

import (
	"context"
	"fmt"
	"math"

	"github.com/mdonmez/autoso/internal/cache"
	"github.com/mdonmez/autoso/internal/embed"
	"golang.org/x/sync/singleflight"
)

// defaultQueryCacheSize bounds the query-embedding LRU.
const defaultQueryCacheSize = 4096

// Scorer computes sem(Q, C) using an injected embed.Provider, caching query
// embeddings by normalized query string.
//
// singleflight collapses concurrent Embed calls for the same normalized
// query onto one underlying request — consecutive ASR partials frequently
// repeat a string while a previous call for that same string is still in
// flight, and the embedder should not be invoked twice for it.
type Scorer struct {
	provider embed.Provider
	cache    *cache.LRU[string, []float32]
	group    singleflight.Group
}

// NewScorer constructs a Scorer around provider. queryCacheSize bounds the
// query-embedding LRU; a non-positive value uses the default 4096.
func NewScorer(provider embed.Provider, queryCacheSize int) *Scorer {
	if queryCacheSize <= 0 {
		queryCacheSize = defaultQueryCacheSize
	}
	return &Scorer{
		provider: provider,
		cache:    cache.New[string, []float32](queryCacheSize),
	}
}

// EmbedQuery returns the (cached) embedding vector for a normalized query
// string.
func (s *Scorer) EmbedQuery(ctx context.Context, normalizedQuery string) ([]float32, error) {
	if v, ok := s.cache.Get(normalizedQuery); ok {
		return v, nil
	}

	v, err, _ := s.group.Do(normalizedQuery, func() (any, error) {
		return s.provider.Embed(ctx, normalizedQuery)
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: embed query: %w", err)
	}
	vec := v.([]float32)
	s.cache.Put(normalizedQuery, vec)
	return vec, nil
}

// Score returns sem(Q, C) = max(0, cos(queryVec, chunkVec)), clipped to
// [0, 1].
func Score(queryVec, chunkVec []float32) float64 {
	return cosineClipped(queryVec, chunkVec)
}

func cosineClipped(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		return 1
	}
	return cos
}
