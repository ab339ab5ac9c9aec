package semantic_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mdonmez/autoso/internal/embed/mock"
	"github.com/mdonmez/autoso/internal/semantic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_IdenticalVectorsIsOne(t *testing.T) {
	v := []float32{1, 2, 3}
	got := semantic.Score(v, v)
	assert.InDelta(t, 1.0, got, 1e-6)
}

func TestScore_OrthogonalIsZero(t *testing.T) {
	got := semantic.Score([]float32{1, 0}, []float32{0, 1})
	assert.InDelta(t, 0.0, got, 1e-9)
}

func TestScore_NegativeCosineClippedToZero(t *testing.T) {
	got := semantic.Score([]float32{1, 0}, []float32{-1, 0})
	assert.Equal(t, 0.0, got)
}

func TestScore_Bounded(t *testing.T) {
	got := semantic.Score([]float32{0.3, -0.8, 1.1}, []float32{-0.2, 0.5, 0.9})
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)
}

func TestScorer_EmbedQueryCaches(t *testing.T) {
	provider := &mock.Provider{Vector: []float32{1, 2, 3}}
	s := semantic.NewScorer(provider, 4)

	v1, err := s.EmbedQuery(context.Background(), "hello world")
	require.NoError(t, err)
	v2, err := s.EmbedQuery(context.Background(), "hello world")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, provider.EmbedCalls, 1, "second call should hit the cache, not the provider")
}

func TestScorer_EmbedQueryPropagatesError(t *testing.T) {
	provider := &mock.Provider{Err: errors.New("embedder down")}
	s := semantic.NewScorer(provider, 4)

	_, err := s.EmbedQuery(context.Background(), "hello")
	assert.Error(t, err)
}
