package matcher_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mdonmez/autoso/internal/embed/mock"
	"github.com/mdonmez/autoso/internal/matcher"
	"github.com/mdonmez/autoso/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallCorpus builds a minimal two-chunk corpus directly (bypassing
// model.Load's file I/O and windowing validation, which require a
// realistic 7-word/dense-overlap corpus not needed for these unit tests)
// and populates ChunkTokens the same way model.Load does.
func smallCorpus(t *testing.T) *model.Corpus {
	t.Helper()
	c := &model.Corpus{
		Transcripts: []model.TranscriptItem{
			{TranscriptIndex: 0, TranscriptID: "t0", Text: "the ability to say no", EarlyForward: true},
		},
		Chunks: []model.Chunk{
			{ChunkIndex: 0, ChunkID: "c0", SourceTranscripts: []string{"t0"}, Text: "let me see your hands"},
			{ChunkIndex: 1, ChunkID: "c1", SourceTranscripts: []string{"t0"}, Text: "the ability to say no"},
		},
	}
	c.ChunkTokens = make([][]string, len(c.Chunks))
	for i, ch := range c.Chunks {
		c.ChunkTokens[i] = strings.Fields(ch.Text)
	}
	c.ChunkEmbeddings = make([][]float32, len(c.Chunks))
	return c
}

func TestMatch_EmptyQueryReturnsEmpty(t *testing.T) {
	c := smallCorpus(t)
	provider := &mock.Provider{Vector: []float32{1, 0}, Dims: 2}
	m := matcher.New(c, provider, 0, 0)
	require.NoError(t, m.PrecomputeEmbeddings(context.Background()))

	got, err := m.Match(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Empty(t, got.Matches)
	assert.Nil(t, got.QueryVector)
}

func TestMatch_RanksExactPhoneticMatchFirst(t *testing.T) {
	c := smallCorpus(t)
	provider := &mock.Provider{Vector: []float32{1, 0}, Dims: 2}
	m := matcher.New(c, provider, 0, 0)
	require.NoError(t, m.PrecomputeEmbeddings(context.Background()))

	got, err := m.Match(context.Background(), "the ability to say no", nil)
	require.NoError(t, err)
	require.NotEmpty(t, got.Matches)
	assert.Equal(t, "c1", got.Matches[0].ChunkID)
	assert.Equal(t, []float32{1, 0}, got.QueryVector)
}

func TestMatch_EmbeddingFailureFallsBackToPhoneticOnly(t *testing.T) {
	c := smallCorpus(t)
	provider := &mock.Provider{Err: errors.New("embedder down"), Dims: 2}
	m := matcher.New(c, provider, 0, 0)

	got, err := m.Match(context.Background(), "the ability to say no", nil)
	require.NoError(t, err)
	require.NotEmpty(t, got.Matches)
	assert.Equal(t, got.Matches[0].Phonetic, got.Matches[0].Score)
	assert.Equal(t, 0.0, got.Matches[0].Semantic)
	assert.Nil(t, got.QueryVector, "fallback calls carry no query vector")
}

func TestMatch_RespectsTopK(t *testing.T) {
	c := smallCorpus(t)
	provider := &mock.Provider{Vector: []float32{1, 0}, Dims: 2}
	m := matcher.New(c, provider, 0, 0, matcher.WithTopK(1))
	require.NoError(t, m.PrecomputeEmbeddings(context.Background()))

	got, err := m.Match(context.Background(), "the ability to say no", nil)
	require.NoError(t, err)
	assert.Len(t, got.Matches, 1)
}

// TestApplyConfig_ChangesTopKAtRuntime drives a config hot-reload by calling
// ApplyConfig directly (what internal/config.Watcher's onChange callback
// does via App.ApplyConfigDiff) and asserts the new top-K takes effect on
// the very next Match call, with no reconstruction of the Matcher.
func TestApplyConfig_ChangesTopKAtRuntime(t *testing.T) {
	c := smallCorpus(t)
	provider := &mock.Provider{Vector: []float32{1, 0}, Dims: 2}
	m := matcher.New(c, provider, 0, 0, matcher.WithTopK(2))
	require.NoError(t, m.PrecomputeEmbeddings(context.Background()))

	got, err := m.Match(context.Background(), "the ability to say no", nil)
	require.NoError(t, err)
	assert.Len(t, got.Matches, 2)

	m.ApplyConfig(0.4, 0.6, 1, 0)

	got, err = m.Match(context.Background(), "the ability to say no", nil)
	require.NoError(t, err)
	assert.Len(t, got.Matches, 1)
}
