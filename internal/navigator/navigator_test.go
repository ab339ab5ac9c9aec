package navigator_test

import (
	"context"
	"testing"

	"github.com/mdonmez/autoso/internal/matcher"
	"github.com/mdonmez/autoso/internal/model"
	"github.com/mdonmez/autoso/internal/navigator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubMatcher always returns a single fixed match, regardless of query or
// candidates, letting these tests drive the navigator's decision table
// directly without involving real similarity scoring.
type stubMatcher struct {
	result []matcher.Match
}

func (s *stubMatcher) Match(_ context.Context, _ string, _ []uint32) (matcher.Result, error) {
	return matcher.Result{Matches: s.result}, nil
}

// buildCorpus constructs a small corpus covering a transcript boundary:
// chunk 0/1 belong only to t0, chunk 2 straddles t0/t1, chunk 3 belongs
// only to t1.
func buildCorpus(t *testing.T) *model.Corpus {
	t.Helper()
	transcripts := []model.TranscriptItem{
		{TranscriptIndex: 0, TranscriptID: "t0", Text: "the ability to say no", EarlyForward: true},
		{TranscriptIndex: 1, TranscriptID: "t1", Text: "have you ever struggled", EarlyForward: false},
		{TranscriptIndex: 2, TranscriptID: "t2", Text: "or perhaps you couldnt", EarlyForward: false},
	}
	chunks := []model.Chunk{
		{ChunkIndex: 0, ChunkID: "c0", SourceTranscripts: []string{"t0"}, Text: "the ability to say no slide"},
		{ChunkIndex: 1, ChunkID: "c1", SourceTranscripts: []string{"t0"}, Text: "ability to say no slide again"},
		{ChunkIndex: 2, ChunkID: "c2", SourceTranscripts: []string{"t0", "t1"}, Text: "to say no slide have you"},
		{ChunkIndex: 3, ChunkID: "c3", SourceTranscripts: []string{"t1"}, Text: "say no slide have you ever"},
		{ChunkIndex: 4, ChunkID: "c4", SourceTranscripts: []string{"t2"}, Text: "or perhaps you couldnt say slide"},
	}
	c, err := model.NewCorpus(transcripts, chunks)
	require.NoError(t, err)
	return c
}

func TestNavigator_StaysMidSlide(t *testing.T) {
	c := buildCorpus(t)
	m := &stubMatcher{result: []matcher.Match{{ChunkID: "c0", ChunkIndex: 0, Score: 0.9}}}
	n := navigator.New(c, m)

	d := n.Decide(context.Background(), "the ability to say no")
	assert.False(t, d.Forward)
	assert.Equal(t, uint32(0), n.CurrentIndex())
}

func TestNavigator_ForwardEarlyAtTransitionBoundary(t *testing.T) {
	c := buildCorpus(t)
	// c2 straddles t0 (current) -> t1, and t0.EarlyForward = true.
	m := &stubMatcher{result: []matcher.Match{{ChunkID: "c2", ChunkIndex: 2, Score: 0.9}}}
	n := navigator.New(c, m)

	d := n.Decide(context.Background(), "to say no have you")
	assert.True(t, d.Forward)
	assert.Equal(t, uint32(1), d.TargetIndex)
	assert.Equal(t, uint32(1), n.CurrentIndex())
}

func TestNavigator_ForwardJumpWhenAheadOfCurrent(t *testing.T) {
	c := buildCorpus(t)
	m := &stubMatcher{result: []matcher.Match{{ChunkID: "c4", ChunkIndex: 4, Score: 0.9}}}
	n := navigator.New(c, m)

	d := n.Decide(context.Background(), "or perhaps you couldnt say")
	assert.True(t, d.Forward)
	assert.Equal(t, uint32(2), d.TargetIndex)
}

func TestNavigator_NeverRewindsOnBackwardMatch(t *testing.T) {
	c := buildCorpus(t)
	m := &stubMatcher{result: []matcher.Match{{ChunkID: "c0", ChunkIndex: 0, Score: 0.9}}}
	n := navigator.New(c, m, navigator.WithStartIndex(2))

	d := n.Decide(context.Background(), "the ability")
	assert.False(t, d.Forward)
	assert.Equal(t, uint32(2), n.CurrentIndex())
}

func TestNavigator_NoMatchesStays(t *testing.T) {
	c := buildCorpus(t)
	m := &stubMatcher{result: nil}
	n := navigator.New(c, m)

	d := n.Decide(context.Background(), "anything")
	assert.False(t, d.Forward)
}

func TestNavigator_IdempotentAcrossRepeatedHypothesis(t *testing.T) {
	c := buildCorpus(t)
	m := &stubMatcher{result: []matcher.Match{{ChunkID: "c2", ChunkIndex: 2, Score: 0.9}}}
	n := navigator.New(c, m)

	forwardCount := 0
	for i := 0; i < 3; i++ {
		d := n.Decide(context.Background(), "to say no have you")
		if d.Forward {
			forwardCount++
		}
	}
	assert.Equal(t, 1, forwardCount, "exactly one Forward should be emitted across repeated hypotheses")
}

func TestNavigator_Monotonic(t *testing.T) {
	c := buildCorpus(t)
	sequence := []matcher.Match{
		{ChunkID: "c2", ChunkIndex: 2, Score: 0.9},
		{ChunkID: "c0", ChunkIndex: 0, Score: 0.9}, // backward-looking match, must not rewind
		{ChunkID: "c4", ChunkIndex: 4, Score: 0.9},
	}
	m := &stubMatcher{}
	n := navigator.New(c, m)

	last := n.CurrentIndex()
	for _, match := range sequence {
		m.result = []matcher.Match{match}
		n.Decide(context.Background(), "hypothesis")
		cur := n.CurrentIndex()
		assert.GreaterOrEqual(t, cur, last)
		last = cur
	}
}
