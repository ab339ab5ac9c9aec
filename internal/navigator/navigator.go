// Package navigator implements RealtimeNavigator: the stateful three-case
// decision logic that reconciles matched chunks with presentation
// position.
package navigator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mdonmez/autoso/internal/matcher"
	"github.com/mdonmez/autoso/internal/model"
)

// Decision case labels, matching the attribute values recorded by
// observe.Metrics.RecordDecision.
const (
	CaseStay         = "stay"
	CaseForwardJump  = "forward_jump"
	CaseForwardEarly = "forward_early"
)

// Decision is the navigator's output for one hypothesis.
type Decision struct {
	// Forward is true when the decision is to advance; false means Stay.
	Forward bool

	// TargetIndex is the transcript_index to advance to when Forward is
	// true. Meaningless when Forward is false.
	TargetIndex uint32

	// Case names which decision branch produced this decision: CaseStay,
	// CaseForwardJump, or CaseForwardEarly.
	Case string

	// MatchedChunkID, MatchedChunkIndex, Score, Semantic, and Phonetic
	// describe the top-1 matched chunk that produced this decision, for
	// telemetry. Zero-valued when the matcher returned no candidate (a
	// degenerate Stay).
	MatchedChunkID    string
	MatchedChunkIndex uint32
	Score             float64
	Semantic          float64
	Phonetic          float64

	// QueryEmbedding is the query vector the matcher scored with, carried
	// through for decision telemetry. Nil when the matcher fell back to
	// phonetic-only scoring.
	QueryEmbedding []float32
}

// Matcher is the subset of matcher.Matcher's surface the navigator depends
// on, so tests can inject a double without pulling in the real scoring
// stack.
type Matcher interface {
	Match(ctx context.Context, query string, candidateIndexes []uint32) (matcher.Result, error)
}

// Navigator is RealtimeNavigator. It owns current_idx and the
// last-acted-chunk-id dedup state. Decide and CurrentIndex hold an
// internal mutex for their whole call, so concurrent calls are
// serialized; the default pipeline topology has exactly one caller
// (NavigationWorker).
type Navigator struct {
	corpus  *model.Corpus
	matcher Matcher
	logger  *slog.Logger

	mu             sync.Mutex
	currentIdx     uint32
	lastActedChunk string
	haveLastActed  bool
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Navigator) { n.logger = l }
}

// WithStartIndex sets the initial current_idx (default 0).
func WithStartIndex(idx uint32) Option {
	return func(n *Navigator) { n.currentIdx = idx }
}

// New constructs a Navigator over corpus using m to rank candidate chunks.
func New(corpus *model.Corpus, m Matcher, opts ...Option) *Navigator {
	n := &Navigator{
		corpus:  corpus,
		matcher: m,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// CurrentIndex returns the navigator's current presentation position.
func (n *Navigator) CurrentIndex() uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.currentIdx
}

// Decide consumes one normalized hypothesis query, invokes the matcher, and
// returns a Decision. A matcher error or an empty candidate result is
// logged and degrades to Stay — the navigator never panics and never
// advances when in doubt.
func (n *Navigator) Decide(ctx context.Context, query string) Decision {
	n.mu.Lock()
	defer n.mu.Unlock()

	candidates := n.candidateIndexesLocked()

	result, err := n.matcher.Match(ctx, query, candidates)
	if err != nil {
		n.logger.Error("navigator: matcher call failed, staying", "error", err)
		return Decision{Forward: false, Case: CaseStay}
	}
	if len(result.Matches) == 0 {
		return Decision{Forward: false, Case: CaseStay}
	}

	top := result.Matches[0]
	matchedChunk := n.corpus.ByChunkID(top.ChunkID)
	if matchedChunk == nil {
		n.logger.Error("navigator: matched chunk not found in corpus, staying", "chunk_id", top.ChunkID)
		return Decision{Forward: false, Case: CaseStay}
	}

	decision := n.applyLocked(matchedChunk)
	decision.MatchedChunkID = top.ChunkID
	decision.MatchedChunkIndex = top.ChunkIndex
	decision.Score = top.Score
	decision.Semantic = top.Semantic
	decision.Phonetic = top.Phonetic
	decision.QueryEmbedding = result.QueryVector
	return decision
}

// applyLocked implements the three-case decision procedure given the
// top-1 matched chunk. Must be called with n.mu held.
func (n *Navigator) applyLocked(matched *model.Chunk) Decision {
	firstSource := matched.FirstSourceTranscript()
	firstSourceTranscript := n.corpus.ByTranscriptID(firstSource)
	if firstSourceTranscript == nil {
		n.logger.Error("navigator: matched chunk's source transcript not found, staying", "chunk_id", matched.ChunkID, "transcript_id", firstSource)
		return Decision{Forward: false, Case: CaseStay}
	}
	expectedIdx := firstSourceTranscript.TranscriptIndex

	isCurrentSource := expectedIdx == n.currentIdx
	currentTranscript := n.corpus.TranscriptAt(n.currentIdx)

	nextChunk := n.corpus.ChunkAt(matched.ChunkIndex + 1)
	isNextSourceDifferent := false
	if nextChunk != nil {
		isNextSourceDifferent = nextChunk.FirstSourceTranscript() != firstSource
	}

	// Idempotence: never act twice for the same matched chunk id.
	if n.haveLastActed && n.lastActedChunk == matched.ChunkID {
		return Decision{Forward: false, Case: CaseStay}
	}

	// Case 1 — Stay: backward match, never rewind.
	if expectedIdx < n.currentIdx {
		return Decision{Forward: false, Case: CaseStay}
	}

	earlyForward := currentTranscript != nil && currentTranscript.EarlyForward

	// Case 3 — Forward (early): mid-slide but at a fluid boundary about to
	// cross into a different transcript.
	if isCurrentSource && earlyForward && isNextSourceDifferent {
		n.currentIdx++
		n.markActedLocked(matched.ChunkID)
		return Decision{Forward: true, TargetIndex: n.currentIdx, Case: CaseForwardEarly}
	}

	// Case 1 — Stay: still mid-slide (and not the early-forward boundary
	// case just handled above).
	if isCurrentSource {
		return Decision{Forward: false, Case: CaseStay}
	}

	// Case 2 — Forward (jump): expected_idx strictly ahead of current_idx.
	if expectedIdx > n.currentIdx {
		n.currentIdx = expectedIdx
		n.markActedLocked(matched.ChunkID)
		return Decision{Forward: true, TargetIndex: n.currentIdx, Case: CaseForwardJump}
	}

	return Decision{Forward: false, Case: CaseStay}
}

func (n *Navigator) markActedLocked(chunkID string) {
	n.lastActedChunk = chunkID
	n.haveLastActed = true
}

// candidateIndexesLocked narrows the matcher's candidate pool to the
// chunks the speaker can plausibly be at: the last chunk of the transcript
// before current_idx, every chunk of the transcript at current_idx, and
// every single-source chunk of the transcript right after current_idx.
// Must be called with n.mu held.
// Returns nil (meaning "use the full corpus") when the corpus is small or
// the windowed result would be empty.
func (n *Navigator) candidateIndexesLocked() []uint32 {
	const smallCorpusThreshold = 32
	if len(n.corpus.Chunks) <= smallCorpusThreshold {
		return nil
	}

	current := n.corpus.TranscriptAt(n.currentIdx)
	if current == nil {
		return nil
	}

	var nextID, prevID string
	if next := n.corpus.TranscriptAt(n.currentIdx + 1); next != nil {
		nextID = next.TranscriptID
	}
	if n.currentIdx > 0 {
		if prev := n.corpus.TranscriptAt(n.currentIdx - 1); prev != nil {
			prevID = prev.TranscriptID
		}
	}

	var out []uint32
	var prevLastChunk uint32
	havePrevLastChunk := false
	for i := range n.corpus.Chunks {
		ch := &n.corpus.Chunks[i]
		switch {
		case containsID(ch.SourceTranscripts, current.TranscriptID):
			// belongs to (or straddles out of) the current transcript
			out = append(out, ch.ChunkIndex)
		case nextID != "" && len(ch.SourceTranscripts) == 1 && ch.SourceTranscripts[0] == nextID:
			// single-source chunk of the next transcript
			out = append(out, ch.ChunkIndex)
		case prevID != "" && containsID(ch.SourceTranscripts, prevID):
			// track the last chunk touching the previous transcript; only
			// the final one is kept as a candidate below
			prevLastChunk = ch.ChunkIndex
			havePrevLastChunk = true
		}
	}
	if havePrevLastChunk {
		out = append([]uint32{prevLastChunk}, out...)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func containsID(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// String renders a Decision for logging.
func (d Decision) String() string {
	if !d.Forward {
		return "Stay"
	}
	return fmt.Sprintf("Forward(%d)", d.TargetIndex)
}
