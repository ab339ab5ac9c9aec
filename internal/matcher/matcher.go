// Package matcher implements SpeechMatcher: the hybrid semantic+phonetic
// fusion ranking of chunks against a query string.
package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mdonmez/autoso/internal/embed"
	"github.com/mdonmez/autoso/internal/model"
	"github.com/mdonmez/autoso/internal/normalize"
	"github.com/mdonmez/autoso/internal/phonetic"
	"github.com/mdonmez/autoso/internal/semantic"
)

// defaultSemanticWeight and defaultPhoneticWeight are the fusion weights:
// STT substitutions (phonetic near-misses) dominate over paraphrasing, so
// phonetic similarity carries more of the score.
const (
	defaultSemanticWeight = 0.4
	defaultPhoneticWeight = 0.6
	defaultTopK           = 5
)

// Match is one ranked chunk from SpeechMatcher.Match.
type Match struct {
	ChunkIndex uint32
	ChunkID    string
	Score      float64
	Semantic   float64
	Phonetic   float64
}

// Result is one Match call's output: the top-K ranked chunks plus the
// query embedding used to score them, so downstream consumers (decision
// telemetry) can persist the vector without re-embedding the query.
// QueryVector is nil when the call fell back to phonetic-only scoring.
type Result struct {
	Matches     []Match
	QueryVector []float32
}

// Matcher is the hybrid semantic+phonetic SpeechMatcher. It is safe for
// concurrent use as long as the embedded semantic/phonetic scorers are
// (the default constructors return concurrency-safe scorers).
type Matcher struct {
	corpus   *model.Corpus
	provider embed.Provider
	sem      *semantic.Scorer
	phon     *phonetic.Scorer

	// weightsMu guards semWeight/phonWeight/topK/scoreFloor, the only fields
	// ApplyConfig mutates after construction — the config hot-reload path
	// (internal/config.Watcher) calls ApplyConfig from its own polling
	// goroutine, concurrently with Match running on NavigationWorker's.
	weightsMu             sync.RWMutex
	semWeight, phonWeight float64
	topK                  int
	scoreFloor            float64 // 0 disables the optional score gate

	logger  *slog.Logger
	onMatch func(time.Duration)
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithWeights overrides the default 0.4/0.6 semantic/phonetic fusion
// weights.
func WithWeights(semantic, phonetic float64) Option {
	return func(m *Matcher) {
		m.semWeight = semantic
		m.phonWeight = phonetic
	}
}

// WithTopK overrides the default top-K of 5.
func WithTopK(k int) Option {
	return func(m *Matcher) {
		if k > 0 {
			m.topK = k
		}
	}
}

// WithScoreFloor sets a minimum fused score below which Match degrades to
// an empty result (the navigator then treats this as "no candidates" and
// stays). Disabled (0) by default: ranking already does the useful work,
// and a floor risks rejecting the only candidate in a sparse corpus.
func WithScoreFloor(floor float64) Option {
	return func(m *Matcher) { m.scoreFloor = floor }
}

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Matcher) { m.logger = l }
}

// WithCallObserver registers a callback invoked once per Match call with its
// wall-clock duration, so callers can wire observability counters without
// coupling this package to internal/observe.
func WithCallObserver(fn func(time.Duration)) Option {
	return func(m *Matcher) { m.onMatch = fn }
}

// New constructs a Matcher over corpus using provider for chunk/query
// embedding and a fresh phonetic scorer. queryCacheSize and
// sentenceCacheSize bound the semantic query-embedding cache and the
// phonetic sentence-score cache respectively; 0 uses each package's
// default.
func New(corpus *model.Corpus, provider embed.Provider, queryCacheSize, sentenceCacheSize int, opts ...Option) *Matcher {
	m := &Matcher{
		corpus:     corpus,
		provider:   provider,
		sem:        semantic.NewScorer(provider, queryCacheSize),
		phon:       phonetic.NewScorer(sentenceCacheSize),
		semWeight:  defaultSemanticWeight,
		phonWeight: defaultPhoneticWeight,
		topK:       defaultTopK,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// PrecomputeEmbeddings embeds every chunk's normalized text once and stores
// the result in the corpus's ChunkEmbeddings, so Match never has to embed
// a chunk on the hot path. Must be called once before the first Match
// call; safe to call again to re-populate after a corpus reload.
func (m *Matcher) PrecomputeEmbeddings(ctx context.Context) error {
	if len(m.corpus.Chunks) == 0 {
		return nil
	}
	texts := make([]string, len(m.corpus.Chunks))
	for i := range m.corpus.Chunks {
		texts[i] = strings.Join(m.corpus.ChunkTokens[i], " ")
	}
	vecs, err := m.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("matcher: precompute chunk embeddings: %w", err)
	}
	if len(vecs) != len(texts) {
		return fmt.Errorf("matcher: precompute chunk embeddings: expected %d vectors, got %d", len(texts), len(vecs))
	}
	m.corpus.ChunkEmbeddings = vecs
	return nil
}

// Match returns the top-K ranked chunks against query under the fused
// score, restricted to candidateIndexes if non-empty; a nil or empty
// candidateIndexes scores the full corpus. An empty query returns an
// empty result. An embedding failure falls back to phonetic-only scoring
// for this call and is logged at warn.
func (m *Matcher) Match(ctx context.Context, query string, candidateIndexes []uint32) (Result, error) {
	start := time.Now()
	if m.onMatch != nil {
		defer func() { m.onMatch(time.Since(start)) }()
	}

	normalizedQuery := normalize.Text(query)
	if normalizedQuery == "" {
		return Result{}, nil
	}
	queryWords := strings.Fields(normalizedQuery)

	indexes := candidateIndexes
	if len(indexes) == 0 {
		indexes = allIndexes(len(m.corpus.Chunks))
	}

	queryVec, semErr := m.sem.EmbedQuery(ctx, normalizedQuery)
	semanticAvailable := semErr == nil
	if semErr != nil {
		m.logger.Warn("matcher: embedding failed, falling back to phonetic-only score", "error", semErr)
		queryVec = nil
	}

	m.weightsMu.RLock()
	semWeight, phonWeight, topK, scoreFloor := m.semWeight, m.phonWeight, m.topK, m.scoreFloor
	m.weightsMu.RUnlock()

	matches := make([]Match, 0, len(indexes))
	for _, idx := range indexes {
		if int(idx) >= len(m.corpus.Chunks) {
			continue
		}
		chunk := m.corpus.Chunks[idx]

		phon := m.phon.Score(normalizedQuery, queryWords, chunk.ChunkID, m.corpus.ChunkTokens[idx])

		var sem float64
		if semanticAvailable && int(idx) < len(m.corpus.ChunkEmbeddings) {
			sem = semantic.Score(queryVec, m.corpus.ChunkEmbeddings[idx])
		}

		var fused float64
		if semanticAvailable {
			fused = semWeight*sem + phonWeight*phon
		} else {
			fused = phon
		}

		if scoreFloor > 0 && fused < scoreFloor {
			continue
		}

		matches = append(matches, Match{
			ChunkIndex: chunk.ChunkIndex,
			ChunkID:    chunk.ChunkID,
			Score:      fused,
			Semantic:   sem,
			Phonetic:   phon,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ChunkIndex < matches[j].ChunkIndex
	})

	k := topK
	if k > len(matches) {
		k = len(matches)
	}
	return Result{Matches: matches[:k], QueryVector: queryVec}, nil
}

// ApplyConfig updates the fusion weights, top-K, and score floor from cfg.
// Safe to call concurrently with Match. Intended for the config hot-reload
// path: internal/config.Watcher feeds a ConfigDiff.MatcherChanged update
// here instead of rebuilding the session.
func (m *Matcher) ApplyConfig(semanticWeight, phoneticWeight float64, topK int, scoreFloor float64) {
	m.weightsMu.Lock()
	defer m.weightsMu.Unlock()
	m.semWeight = semanticWeight
	m.phonWeight = phoneticWeight
	if topK > 0 {
		m.topK = topK
	}
	m.scoreFloor = scoreFloor
}

func allIndexes(n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(i)
	}
	return out
}
