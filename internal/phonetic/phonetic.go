// Package phonetic implements SpeechMatcher's grouped-edit-distance
// phonetic similarity: word-level Levenshtein with a substitution cost of
// zero when both letters share any articulation group, fused into a
// sentence-level score via a second Levenshtein pass over word
// similarities.
//
// Off-the-shelf phonetic matchers (Double Metaphone, Jaro-Winkler and
// friends) expose fixed algorithms that cannot express a table-driven
// substitution cost, so the distance itself is implemented directly over
// the table below.
package phonetic

import "github.com/mdonmez/autoso/internal/cache"

// groups is the articulation-class table. A letter absent from every
// group costs full substitution against any other letter. Letters that
// appear in more than one group (P, C, S, Z) are "cheap" against any
// letter sharing at least one of those groups. This table is fixed for
// the process lifetime.
var groups = []string{
	"aeiouy", // vowels
	"bp",     // labial plosives
	"ckq",    // velars
	"dt",     // dentals
	"lr",     // fricatives-L
	"mn",     // nasals
	"gj",     // sibilants
	"fpv",    // fricatives-F
	"sxz",    // fricatives-S
	"csz",    // aspirate
	"w",      // glide
}

// groupMembership maps each letter to the set of group indexes it belongs
// to, built once at package init from groups.
var groupMembership = buildGroupMembership()

func buildGroupMembership() map[byte][]int {
	m := make(map[byte][]int)
	for gi, g := range groups {
		for i := 0; i < len(g); i++ {
			m[g[i]] = append(m[g[i]], gi)
		}
	}
	return m
}

// shareGroup reports whether a and b share at least one articulation
// group. Letters outside the table never share a group with anything,
// including themselves unless identical.
func shareGroup(a, b byte) bool {
	if a == b {
		return true
	}
	ga, ok := groupMembership[a]
	if !ok {
		return false
	}
	gb, ok := groupMembership[b]
	if !ok {
		return false
	}
	for _, x := range ga {
		for _, y := range gb {
			if x == y {
				return true
			}
		}
	}
	return false
}

// wordDistance computes the grouped-cost Levenshtein distance between w1
// and w2: substitution costs 0 if the letters share a group, else 1;
// insertion and deletion always cost 1.
func wordDistance(w1, w2 string) int {
	m, n := len(w1), len(w2)
	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			subCost := 1
			if shareGroup(w1[i-1], w2[j-1]) {
				subCost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + subCost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[n]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// wordSimilarity returns 1 - wordDistance(w1,w2)/max(len(w1),len(w2)),
// clipped to [0, 1]. Two empty words are identical (similarity 1).
func wordSimilarity(w1, w2 string) float64 {
	if len(w1) == 0 && len(w2) == 0 {
		return 1
	}
	maxLen := len(w1)
	if len(w2) > maxLen {
		maxLen = len(w2)
	}
	d := wordDistance(w1, w2)
	s := 1 - float64(d)/float64(maxLen)
	return clip01(s)
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// sentenceScore computes the sequence-level phonetic similarity between
// two word lists: 1 - D(q, c) / max(len(q), len(c)), where D is a
// word-level Levenshtein using 1 - wordSimilarity(qi, cj) as substitution
// cost and 1 as insert/delete cost. wdCache memoizes wordDistance calls.
func sentenceScore(q, c []string, wdCache *cache.LRU[wordPairKey, int]) float64 {
	m, n := len(q), len(c)
	if m == 0 && n == 0 {
		return 1
	}
	if m == 0 || n == 0 {
		return 0
	}

	prev := make([]float64, n+1)
	curr := make([]float64, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = float64(j)
	}

	for i := 1; i <= m; i++ {
		curr[0] = float64(i)
		for j := 1; j <= n; j++ {
			sim := memoWordSimilarity(q[i-1], c[j-1], wdCache)
			subCost := 1 - sim
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + subCost
			curr[j] = minf3(del, ins, sub)
		}
		prev, curr = curr, prev
	}

	maxLen := m
	if n > maxLen {
		maxLen = n
	}
	return clip01(1 - prev[n]/float64(maxLen))
}

func minf3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// wordPairKey is the memoization key for a single word-distance call.
type wordPairKey struct {
	a, b string
}

func memoWordSimilarity(a, b string, wdCache *cache.LRU[wordPairKey, int]) float64 {
	if wdCache == nil {
		return wordSimilarity(a, b)
	}
	key := wordPairKey{a: a, b: b}
	if d, ok := wdCache.Get(key); ok {
		return similarityFromDistance(a, b, d)
	}
	d := wordDistance(a, b)
	wdCache.Put(key, d)
	return similarityFromDistance(a, b, d)
}

func similarityFromDistance(a, b string, d int) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	return clip01(1 - float64(d)/float64(maxLen))
}

// defaultWordCacheSize bounds the word-distance memoization cache.
const defaultWordCacheSize = 65536

// Scorer computes phonetic similarity between a query and chunk word
// sequences, memoizing both the word-level distance and the full
// sentence-level score per (normalized query, chunk id) pair.
//
// Scorer is safe for concurrent use.
type Scorer struct {
	wordCache     *cache.LRU[wordPairKey, int]
	sentenceCache *cache.LRU[sentenceKey, float64]
}

type sentenceKey struct {
	query   string
	chunkID string
}

// NewScorer constructs a Scorer. sentenceCacheSize bounds the number of
// memoized (query, chunk_id) sentence scores; a non-positive value uses the
// default of 65536.
func NewScorer(sentenceCacheSize int) *Scorer {
	if sentenceCacheSize <= 0 {
		sentenceCacheSize = defaultWordCacheSize
	}
	return &Scorer{
		wordCache:     cache.New[wordPairKey, int](defaultWordCacheSize),
		sentenceCache: cache.New[sentenceKey, float64](sentenceCacheSize),
	}
}

// Score returns phon(Q, C) for a normalized query string, its pre-split
// word tokens, a chunk id, and the chunk's pre-split word tokens. Results
// are memoized by (normalizedQuery, chunkID).
func (s *Scorer) Score(normalizedQuery string, queryWords []string, chunkID string, chunkWords []string) float64 {
	key := sentenceKey{query: normalizedQuery, chunkID: chunkID}
	if v, ok := s.sentenceCache.Get(key); ok {
		return v
	}
	v := sentenceScore(queryWords, chunkWords, s.wordCache)
	s.sentenceCache.Put(key, v)
	return v
}
