// Package model defines the transcript/chunk data model: the immutable
// corpus loaded once at session start and held for the lifetime of a
// presentation session.
package model

import (
	"errors"
	"fmt"
)

// TranscriptItem is one slide's worth of normalized speech text.
type TranscriptItem struct {
	TranscriptIndex uint32
	TranscriptID    string
	Text            string
	EarlyForward    bool
}

// Chunk is a fixed-width sliding-window slice of the concatenated
// transcript word stream, tagged with the transcript(s) it was drawn from.
type Chunk struct {
	ChunkIndex        uint32
	ChunkID           string
	SourceTranscripts []string
	Text              string
}

// FirstSourceTranscript returns the transcript_id that defines this chunk's
// expected_idx: the first element of SourceTranscripts, per the navigator's
// resolution of the source's ambiguity in favor of the earliest id.
func (c Chunk) FirstSourceTranscript() string {
	if len(c.SourceTranscripts) == 0 {
		return ""
	}
	return c.SourceTranscripts[0]
}

// Corpus holds the full immutable transcript/chunk corpus for a session,
// plus the precomputed indexes described in the data model: lookup by id,
// chunk embeddings, and cached phonetic token forms. Corpus is read-only
// after Load returns and is safe for concurrent reads from multiple
// goroutines.
type Corpus struct {
	Transcripts []TranscriptItem
	Chunks      []Chunk

	byChunkID      map[string]*Chunk
	byTranscriptID map[string]*TranscriptItem

	// ChunkEmbeddings holds chunk_index -> dense embedding vector. Filled
	// for every chunk at once by the matcher's PrecomputeEmbeddings at
	// session start (embeddings are computed from an injected capability,
	// not stored on disk), then kept for the session.
	ChunkEmbeddings [][]float32

	// ChunkTokens holds chunk_index -> normalized, whitespace-split token
	// form used by phonetic scoring. Computed once at load time since it is
	// a pure function of Chunk.Text.
	ChunkTokens [][]string
}

// NewCorpus builds a Corpus from transcripts and chunks, validates its
// structural invariants, and constructs the lookup indexes. Unlike Load, it does not
// populate ChunkTokens or ChunkEmbeddings — the caller sets ChunkTokens
// before a SpeechMatcher uses the corpus, and the matcher's
// PrecomputeEmbeddings fills ChunkEmbeddings. This is the entry point for
// constructing a Corpus in-memory (tests, embedding this loader behind a
// different transport) without going through JSON decoding.
func NewCorpus(transcripts []TranscriptItem, chunks []Chunk) (*Corpus, error) {
	c := &Corpus{Transcripts: transcripts, Chunks: chunks}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("model: corpus invariant violation: %w", err)
	}
	c.buildIndexes()
	return c, nil
}

// ByChunkID returns the chunk with the given id, or nil if none exists.
func (c *Corpus) ByChunkID(id string) *Chunk {
	return c.byChunkID[id]
}

// ByTranscriptID returns the transcript item with the given id, or nil if
// none exists.
func (c *Corpus) ByTranscriptID(id string) *TranscriptItem {
	return c.byTranscriptID[id]
}

// TranscriptAt returns the transcript item at the given dense index, or nil
// if out of range.
func (c *Corpus) TranscriptAt(idx uint32) *TranscriptItem {
	if int(idx) >= len(c.Transcripts) {
		return nil
	}
	return &c.Transcripts[idx]
}

// ChunkAt returns the chunk at the given dense index, or nil if out of
// range.
func (c *Corpus) ChunkAt(idx uint32) *Chunk {
	if int(idx) >= len(c.Chunks) {
		return nil
	}
	return &c.Chunks[idx]
}

// buildIndexes populates byChunkID and byTranscriptID from Transcripts and
// Chunks. Callers must have already validated uniqueness via Validate.
func (c *Corpus) buildIndexes() {
	c.byChunkID = make(map[string]*Chunk, len(c.Chunks))
	for i := range c.Chunks {
		c.byChunkID[c.Chunks[i].ChunkID] = &c.Chunks[i]
	}
	c.byTranscriptID = make(map[string]*TranscriptItem, len(c.Transcripts))
	for i := range c.Transcripts {
		c.byTranscriptID[c.Transcripts[i].TranscriptID] = &c.Transcripts[i]
	}
}

// Validate checks the structural corpus invariants: dense 0-based ordering for
// both transcripts and chunks, unique ids within each domain, and
// source_transcripts cardinality of 1 or 2 referencing existing
// transcripts. Returns a joined error describing every violation found, or
// nil if the corpus is well-formed. See ValidateWindowing for the
// sliding-window-specific invariants, which require a real chunking of a
// real transcript stream and so do not apply to every Corpus built by
// hand (e.g. in tests).
func (c *Corpus) Validate() error {
	var errs []error

	for i, t := range c.Transcripts {
		if int(t.TranscriptIndex) != i {
			errs = append(errs, fmt.Errorf("transcript at position %d has transcript_index %d, want dense ordering", i, t.TranscriptIndex))
		}
	}
	seenT := make(map[string]bool, len(c.Transcripts))
	for _, t := range c.Transcripts {
		if seenT[t.TranscriptID] {
			errs = append(errs, fmt.Errorf("duplicate transcript_id %q", t.TranscriptID))
		}
		seenT[t.TranscriptID] = true
	}

	seenC := make(map[string]bool, len(c.Chunks))
	for i, ch := range c.Chunks {
		if int(ch.ChunkIndex) != i {
			errs = append(errs, fmt.Errorf("chunk at position %d has chunk_index %d, want dense ordering", i, ch.ChunkIndex))
		}
		if seenC[ch.ChunkID] {
			errs = append(errs, fmt.Errorf("duplicate chunk_id %q", ch.ChunkID))
		}
		seenC[ch.ChunkID] = true

		if n := len(ch.SourceTranscripts); n < 1 || n > 2 {
			errs = append(errs, fmt.Errorf("chunk %q has %d source_transcripts, want 1 or 2", ch.ChunkID, n))
		}
		for _, tid := range ch.SourceTranscripts {
			if !seenT[tid] {
				errs = append(errs, fmt.Errorf("chunk %q references unknown transcript_id %q", ch.ChunkID, tid))
			}
		}
	}

	return errors.Join(errs...)
}

// ValidateWindowing checks the invariants specific to a real 7-word
// sliding-window chunking of a concatenated transcript stream: every
// chunk has exactly 7 whitespace-separated tokens, and for every pair of
// consecutive chunks the last 6 tokens of one equal the first 6 tokens of
// the next. Load calls this in addition to Validate; callers constructing a
// Corpus by hand for narrower tests may skip it.
func (c *Corpus) ValidateWindowing() error {
	var errs []error

	for _, ch := range c.Chunks {
		words := splitWords(ch.Text)
		if len(words) != 7 {
			errs = append(errs, fmt.Errorf("chunk %q has %d whitespace-separated tokens, want 7", ch.ChunkID, len(words)))
		}
	}

	for i := 0; i+1 < len(c.Chunks); i++ {
		a := splitWords(c.Chunks[i].Text)
		b := splitWords(c.Chunks[i+1].Text)
		if len(a) < 6 || len(b) < 6 {
			continue
		}
		if !equalTail(a[len(a)-6:], b[:6]) {
			errs = append(errs, fmt.Errorf("chunk %q and %q violate the one-word-slide overlap invariant", c.Chunks[i].ChunkID, c.Chunks[i+1].ChunkID))
		}
	}

	return errors.Join(errs...)
}

func splitWords(s string) []string {
	var words []string
	start := -1
	for i, r := range s {
		if r == ' ' {
			if start >= 0 {
				words = append(words, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, s[start:])
	}
	return words
}

func equalTail(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
