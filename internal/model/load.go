package model

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mdonmez/autoso/internal/normalize"
)

// transcriptRecord mirrors the on-disk {user}_transcript.json entry shape.
type transcriptRecord struct {
	TranscriptIndex uint32 `json:"transcript_index"`
	TranscriptID    string `json:"transcript_id"`
	Transcript      string `json:"transcript"`
	EarlyForward    bool   `json:"early_forward"`
}

// chunkRecord mirrors the on-disk {user}_chunks.json entry shape.
type chunkRecord struct {
	ChunkIndex        uint32   `json:"chunk_index"`
	ChunkID           string   `json:"chunk_id"`
	SourceTranscripts []string `json:"source_transcripts"`
	Chunk             string   `json:"chunk"`
}

// Load reads transcriptPath and chunksPath, decodes them into a Corpus,
// validates the corpus invariants, and builds the lookup indexes and
// cached phonetic token forms. Returns an error (wrapping the validation
// failures via errors.Join) if either file is malformed or violates an
// invariant; configuration errors of this kind are fatal at session
// startup.
func Load(transcriptPath, chunksPath string) (*Corpus, error) {
	tf, err := os.Open(transcriptPath)
	if err != nil {
		return nil, fmt.Errorf("model: open transcript file: %w", err)
	}
	defer tf.Close()

	cf, err := os.Open(chunksPath)
	if err != nil {
		return nil, fmt.Errorf("model: open chunks file: %w", err)
	}
	defer cf.Close()

	return LoadFromReaders(tf, cf)
}

// LoadFromReaders is Load without the filesystem dependency, for tests and
// for embedding this loader behind other transport (e.g. a packaged asset).
func LoadFromReaders(transcriptR, chunksR io.Reader) (*Corpus, error) {
	var tRecs []transcriptRecord
	if err := json.NewDecoder(transcriptR).Decode(&tRecs); err != nil {
		return nil, fmt.Errorf("model: decode transcript json: %w", err)
	}
	var cRecs []chunkRecord
	if err := json.NewDecoder(chunksR).Decode(&cRecs); err != nil {
		return nil, fmt.Errorf("model: decode chunks json: %w", err)
	}

	transcripts := make([]TranscriptItem, len(tRecs))
	for i, r := range tRecs {
		transcripts[i] = TranscriptItem{
			TranscriptIndex: r.TranscriptIndex,
			TranscriptID:    r.TranscriptID,
			Text:            r.Transcript,
			EarlyForward:    r.EarlyForward,
		}
	}
	chunks := make([]Chunk, len(cRecs))
	for i, r := range cRecs {
		chunks[i] = Chunk{
			ChunkIndex:        r.ChunkIndex,
			ChunkID:           r.ChunkID,
			SourceTranscripts: r.SourceTranscripts,
			Text:              r.Chunk,
		}
	}

	corpus, err := NewCorpus(transcripts, chunks)
	if err != nil {
		return nil, err
	}
	if err := corpus.ValidateWindowing(); err != nil {
		return nil, fmt.Errorf("model: corpus windowing invariant violation: %w", err)
	}

	corpus.ChunkEmbeddings = make([][]float32, len(corpus.Chunks))
	corpus.ChunkTokens = make([][]string, len(corpus.Chunks))
	for i, ch := range corpus.Chunks {
		corpus.ChunkTokens[i] = strings.Fields(normalize.Text(ch.Text))
	}

	return corpus, nil
}
