// Package embed defines the embedder capability injected into SpeechMatcher
// for semantic scoring: a single method that turns normalized text into a
// dense vector. The pipeline treats the embedding model as an injected
// capability, never a concrete dependency.
package embed

import "context"

// Provider embeds text into a fixed-dimension dense vector.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Embed returns the embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds multiple texts in one call, for bulk precomputation
	// of chunk embeddings at session start. The returned slice has the same
	// length and order as texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed embedding dimension this provider
	// produces.
	Dimensions() int

	// ModelID returns an identifier for the underlying embedding model, used
	// in logs and diagnostics.
	ModelID() string
}
