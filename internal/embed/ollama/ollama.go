// Package ollama implements embed.Provider against a local Ollama server's
// /api/embed endpoint.
//
// A presentation session uses the embedder in two distinct ways: one bulk
// pass over every corpus chunk at session start, and short query embeds on
// the navigation hot path. EmbedBatch therefore pages large inputs into
// bounded requests, and every request asks Ollama to keep the model
// resident so a query issued mid-talk never pays a model cold load.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mdonmez/autoso/internal/embed"
)

// DefaultBaseURL is where a locally running Ollama listens.
const DefaultBaseURL = "http://localhost:11434"

// defaultKeepAlive holds the embedding model in server memory between
// requests. Talks have long stretches where nothing is embedded; an
// unloaded model would add seconds to the next partial's match.
const defaultKeepAlive = "30m"

// maxBatchSize bounds how many texts go into one /api/embed request
// during the corpus precompute pass.
const maxBatchSize = 64

// modelDims maps embedding model families (the name before any ":tag") to
// their output dimension. Unknown families are learned from the first
// response instead.
var modelDims = map[string]int{
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"snowflake-arctic-embed": 1024,
}

var _ embed.Provider = (*Provider)(nil)

// Config configures a Provider. Zero values get usable defaults.
type Config struct {
	// BaseURL of the Ollama server; DefaultBaseURL if empty.
	BaseURL string

	// Model is the Ollama embedding model name, e.g. "nomic-embed-text".
	// Required.
	Model string

	// Dimensions overrides dimension resolution when non-zero.
	Dimensions int

	// KeepAlive is passed to Ollama on every request, in Ollama's duration
	// syntax (e.g. "30m", "-1" for forever). defaultKeepAlive if empty.
	KeepAlive string

	// Timeout bounds each HTTP request; 0 means no timeout.
	Timeout time.Duration
}

// Provider talks to one Ollama server. Safe for concurrent use.
type Provider struct {
	client    *http.Client
	endpoint  string
	model     string
	keepAlive string

	mu   sync.Mutex
	dims int
}

// New validates cfg and returns a ready Provider. No request is issued
// until the first embed call, so constructing a Provider before the
// Ollama server is up is fine.
func New(cfg Config) (*Provider, error) {
	if cfg.Model == "" {
		return nil, errors.New("embed/ollama: model must not be empty")
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	keepAlive := cfg.KeepAlive
	if keepAlive == "" {
		keepAlive = defaultKeepAlive
	}

	p := &Provider{
		client:    &http.Client{Timeout: cfg.Timeout},
		endpoint:  strings.TrimRight(base, "/") + "/api/embed",
		model:     cfg.Model,
		keepAlive: keepAlive,
		dims:      cfg.Dimensions,
	}
	if p.dims == 0 {
		family, _, _ := strings.Cut(cfg.Model, ":")
		p.dims = modelDims[family]
	}
	return p, nil
}

// apiRequest and apiResponse mirror Ollama's /api/embed wire shape.
type apiRequest struct {
	Model     string   `json:"model"`
	Input     []string `json:"input"`
	KeepAlive string   `json:"keep_alive,omitempty"`
}

type apiResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// Embed returns the vector for one normalized query string.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.post(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in request pages of at most maxBatchSize,
// preserving input order. This is the chunk-corpus precompute path: a
// full talk's corpus can run to thousands of chunks, and one giant
// request would hit body-size limits and give no progress granularity.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := min(start+maxBatchSize, len(texts))
		vecs, err := p.post(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d..%d: %w", start, end-1, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// Dimensions returns the provider's vector length: the configured value,
// the model-family table, or the length observed on the first successful
// embed. 0 until one of those has resolved.
func (p *Provider) Dimensions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dims
}

// ModelID returns the Ollama model name supplied at construction.
func (p *Provider) ModelID() string { return p.model }

// post issues one /api/embed request and validates the response shape.
func (p *Provider) post(ctx context.Context, input []string) ([][]float32, error) {
	body, err := json.Marshal(apiRequest{Model: p.model, Input: input, KeepAlive: p.keepAlive})
	if err != nil {
		return nil, fmt.Errorf("embed/ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embed/ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed/ollama: %w", err)
	}
	defer resp.Body.Close()

	// Ollama reports failures as {"error": "..."} bodies; decode before
	// checking the status so the server's own message survives.
	var decoded apiResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&decoded)
	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && decoded.Error != "" {
			return nil, fmt.Errorf("embed/ollama: server: %s", decoded.Error)
		}
		return nil, fmt.Errorf("embed/ollama: unexpected status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("embed/ollama: decode response: %w", decodeErr)
	}
	if len(decoded.Embeddings) != len(input) {
		return nil, fmt.Errorf("embed/ollama: got %d embeddings for %d inputs", len(decoded.Embeddings), len(input))
	}

	p.observeDims(decoded.Embeddings[0])
	return decoded.Embeddings, nil
}

// observeDims learns the model's dimension from a live response when it
// was neither configured nor in the model-family table.
func (p *Provider) observeDims(vec []float32) {
	p.mu.Lock()
	if p.dims == 0 {
		p.dims = len(vec)
	}
	p.mu.Unlock()
}
