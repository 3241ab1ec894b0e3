// Package embed computes embedding vectors for chunk texts and queries
// through an OpenAI-compatible provider.
package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrDimensionMismatch means the provider returned vectors whose length
// disagrees with the configured or previously observed dimensionality.
// Mixing dimensionalities would silently corrupt similarity scores, so
// this always fails fast.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ProviderError wraps a failed embedding-provider call.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding provider: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Embedder converts texts into fixed-length vectors. Stored chunks and
// queries must be embedded by the same provider/model configuration.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// documentEmbedder is the slice of langchaingo's embedder we use.
type documentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Provider is the production Embedder. It is constructed once at process
// start and injected wherever embeddings are needed.
type Provider struct {
	inner documentEmbedder

	mu   sync.Mutex
	dims int // 0 until configured or learned from the first response
}

// NewProvider builds a Provider against an OpenAI-compatible embeddings
// endpoint. expectedDims of 0 means the dimensionality is learned from
// the first response and enforced from then on.
func NewProvider(baseURL, apiKey, model string, expectedDims int) (*Provider, error) {
	llm, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(strings.TrimPrefix(apiKey, "Bearer ")),
		openai.WithModel(model),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("init embeddings llm: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	return &Provider{inner: embedder, dims: expectedDims}, nil
}

// EmbedTexts embeds one batch of chunk texts. The caller bounds batch
// size; this call is all-or-nothing.
func (p *Provider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var vectors [][]float32
	err := withRetry(ctx, func() error {
		var err error
		vectors, err = p.inner.EmbedDocuments(ctx, texts)
		return err
	})
	if err != nil {
		return nil, &ProviderError{Op: "embed documents", Err: err}
	}
	if len(vectors) != len(texts) {
		return nil, &ProviderError{
			Op:  "embed documents",
			Err: fmt.Errorf("expected %d vectors, got %d", len(texts), len(vectors)),
		}
	}
	if err := p.validate(vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (p *Provider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := withRetry(ctx, func() error {
		var err error
		vector, err = p.inner.EmbedQuery(ctx, text)
		return err
	})
	if err != nil {
		return nil, &ProviderError{Op: "embed query", Err: err}
	}
	if err := p.validate([][]float32{vector}); err != nil {
		return nil, err
	}
	return vector, nil
}

// validate enforces a single dimensionality across every vector this
// provider ever returns.
func (p *Provider) validate(vectors [][]float32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w: vector %d is empty", ErrDimensionMismatch, i)
		}
		if p.dims == 0 {
			p.dims = len(v)
			continue
		}
		if len(v) != p.dims {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(v), p.dims)
		}
	}
	return nil
}
