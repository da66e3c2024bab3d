// Package mock provides a deterministic embeddings.Provider for tests.
package mock

import (
	"context"
	"hash/fnv"

	"github.com/earshot-ai/earshot/pkg/provider/embeddings"
)

// Ensure Provider implements the embeddings.Provider interface.
var _ embeddings.Provider = (*Provider)(nil)

// Provider produces small deterministic vectors derived from the input text,
// so identical texts embed identically and similarity ordering is stable
// across test runs. When Vectors is set, texts found in the map use the fixed
// vector instead.
type Provider struct {
	// Dim is the vector length; defaults to 8 when zero.
	Dim int

	// Vectors overrides the derived embedding for specific texts.
	Vectors map[string][]float32

	// Err, when non-nil, is returned by every call.
	Err error
}

// Embed implements embeddings.Provider.
func (p *Provider) Embed(_ context.Context, text string) ([]float32, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.vector(text), nil
}

// EmbedBatch implements embeddings.Provider.
func (p *Provider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.vector(t)
	}
	return out, nil
}

// Dimensions implements embeddings.Provider.
func (p *Provider) Dimensions() int {
	if p.Dim <= 0 {
		return 8
	}
	return p.Dim
}

func (p *Provider) vector(text string) []float32 {
	if v, ok := p.Vectors[text]; ok {
		return v
	}
	dim := p.Dimensions()
	out := make([]float32, dim)
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()
	for i := range out {
		seed = seed*1664525 + 1013904223
		out[i] = float32(seed%1000)/1000 - 0.5
	}
	return out
}
