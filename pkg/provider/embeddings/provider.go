// Package embeddings defines the Provider interface for text-embedding
// backends used by the knowledge store for similarity retrieval.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Provider maps text to dense float32 vectors. All vectors produced by one
// Provider instance share the dimensionality reported by Dimensions; vectors
// from different instances must not be mixed in one similarity computation.
type Provider interface {
	// Embed computes the embedding for a single text. The returned slice has
	// length Dimensions().
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds several texts in one backend call. The result is
	// index-aligned with texts; on error no partial results are returned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed vector length produced by this provider.
	Dimensions() int
}
