// Package knowledge implements the retrieval store that grounds generated
// answers: user-supplied documents and imported conversations are chunked,
// embedded, and searched by cosine similarity against the committed question.
//
// Two [Store] implementations are provided — [MemStore] for single-process
// use and [PGStore] backed by PostgreSQL with the pgvector extension for
// knowledge that persists across runs. Both are safe for concurrent use.
package knowledge

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrDimensionMismatch is returned when a chunk or query embedding does not
// match the store's configured vector length.
var ErrDimensionMismatch = errors.New("knowledge: embedding dimension mismatch")

// Chunk is one embedded fragment of reference material.
type Chunk struct {
	// ID uniquely identifies the chunk (a UUID).
	ID string

	// SessionID scopes the chunk to one conversation session. Empty means
	// the chunk is shared across sessions (e.g., an uploaded document).
	SessionID string

	// Source names where the chunk came from (file path, import title).
	Source string

	// Content is the chunk text.
	Content string

	// Embedding is the vector representation of Content.
	Embedding []float32

	// CreatedAt records when the chunk was ingested.
	CreatedAt time.Time
}

// Match is one search result, most similar first.
type Match struct {
	Content string
	Source  string

	// Score is cosine similarity in [-1, 1]; higher is more similar.
	Score float64
}

// Store holds embedded chunks and answers top-K similarity queries.
type Store interface {
	// Add inserts pre-embedded chunks. Chunks with an already-present ID are
	// replaced.
	Add(ctx context.Context, chunks []Chunk) error

	// Search returns up to topK chunks most similar to the query embedding,
	// ordered by descending similarity. A non-empty sessionID restricts
	// results to chunks of that session or shared chunks.
	Search(ctx context.Context, embedding []float32, topK int, sessionID string) ([]Match, error)

	// Sources lists the distinct chunk sources, sorted.
	Sources(ctx context.Context) ([]string, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Clear removes all chunks.
	Clear(ctx context.Context) error
}

// cosineSimilarity computes the cosine of the angle between a and b,
// clamping the denominator to avoid division by zero for degenerate vectors.
func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	denom := math.Sqrt(na) * math.Sqrt(nb)
	if denom < 1e-12 {
		denom = 1e-12
	}
	return dot / denom
}
