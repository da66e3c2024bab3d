package knowledge

import (
	"context"
	"slices"
	"sort"
	"sync"
)

// Ensure MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store]. It is the
// default backend when no database is configured and is also used in tests.
type MemStore struct {
	mu     sync.RWMutex
	chunks map[string]Chunk
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{chunks: make(map[string]Chunk)}
}

// Add implements [Store.Add].
func (s *MemStore) Add(_ context.Context, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		s.chunks[c.ID] = c
	}
	return nil
}

// Search implements [Store.Search]. Similarity is computed against every
// stored chunk; fine for the store sizes a single session produces.
func (s *MemStore) Search(_ context.Context, embedding []float32, topK int, sessionID string) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	scored := make([]Match, 0, len(s.chunks))
	for _, c := range s.chunks {
		if sessionID != "" && c.SessionID != "" && c.SessionID != sessionID {
			continue
		}
		if len(c.Embedding) != len(embedding) {
			s.mu.RUnlock()
			return nil, ErrDimensionMismatch
		}
		scored = append(scored, Match{
			Content: c.Content,
			Source:  c.Source,
			Score:   cosineSimilarity(embedding, c.Embedding),
		})
	}
	s.mu.RUnlock()

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// Sources implements [Store.Sources].
func (s *MemStore) Sources(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, c := range s.chunks {
		if c.Source != "" {
			seen[c.Source] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for src := range seen {
		out = append(out, src)
	}
	slices.Sort(out)
	return out, nil
}

// Count implements [Store.Count].
func (s *MemStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// Clear implements [Store.Clear].
func (s *MemStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = make(map[string]Chunk)
	return nil
}
