package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// Ensure PGStore satisfies the Store interface.
var _ Store = (*PGStore)(nil)

// PGStore is a [Store] backed by a PostgreSQL table with a pgvector column,
// for knowledge that should survive restarts. Search uses cosine distance
// (`<=>`), so results order identically to [MemStore].
type PGStore struct {
	pool       *pgxpool.Pool
	dimensions int
}

// NewPGStore connects to dsn, ensures the pgvector extension and the chunk
// table exist, and returns a ready store. dimensions must match the
// embeddings provider that fills the store.
func NewPGStore(ctx context.Context, dsn string, dimensions int) (*PGStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("knowledge: dimensions %d must be positive", dimensions)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("knowledge: connect: %w", err)
	}

	s := &PGStore{pool: pool, dimensions: dimensions}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *PGStore) Close() {
	s.pool.Close()
}

func (s *PGStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS knowledge_chunks (
			id         UUID PRIMARY KEY,
			session_id TEXT NOT NULL DEFAULT '',
			source     TEXT NOT NULL DEFAULT '',
			content    TEXT NOT NULL,
			embedding  vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.dimensions),
		`CREATE INDEX IF NOT EXISTS knowledge_chunks_embedding_idx
			ON knowledge_chunks USING hnsw (embedding vector_cosine_ops)`,
		`CREATE INDEX IF NOT EXISTS knowledge_chunks_session_idx
			ON knowledge_chunks (session_id)`,
	}
	for _, q := range stmts {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("knowledge: ensure schema: %w", err)
		}
	}
	return nil
}

// Add implements [Store.Add].
func (s *PGStore) Add(ctx context.Context, chunks []Chunk) error {
	const q = `
		INSERT INTO knowledge_chunks (id, session_id, source, content, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
		    session_id = EXCLUDED.session_id,
		    source     = EXCLUDED.source,
		    content    = EXCLUDED.content,
		    embedding  = EXCLUDED.embedding,
		    created_at = EXCLUDED.created_at`

	for _, c := range chunks {
		if len(c.Embedding) != s.dimensions {
			return ErrDimensionMismatch
		}
		_, err := s.pool.Exec(ctx, q,
			c.ID, c.SessionID, c.Source, c.Content,
			pgvector.NewVector(c.Embedding), c.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("knowledge: add chunk %s: %w", c.ID, err)
		}
	}
	return nil
}

// Search implements [Store.Search]. Cosine distance is converted to
// similarity (1 - distance) so scores are comparable with [MemStore].
func (s *PGStore) Search(ctx context.Context, embedding []float32, topK int, sessionID string) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	if len(embedding) != s.dimensions {
		return nil, ErrDimensionMismatch
	}

	q := `
		SELECT content, source, embedding <=> $1 AS distance
		FROM   knowledge_chunks`
	args := []any{pgvector.NewVector(embedding)}
	if sessionID != "" {
		q += `
		WHERE  session_id = '' OR session_id = $2`
		args = append(args, sessionID)
	}
	args = append(args, topK)
	q += fmt.Sprintf(`
		ORDER  BY distance
		LIMIT  $%d`, len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("knowledge: search: %w", err)
	}

	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Match, error) {
		var (
			m        Match
			distance float64
		)
		if err := row.Scan(&m.Content, &m.Source, &distance); err != nil {
			return Match{}, err
		}
		m.Score = 1 - distance
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: scan rows: %w", err)
	}
	return matches, nil
}

// Sources implements [Store.Sources].
func (s *PGStore) Sources(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT source FROM knowledge_chunks WHERE source <> '' ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("knowledge: sources: %w", err)
	}
	sources, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("knowledge: scan sources: %w", err)
	}
	return sources, nil
}

// Count implements [Store.Count].
func (s *PGStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM knowledge_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("knowledge: count: %w", err)
	}
	return n, nil
}

// Clear implements [Store.Clear].
func (s *PGStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE knowledge_chunks`); err != nil {
		return fmt.Errorf("knowledge: clear: %w", err)
	}
	return nil
}
