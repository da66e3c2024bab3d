package knowledge

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/earshot-ai/earshot/pkg/provider/embeddings"
)

// Ingestor reads reference documents, chunks them, embeds the chunks, and
// writes them to a [Store].
type Ingestor struct {
	embedder     embeddings.Provider
	store        Store
	logger       *slog.Logger
	chunkLength  int
	chunkOverlap int
}

// IngestorOption configures an [Ingestor].
type IngestorOption func(*Ingestor)

// WithChunking overrides the default chunk geometry.
func WithChunking(length, overlap int) IngestorOption {
	return func(i *Ingestor) {
		i.chunkLength = length
		i.chunkOverlap = overlap
	}
}

// WithIngestLogger sets the logger used for per-file progress.
func WithIngestLogger(logger *slog.Logger) IngestorOption {
	return func(i *Ingestor) {
		i.logger = logger
	}
}

// NewIngestor returns an Ingestor writing to store via embedder.
func NewIngestor(embedder embeddings.Provider, store Store, opts ...IngestorOption) *Ingestor {
	i := &Ingestor{
		embedder:     embedder,
		store:        store,
		logger:       slog.Default(),
		chunkLength:  DefaultChunkLength,
		chunkOverlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IngestFiles loads every readable path, chunks and embeds its text, and adds
// the chunks to the store under sessionID (empty for shared knowledge).
// Unreadable or empty files are skipped with a warning. Returns the number of
// chunks added.
func (i *Ingestor) IngestFiles(ctx context.Context, sessionID string, paths []string) (int, error) {
	var (
		texts   []string
		sources []string
	)
	for _, path := range paths {
		text, err := readDocument(path)
		if err != nil {
			i.logger.WarnContext(ctx, "skipping unreadable document", "path", path, "error", err)
			continue
		}
		for _, chunk := range ChunkText(text, i.chunkLength, i.chunkOverlap) {
			texts = append(texts, chunk)
			sources = append(sources, path)
		}
	}
	return i.ingest(ctx, sessionID, texts, sources)
}

// IngestText chunks and embeds raw text under the given source label. Used
// for imported conversations that never exist as files on disk.
func (i *Ingestor) IngestText(ctx context.Context, sessionID, source, text string) (int, error) {
	chunks := ChunkText(text, i.chunkLength, i.chunkOverlap)
	sources := make([]string, len(chunks))
	for n := range sources {
		sources[n] = source
	}
	return i.ingest(ctx, sessionID, chunks, sources)
}

func (i *Ingestor) ingest(ctx context.Context, sessionID string, texts, sources []string) (int, error) {
	if len(texts) == 0 {
		return 0, nil
	}

	vectors, err := i.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("knowledge: embed %d chunks: %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("knowledge: embedder returned %d vectors for %d chunks", len(vectors), len(texts))
	}

	now := time.Now().UTC()
	chunks := make([]Chunk, len(texts))
	for n := range texts {
		chunks[n] = Chunk{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Source:    sources[n],
			Content:   texts[n],
			Embedding: vectors[n],
			CreatedAt: now,
		}
	}
	if err := i.store.Add(ctx, chunks); err != nil {
		return 0, fmt.Errorf("knowledge: store chunks: %w", err)
	}

	i.logger.InfoContext(ctx, "ingested knowledge chunks",
		"chunks", len(chunks), "session_id", sessionID)
	return len(chunks), nil
}

// readDocument extracts plain text from a document. Markdown and plain text
// are read as-is; PDFs go through the pdf parser. Other extensions yield an
// error so callers can surface unsupported files.
func readDocument(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case ".pdf":
		return readPDF(path)
	default:
		return "", fmt.Errorf("unsupported document type %q", filepath.Ext(path))
	}
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}
