package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/earshot-ai/earshot/internal/importer"
	"github.com/earshot-ai/earshot/internal/knowledge"
	embmock "github.com/earshot-ai/earshot/pkg/provider/embeddings/mock"
)

func testIngestor(t *testing.T) (*knowledge.Ingestor, *knowledge.MemStore) {
	t.Helper()
	store := knowledge.NewMemStore()
	return knowledge.NewIngestor(&embmock.Provider{}, store), store
}

func TestImportConversationsIngestsChunks(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auth/session", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"accessToken": "tok"})
	})
	mux.HandleFunc("GET /backend-api/conversations", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]string{{"id": "conv-1", "title": "Prep"}},
		})
	})
	mux.HandleFunc("GET /backend-api/conversation/conv-1", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"mapping": map[string]any{
				"node-a": map[string]any{"message": map[string]any{
					"author":      map[string]string{"role": "user"},
					"content":     map[string]any{"parts": []any{"What is context cancellation?"}},
					"create_time": 10,
				}},
				"node-b": map[string]any{"message": map[string]any{
					"author":      map[string]string{"role": "assistant"},
					"content":     map[string]any{"parts": []any{"A signal that work should stop."}},
					"create_time": 20,
				}},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := importer.NewClient("cookie",
		importer.WithBaseURL(srv.URL+"/backend-api"),
		importer.WithOrigin(srv.URL),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ingestor, store := testIngestor(t)

	if err := importConversations(context.Background(), client, 5, ingestor); err != nil {
		t.Fatalf("importConversations: %v", err)
	}

	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count == 0 {
		t.Fatal("no chunks ingested")
	}
	sources, err := store.Sources(context.Background())
	if err != nil {
		t.Fatalf("Sources: %v", err)
	}
	if !slices.Contains(sources, "chatgpt:Prep") {
		t.Errorf("sources = %v, want chatgpt:Prep", sources)
	}
}

func TestImportSharedLinksIngestsChunks(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /backend-api/share/abc123", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"title": "Pairing notes",
			"mapping": map[string]any{
				"node-a": map[string]any{"message": map[string]any{
					"author":      map[string]string{"role": "user"},
					"content":     map[string]any{"parts": []any{"How should we split this story?"}},
					"create_time": 10,
				}},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := importer.NewShareClient(importer.WithShareBaseURL(srv.URL))
	ingestor, store := testIngestor(t)

	// The second link is not a share URL and is skipped with a warning.
	links := []string{
		"https://chat.openai.com/share/abc123",
		"https://chat.openai.com/c/not-shared",
	}
	if err := importSharedLinks(context.Background(), client, links, ingestor); err != nil {
		t.Fatalf("importSharedLinks: %v", err)
	}

	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count == 0 {
		t.Fatal("no chunks ingested")
	}
	sources, err := store.Sources(context.Background())
	if err != nil {
		t.Fatalf("Sources: %v", err)
	}
	if !slices.Contains(sources, "chatgpt-share:Pairing notes") {
		t.Errorf("sources = %v, want chatgpt-share:Pairing notes", sources)
	}
}
