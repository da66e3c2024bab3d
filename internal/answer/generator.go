// Package answer turns a committed question into an assistant reply.
//
// The [Generator] grounds each reply in two inputs: the running conversation
// history and the top knowledge-store matches for the question. Retrieval and
// the store-emptiness check run concurrently; the LLM call happens once the
// reference material is assembled.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/earshot-ai/earshot/internal/knowledge"
	"github.com/earshot-ai/earshot/pkg/provider/embeddings"
	"github.com/earshot-ai/earshot/pkg/provider/llm"
)

// DefaultSystemPrompt steers the assistant toward short, grounded replies.
const DefaultSystemPrompt = "You are a concise, helpful real-time assistant that listens to a conversation " +
	"and surfaces relevant facts, answers questions, and suggests follow-up ideas " +
	"without overwhelming the user. Focus on interview preparation, offering " +
	"specific, actionable feedback and examples grounded in the provided knowledge " +
	"base."

const (
	// DefaultTopK is the number of knowledge matches included per answer.
	DefaultTopK = 4

	// defaultTemperature keeps replies factual rather than creative.
	defaultTemperature = 0.3
)

const referencePreamble = "In your next reply, prioritize the following reference material. " +
	"Ground your answer in these notes when relevant, mention " +
	"specific examples, and keep the advice practical."

// Option configures a [Generator].
type Option func(*Generator)

// WithTopK sets how many knowledge matches are retrieved per question.
func WithTopK(k int) Option {
	return func(g *Generator) { g.topK = k }
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) Option {
	return func(g *Generator) { g.temperature = t }
}

// WithMaxTokens caps the reply length. Zero means provider default.
func WithMaxTokens(n int) Option {
	return func(g *Generator) { g.maxTokens = n }
}

// WithSystemPrompt replaces [DefaultSystemPrompt].
func WithSystemPrompt(prompt string) Option {
	return func(g *Generator) { g.systemPrompt = prompt }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// Generator produces grounded replies to committed questions. It is safe for
// concurrent use, though the session loop calls it from a single goroutine.
type Generator struct {
	llm          llm.Provider
	embedder     embeddings.Provider
	store        knowledge.Store
	topK         int
	temperature  float64
	maxTokens    int
	systemPrompt string
	logger       *slog.Logger
}

// NewGenerator builds a Generator. store may be nil when no knowledge base is
// configured; replies then rely on conversation history alone.
func NewGenerator(provider llm.Provider, embedder embeddings.Provider, store knowledge.Store, opts ...Option) *Generator {
	g := &Generator{
		llm:          provider,
		embedder:     embedder,
		store:        store,
		topK:         DefaultTopK,
		temperature:  defaultTemperature,
		systemPrompt: DefaultSystemPrompt,
		logger:       slog.Default(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate answers question in the context of history and any retrieved
// knowledge. history holds the prior user and assistant turns; question is
// appended as the final user message. The reply comes back trimmed and may be
// empty when the model returns nothing.
func (g *Generator) Generate(ctx context.Context, sessionID string, history []llm.Message, question string) (string, error) {
	matches, err := g.Retrieve(ctx, sessionID, question)
	if err != nil {
		return "", err
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: question})
	if block := referenceBlock(matches); block != "" {
		messages = append(messages, llm.Message{Role: "system", Content: block})
	}

	resp, err := g.llm.Complete(ctx, llm.CompletionRequest{
		Messages:     messages,
		SystemPrompt: g.systemPrompt,
		Temperature:  g.temperature,
		MaxTokens:    g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("answer: completion: %w", err)
	}

	reply := strings.TrimSpace(resp.Content)
	g.logger.DebugContext(ctx, "generated answer",
		"session_id", sessionID, "references", len(matches), "reply_chars", len(reply))
	return reply, nil
}

// Retrieve returns the top knowledge matches for question, scoped to
// sessionID. The question embedding and the store-emptiness check run in
// parallel; an empty store skips the search entirely.
func (g *Generator) Retrieve(ctx context.Context, sessionID, question string) ([]knowledge.Match, error) {
	question = strings.TrimSpace(question)
	if g.store == nil || question == "" {
		return nil, nil
	}

	var (
		queryVector []float32
		stored      int
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		v, err := g.embedder.Embed(egCtx, question)
		if err != nil {
			return fmt.Errorf("answer: embed question: %w", err)
		}
		queryVector = v
		return nil
	})
	eg.Go(func() error {
		n, err := g.store.Count(egCtx)
		if err != nil {
			return fmt.Errorf("answer: count knowledge: %w", err)
		}
		stored = n
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if stored == 0 {
		return nil, nil
	}

	matches, err := g.store.Search(ctx, queryVector, g.topK, sessionID)
	if err != nil {
		return nil, fmt.Errorf("answer: search knowledge: %w", err)
	}
	return matches, nil
}

// referenceBlock formats matches as a numbered reference list, or returns ""
// when there is nothing to cite.
func referenceBlock(matches []knowledge.Match) string {
	var snippets []string
	for i, m := range matches {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		snippets = append(snippets, fmt.Sprintf("Reference %d:\n%s", i+1, content))
	}
	if len(snippets) == 0 {
		return ""
	}
	return referencePreamble + "\n\n" + strings.Join(snippets, "\n\n")
}
