// Package llm defines the Provider interface for Large Language Model
// backends that generate answers for committed questions.
//
// Implementations must be safe for concurrent use. Channels returned by
// StreamCompletion must be closed by the implementation when the stream ends
// or the supplied context is cancelled.
package llm

import "context"

// Message is a single turn in a conversation history.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// Usage holds token accounting reported by the backend. Counts are in the
// model's native token unit and may differ between providers for the same
// text.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the model needs to produce an answer.
// Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation history; the last message is
	// typically the committed question.
	Messages []Message

	// SystemPrompt is an optional instruction injected ahead of the history.
	SystemPrompt string

	// Temperature controls output randomness in [0.0, 2.0]. Zero means use
	// the provider default.
	Temperature float64

	// MaxTokens caps completion length. Zero means provider default.
	MaxTokens int
}

// Chunk is one fragment of a streaming completion.
type Chunk struct {
	// Text is the incremental content; may be empty on the final chunk.
	Text string

	// FinishReason is set on the final chunk ("stop", "length", "error").
	FinishReason string
}

// CompletionResponse is the full, non-streaming result.
type CompletionResponse struct {
	// Content is the complete assistant reply.
	Content string

	// Usage contains token accounting when the backend reports it.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Complete sends req and waits for the full response. Returns an error if
	// the request fails or ctx is cancelled first.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// StreamCompletion sends req and returns a channel emitting Chunk values
	// as they arrive. The channel is closed when generation finishes or ctx
	// is cancelled; callers must drain it. Errors after the stream opens are
	// surfaced as a Chunk with FinishReason "error".
	StreamCompletion(ctx context.Context, req CompletionRequest) (<-chan Chunk, error)
}
