// Package session owns the live conversation loop: it consumes audio chunks,
// turns them into transcript deltas, detects question boundaries, and drives
// answer generation. Per-conversation state (history, transcript position,
// Q&A record) lives in [Session] values managed by a [Manager]; the [Runner]
// processes exactly one session at a time and switches between them on
// command.
package session

import (
	"sync"

	"github.com/earshot-ai/earshot/pkg/provider/llm"
)

// DefaultHistoryLimit bounds the conversation turns kept for prompting. The
// system prompt is supplied separately by the answer generator, so the limit
// covers user and assistant turns only.
const DefaultHistoryLimit = 49

// History is a bounded, thread-safe record of conversation turns. When the
// limit is exceeded the oldest turns fall off the front.
type History struct {
	mu       sync.Mutex
	limit    int
	messages []llm.Message
}

// NewHistory returns a History keeping at most limit turns;
// [DefaultHistoryLimit] when limit is not positive.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Append records one turn, trimming from the front when over the limit.
func (h *History) Append(role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, llm.Message{Role: role, Content: content})
	if len(h.messages) > h.limit {
		h.messages = h.messages[len(h.messages)-h.limit:]
	}
}

// Messages returns a copy of the recorded turns, oldest first.
func (h *History) Messages() []llm.Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]llm.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Replace swaps the full history, keeping only the newest turns when msgs
// exceeds the limit. Used when restoring an imported conversation.
func (h *History) Replace(msgs []llm.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(msgs) > h.limit {
		msgs = msgs[len(msgs)-h.limit:]
	}
	h.messages = make([]llm.Message, len(msgs))
	copy(h.messages, msgs)
}

// Len reports the number of recorded turns.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// Reset drops all turns.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}
