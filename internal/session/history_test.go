package session

import (
	"fmt"
	"testing"

	"github.com/earshot-ai/earshot/pkg/provider/llm"
)

func TestHistoryAppendAndMessages(t *testing.T) {
	t.Parallel()

	h := NewHistory(10)
	h.Append("user", "What is your name?")
	h.Append("assistant", "Introduce yourself briefly.")

	msgs := h.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("unexpected roles: %+v", msgs)
	}
}

func TestHistoryTrimsOldestBeyondLimit(t *testing.T) {
	t.Parallel()

	h := NewHistory(3)
	for i := range 5 {
		h.Append("user", fmt.Sprintf("turn %d", i))
	}

	msgs := h.Messages()
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3", len(msgs))
	}
	if msgs[0].Content != "turn 2" || msgs[2].Content != "turn 4" {
		t.Errorf("wrong turns kept: %+v", msgs)
	}
}

func TestHistoryDefaultLimit(t *testing.T) {
	t.Parallel()

	h := NewHistory(0)
	for i := range DefaultHistoryLimit + 10 {
		h.Append("user", fmt.Sprintf("turn %d", i))
	}
	if h.Len() != DefaultHistoryLimit {
		t.Errorf("len = %d, want %d", h.Len(), DefaultHistoryLimit)
	}
}

func TestHistoryMessagesReturnsCopy(t *testing.T) {
	t.Parallel()

	h := NewHistory(10)
	h.Append("user", "original")

	msgs := h.Messages()
	msgs[0].Content = "mutated"

	if h.Messages()[0].Content != "original" {
		t.Error("mutating the returned slice changed stored history")
	}
}

func TestHistoryReplace(t *testing.T) {
	t.Parallel()

	h := NewHistory(2)
	h.Append("user", "old")

	h.Replace([]llm.Message{
		{Role: "user", Content: "a"},
		{Role: "assistant", Content: "b"},
		{Role: "user", Content: "c"},
	})

	msgs := h.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want limit 2", len(msgs))
	}
	if msgs[0].Content != "b" || msgs[1].Content != "c" {
		t.Errorf("wrong turns kept after Replace: %+v", msgs)
	}
}

func TestHistoryReset(t *testing.T) {
	t.Parallel()

	h := NewHistory(5)
	h.Append("user", "x")
	h.Reset()
	if h.Len() != 0 {
		t.Errorf("len = %d after Reset, want 0", h.Len())
	}
}
