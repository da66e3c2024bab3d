// Package mock provides a scriptable stt.Transcriber for tests.
package mock

import (
	"context"
	"sync"

	"github.com/earshot-ai/earshot/pkg/audio"
	"github.com/earshot-ai/earshot/pkg/provider/stt"
)

// Ensure Transcriber implements the stt.Transcriber interface.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcriber returns scripted results in order, then falls back to
// FallbackText. All fields must be set before first use; the call log is
// guarded for concurrent reads.
type Transcriber struct {
	// Results are returned one per call, in order.
	Results []string

	// FallbackText is returned once Results is exhausted.
	FallbackText string

	// Err, when non-nil, is returned by every call.
	Err error

	mu    sync.Mutex
	calls int
}

// Transcribe implements stt.Transcriber.
func (t *Transcriber) Transcribe(_ context.Context, _ audio.Chunk) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Err != nil {
		return "", t.Err
	}
	if t.calls < len(t.Results) {
		text := t.Results[t.calls]
		t.calls++
		return text, nil
	}
	t.calls++
	return t.FallbackText, nil
}

// Calls reports how many times Transcribe was invoked.
func (t *Transcriber) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
