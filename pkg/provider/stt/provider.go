// Package stt defines the Transcriber interface for batch speech-to-text
// backends.
//
// The session loop works on fixed-duration audio chunks and needs exactly one
// operation from a transcription service: audio in, text out. Streaming
// providers with partial/final channels are deliberately out of scope — the
// overlap handling downstream (delta extraction) already tolerates backends
// that restate text across chunk boundaries.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"

	"github.com/earshot-ai/earshot/pkg/audio"
)

// Transcriber converts one audio chunk into text.
type Transcriber interface {
	// Transcribe sends chunk to the backend and returns the recognised text,
	// which may be empty for silent or unintelligible audio. Returns an error
	// only for transport or service failures; an empty transcription is not
	// an error.
	Transcribe(ctx context.Context, chunk audio.Chunk) (string, error)
}
