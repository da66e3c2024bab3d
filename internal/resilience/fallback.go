package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/earshot-ai/earshot/pkg/audio"
	"github.com/earshot-ai/earshot/pkg/provider/llm"
	"github.com/earshot-ai/earshot/pkg/provider/stt"
)

// ErrAllBackendsFailed is returned when every backend in a fallback group
// fails or has an open breaker.
var ErrAllBackendsFailed = errors.New("resilience: all backends failed")

// backend pairs a provider value with its dedicated breaker.
type backend[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// group tries backends in registration order, skipping open breakers.
type group[T any] struct {
	backends []backend[T]
	breaker  BreakerConfig
	logger   *slog.Logger
}

func newGroup[T any](primary T, name string, breaker BreakerConfig) *group[T] {
	logger := breaker.Logger
	if logger == nil {
		logger = slog.Default()
	}
	g := &group[T]{breaker: breaker, logger: logger}
	g.add(name, primary)
	return g
}

func (g *group[T]) add(name string, value T) {
	cfg := g.breaker
	cfg.Name = name
	g.backends = append(g.backends, backend[T]{
		name:    name,
		value:   value,
		breaker: NewBreaker(cfg),
	})
}

// do runs fn against each backend until one succeeds. Declared as a function
// because methods cannot add type parameters.
func do[T, R any](g *group[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range g.backends {
		b := &g.backends[i]
		var result R
		err := b.breaker.Do(func() error {
			var innerErr error
			result, innerErr = fn(b.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrBreakerOpen) {
			g.logger.Debug("skipping backend, breaker open", "backend", b.name)
		} else {
			g.logger.Warn("backend failed, trying next", "backend", b.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllBackendsFailed, lastErr)
}

// TranscriberFallback implements [stt.Transcriber] with failover across
// multiple transcription backends, each behind its own breaker.
type TranscriberFallback struct {
	group *group[stt.Transcriber]
}

var _ stt.Transcriber = (*TranscriberFallback)(nil)

// NewTranscriberFallback builds a fallback with primary as the preferred
// backend.
func NewTranscriberFallback(primary stt.Transcriber, name string, breaker BreakerConfig) *TranscriberFallback {
	return &TranscriberFallback{group: newGroup(primary, name, breaker)}
}

// AddFallback registers an additional transcription backend, tried after the
// ones already registered.
func (f *TranscriberFallback) AddFallback(name string, t stt.Transcriber) {
	f.group.add(name, t)
}

// Transcribe implements stt.Transcriber.
func (f *TranscriberFallback) Transcribe(ctx context.Context, chunk audio.Chunk) (string, error) {
	return do(f.group, func(t stt.Transcriber) (string, error) {
		return t.Transcribe(ctx, chunk)
	})
}

// LLMFallback implements [llm.Provider] with failover across multiple
// completion backends.
type LLMFallback struct {
	group *group[llm.Provider]
}

var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback builds a fallback with primary as the preferred backend.
func NewLLMFallback(primary llm.Provider, name string, breaker BreakerConfig) *LLMFallback {
	return &LLMFallback{group: newGroup(primary, name, breaker)}
}

// AddFallback registers an additional completion backend.
func (f *LLMFallback) AddFallback(name string, p llm.Provider) {
	f.group.add(name, p)
}

// Complete implements llm.Provider.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return do(f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// StreamCompletion implements llm.Provider. Failover only covers stream
// establishment; errors mid-stream surface to the consumer.
func (f *LLMFallback) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.Chunk, error) {
	return do(f.group, func(p llm.Provider) (<-chan llm.Chunk, error) {
		return p.StreamCompletion(ctx, req)
	})
}
