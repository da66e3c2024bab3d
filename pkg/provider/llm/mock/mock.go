// Package mock provides a scriptable llm.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/earshot-ai/earshot/pkg/provider/llm"
)

// Ensure Provider implements the llm.Provider interface.
var _ llm.Provider = (*Provider)(nil)

// Provider returns a fixed response and records every request it receives.
type Provider struct {
	// Response is returned by Complete and, split into one chunk, by
	// StreamCompletion.
	Response string

	// Err, when non-nil, is returned by every call.
	Err error

	mu       sync.Mutex
	requests []llm.CompletionRequest
}

// Complete implements llm.Provider.
func (p *Provider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.record(req)
	if p.Err != nil {
		return nil, p.Err
	}
	return &llm.CompletionResponse{Content: p.Response}, nil
}

// StreamCompletion implements llm.Provider.
func (p *Provider) StreamCompletion(_ context.Context, req llm.CompletionRequest) (<-chan llm.Chunk, error) {
	p.record(req)
	if p.Err != nil {
		return nil, p.Err
	}
	ch := make(chan llm.Chunk, 2)
	ch <- llm.Chunk{Text: p.Response}
	ch <- llm.Chunk{FinishReason: "stop"}
	close(ch)
	return ch, nil
}

// Requests returns a copy of all recorded requests.
func (p *Provider) Requests() []llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.CompletionRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

func (p *Provider) record(req llm.CompletionRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
}
