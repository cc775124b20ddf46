// Package fake provides a scripted llm.Provider for tests. Responses are
// dequeued in order; every request is recorded for later inspection.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/finsight/finsight/pkg/adapters/llm"
)

// Provider replays a fixed script of responses.
type Provider struct {
	mu        sync.Mutex
	responses []*llm.Response
	requests  []llm.Request
	err       error
}

// New returns a provider that will serve the given responses in order.
func New(responses ...*llm.Response) *Provider {
	return &Provider{responses: responses}
}

// NewError returns a provider whose Complete always fails with err.
func NewError(err error) *Provider {
	return &Provider{err: err}
}

func (p *Provider) Name() string { return "fake" }

func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.responses) == 0 {
		return nil, fmt.Errorf("fake: script exhausted after %d requests", len(p.requests))
	}
	res := p.responses[0]
	p.responses = p.responses[1:]
	return res, nil
}

// Requests returns a copy of every request seen so far.
func (p *Provider) Requests() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.Request, len(p.requests))
	copy(out, p.requests)
	return out
}

// Enqueue appends responses to the script.
func (p *Provider) Enqueue(responses ...*llm.Response) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, responses...)
}

// Text builds an end-turn response with the given text.
func Text(text string) *llm.Response {
	return &llm.Response{StopReason: llm.StopEndTurn, Text: text}
}

// ToolUse builds a tool-use response with the given calls.
func ToolUse(calls ...llm.ToolCall) *llm.Response {
	return &llm.Response{StopReason: llm.StopToolUse, ToolCalls: calls}
}

// Factory constructs an empty scripted provider. Tests normally construct
// Provider directly; the factory exists so "fake" resolves like any backend.
func Factory(ctx context.Context, cfg map[string]any) (llm.Provider, error) { // nolint: revive
	_, _ = ctx, cfg
	return New(), nil
}

func init() {
	_ = llm.Register("fake", Factory)
}
