// Package llm defines a provider-agnostic chat-completion interface with tool
// calling, plus a factory registry for concrete providers.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// StopReason is the provider's signal for why generation stopped.
type StopReason string

const (
	// StopToolUse means the model wants one or more tools invoked.
	StopToolUse StopReason = "tool_use"
	// StopEndTurn means the model produced a final answer.
	StopEndTurn StopReason = "end_turn"
	// StopOther covers any unrecognized provider stop reason.
	StopOther StopReason = "other"
)

// ToolCall represents a single tool invocation requested by the model.
type ToolCall struct {
	// ID is assigned by the provider and unique within the response.
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolResult carries the outcome of one tool call back to the model. Name
// repeats the capability name; some backends correlate results by name rather
// than call ID.
type ToolResult struct {
	CallID  string
	Name    string
	Content string
	IsError bool
}

// Message is a provider-agnostic conversation entry.
//
// Role is one of "user", "assistant", or "tool". Assistant messages may carry
// tool calls alongside narration text; tool messages carry a batch of results
// correlated to a prior assistant message's calls.
type Message struct {
	Role        string
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// ToolDefinition is the wire-level description of a capability offered to the
// model: a name, guidance text, and a JSON schema for its input object.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema []byte
}

// Request is a single completion request.
type Request struct {
	// System is the fixed system instruction, resent on every request.
	System string
	// Model may be empty to use the provider's default.
	Model     string
	MaxTokens int
	Tools     []ToolDefinition
	Messages  []Message
}

// Response is the provider's reply, normalized across backends.
type Response struct {
	StopReason StopReason
	// Text is the concatenation of all text fragments, in order.
	Text string
	// ToolCalls is non-empty iff StopReason is StopToolUse.
	ToolCalls []ToolCall
}

// Provider abstracts a chat-completion backend so the agent loop can work
// with any LLM service. Complete blocks for the duration of the network round
// trip and must honor ctx cancellation.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Factory constructs a Provider from provider-specific config. Factories must
// validate credentials and fail fast before any network call is attempted.
type Factory func(ctx context.Context, cfg map[string]any) (Provider, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers a Provider factory under a provider name.
func Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("llm: empty provider name")
	}
	if f == nil {
		return fmt.Errorf("llm: nil factory for %q", name)
	}
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := factories[name]; exists {
		return fmt.Errorf("llm: provider %q already registered", name)
	}
	factories[name] = f
	return nil
}

// Resolve gets a registered factory by name.
func Resolve(name string) (Factory, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// Range iterates all registered factories.
func Range(fn func(name string, f Factory)) {
	regMu.RLock()
	defer regMu.RUnlock()
	for n, f := range factories {
		fn(n, f)
	}
}
