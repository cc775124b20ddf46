package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/finsight/finsight/pkg/adapters/llm"
	"github.com/finsight/finsight/pkg/errmodel"
)

const (
	defaultMaxIterations = 10
	defaultMaxTokens     = 4096

	fallbackMessage = "I encountered an unexpected issue. Please try again."
	maxStepsMessage = "I've reached the maximum number of analysis steps. Please try rephrasing your question or breaking it into smaller requests."
	timeoutMessage  = "The request timed out. Please try again."
)

// Config assembles an Agent.
type Config struct {
	Provider llm.Provider
	Registry *Registry
	// System is the fixed system instruction resent on every request.
	System string
	// Model overrides the provider default when non-empty.
	Model string
	// MaxIterations caps completion rounds per Run call (default 10).
	MaxIterations int
	// MaxTokens caps completion output size (default 4096).
	MaxTokens int
	// Timeout bounds each completion request; zero means no deadline.
	Timeout time.Duration
	// EstimateTokens, when set, is used to log the approximate prompt size
	// per request. Never used to drop turns.
	EstimateTokens func(string) int
	Log            *slog.Logger
}

// Agent drives the tool-calling loop. One Run at a time: the conversation is
// single shared state, so concurrent Run calls on the same Agent are
// serialized by a mutex.
type Agent struct {
	mu         sync.Mutex
	provider   llm.Provider
	registry   *Registry
	dispatcher *Dispatcher
	conv       Conversation
	cfg        Config
	log        *slog.Logger
	tracer     trace.Tracer
}

// New constructs an Agent. The provider and registry are required.
func New(cfg Config) (*Agent, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("agent: nil completion provider")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("agent: nil registry")
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Agent{
		provider:   cfg.Provider,
		registry:   cfg.Registry,
		dispatcher: NewDispatcher(cfg.Registry, log),
		cfg:        cfg,
		log:        log,
		tracer:     otel.Tracer("finsight/agent"),
	}, nil
}

// Run processes one user message and returns the agent's answer. The return
// value is always plain text: provider failures, timeouts, and the iteration
// cap all surface as user-facing strings, never as errors. The conversation
// keeps every fully completed turn even when a run terminates early, so a
// later Run continues where this one stopped.
func (a *Agent) Run(ctx context.Context, userMessage string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, span := a.tracer.Start(ctx, "agent.run")
	defer span.End()

	a.conv.appendUser(userMessage)

	definitions := a.registry.Definitions()
	for iteration := 1; iteration <= a.cfg.MaxIterations; iteration++ {
		a.log.Info("agent iteration", "iteration", iteration, "max", a.cfg.MaxIterations)

		resp, err := a.complete(ctx, definitions)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				span.SetAttributes(attribute.String("outcome", errmodel.CodeTimeout))
				a.log.Error("completion timed out", "iteration", iteration)
				return timeoutMessage
			}
			span.SetAttributes(attribute.String("outcome", errmodel.CodeProviderError))
			a.log.Error("completion failed", "iteration", iteration, "error", err)
			return fmt.Sprintf("API Error: %v", errmodel.Provider(err.Error()).Message)
		}

		switch resp.StopReason {
		case llm.StopToolUse:
			a.conv.appendToolRequests(resp.Text, resp.ToolCalls)
			a.conv.appendToolResults(a.dispatch(ctx, resp.ToolCalls))

		case llm.StopEndTurn:
			a.conv.appendAssistant(resp.Text)
			span.SetAttributes(attribute.String("outcome", "done"))
			return resp.Text

		default:
			// Not a state the model actually produced; keep it out of the
			// history.
			a.log.Warn("unexpected stop reason", "stop_reason", resp.StopReason)
			span.SetAttributes(attribute.String("outcome", "aborted"))
			return fallbackMessage
		}
	}

	span.SetAttributes(attribute.String("outcome", errmodel.CodeMaxIterations))
	a.log.Warn("iteration cap reached", "max", a.cfg.MaxIterations)
	return maxStepsMessage
}

// complete issues one completion request, bounded by the configured timeout.
func (a *Agent) complete(ctx context.Context, definitions []llm.ToolDefinition) (*llm.Response, error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}
	req := llm.Request{
		System:    a.cfg.System,
		Model:     a.cfg.Model,
		MaxTokens: a.cfg.MaxTokens,
		Tools:     definitions,
		Messages:  a.conv.Messages(),
	}
	if a.cfg.EstimateTokens != nil {
		total := 0
		for _, m := range req.Messages {
			total += a.cfg.EstimateTokens(m.Content)
		}
		a.log.Debug("prompt size", "messages", len(req.Messages), "approx_tokens", total)
	}
	resp, err := a.provider.Complete(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, context.DeadlineExceeded
		}
		return nil, err
	}
	return resp, nil
}

// dispatch resolves a batch of tool calls in request order, producing exactly
// one result per request ID. Failures are encoded in the result payload, so
// the batch always resolves fully.
func (a *Agent) dispatch(ctx context.Context, calls []llm.ToolCall) []llm.ToolResult {
	results := make([]llm.ToolResult, 0, len(calls))
	for _, call := range calls {
		var outcome Outcome
		var args map[string]any
		if len(call.Arguments) > 0 {
			if err := json.Unmarshal(call.Arguments, &args); err != nil {
				outcome = Outcome{Err: errmodel.InvalidArguments(call.Name, "arguments are not a JSON object: "+err.Error())}
			}
		}
		if outcome.Err == nil {
			outcome = a.dispatcher.Invoke(ctx, call.Name, args)
		}
		results = append(results, llm.ToolResult{
			CallID:  call.ID,
			Name:    call.Name,
			Content: a.dispatcher.Render(outcome),
			IsError: outcome.IsError(),
		})
	}
	return results
}

// Reset clears the conversation. Idempotent.
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.conv.reset()
}

// SummaryInfo is a read-only snapshot of the conversation.
type SummaryInfo struct {
	TurnCount int
	Turns     []Turn
}

// Summary returns the turn count and a copy of the turns.
func (a *Agent) Summary() SummaryInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return SummaryInfo{TurnCount: a.conv.Len(), Turns: a.conv.Turns()}
}
