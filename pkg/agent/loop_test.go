package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/finsight/finsight/pkg/adapters/llm"
	llmfake "github.com/finsight/finsight/pkg/adapters/llm/fake"
	"github.com/finsight/finsight/pkg/errmodel"
)

func newTestAgent(t *testing.T, p llm.Provider, cfg Config) *Agent {
	t.Helper()
	if cfg.Registry == nil {
		r := NewRegistry()
		r.MustRegister(echoTool("echo"))
		cfg.Registry = r
	}
	cfg.Provider = p
	cfg.System = "You are a test assistant."
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestRunPlainAnswer(t *testing.T) {
	p := llmfake.New(llmfake.Text("AAPL closed at $232.50."))
	a := newTestAgent(t, p, Config{})

	got := a.Run(context.Background(), "What did AAPL close at?")
	if got != "AAPL closed at $232.50." {
		t.Fatalf("answer = %q", got)
	}

	s := a.Summary()
	if s.TurnCount != 2 {
		t.Fatalf("turn count = %d, want 2", s.TurnCount)
	}
	if s.Turns[0].Kind != TurnUser || s.Turns[1].Kind != TurnAssistant {
		t.Fatalf("turn kinds = %v, %v", s.Turns[0].Kind, s.Turns[1].Kind)
	}
}

func TestRunToolRoundInOrder(t *testing.T) {
	p := llmfake.New(
		llmfake.ToolUse(
			llm.ToolCall{ID: "call-1", Name: "echo", Arguments: json.RawMessage(`{"ticker":"AAPL"}`)},
			llm.ToolCall{ID: "call-2", Name: "no_such_tool", Arguments: json.RawMessage(`{}`)},
			llm.ToolCall{ID: "call-3", Name: "echo", Arguments: json.RawMessage(`{"ticker":"MSFT"}`)},
		),
		llmfake.Text("Done."),
	)
	a := newTestAgent(t, p, Config{})

	got := a.Run(context.Background(), "Compare AAPL and MSFT.")
	if got != "Done." {
		t.Fatalf("answer = %q", got)
	}

	s := a.Summary()
	if s.TurnCount != 4 {
		t.Fatalf("turn count = %d, want 4", s.TurnCount)
	}
	results := s.Turns[2]
	if results.Kind != TurnToolResults || len(results.Results) != 3 {
		t.Fatalf("results turn = %+v", results)
	}
	for i, id := range []string{"call-1", "call-2", "call-3"} {
		if results.Results[i].CallID != id {
			t.Fatalf("result %d has CallID %q, want %q", i, results.Results[i].CallID, id)
		}
	}
	if results.Results[0].IsError || results.Results[2].IsError {
		t.Fatal("successful calls marked as errors")
	}
	if !results.Results[1].IsError {
		t.Fatal("unknown capability not marked as error")
	}
	if !strings.Contains(results.Results[1].Content, errmodel.CodeUnknownCapability) {
		t.Fatalf("error payload %q missing code", results.Results[1].Content)
	}
}

func TestRunPreservesNarration(t *testing.T) {
	p := llmfake.New(
		&llm.Response{
			StopReason: llm.StopToolUse,
			Text:       "Let me look that up.",
			ToolCalls:  []llm.ToolCall{{ID: "c1", Name: "echo", Arguments: json.RawMessage(`{"ticker":"JNJ"}`)}},
		},
		llmfake.Text("JNJ looks fine."),
	)
	a := newTestAgent(t, p, Config{})
	a.Run(context.Background(), "Check JNJ.")

	s := a.Summary()
	if s.Turns[1].Kind != TurnToolRequests || s.Turns[1].Text != "Let me look that up." {
		t.Fatalf("narration lost: %+v", s.Turns[1])
	}
}

func TestRunReplaysFullState(t *testing.T) {
	p := llmfake.New(
		llmfake.ToolUse(llm.ToolCall{ID: "c1", Name: "echo", Arguments: json.RawMessage(`{"ticker":"XOM"}`)}),
		llmfake.Text("First answer."),
		llmfake.Text("Second answer."),
	)
	a := newTestAgent(t, p, Config{})

	a.Run(context.Background(), "first question")
	a.Run(context.Background(), "second question")

	reqs := p.Requests()
	if len(reqs) != 3 {
		t.Fatalf("got %d requests, want 3", len(reqs))
	}
	last := reqs[2]
	if last.System != "You are a test assistant." {
		t.Fatalf("system prompt not resent: %q", last.System)
	}
	// user, tool_requests, tool_results, assistant, user.
	if len(last.Messages) != 5 {
		t.Fatalf("got %d messages, want 5", len(last.Messages))
	}
	if last.Messages[0].Content != "first question" {
		t.Fatalf("history truncated, first message = %q", last.Messages[0].Content)
	}
	if len(last.Tools) == 0 {
		t.Fatal("tool definitions not resent")
	}
}

func TestRunProviderError(t *testing.T) {
	p := llmfake.NewError(errors.New("401 invalid api key"))
	a := newTestAgent(t, p, Config{})

	got := a.Run(context.Background(), "hello")
	if !strings.HasPrefix(got, "API Error: ") || !strings.Contains(got, "invalid api key") {
		t.Fatalf("answer = %q", got)
	}
	// The user turn stays; no assistant turn is fabricated.
	if s := a.Summary(); s.TurnCount != 1 || s.Turns[0].Kind != TurnUser {
		t.Fatalf("summary = %+v", s)
	}
}

func TestRunUnrecognizedStopReason(t *testing.T) {
	p := llmfake.New(&llm.Response{StopReason: llm.StopOther, Text: "partial"})
	a := newTestAgent(t, p, Config{})

	got := a.Run(context.Background(), "hello")
	if got != fallbackMessage {
		t.Fatalf("answer = %q", got)
	}
	if s := a.Summary(); s.TurnCount != 1 {
		t.Fatalf("turn count = %d, want only the user turn", s.TurnCount)
	}
}

func TestRunIterationCap(t *testing.T) {
	call := llm.ToolCall{ID: "c", Name: "echo", Arguments: json.RawMessage(`{"ticker":"AAPL"}`)}
	p := llmfake.New(
		llmfake.ToolUse(call),
		llmfake.ToolUse(call),
		llmfake.ToolUse(call), // never reached
	)
	a := newTestAgent(t, p, Config{MaxIterations: 2})

	got := a.Run(context.Background(), "loop forever")
	if got != maxStepsMessage {
		t.Fatalf("answer = %q", got)
	}
	// user + two completed tool rounds survive the abort.
	if s := a.Summary(); s.TurnCount != 5 {
		t.Fatalf("turn count = %d, want 5", s.TurnCount)
	}
	if len(p.Requests()) != 2 {
		t.Fatalf("provider called %d times, want 2", len(p.Requests()))
	}
}

// slowProvider blocks until the context expires.
type slowProvider struct{}

func (slowProvider) Name() string { return "slow" }

func (slowProvider) Complete(ctx context.Context, _ llm.Request) (*llm.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRunTimeout(t *testing.T) {
	a := newTestAgent(t, slowProvider{}, Config{Timeout: 10 * time.Millisecond})

	got := a.Run(context.Background(), "hello")
	if got != timeoutMessage {
		t.Fatalf("answer = %q", got)
	}
	if s := a.Summary(); s.TurnCount != 1 {
		t.Fatalf("turn count = %d, want 1", s.TurnCount)
	}
}

func TestRunMalformedArguments(t *testing.T) {
	p := llmfake.New(
		llmfake.ToolUse(llm.ToolCall{ID: "c1", Name: "echo", Arguments: json.RawMessage(`not json`)}),
		llmfake.Text("Recovered."),
	)
	a := newTestAgent(t, p, Config{})

	if got := a.Run(context.Background(), "hello"); got != "Recovered." {
		t.Fatalf("answer = %q", got)
	}
	s := a.Summary()
	res := s.Turns[2].Results[0]
	if !res.IsError || !strings.Contains(res.Content, errmodel.CodeInvalidArguments) {
		t.Fatalf("result = %+v", res)
	}
}

func TestResetClearsConversation(t *testing.T) {
	p := llmfake.New(llmfake.Text("hi"), llmfake.Text("fresh"))
	a := newTestAgent(t, p, Config{})

	a.Run(context.Background(), "hello")
	a.Reset()
	if s := a.Summary(); s.TurnCount != 0 || len(s.Turns) != 0 {
		t.Fatalf("summary after reset = %+v", s)
	}

	// The next run starts from scratch.
	a.Run(context.Background(), "again")
	reqs := p.Requests()
	if n := len(reqs[len(reqs)-1].Messages); n != 1 {
		t.Fatalf("got %d messages after reset, want 1", n)
	}
}

func TestRunFailureRecoveryRound(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Func{
		Desc: Descriptor{Name: "flaky"},
		Fn: func(context.Context, map[string]any) (any, error) {
			return nil, errors.New("data source offline")
		},
	})
	p := llmfake.New(
		llmfake.ToolUse(llm.ToolCall{ID: "c1", Name: "flaky", Arguments: json.RawMessage(`{}`)}),
		llmfake.Text("I could not retrieve the data right now."),
	)
	a := newTestAgent(t, p, Config{Registry: r})

	got := a.Run(context.Background(), "fetch it")
	if got != "I could not retrieve the data right now." {
		t.Fatalf("answer = %q", got)
	}

	// The failure payload was fed back to the model on the second request.
	reqs := p.Requests()
	second := reqs[1]
	var resultMsg *llm.Message
	for i := range second.Messages {
		if second.Messages[i].Role == "tool" {
			resultMsg = &second.Messages[i]
		}
	}
	if resultMsg == nil || len(resultMsg.ToolResults) != 1 {
		t.Fatalf("no tool results replayed: %+v", second.Messages)
	}
	tr := resultMsg.ToolResults[0]
	if !tr.IsError || !strings.Contains(tr.Content, "data source offline") {
		t.Fatalf("replayed result = %+v", tr)
	}
	if tr.Name != "flaky" || tr.CallID != "c1" {
		t.Fatalf("result identity = %+v", tr)
	}
}
