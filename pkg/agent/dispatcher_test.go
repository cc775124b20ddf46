package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/finsight/finsight/pkg/errmodel"
)

func TestInvokeSuccess(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoTool("echo"))
	d := NewDispatcher(r, nil)

	out := d.Invoke(context.Background(), "echo", map[string]any{"ticker": "AAPL"})
	if out.IsError() {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	got, ok := out.Payload.(map[string]any)
	if !ok || got["ticker"] != "AAPL" {
		t.Fatalf("payload = %#v", out.Payload)
	}
}

func TestInvokeUnknownCapabilityInvokesNothing(t *testing.T) {
	calls := 0
	r := NewRegistry()
	r.MustRegister(Func{
		Desc: Descriptor{Name: "counted"},
		Fn: func(context.Context, map[string]any) (any, error) {
			calls++
			return nil, nil
		},
	})
	d := NewDispatcher(r, nil)

	out := d.Invoke(context.Background(), "nonexistent", nil)
	if !out.IsError() || out.Err.Code != errmodel.CodeUnknownCapability {
		t.Fatalf("got %+v, want unknown_capability", out.Err)
	}
	if calls != 0 {
		t.Fatalf("registered tool was invoked %d times", calls)
	}
}

func TestInvokeInvalidArguments(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoTool("strict"))
	d := NewDispatcher(r, nil)

	// Missing required ticker.
	out := d.Invoke(context.Background(), "strict", map[string]any{})
	if !out.IsError() || out.Err.Code != errmodel.CodeInvalidArguments {
		t.Fatalf("got %+v, want invalid_arguments", out.Err)
	}

	// Wrong type.
	out = d.Invoke(context.Background(), "strict", map[string]any{"ticker": 42})
	if !out.IsError() || out.Err.Code != errmodel.CodeInvalidArguments {
		t.Fatalf("got %+v, want invalid_arguments", out.Err)
	}
}

func TestInvokeToolError(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Func{
		Desc: Descriptor{Name: "failing"},
		Fn: func(context.Context, map[string]any) (any, error) {
			return nil, errors.New("upstream unavailable")
		},
	})
	d := NewDispatcher(r, nil)

	out := d.Invoke(context.Background(), "failing", nil)
	if !out.IsError() || out.Err.Code != errmodel.CodeCapabilityFailure {
		t.Fatalf("got %+v, want capability_failure", out.Err)
	}
	if !strings.Contains(out.Err.Message, "upstream unavailable") {
		t.Fatalf("message %q lost the cause", out.Err.Message)
	}
}

func TestInvokeRecoversPanic(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Func{
		Desc: Descriptor{Name: "panicky"},
		Fn: func(context.Context, map[string]any) (any, error) {
			panic("boom")
		},
	})
	d := NewDispatcher(r, nil)

	out := d.Invoke(context.Background(), "panicky", nil)
	if !out.IsError() || out.Err.Code != errmodel.CodeCapabilityFailure {
		t.Fatalf("got %+v, want capability_failure", out.Err)
	}
	if !strings.Contains(out.Err.Message, "boom") {
		t.Fatalf("message %q lost the panic value", out.Err.Message)
	}
}

func TestRenderError(t *testing.T) {
	d := NewDispatcher(NewRegistry(), nil)
	out := Outcome{Err: errmodel.UnknownCapability("ghost")}

	first := d.Render(out)
	second := d.Render(out)
	if first != second {
		t.Fatal("render is not deterministic")
	}

	var re renderedError
	if err := json.Unmarshal([]byte(first), &re); err != nil {
		t.Fatalf("rendered error is not JSON: %v", err)
	}
	if re.Error.Kind != errmodel.CodeUnknownCapability {
		t.Fatalf("kind = %q", re.Error.Kind)
	}
	if !strings.Contains(re.Error.Message, "ghost") {
		t.Fatalf("message = %q", re.Error.Message)
	}
}

func TestRenderPayload(t *testing.T) {
	d := NewDispatcher(NewRegistry(), nil)
	got := d.Render(Outcome{Payload: map[string]any{"price": 232.5}})
	var decoded map[string]any
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("rendered payload is not JSON: %v", err)
	}
	if decoded["price"] != 232.5 {
		t.Fatalf("decoded = %#v", decoded)
	}
}
