package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/finsight/finsight/pkg/agent"
)

func newTestRegistry(t *testing.T) *agent.Registry {
	t.Helper()
	r := agent.NewRegistry()
	r.MustRegister(agent.Func{
		Desc: agent.Descriptor{
			Name:        "echo",
			Description: "echoes its arguments",
			InputSchema: []byte(`{"type":"object","properties":{"ticker":{"type":"string"}},"required":["ticker"]}`),
		},
		Fn: func(_ context.Context, args map[string]any) (any, error) {
			return args, nil
		},
	})
	return r
}

func makeRequest(t *testing.T, args any) *mcp.CallToolRequest {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	return &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(raw)},
	}
}

func textContent(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("got %d content blocks", len(res.Content))
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content type %T", res.Content[0])
	}
	return tc.Text
}

func TestNewRegistersCatalog(t *testing.T) {
	if _, err := New(Config{Registry: newTestRegistry(t)}); err != nil {
		t.Fatalf("New: %v", err)
	}
}

func TestNewRejectsNilRegistry(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for nil registry")
	}
}

func TestHandlerSuccess(t *testing.T) {
	s, err := New(Config{Registry: newTestRegistry(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := s.handler("echo")(context.Background(), makeRequest(t, map[string]any{"ticker": "AAPL"}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", textContent(t, res))
	}
	if !strings.Contains(textContent(t, res), "AAPL") {
		t.Fatalf("payload missing args: %s", textContent(t, res))
	}
}

func TestHandlerCapabilityError(t *testing.T) {
	s, err := New(Config{Registry: newTestRegistry(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Schema requires ticker.
	res, err := s.handler("echo")(context.Background(), makeRequest(t, map[string]any{}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(textContent(t, res), "invalid_arguments") {
		t.Fatalf("payload = %s", textContent(t, res))
	}
}
