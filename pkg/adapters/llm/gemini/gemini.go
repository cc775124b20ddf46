// Package gemini implements the llm.Provider interface using the Google
// Gen AI SDK, with tool calling mapped onto function declarations.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	genai "google.golang.org/genai"

	"github.com/finsight/finsight/pkg/adapters/llm"
)

const defaultModel = "gemini-2.5-flash-lite"

type provider struct {
	client *genai.Client
	model  string
}

func (p *provider) Name() string { return "gemini" }

func (p *provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(req.Tools) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: toDeclarations(req.Tools)}}
	}

	res, err := p.client.Models.GenerateContent(ctx, model, toContents(req.Messages), cfg)
	if err != nil {
		return nil, err
	}
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini: empty candidates in response")
	}
	return fromCandidate(res.Candidates[0]), nil
}

// toDeclarations converts tool definitions into function declarations,
// decoding each JSON schema into the SDK's schema type.
func toDeclarations(tools []llm.ToolDefinition) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		out[i] = &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  toSchema(t.InputSchema),
		}
	}
	return out
}

// jsonSchema is the subset of JSON Schema the capability descriptors use.
type jsonSchema struct {
	Type        string                `json:"type"`
	Description string                `json:"description"`
	Enum        []string              `json:"enum"`
	Properties  map[string]jsonSchema `json:"properties"`
	Required    []string              `json:"required"`
	Items       *jsonSchema           `json:"items"`
}

func toSchema(raw []byte) *genai.Schema {
	var s jsonSchema
	if err := json.Unmarshal(raw, &s); err != nil {
		return &genai.Schema{Type: genai.TypeObject}
	}
	return convertSchema(s)
}

func convertSchema(s jsonSchema) *genai.Schema {
	out := &genai.Schema{Description: s.Description, Enum: s.Enum, Required: s.Required}
	switch s.Type {
	case "string":
		out.Type = genai.TypeString
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	case "array":
		out.Type = genai.TypeArray
		if s.Items != nil {
			out.Items = convertSchema(*s.Items)
		}
	default:
		out.Type = genai.TypeObject
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = convertSchema(v)
		}
	}
	return out
}

// toContents converts provider-agnostic messages to Gemini contents. Tool
// results become function-response parts in a "user" turn; assistant tool
// calls become function-call parts in a "model" turn.
func toContents(messages []llm.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "user":
			out = append(out, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: m.Content}}})
		case "tool":
			parts := make([]*genai.Part, 0, len(m.ToolResults))
			for _, tr := range m.ToolResults {
				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       tr.CallID,
					Name:     tr.Name,
					Response: map[string]any{"content": tr.Content},
				}})
			}
			out = append(out, &genai.Content{Role: genai.RoleUser, Parts: parts})
		case "assistant":
			parts := make([]*genai.Part, 0, 1+len(m.ToolCalls))
			if m.Content != "" {
				parts = append(parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal(tc.Arguments, &args)
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Name,
					Args: args,
				}})
			}
			out = append(out, &genai.Content{Role: genai.RoleModel, Parts: parts})
		}
	}
	return out
}

// fromCandidate normalizes a Gemini candidate. Call IDs are synthesized when
// the backend omits them.
func fromCandidate(c *genai.Candidate) *llm.Response {
	out := &llm.Response{}
	for i, part := range c.Content.Parts {
		if part.Text != "" {
			out.Text += part.Text
		}
		if fc := part.FunctionCall; fc != nil {
			id := fc.ID
			if id == "" {
				id = fmt.Sprintf("%s-%d", fc.Name, i)
			}
			args, err := json.Marshal(fc.Args)
			if err != nil {
				args = []byte("{}")
			}
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{ID: id, Name: fc.Name, Arguments: args})
		}
	}
	switch {
	case len(out.ToolCalls) > 0:
		out.StopReason = llm.StopToolUse
	case c.FinishReason == genai.FinishReasonStop:
		out.StopReason = llm.StopEndTurn
	default:
		out.StopReason = llm.StopOther
	}
	return out
}

// Factory constructs the Gemini provider using GOOGLE_API_KEY by default.
// Config keys: api_key, model.
func Factory(ctx context.Context, cfg map[string]any) (llm.Provider, error) { // nolint: revive
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if v, ok := cfg["api_key"].(string); ok && v != "" {
		apiKey = v
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: missing API key; set GOOGLE_API_KEY or cfg.api_key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	model := defaultModel
	if v, ok := cfg["model"].(string); ok && v != "" {
		model = v
	}
	return &provider{client: client, model: model}, nil
}

func init() {
	_ = llm.Register("gemini", Factory)
}
