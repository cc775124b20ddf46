// Package anthropic implements the llm.Provider interface on top of the
// official Anthropic SDK. It is the default completion backend.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/finsight/finsight/pkg/adapters/llm"
)

const defaultMaxTokens = 4096

type provider struct {
	client *sdk.Client
	model  string
}

func (p *provider) Name() string { return "anthropic" }

func (p *provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	model := req.Model
	if model == "" {
		model = p.model
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		Messages:  toMessages(req.Messages),
		MaxTokens: maxTokens,
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = toTools(req.Tools)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}
	return fromMessage(resp), nil
}

// toTools converts provider-agnostic tool definitions to Anthropic tool
// params, splitting each JSON schema into its properties and required list.
func toTools(tools []llm.ToolDefinition) []sdk.ToolUnionParam {
	out := make([]sdk.ToolUnionParam, len(tools))
	for i, t := range tools {
		var schema struct {
			Properties map[string]interface{} `json:"properties"`
			Required   []string               `json:"required"`
		}
		_ = json.Unmarshal(t.InputSchema, &schema)
		if schema.Properties == nil {
			schema.Properties = map[string]interface{}{}
		}
		out[i] = sdk.ToolUnionParam{
			OfTool: &sdk.ToolParam{
				Name:        t.Name,
				Description: sdk.String(t.Description),
				InputSchema: sdk.ToolInputSchemaParam{
					Properties: schema.Properties,
					Required:   schema.Required,
				},
			},
		}
	}
	return out
}

// toMessages converts provider-agnostic messages to Anthropic message params.
//
// Anthropic's API requires:
//   - Only "user" and "assistant" roles (no "tool" role)
//   - Tool results are sent as user messages with ToolResultBlockParam content
//   - Assistant messages with tool calls use ToolUseBlockParam content
func toMessages(messages []llm.Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "user":
			out = append(out, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case "tool":
			blocks := make([]sdk.ContentBlockParamUnion, 0, len(m.ToolResults))
			for _, tr := range m.ToolResults {
				blocks = append(blocks, sdk.NewToolResultBlock(tr.CallID, tr.Content, tr.IsError))
			}
			out = append(out, sdk.NewUserMessage(blocks...))
		case "assistant":
			blocks := make([]sdk.ContentBlockParamUnion, 0)
			if m.Content != "" {
				blocks = append(blocks, sdk.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				input := tc.Arguments
				if len(input) == 0 {
					input = json.RawMessage("{}")
				}
				blocks = append(blocks, sdk.ContentBlockParamUnion{
					OfToolUse: &sdk.ToolUseBlockParam{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: input,
					},
				})
			}
			out = append(out, sdk.NewAssistantMessage(blocks...))
		}
	}
	return out
}

// fromMessage normalizes an Anthropic response into the provider-agnostic form.
func fromMessage(resp *sdk.Message) *llm.Response {
	out := &llm.Response{}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Text += block.AsText().Text
		case "tool_use":
			tu := block.AsToolUse()
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:        tu.ID,
				Name:      tu.Name,
				Arguments: json.RawMessage(tu.Input),
			})
		}
	}
	switch resp.StopReason {
	case sdk.StopReasonToolUse:
		out.StopReason = llm.StopToolUse
	case sdk.StopReasonEndTurn:
		out.StopReason = llm.StopEndTurn
	default:
		out.StopReason = llm.StopOther
	}
	return out
}

// Factory constructs the Anthropic provider. Config keys: api_key, base_url,
// model. The API key falls back to ANTHROPIC_API_KEY, then
// ANTHROPIC_AUTH_TOKEN; a missing or placeholder key fails here, before any
// network call.
func Factory(ctx context.Context, cfg map[string]any) (llm.Provider, error) { // nolint: revive
	_ = ctx
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_AUTH_TOKEN")
	}
	if v, ok := cfg["api_key"].(string); ok && v != "" {
		apiKey = v
	}
	if apiKey == "" || apiKey == "your_api_key_here" {
		return nil, fmt.Errorf("anthropic: missing API key; set ANTHROPIC_API_KEY or ANTHROPIC_AUTH_TOKEN")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if v, ok := cfg["base_url"].(string); ok && v != "" {
		opts = append(opts, option.WithBaseURL(v))
	} else if v := os.Getenv("ANTHROPIC_BASE_URL"); v != "" {
		opts = append(opts, option.WithBaseURL(v))
	}

	model := ""
	if v, ok := cfg["model"].(string); ok {
		model = v
	}

	client := sdk.NewClient(opts...)
	return &provider{client: &client, model: model}, nil
}

func init() {
	_ = llm.Register("anthropic", Factory)
}
