// Package openai implements the llm.Provider interface using the OpenAI SDK.
// It works with any OpenAI-compatible endpoint via a configurable base URL.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	oa "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/finsight/finsight/pkg/adapters/llm"
)

const defaultModel = "gpt-4o-mini"

type provider struct {
	client oa.Client
	model  string
}

func (p *provider) Name() string { return "openai" }

func (p *provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	msgs := make([]oa.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, oa.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		msgs = append(msgs, toMessages(m)...)
	}

	params := oa.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: msgs,
	}
	if len(req.Tools) > 0 {
		params.Tools = toTools(req.Tools)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices in response")
	}
	return fromChoice(resp.Choices[0]), nil
}

// toTools converts provider-agnostic tool definitions to OpenAI function
// tools. The input schema is decoded into the SDK's free-form parameter map.
func toTools(tools []llm.ToolDefinition) []oa.ChatCompletionToolUnionParam {
	out := make([]oa.ChatCompletionToolUnionParam, len(tools))
	for i, t := range tools {
		var params map[string]interface{}
		_ = json.Unmarshal(t.InputSchema, &params)
		out[i] = oa.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        t.Name,
			Description: oa.String(t.Description),
			Parameters:  shared.FunctionParameters(params),
		})
	}
	return out
}

// toMessages converts one provider-agnostic message into OpenAI SDK messages.
// A "tool" message fans out into one ToolMessage per result, correlated by
// call ID.
func toMessages(m llm.Message) []oa.ChatCompletionMessageParamUnion {
	switch m.Role {
	case "tool":
		out := make([]oa.ChatCompletionMessageParamUnion, 0, len(m.ToolResults))
		for _, tr := range m.ToolResults {
			out = append(out, oa.ToolMessage(tr.Content, tr.CallID))
		}
		return out
	case "user":
		return []oa.ChatCompletionMessageParamUnion{oa.UserMessage(m.Content)}
	default: // "assistant"
		asst := oa.ChatCompletionAssistantMessageParam{}
		if m.Content != "" {
			asst.Content.OfString = oa.String(m.Content)
		}
		if len(m.ToolCalls) > 0 {
			asst.ToolCalls = make([]oa.ChatCompletionMessageToolCallUnionParam, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				asst.ToolCalls[i] = oa.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &oa.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: oa.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: string(tc.Arguments),
						},
					},
				}
			}
		}
		return []oa.ChatCompletionMessageParamUnion{{OfAssistant: &asst}}
	}
}

// fromChoice normalizes an OpenAI completion choice.
func fromChoice(choice oa.ChatCompletionChoice) *llm.Response {
	out := &llm.Response{Text: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	switch choice.FinishReason {
	case "tool_calls":
		out.StopReason = llm.StopToolUse
	case "stop":
		out.StopReason = llm.StopEndTurn
	default:
		out.StopReason = llm.StopOther
	}
	return out
}

// Factory constructs the OpenAI provider. Config keys: api_key, base_url,
// model. The key falls back to OPENAI_API_KEY; missing keys fail here.
func Factory(ctx context.Context, cfg map[string]any) (llm.Provider, error) { // nolint: revive
	_ = ctx
	apiKey := os.Getenv("OPENAI_API_KEY")
	if v, ok := cfg["api_key"].(string); ok && v != "" {
		apiKey = v
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai: missing API key; set OPENAI_API_KEY or cfg.api_key")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if v, ok := cfg["base_url"].(string); ok && v != "" {
		opts = append(opts, option.WithBaseURL(v))
	}
	model := defaultModel
	if v, ok := cfg["model"].(string); ok && v != "" {
		model = v
	}

	c := oa.NewClient(opts...)
	return &provider{client: c, model: model}, nil
}

func init() {
	_ = llm.Register("openai", Factory)
}
