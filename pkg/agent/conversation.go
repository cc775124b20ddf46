package agent

import "github.com/finsight/finsight/pkg/adapters/llm"

// TurnKind tags the variant of a conversation turn.
type TurnKind string

const (
	// TurnUser is user input text.
	TurnUser TurnKind = "user"
	// TurnAssistant is a final assistant answer.
	TurnAssistant TurnKind = "assistant"
	// TurnToolRequests is a batch of tool calls the model asked for, with any
	// narration text it produced alongside them.
	TurnToolRequests TurnKind = "tool_requests"
	// TurnToolResults is the batch of results answering the preceding
	// TurnToolRequests turn, one per request ID.
	TurnToolResults TurnKind = "tool_results"
)

// Turn is one atomic conversation entry.
type Turn struct {
	Kind     TurnKind
	Text     string
	Requests []llm.ToolCall
	Results  []llm.ToolResult
}

// Conversation is the ordered, append-only turn log. It is owned by the agent
// loop; turns are only ever appended whole, never edited, and a reset clears
// everything at once.
type Conversation struct {
	turns []Turn
}

func (c *Conversation) appendUser(text string) {
	c.turns = append(c.turns, Turn{Kind: TurnUser, Text: text})
}

func (c *Conversation) appendAssistant(text string) {
	c.turns = append(c.turns, Turn{Kind: TurnAssistant, Text: text})
}

func (c *Conversation) appendToolRequests(text string, requests []llm.ToolCall) {
	c.turns = append(c.turns, Turn{Kind: TurnToolRequests, Text: text, Requests: requests})
}

func (c *Conversation) appendToolResults(results []llm.ToolResult) {
	c.turns = append(c.turns, Turn{Kind: TurnToolResults, Results: results})
}

func (c *Conversation) reset() {
	c.turns = nil
}

// Len is the number of turns.
func (c *Conversation) Len() int { return len(c.turns) }

// Turns returns a read-only snapshot of the log.
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Messages encodes the full log in the provider-agnostic message form. The
// whole state is replayed on every completion request; nothing is summarized
// or dropped.
func (c *Conversation) Messages() []llm.Message {
	out := make([]llm.Message, 0, len(c.turns))
	for _, t := range c.turns {
		switch t.Kind {
		case TurnUser:
			out = append(out, llm.Message{Role: "user", Content: t.Text})
		case TurnAssistant:
			out = append(out, llm.Message{Role: "assistant", Content: t.Text})
		case TurnToolRequests:
			out = append(out, llm.Message{Role: "assistant", Content: t.Text, ToolCalls: t.Requests})
		case TurnToolResults:
			out = append(out, llm.Message{Role: "tool", ToolResults: t.Results})
		}
	}
	return out
}
