package provider

import "context"

// Role labels for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn of the dialogue in the provider wire shape.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID       string `json:"id,omitempty"`
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

// NewToolCall builds a ToolCall; mostly a test convenience, the wire decoder
// fills the struct directly.
func NewToolCall(id, name string, args map[string]any) ToolCall {
	var tc ToolCall
	tc.ID = id
	tc.Function.Name = name
	tc.Function.Arguments = args
	return tc
}

// ChatResponse is the provider-neutral result of one inference call.
type ChatResponse struct {
	Model        string
	Message      Message
	InputTokens  int
	OutputTokens int
}

// ModelProvider is the inference collaborator: conversation plus tool specs
// in, assistant message (text and zero or more tool calls) out.
type ModelProvider interface {
	ID() string
	Chat(ctx context.Context, messages []Message, tools []map[string]any) (*ChatResponse, error)
}
