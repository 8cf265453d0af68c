package agent

import (
	"sync"

	"arena/internal/gateway/provider"
)

const minConversationCap = 2

// Conversation holds the message history sent to the model. The system turn
// is pinned at index 0; when the history exceeds the cap, the oldest
// non-system messages are dropped.
type Conversation struct {
	mu       sync.Mutex
	messages []provider.Message
	cap      int
}

// NewConversation seeds the history with the system prompt.
func NewConversation(systemPrompt string, capacity int) *Conversation {
	if capacity < minConversationCap {
		capacity = minConversationCap
	}
	return &Conversation{
		messages: []provider.Message{{Role: provider.RoleSystem, Content: systemPrompt}},
		cap:      capacity,
	}
}

// SetSystem replaces the pinned system turn. Used between cycles when the
// persona or decision history changes.
func (c *Conversation) SetSystem(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages[0].Content = prompt
}

// AppendUser adds a user turn.
func (c *Conversation) AppendUser(content string) {
	c.append(provider.Message{Role: provider.RoleUser, Content: content})
}

// AppendAssistant adds an assistant turn, tool calls included.
func (c *Conversation) AppendAssistant(msg provider.Message) {
	msg.Role = provider.RoleAssistant
	c.append(msg)
}

// AppendToolResult adds the serialized result of one tool invocation.
func (c *Conversation) AppendToolResult(callID, name, payload string) {
	c.append(provider.Message{
		Role:       provider.RoleTool,
		Content:    payload,
		Name:       name,
		ToolCallID: callID,
	})
}

func (c *Conversation) append(msg provider.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	if len(c.messages) > c.cap {
		// Keep the system turn, drop the oldest of the rest.
		overflow := len(c.messages) - c.cap
		kept := make([]provider.Message, 0, c.cap)
		kept = append(kept, c.messages[0])
		kept = append(kept, c.messages[1+overflow:]...)
		c.messages = kept
	}
}

// Render returns a copy of the current history.
func (c *Conversation) Render() []provider.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]provider.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages, system turn included.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}
