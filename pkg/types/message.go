package types

import "time"

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is a single chat message in the wire format handed to LLM
// providers. It carries no memory-subsystem state; the session layer wraps
// messages in richer entity types.
type Message struct {
	Role      MessageRole            `json:"role"`
	Content   string                 `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewSystemMessage creates a system-role message.
func NewSystemMessage(content string) *Message {
	return newMessage(RoleSystem, content)
}

// NewUserMessage creates a user-role message.
func NewUserMessage(content string) *Message {
	return newMessage(RoleUser, content)
}

// NewAssistantMessage creates an assistant-role message.
func NewAssistantMessage(content string) *Message {
	return newMessage(RoleAssistant, content)
}

func newMessage(role MessageRole, content string) *Message {
	return &Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// WithMetadata sets a metadata key and returns the message for chaining.
func (m *Message) WithMetadata(key string, value interface{}) *Message {
	if m.Metadata == nil {
		m.Metadata = make(map[string]interface{})
	}
	m.Metadata[key] = value
	return m
}
