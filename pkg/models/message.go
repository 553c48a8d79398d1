package models

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single entry in a conversation. Messages are immutable once
// created; the only mutation the history allows is deletion by ID.
type Message struct {
	ID        string    `json:"id" yaml:"id"`
	Content   string    `json:"content" yaml:"content"`
	Role      Role      `json:"role" yaml:"role"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// ChatTurn is the role/content pair sent to a language model.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Turns maps messages to chat turns, preserving order.
func Turns(msgs []Message) []ChatTurn {
	turns := make([]ChatTurn, len(msgs))
	for i, m := range msgs {
		turns[i] = ChatTurn{Role: m.Role, Content: m.Content}
	}
	return turns
}
