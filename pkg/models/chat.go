package models

import "time"

// MessageRole is the author of a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Chat is one conversation between a user and the assistant.
type Chat struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Message is one turn in a chat. Assistant messages may carry the
// visualizations extracted from the reply.
type Message struct {
	ID             string          `json:"id" db:"id"`
	ChatID         string          `json:"chatId" db:"chat_id"`
	Role           MessageRole     `json:"role" db:"role"`
	Content        string          `json:"content" db:"content"`
	Visualizations []Visualization `json:"visualizations" db:"-"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
}

// StreamEventType enumerates the SSE event types of the chat stream.
type StreamEventType string

const (
	EventStart         StreamEventType = "start"
	EventContent       StreamEventType = "content"
	EventVisualization StreamEventType = "visualization"
	EventComplete      StreamEventType = "complete"
	EventError         StreamEventType = "error"
)

// StreamEvent is one JSON-encoded line of the chat SSE stream.
type StreamEvent struct {
	Type          StreamEventType `json:"type"`
	Content       string          `json:"content,omitempty"`
	Visualization *Visualization  `json:"visualization,omitempty"`
	MessageID     string          `json:"messageId,omitempty"`
	Error         string          `json:"error,omitempty"`
}
