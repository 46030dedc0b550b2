package model

import (
	"time"
)

// Sender tags who authored a message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderSystem Sender = "system"
)

// Valid reports whether s is a known sender.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderSystem
}

// MessageType tags the kind of content a message carries.
type MessageType string

const (
	MessageText        MessageType = "text"
	MessageImage       MessageType = "image"
	MessageAudio       MessageType = "audio"
	MessageVideo       MessageType = "video"
	MessageInteractive MessageType = "interactive"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageAudio, MessageVideo, MessageInteractive:
		return true
	}
	return false
}

// IsMedia reports whether the message carries media rather than text.
func (t MessageType) IsMedia() bool {
	return t == MessageImage || t == MessageAudio || t == MessageVideo
}

// Message is a single entry in a conversation. Messages are never mutated
// after creation.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	UserID         string      `json:"user_id,omitempty"`
	Sender         Sender      `json:"sender"`
	Type           MessageType `json:"type"`
	Content        string      `json:"content"`
	CreatedAt      time.Time   `json:"created_at"`
}

// SendMessageRequest is the request to run the pipeline for one message.
type SendMessageRequest struct {
	Content string      `json:"content"`
	Type    MessageType `json:"type,omitempty"`
}

// ListMessagesResponse is the response for listing messages.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"has_more"`
}

// FeedbackRequest carries a user's reaction to a suggestion.
type FeedbackRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	ItemID         string `json:"item_id,omitempty"`
	ItemType       string `json:"item_type,omitempty"`
	Feedback       string `json:"feedback"`
}

// FeedbackResponse acknowledges feedback.
type FeedbackResponse struct {
	Message string `json:"message"`
}

// TokenEvent represents a streamed reply token.
type TokenEvent struct {
	Token string `json:"token"`
	Index int    `json:"index"`
}

// StageEvent reports a pipeline state transition to streaming clients.
type StageEvent struct {
	Stage          string `json:"stage"`
	ConversationID string `json:"conversation_id,omitempty"`
	Summary        string `json:"summary,omitempty"`
}

// ErrorEvent represents an error event.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
