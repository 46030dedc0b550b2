// Package model defines data structures for the event concierge.
package model

import (
	"time"
)

// Conversation is a user's session with the concierge. A conversation with
// a nil EndedAt is the user's active conversation.
type Conversation struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Summary   string     `json:"summary,omitempty"`

	MessageCount int `json:"message_count,omitempty"`
}

// Active reports whether the conversation has not been ended.
func (c *Conversation) Active() bool {
	return c.EndedAt == nil
}

// ConversationContext is the response for the active conversation lookup.
type ConversationContext struct {
	UserID                string        `json:"user_id"`
	HasActiveConversation bool          `json:"has_active_conversation"`
	Conversation          *Conversation `json:"conversation,omitempty"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
	HasMore       bool           `json:"has_more"`
}
