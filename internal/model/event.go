package model

import (
	"time"
)

// PipelineEventType is the kind of journaled pipeline event.
type PipelineEventType string

const (
	PipelineEventFallback    PipelineEventType = "fallback"
	PipelineEventFailure     PipelineEventType = "failure"
	PipelineEventSuggestions PipelineEventType = "suggestions"
	PipelineEventFeedback    PipelineEventType = "feedback"
	PipelineEventEnded       PipelineEventType = "ended"
)

// PipelineEvent is an audit record of something notable that happened while
// processing a user's message.
type PipelineEvent struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversation_id"`
	UserID         string            `json:"user_id"`
	Type           PipelineEventType `json:"type"`
	Component      string            `json:"component,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	Metadata       map[string]any    `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	Sequence       uint64            `json:"sequence,omitempty"`
}

// ListEventsResponse is the response for replaying journaled events.
type ListEventsResponse struct {
	Events       []PipelineEvent `json:"events"`
	HasMore      bool            `json:"has_more"`
	LastSequence uint64          `json:"last_sequence"`
}
