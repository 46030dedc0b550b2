package model

// ProcessResult is the outcome of running the pipeline for one message.
type ProcessResult struct {
	Reply          string          `json:"reply"`
	Suggestions    []SuggestedItem `json:"suggestions"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Criteria       *Criteria       `json:"resolved_criteria,omitempty"`

	UserMessage  *Message `json:"user_message,omitempty"`
	ReplyMessage *Message `json:"reply_message,omitempty"`

	// Fallbacks lists the components that used their fallback path.
	Fallbacks []string `json:"fallbacks,omitempty"`
	// Failed is set when the reply is the generic apology.
	Failed bool `json:"failed,omitempty"`
}
