package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/capitalize-ai/event-concierge/internal/model"
)

// MaxMessageLength is the longest accepted message, in bytes.
const MaxMessageLength = 4096

// ValidateMessage validates an inbound message. Media messages may have no
// content.
func ValidateMessage(req *model.SendMessageRequest) error {
	if req.Type == "" {
		req.Type = model.MessageText
	}
	if !req.Type.Valid() {
		return errors.New("unknown message type")
	}
	if req.Type.IsMedia() && req.Content == "" {
		return nil
	}
	return ValidateMessageContent(req.Content)
}

// ValidateMessageContent validates message text.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("content cannot be empty")
	}
	if len(content) > MaxMessageLength {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID validates a conversation ID.
func ValidateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid conversation ID format")
	}
	return nil
}

// ValidateFeedback validates a feedback request.
func ValidateFeedback(req *model.FeedbackRequest) error {
	if err := ValidateMessageContent(req.Feedback); err != nil {
		return errors.New("feedback " + strings.TrimPrefix(err.Error(), "content "))
	}
	if req.ConversationID != "" {
		if err := ValidateConversationID(req.ConversationID); err != nil {
			return err
		}
	}
	if req.ItemType != "" {
		switch model.ItemType(req.ItemType) {
		case model.ItemEvent, model.ItemBusiness, model.ItemOffer:
		default:
			return errors.New("unknown item type")
		}
	}
	return nil
}
