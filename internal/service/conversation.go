package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/event-concierge/internal/model"
	"github.com/capitalize-ai/event-concierge/internal/store"
	"github.com/capitalize-ai/event-concierge/pkg/logger"
	"github.com/capitalize-ai/event-concierge/pkg/metrics"
)

// FeedbackThanks is the acknowledgement returned for feedback.
const FeedbackThanks = "Thank you for your feedback!"

// ErrReplayUnavailable is returned by Events when no journal is configured.
var ErrReplayUnavailable = errors.New("event replay unavailable")

// EventReplayer reads back journaled pipeline events.
type EventReplayer interface {
	GetEvents(ctx context.Context, userID, conversationID string, afterSequence uint64, limit int) (*model.ListEventsResponse, error)
}

// ConversationService handles conversation management for a user.
type ConversationService struct {
	store    store.ConversationStore
	journal  Journal
	replayer EventReplayer
	logger   *logger.Logger
}

// NewConversationService creates a conversation service. journal and
// replayer may be nil.
func NewConversationService(conversations store.ConversationStore, journal Journal, replayer EventReplayer, log *logger.Logger) *ConversationService {
	if journal == nil {
		journal = nopJournal{}
	}
	return &ConversationService{
		store:    conversations,
		journal:  journal,
		replayer: replayer,
		logger:   log.With(zap.String("component", "conversations")),
	}
}

// Context returns the user's active conversation, if any.
func (s *ConversationService) Context(ctx context.Context, userID string) (*model.ConversationContext, error) {
	conv, err := s.store.FindActiveConversation(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.ConversationContext{
		UserID:                userID,
		HasActiveConversation: conv != nil,
		Conversation:          conv,
	}, nil
}

// Start ends the active conversation, if any, and starts a new one.
func (s *ConversationService) Start(ctx context.Context, userID string) (*model.Conversation, error) {
	conv, err := s.store.CreateConversation(ctx, userID)
	if err != nil {
		return nil, err
	}
	metrics.ConversationsTotal.Inc()
	s.logger.Info("conversation started",
		zap.String("conversation_id", conv.ID),
		zap.String("user_id", userID),
	)
	return conv, nil
}

// List returns the user's conversations, newest first.
func (s *ConversationService) List(ctx context.Context, userID string, limit, offset int) (*model.ListConversationsResponse, error) {
	convs, total, err := s.store.ListConversations(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &model.ListConversationsResponse{
		Conversations: convs,
		Total:         total,
		HasMore:       offset+len(convs) < total,
	}, nil
}

// EndActive ends the user's active conversation.
func (s *ConversationService) EndActive(ctx context.Context, userID, summary string) (*model.Conversation, error) {
	active, err := s.store.FindActiveConversation(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, fmt.Errorf("active conversation for %s: %w", userID, model.ErrNotFound)
	}

	conv, err := s.store.EndConversation(ctx, active.ID, strings.TrimSpace(summary))
	if err != nil {
		return nil, err
	}

	s.record(ctx, &model.PipelineEvent{
		ConversationID: conv.ID,
		UserID:         userID,
		Type:           model.PipelineEventEnded,
		Metadata:       map[string]any{"message_count": conv.MessageCount},
	})
	s.logger.Info("conversation ended",
		zap.String("conversation_id", conv.ID),
		zap.String("user_id", userID),
	)
	return conv, nil
}

// owned returns the conversation if it belongs to userID. Other users'
// conversations are reported as not found.
func (s *ConversationService) owned(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, model.ErrNotFound)
	}
	return conv, nil
}

// Messages returns a page of a conversation's messages.
func (s *ConversationService) Messages(ctx context.Context, userID, conversationID string, limit, offset int) (*model.ListMessagesResponse, error) {
	if _, err := s.owned(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	msgs, hasMore, err := s.store.ListMessages(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &model.ListMessagesResponse{Messages: msgs, HasMore: hasMore}, nil
}

// Suggestions returns the suggestions most recently shown in a conversation.
func (s *ConversationService) Suggestions(ctx context.Context, userID, conversationID string, limit int) (*model.ListSuggestionsResponse, error) {
	if _, err := s.owned(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	items, err := s.store.ListSuggestions(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}
	return &model.ListSuggestionsResponse{Suggestions: items}, nil
}

// Events replays a conversation's journaled pipeline events.
func (s *ConversationService) Events(ctx context.Context, userID, conversationID string, afterSequence uint64, limit int) (*model.ListEventsResponse, error) {
	if s.replayer == nil {
		return nil, ErrReplayUnavailable
	}
	if _, err := s.owned(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.replayer.GetEvents(ctx, userID, conversationID, afterSequence, limit)
}

// Feedback records a user's reaction. Without an explicit conversation the
// active one is used.
func (s *ConversationService) Feedback(ctx context.Context, userID string, req *model.FeedbackRequest) (*model.FeedbackResponse, error) {
	feedback := strings.TrimSpace(req.Feedback)
	if feedback == "" {
		return nil, fmt.Errorf("%w: feedback is required", model.ErrInvalidInput)
	}

	conversationID := req.ConversationID
	if conversationID != "" {
		if _, err := s.owned(ctx, userID, conversationID); err != nil {
			return nil, err
		}
	} else if active, err := s.store.FindActiveConversation(ctx, userID); err == nil && active != nil {
		conversationID = active.ID
	}

	s.logger.Info("feedback received",
		zap.String("user_id", userID),
		zap.String("conversation_id", conversationID),
		zap.String("item_id", req.ItemID),
		zap.String("item_type", req.ItemType),
		zap.String("feedback", feedback),
	)

	if conversationID != "" {
		s.record(ctx, &model.PipelineEvent{
			ConversationID: conversationID,
			UserID:         userID,
			Type:           model.PipelineEventFeedback,
			Metadata: map[string]any{
				"item_id":   req.ItemID,
				"item_type": req.ItemType,
				"feedback":  feedback,
			},
		})
	}
	return &model.FeedbackResponse{Message: FeedbackThanks}, nil
}

func (s *ConversationService) record(ctx context.Context, event *model.PipelineEvent) {
	event.ID = uuid.Must(uuid.NewV7()).String()
	event.CreatedAt = time.Now()
	if err := s.journal.RecordEvent(ctx, event); err != nil {
		metrics.JournalPublishFailures.WithLabelValues("event").Inc()
		s.logger.Warn("failed to journal event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}
