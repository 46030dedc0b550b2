// Package store provides conversation and catalog persistence.
package store

import (
	"context"

	"github.com/capitalize-ai/event-concierge/internal/model"
)

// ConversationStore persists conversations, their messages and the
// suggestions shown in them.
type ConversationStore interface {
	// FindActiveConversation returns the user's active conversation, or nil
	// when there is none.
	FindActiveConversation(ctx context.Context, userID string) (*model.Conversation, error)

	// CreateConversation ends the user's active conversation, if any, and
	// starts a new one.
	CreateConversation(ctx context.Context, userID string) (*model.Conversation, error)

	// GetOrCreateActive atomically returns the user's active conversation,
	// creating it when absent. Concurrent callers for one user always get
	// the same conversation.
	GetOrCreateActive(ctx context.Context, userID string) (conv *model.Conversation, created bool, err error)

	// GetConversation returns a conversation by ID or model.ErrNotFound.
	GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error)

	// ListConversations returns a user's conversations, newest first, and
	// the total count.
	ListConversations(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, int, error)

	// EndConversation sets the end timestamp and summary of an active
	// conversation.
	EndConversation(ctx context.Context, conversationID, summary string) (*model.Conversation, error)

	// AppendMessage adds an immutable message to a conversation.
	AppendMessage(ctx context.Context, conversationID string, sender model.Sender, msgType model.MessageType, content string) (*model.Message, error)

	// ListMessages returns messages in creation order.
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, bool, error)

	// SaveSuggestions records the suggestions shown in a conversation.
	SaveSuggestions(ctx context.Context, conversationID string, items []model.SuggestedItem) error

	// ListSuggestions returns the most recently saved suggestions first.
	ListSuggestions(ctx context.Context, conversationID string, limit int) ([]model.SuggestedItem, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}

// Catalog is the read-only query surface over events, businesses and offers.
type Catalog interface {
	// QueryEvents returns active events matching criteria ordered by start
	// time.
	QueryEvents(ctx context.Context, criteria model.Criteria, limit int) ([]model.Event, error)

	// ListBusinesses returns up to limit businesses.
	ListBusinesses(ctx context.Context, limit int) ([]model.Business, error)

	// ListOffers returns up to limit active offers.
	ListOffers(ctx context.Context, limit int) ([]model.Offer, error)
}

// CatalogWriter adds catalog entries. It is used by seeding and tests.
type CatalogWriter interface {
	AddEvent(ctx context.Context, e *model.Event) error
	AddBusiness(ctx context.Context, b *model.Business) error
	AddOffer(ctx context.Context, o *model.Offer) error
	CountEvents(ctx context.Context) (int, error)
}
