package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/capitalize-ai/event-concierge/internal/model"
)

type savedSuggestion struct {
	item      model.SuggestedItem
	batch     int
	position  int
	createdAt time.Time
}

// MemoryStore keeps conversations and catalog entries in process memory.
// It is used in development and tests.
type MemoryStore struct {
	mu sync.RWMutex

	conversations map[string]*model.Conversation
	active        map[string]string // user ID -> active conversation ID
	messages      map[string][]model.Message
	suggestions   map[string][]savedSuggestion
	batches       int

	events     map[string]model.Event
	businesses map[string]model.Business
	offers     map[string]model.Offer

	now func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*model.Conversation),
		active:        make(map[string]string),
		messages:      make(map[string][]model.Message),
		suggestions:   make(map[string][]savedSuggestion),
		events:        make(map[string]model.Event),
		businesses:    make(map[string]model.Business),
		offers:        make(map[string]model.Offer),
		now:           time.Now,
	}
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// snapshot copies a conversation with its message count. Callers hold mu.
func (s *MemoryStore) snapshot(conv *model.Conversation) *model.Conversation {
	c := *conv
	c.MessageCount = len(s.messages[conv.ID])
	return &c
}

// FindActiveConversation returns the user's active conversation or nil.
func (s *MemoryStore) FindActiveConversation(ctx context.Context, userID string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.active[userID]
	if !ok {
		return nil, nil
	}
	return s.snapshot(s.conversations[id]), nil
}

// newConversation starts a conversation for userID. Callers hold mu.
func (s *MemoryStore) newConversation(userID string) *model.Conversation {
	conv := &model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		StartedAt: s.now(),
	}
	s.conversations[conv.ID] = conv
	s.active[userID] = conv.ID
	return conv
}

// CreateConversation ends the active conversation and starts a new one.
func (s *MemoryStore) CreateConversation(ctx context.Context, userID string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.active[userID]; ok {
		now := s.now()
		s.conversations[id].EndedAt = &now
	}
	return s.snapshot(s.newConversation(userID)), nil
}

// GetOrCreateActive returns or creates the user's active conversation.
func (s *MemoryStore) GetOrCreateActive(ctx context.Context, userID string) (*model.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.active[userID]; ok {
		return s.snapshot(s.conversations[id]), false, nil
	}
	return s.snapshot(s.newConversation(userID)), true, nil
}

// GetConversation returns a conversation by ID.
func (s *MemoryStore) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, model.ErrNotFound)
	}
	return s.snapshot(conv), nil
}

// ListConversations returns the user's conversations, newest first.
func (s *MemoryStore) ListConversations(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var convs []model.Conversation
	for _, conv := range s.conversations {
		if conv.UserID == userID {
			convs = append(convs, *s.snapshot(conv))
		}
	}
	sort.Slice(convs, func(i, j int) bool {
		if convs[i].StartedAt.Equal(convs[j].StartedAt) {
			return convs[i].ID > convs[j].ID
		}
		return convs[i].StartedAt.After(convs[j].StartedAt)
	})

	total := len(convs)
	start := min(offset, total)
	end := min(start+limit, total)
	return convs[start:end], total, nil
}

// EndConversation marks an active conversation ended.
func (s *MemoryStore) EndConversation(ctx context.Context, conversationID, summary string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok || !conv.Active() {
		return nil, fmt.Errorf("active conversation %s: %w", conversationID, model.ErrNotFound)
	}
	now := s.now()
	conv.EndedAt = &now
	conv.Summary = summary
	delete(s.active, conv.UserID)
	return s.snapshot(conv), nil
}

// AppendMessage adds a message to a conversation.
func (s *MemoryStore) AppendMessage(ctx context.Context, conversationID string, sender model.Sender, msgType model.MessageType, content string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, model.ErrNotFound)
	}

	msg := model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		UserID:         conv.UserID,
		Sender:         sender,
		Type:           msgType,
		Content:        content,
		CreatedAt:      s.now(),
	}
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	return &msg, nil
}

// ListMessages returns messages in insertion order.
func (s *MemoryStore) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.messages[conversationID]
	start := min(offset, len(all))
	end := min(start+limit, len(all))

	out := make([]model.Message, end-start)
	copy(out, all[start:end])
	return out, end < len(all), nil
}

// SaveSuggestions records a batch of suggestions.
func (s *MemoryStore) SaveSuggestions(ctx context.Context, conversationID string, items []model.SuggestedItem) error {
	if len(items) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return fmt.Errorf("conversation %s: %w", conversationID, model.ErrNotFound)
	}

	s.batches++
	now := s.now()
	for i, item := range items {
		s.suggestions[conversationID] = append(s.suggestions[conversationID], savedSuggestion{
			item: item, batch: s.batches, position: i, createdAt: now,
		})
	}
	return nil
}

// ListSuggestions returns the newest batch first.
func (s *MemoryStore) ListSuggestions(ctx context.Context, conversationID string, limit int) ([]model.SuggestedItem, error) {
	s.mu.RLock()
	saved := append([]savedSuggestion(nil), s.suggestions[conversationID]...)
	s.mu.RUnlock()

	sort.SliceStable(saved, func(i, j int) bool {
		if saved[i].batch != saved[j].batch {
			return saved[i].batch > saved[j].batch
		}
		return saved[i].position < saved[j].position
	})

	n := min(limit, len(saved))
	items := make([]model.SuggestedItem, n)
	for i := range n {
		items[i] = saved[i].item
	}
	return items, nil
}

// QueryEvents filters events the same way the SQLite catalog does.
func (s *MemoryStore) QueryEvents(ctx context.Context, c model.Criteria, limit int) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: events: %v", model.ErrCatalogQueryFailed, err)
	}

	s.mu.RLock()
	now := s.now()
	var events []model.Event
	for _, e := range s.events {
		if matchEvent(e, c, now) {
			events = append(events, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// ListBusinesses returns businesses ordered by name.
func (s *MemoryStore) ListBusinesses(ctx context.Context, limit int) ([]model.Business, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: businesses: %v", model.ErrCatalogQueryFailed, err)
	}

	s.mu.RLock()
	businesses := make([]model.Business, 0, len(s.businesses))
	for _, b := range s.businesses {
		businesses = append(businesses, b)
	}
	s.mu.RUnlock()

	sort.Slice(businesses, func(i, j int) bool {
		return strings.Compare(businesses[i].Name, businesses[j].Name) < 0
	})
	if len(businesses) > limit {
		businesses = businesses[:limit]
	}
	return businesses, nil
}

// ListOffers returns active offers valid now.
func (s *MemoryStore) ListOffers(ctx context.Context, limit int) ([]model.Offer, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: offers: %v", model.ErrCatalogQueryFailed, err)
	}

	s.mu.RLock()
	now := s.now()
	var offers []model.Offer
	for _, o := range s.offers {
		if !o.Active {
			continue
		}
		if o.StartDate != nil && o.StartDate.After(now) {
			continue
		}
		if o.EndDate != nil && !o.EndDate.After(now) {
			continue
		}
		offers = append(offers, o)
	}
	s.mu.RUnlock()

	sort.Slice(offers, func(i, j int) bool {
		ei, ej := offers[i].EndDate, offers[j].EndDate
		switch {
		case ei == nil && ej == nil:
			return offers[i].Title < offers[j].Title
		case ei == nil:
			return false
		case ej == nil:
			return true
		case ei.Equal(*ej):
			return offers[i].Title < offers[j].Title
		}
		return ei.Before(*ej)
	})
	if len(offers) > limit {
		offers = offers[:limit]
	}
	return offers, nil
}

// AddEvent stores an event.
func (s *MemoryStore) AddEvent(ctx context.Context, e *model.Event) error {
	s.mu.Lock()
	s.events[e.ID] = *e
	s.mu.Unlock()
	return nil
}

// AddBusiness stores a business.
func (s *MemoryStore) AddBusiness(ctx context.Context, b *model.Business) error {
	s.mu.Lock()
	s.businesses[b.ID] = *b
	s.mu.Unlock()
	return nil
}

// AddOffer stores an offer.
func (s *MemoryStore) AddOffer(ctx context.Context, o *model.Offer) error {
	s.mu.Lock()
	s.offers[o.ID] = *o
	s.mu.Unlock()
	return nil
}

// CountEvents returns the number of stored events.
func (s *MemoryStore) CountEvents(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events), nil
}
