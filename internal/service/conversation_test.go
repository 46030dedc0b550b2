package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/event-concierge/internal/model"
	"github.com/capitalize-ai/event-concierge/internal/store"
	"github.com/capitalize-ai/event-concierge/pkg/logger"
)

type fakeReplayer struct {
	GetEventsFunc func(ctx context.Context, userID, conversationID string, afterSequence uint64, limit int) (*model.ListEventsResponse, error)
}

func (f *fakeReplayer) GetEvents(ctx context.Context, userID, conversationID string, afterSequence uint64, limit int) (*model.ListEventsResponse, error) {
	return f.GetEventsFunc(ctx, userID, conversationID, afterSequence, limit)
}

func TestConversationLifecycle(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	journal := &recordingJournal{}
	svc := NewConversationService(mem, journal, nil, logger.NewNop())

	cc, err := svc.Context(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, cc.HasActiveConversation)
	assert.Nil(t, cc.Conversation)

	conv, err := svc.Start(ctx, "user-1")
	require.NoError(t, err)

	cc, err = svc.Context(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, cc.HasActiveConversation)
	assert.Equal(t, conv.ID, cc.Conversation.ID)

	ended, err := svc.EndActive(ctx, "user-1", "  asked about jazz ")
	require.NoError(t, err)
	assert.False(t, ended.Active())
	assert.Equal(t, "asked about jazz", ended.Summary)
	assert.Len(t, journal.eventsOf(model.PipelineEventEnded), 1)

	_, err = svc.EndActive(ctx, "user-1", "")
	assert.ErrorIs(t, err, model.ErrNotFound)

	list, err := svc.List(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	assert.False(t, list.HasMore)
}

func TestConversationOwnership(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewConversationService(mem, nil, nil, logger.NewNop())

	conv, _, err := mem.GetOrCreateActive(ctx, "owner")
	require.NoError(t, err)
	_, err = mem.AppendMessage(ctx, conv.ID, model.SenderUser, model.MessageText, "jazz")
	require.NoError(t, err)
	require.NoError(t, mem.SaveSuggestions(ctx, conv.ID, []model.SuggestedItem{{Type: model.ItemEvent, ItemID: "e1", Title: "Jazz Night"}}))

	msgs, err := svc.Messages(ctx, "owner", conv.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, msgs.Messages, 1)

	suggestions, err := svc.Suggestions(ctx, "owner", conv.ID, 10)
	require.NoError(t, err)
	assert.Len(t, suggestions.Suggestions, 1)

	_, err = svc.Messages(ctx, "intruder", conv.ID, 10, 0)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = svc.Suggestions(ctx, "intruder", conv.ID, 10)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestFeedback(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	journal := &recordingJournal{}
	svc := NewConversationService(mem, journal, nil, logger.NewNop())

	resp, err := svc.Feedback(ctx, "user-1", &model.FeedbackRequest{Feedback: "great picks"})
	require.NoError(t, err)
	assert.Equal(t, FeedbackThanks, resp.Message)
	assert.Empty(t, journal.eventsOf(model.PipelineEventFeedback), "no conversation to attach to")

	conv, _, err := mem.GetOrCreateActive(ctx, "user-1")
	require.NoError(t, err)

	_, err = svc.Feedback(ctx, "user-1", &model.FeedbackRequest{ItemID: "e1", ItemType: "event", Feedback: "loved it"})
	require.NoError(t, err)
	events := journal.eventsOf(model.PipelineEventFeedback)
	require.Len(t, events, 1)
	assert.Equal(t, conv.ID, events[0].ConversationID)
	assert.Equal(t, "loved it", events[0].Metadata["feedback"])

	_, err = svc.Feedback(ctx, "user-1", &model.FeedbackRequest{Feedback: " "})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	conv, _, err := mem.GetOrCreateActive(ctx, "user-1")
	require.NoError(t, err)

	svc := NewConversationService(mem, nil, nil, logger.NewNop())
	_, err = svc.Events(ctx, "user-1", conv.ID, 0, 10)
	assert.ErrorIs(t, err, ErrReplayUnavailable)

	replayer := &fakeReplayer{GetEventsFunc: func(_ context.Context, userID, conversationID string, after uint64, limit int) (*model.ListEventsResponse, error) {
		assert.Equal(t, "user-1", userID)
		assert.Equal(t, conv.ID, conversationID)
		assert.Equal(t, uint64(7), after)
		return &model.ListEventsResponse{
			Events:       []model.PipelineEvent{{Type: model.PipelineEventFallback, Component: "intent", Sequence: 8}},
			LastSequence: 8,
		}, nil
	}}
	svc = NewConversationService(mem, nil, replayer, logger.NewNop())

	resp, err := svc.Events(ctx, "user-1", conv.ID, 7, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), resp.LastSequence)
	require.Len(t, resp.Events, 1)

	_, err = svc.Events(ctx, "someone-else", conv.ID, 0, 10)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
