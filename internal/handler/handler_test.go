package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/event-concierge/internal/intent"
	"github.com/capitalize-ai/event-concierge/internal/model"
	"github.com/capitalize-ai/event-concierge/internal/reply"
	"github.com/capitalize-ai/event-concierge/internal/service"
	"github.com/capitalize-ai/event-concierge/internal/store"
	"github.com/capitalize-ai/event-concierge/internal/suggest"
	"github.com/capitalize-ai/event-concierge/pkg/logger"
)

const testSecret = "test-secret"

type disconnected struct{}

func (disconnected) IsConnected() bool { return false }

func newTestServer(t *testing.T, nats ConnChecker) http.Handler {
	t.Helper()
	log := logger.NewNop()

	mem := store.NewMemory()
	_, err := store.Seed(context.Background(), mem, time.Now())
	require.NoError(t, err)

	orchestrator := service.NewOrchestrator(
		mem,
		intent.NewResolver(nil, nil, log),
		suggest.NewRetriever(mem, 0, log),
		reply.NewSynthesizer(nil, log),
		nil,
		service.OrchestratorConfig{GreetingShortCircuit: true},
		log,
	)
	conversations := service.NewConversationService(mem, nil, nil, log)

	return NewRouter(RouterConfig{
		JWTSecret:         testSecret,
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
	}, Handlers{
		Health:        NewHealthHandler(mem, nats),
		Conversations: NewConversationHandler(conversations, log),
		Messages:      NewMessageHandler(orchestrator, log),
		Stream:        NewStreamHandler(orchestrator, log),
	}, log)
}

func token(t *testing.T, subject string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, h http.Handler, user, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, user))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndReady(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, "", http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, "", http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestReadyReportsDisconnectedNATS(t *testing.T) {
	h := newTestServer(t, disconnected{})

	rec := do(t, h, "", http.MethodGet, "/ready", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "NATS")
}

func TestAPIRequiresToken(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, "", http.MethodPost, "/api/v1/messages", `{"content":"hi"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSendMessage(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, "alice", http.MethodPost, "/api/v1/messages",
		`{"content":"Any jazz concerts in Boston this weekend?"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[model.ProcessResult](t, rec)
	assert.NotEmpty(t, result.ConversationID)
	assert.NotEmpty(t, result.Reply)
	assert.LessOrEqual(t, len(result.Suggestions), suggest.MaxSuggestions)
	assert.Equal(t, []string{"intent", "reply"}, result.Fallbacks)
	require.NotNil(t, result.Criteria)
	assert.Equal(t, model.CategoryMusic, result.Criteria.Category)
	assert.False(t, result.Failed)

	rec = do(t, h, "alice", http.MethodGet, "/api/v1/conversations/active", "")
	require.Equal(t, http.StatusOK, rec.Code)
	active := decode[model.ConversationContext](t, rec)
	assert.True(t, active.HasActiveConversation)
	require.NotNil(t, active.Conversation)
	assert.Equal(t, result.ConversationID, active.Conversation.ID)

	rec = do(t, h, "alice", http.MethodGet, "/api/v1/conversations/"+result.ConversationID+"/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	msgs := decode[model.ListMessagesResponse](t, rec)
	require.Len(t, msgs.Messages, 2)
	assert.Equal(t, model.SenderUser, msgs.Messages[0].Sender)
	assert.Equal(t, model.SenderSystem, msgs.Messages[1].Sender)
	assert.Equal(t, result.Reply, msgs.Messages[1].Content)

	rec = do(t, h, "alice", http.MethodGet, "/api/v1/conversations/"+result.ConversationID+"/suggestions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stored := decode[model.ListSuggestionsResponse](t, rec)
	assert.Equal(t, result.Suggestions, stored.Suggestions)
}

func TestSendMessageGreeting(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, "alice", http.MethodPost, "/api/v1/messages", `{"content":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	result := decode[model.ProcessResult](t, rec)
	assert.Equal(t, intent.HelpMessage(), result.Reply)
	assert.Empty(t, result.Suggestions)
	assert.Empty(t, result.Fallbacks)
}

func TestSendMessageValidation(t *testing.T) {
	h := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"empty content", `{"content":"   "}`},
		{"unknown type", `{"content":"hi","type":"fax"}`},
		{"not json", `content=hi`},
		{"too long", `{"content":"` + strings.Repeat("a", 5000) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, "alice", http.MethodPost, "/api/v1/messages", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSendMediaMessage(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, "alice", http.MethodPost, "/api/v1/messages", `{"type":"image"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	result := decode[model.ProcessResult](t, rec)
	assert.Contains(t, result.Reply, "I received your image!")
	assert.Empty(t, result.Suggestions)
}

func TestStreamMessage(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, "alice", http.MethodPost, "/api/v1/messages/stream",
		`{"content":"music events in Boston"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	for _, stage := range []service.Stage{
		service.StageSessionResolved,
		service.StageMessageLogged,
		service.StageIntentResolved,
		service.StageSuggestionsRetrieved,
		service.StageResponseSynthesized,
		service.StageReplyLogged,
	} {
		assert.Contains(t, body, `"stage":"`+string(stage)+`"`)
	}
	assert.Contains(t, body, `"summary":"Searching for`)

	doneAt := strings.Index(body, "event: done")
	require.GreaterOrEqual(t, doneAt, 0)
	assert.Greater(t, doneAt, strings.Index(body, string(service.StageReplyLogged)))
}

func TestStreamRejectsInvalidMessage(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, "alice", http.MethodPost, "/api/v1/messages/stream", `{"content":""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConversationLifecycle(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, "bob", http.MethodPost, "/api/v1/conversations", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode[model.Conversation](t, rec)

	rec = do(t, h, "bob", http.MethodPost, "/api/v1/conversations", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decode[model.Conversation](t, rec)
	assert.NotEqual(t, first.ID, second.ID)

	rec = do(t, h, "bob", http.MethodGet, "/api/v1/conversations?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[model.ListConversationsResponse](t, rec)
	assert.Equal(t, 2, list.Total)

	rec = do(t, h, "bob", http.MethodPost, "/api/v1/conversations/active/end", `{"summary":"done for today"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	ended := decode[model.Conversation](t, rec)
	assert.Equal(t, second.ID, ended.ID)
	assert.NotNil(t, ended.EndedAt)
	assert.Equal(t, "done for today", ended.Summary)

	rec = do(t, h, "bob", http.MethodPost, "/api/v1/conversations/active/end", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, "bob", http.MethodGet, "/api/v1/conversations/active", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[model.ConversationContext](t, rec).HasActiveConversation)
}

func TestConversationAccess(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, "alice", http.MethodPost, "/api/v1/conversations", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	conv := decode[model.Conversation](t, rec)

	rec = do(t, h, "mallory", http.MethodGet, "/api/v1/conversations/"+conv.ID+"/messages", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, "alice", http.MethodGet, "/api/v1/conversations/not-a-uuid/messages", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, "alice", http.MethodGet, "/api/v1/conversations/"+uuid.NewString()+"/suggestions", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, "alice", http.MethodGet, "/api/v1/conversations/"+conv.ID+"/events", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFeedback(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, "alice", http.MethodPost, "/api/v1/feedback",
		`{"item_id":"evt-1","item_type":"event","feedback":"Loved it"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.FeedbackThanks, decode[model.FeedbackResponse](t, rec).Message)

	rec = do(t, h, "alice", http.MethodPost, "/api/v1/feedback", `{"feedback":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, "alice", http.MethodPost, "/api/v1/feedback", `{"feedback":"ok","item_type":"planet"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
