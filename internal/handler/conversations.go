// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/event-concierge/internal/middleware"
	"github.com/capitalize-ai/event-concierge/internal/model"
	"github.com/capitalize-ai/event-concierge/internal/service"
	"github.com/capitalize-ai/event-concierge/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
		logger:  log,
	}
}

type endConversationRequest struct {
	Summary string `json:"summary"`
}

func (h *ConversationHandler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg,
			zap.String("user_id", middleware.GetUserID(r.Context())),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
	}
	if status == http.StatusNotFound {
		msg = "conversation not found"
	}
	writeError(w, status, msg)
}

// conversationID reads and validates the {id} path parameter.
func conversationID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}

// Start handles POST /api/v1/conversations
func (h *ConversationHandler) Start(w http.ResponseWriter, r *http.Request) {
	conv, err := h.service.Start(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err, "failed to start conversation")
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20, 1, 100)
	offset := queryInt(r, "offset", 0, 0, 1<<30)

	resp, err := h.service.List(r.Context(), middleware.GetUserID(r.Context()), limit, offset)
	if err != nil {
		h.fail(w, r, err, "failed to list conversations")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Active handles GET /api/v1/conversations/active
func (h *ConversationHandler) Active(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Context(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err, "failed to get conversation context")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// EndActive handles POST /api/v1/conversations/active/end
func (h *ConversationHandler) EndActive(w http.ResponseWriter, r *http.Request) {
	var req endConversationRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.service.EndActive(r.Context(), middleware.GetUserID(r.Context()), req.Summary)
	if err != nil {
		h.fail(w, r, err, "failed to end conversation")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Messages handles GET /api/v1/conversations/{id}/messages
func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	limit := queryInt(r, "limit", 50, 1, 100)
	offset := queryInt(r, "offset", 0, 0, 1<<30)

	resp, err := h.service.Messages(r.Context(), middleware.GetUserID(r.Context()), id, limit, offset)
	if err != nil {
		h.fail(w, r, err, "failed to get messages")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Suggestions handles GET /api/v1/conversations/{id}/suggestions
func (h *ConversationHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	limit := queryInt(r, "limit", 5, 1, 50)

	resp, err := h.service.Suggestions(r.Context(), middleware.GetUserID(r.Context()), id, limit)
	if err != nil {
		h.fail(w, r, err, "failed to get suggestions")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Events handles GET /api/v1/conversations/{id}/events
// Supports ?after_sequence=N for resuming from a specific point
func (h *ConversationHandler) Events(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	var afterSequence uint64
	if seq := r.URL.Query().Get("after_sequence"); seq != "" {
		if parsed, err := strconv.ParseUint(seq, 10, 64); err == nil {
			afterSequence = parsed
		}
	}
	limit := queryInt(r, "limit", 50, 1, 100)

	resp, err := h.service.Events(r.Context(), middleware.GetUserID(r.Context()), id, afterSequence, limit)
	if err != nil {
		h.fail(w, r, err, "failed to get events")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Feedback handles POST /api/v1/feedback
func (h *ConversationHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req model.FeedbackRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateFeedback(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Feedback(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		h.fail(w, r, err, "failed to record feedback")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
