package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/event-concierge/internal/middleware"
	"github.com/capitalize-ai/event-concierge/internal/model"
	"github.com/capitalize-ai/event-concierge/internal/service"
	"github.com/capitalize-ai/event-concierge/pkg/logger"
)

// MessageHandler runs the pipeline for inbound messages.
type MessageHandler struct {
	orchestrator *service.Orchestrator
	logger       *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(orchestrator *service.Orchestrator, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		orchestrator: orchestrator,
		logger:       log,
	}
}

// readMessage decodes and validates a SendMessageRequest.
func readMessage(w http.ResponseWriter, r *http.Request) (*model.SendMessageRequest, bool) {
	var req model.SendMessageRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if err := middleware.ValidateMessage(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &req, true
}

// Send handles POST /api/v1/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	req, ok := readMessage(w, r)
	if !ok {
		return
	}

	result, err := h.orchestrator.ProcessUserMessage(ctx, service.ProcessRequest{
		UserID:  userID,
		Content: req.Content,
		Type:    req.Type,
	})
	if err != nil {
		h.logger.Warn("message not processed",
			zap.String("user_id", userID),
			zap.String("correlation_id", middleware.GetCorrelationID(ctx)),
			zap.Error(err),
		)
		writeError(w, statusFor(err), "failed to process message")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
