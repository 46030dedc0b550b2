package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/capitalize-ai/event-concierge/internal/intent"
	"github.com/capitalize-ai/event-concierge/internal/middleware"
	"github.com/capitalize-ai/event-concierge/internal/model"
	"github.com/capitalize-ai/event-concierge/internal/service"
	"github.com/capitalize-ai/event-concierge/pkg/logger"
	"github.com/capitalize-ai/event-concierge/pkg/metrics"
)

// StreamHandler runs the pipeline over server-sent events.
type StreamHandler struct {
	orchestrator *service.Orchestrator
	logger       *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(orchestrator *service.Orchestrator, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		orchestrator: orchestrator,
		logger:       log,
	}
}

// sseWriter serializes event writes; reply tokens may arrive from the
// provider's stream reader.
type sseWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseWriter) send(event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Stream handles POST /api/v1/messages/stream. It emits one "stage" event
// per pipeline transition, "token" events while the reply is generated,
// and a final "done" event carrying the ProcessResult.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	req, ok := readMessage(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	sse := &sseWriter{w: w, flusher: flusher}

	result, err := h.orchestrator.ProcessUserMessage(ctx, service.ProcessRequest{
		UserID:  userID,
		Content: req.Content,
		Type:    req.Type,
		OnStage: func(stage service.Stage, partial *model.ProcessResult) {
			ev := &model.StageEvent{
				Stage:          string(stage),
				ConversationID: partial.ConversationID,
			}
			if stage == service.StageIntentResolved && partial.Criteria != nil {
				ev.Summary = intent.SearchSummary(*partial.Criteria)
			}
			sse.send("stage", ev)
		},
		OnToken: func(token string, index int) error {
			return sse.send("token", &model.TokenEvent{Token: token, Index: index})
		},
	})
	if err != nil {
		h.logger.Warn("stream not completed",
			zap.String("user_id", userID),
			zap.String("correlation_id", middleware.GetCorrelationID(ctx)),
			zap.Error(err),
		)
		sse.send("error", &model.ErrorEvent{
			Code:    "pipeline_error",
			Message: "failed to process message",
		})
		return
	}

	sse.send("done", result)
}
