package intent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/event-concierge/internal/model"
	"github.com/capitalize-ai/event-concierge/pkg/logger"
	"github.com/capitalize-ai/event-concierge/pkg/metrics"
)

// RemoteExtractor produces criteria with an external language service.
// Failures wrap model.ErrRemoteUnavailable, model.ErrMalformedResponse or
// model.ErrInvalidFields.
type RemoteExtractor interface {
	Extract(ctx context.Context, text string) (model.Criteria, error)
}

// Resolution is the outcome of resolving a message's criteria.
type Resolution struct {
	Criteria model.Criteria
	// Fallback is the remote failure that sent resolution to the rules, or
	// nil when the remote result was used.
	Fallback error
}

// UsedFallback reports whether the rule-based extractor produced the result.
func (r Resolution) UsedFallback() bool {
	return r.Fallback != nil
}

// Resolver tries the remote extractor once and falls back to the rules.
type Resolver struct {
	remote RemoteExtractor
	rules  *Extractor
	logger *logger.Logger
	now    func() time.Time
}

// NewResolver creates a resolver. A nil remote makes every resolution use
// the rules.
func NewResolver(remote RemoteExtractor, rules *Extractor, log *logger.Logger) *Resolver {
	if rules == nil {
		rules = NewExtractor()
	}
	return &Resolver{
		remote: remote,
		rules:  rules,
		logger: log.With(zap.String("component", "intent")),
		now:    time.Now,
	}
}

// Resolve produces criteria for text, annotated with the conversation and
// the resolution time. It never fails.
func (r *Resolver) Resolve(ctx context.Context, text, conversationID string) Resolution {
	criteria, err := r.remoteExtract(ctx, text)
	if err != nil {
		metrics.RecordFallback("intent", model.FallbackReason(err))
		r.logger.Warn("intent resolution fell back to rules",
			zap.String("conversation_id", conversationID),
			zap.String("reason", model.FallbackReason(err)),
			zap.Error(err),
		)
		criteria = r.rules.Extract(text)
	}

	resolvedAt := r.now()
	criteria.ConversationID = conversationID
	criteria.ResolvedAt = &resolvedAt

	return Resolution{Criteria: criteria, Fallback: err}
}

func (r *Resolver) remoteExtract(ctx context.Context, text string) (model.Criteria, error) {
	if r.remote == nil {
		return model.Criteria{}, fmt.Errorf("%w: no remote extractor configured", model.ErrRemoteUnavailable)
	}
	return r.remote.Extract(ctx, text)
}
