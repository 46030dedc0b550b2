// Package service runs the conversation pipeline and the conversation
// management operations built on it.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/capitalize-ai/event-concierge/internal/intent"
	"github.com/capitalize-ai/event-concierge/internal/llm"
	"github.com/capitalize-ai/event-concierge/internal/model"
	"github.com/capitalize-ai/event-concierge/internal/reply"
	"github.com/capitalize-ai/event-concierge/internal/store"
	"github.com/capitalize-ai/event-concierge/internal/suggest"
	"github.com/capitalize-ai/event-concierge/pkg/logger"
	"github.com/capitalize-ai/event-concierge/pkg/metrics"
	"github.com/capitalize-ai/event-concierge/pkg/tracing"
)

// ApologyMessage is the reply when the pipeline cannot complete.
const ApologyMessage = "Sorry, I encountered an error processing your message. Please try again later."

// Stage is a pipeline state transition.
type Stage string

const (
	StageSessionResolved      Stage = "session_resolved"
	StageMessageLogged        Stage = "message_logged"
	StageIntentResolved       Stage = "intent_resolved"
	StageSuggestionsRetrieved Stage = "suggestions_retrieved"
	StageResponseSynthesized  Stage = "response_synthesized"
	StageReplyLogged          Stage = "reply_logged"
)

// StageFunc observes pipeline transitions. result holds what has been
// produced so far and must not be retained.
type StageFunc func(stage Stage, result *model.ProcessResult)

// ProcessRequest is one inbound user message.
type ProcessRequest struct {
	UserID  string
	Content string
	Type    model.MessageType

	// OnStage, when set, is called after each stage.
	OnStage StageFunc
	// OnToken, when set, streams the generated reply.
	OnToken llm.StreamCallback
}

// OrchestratorConfig tunes the pipeline.
type OrchestratorConfig struct {
	// GreetingShortCircuit answers bare greetings and help requests with
	// the help message without searching.
	GreetingShortCircuit bool
}

// Orchestrator runs the message pipeline: session, log, intent,
// suggestions, reply, log.
type Orchestrator struct {
	store       store.ConversationStore
	resolver    *intent.Resolver
	rules       *intent.Extractor
	retriever   *suggest.Retriever
	synthesizer *reply.Synthesizer
	journal     Journal
	cfg         OrchestratorConfig
	logger      *logger.Logger
}

// NewOrchestrator creates an orchestrator. A nil journal disables
// journaling.
func NewOrchestrator(
	conversations store.ConversationStore,
	resolver *intent.Resolver,
	retriever *suggest.Retriever,
	synthesizer *reply.Synthesizer,
	journal Journal,
	cfg OrchestratorConfig,
	log *logger.Logger,
) *Orchestrator {
	if journal == nil {
		journal = nopJournal{}
	}
	return &Orchestrator{
		store:       conversations,
		resolver:    resolver,
		rules:       intent.NewExtractor(),
		retriever:   retriever,
		synthesizer: synthesizer,
		journal:     journal,
		cfg:         cfg,
		logger:      log.With(zap.String("component", "orchestrator")),
	}
}

func validateRequest(req *ProcessRequest) error {
	if strings.TrimSpace(req.UserID) == "" {
		return fmt.Errorf("%w: user id is required", model.ErrInvalidInput)
	}
	if req.Type == "" {
		req.Type = model.MessageText
	}
	if !req.Type.Valid() {
		return fmt.Errorf("%w: unknown message type %q", model.ErrInvalidInput, req.Type)
	}
	if !req.Type.IsMedia() && strings.TrimSpace(req.Content) == "" {
		return fmt.Errorf("%w: content is required", model.ErrInvalidInput)
	}
	return nil
}

// ProcessUserMessage runs the pipeline for one message. Storage failures are
// answered with ApologyMessage and a nil error. Cancellation of ctx returns
// an error and no result.
func (o *Orchestrator) ProcessUserMessage(ctx context.Context, req ProcessRequest) (*model.ProcessResult, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	ctx, span := tracing.Tracer().Start(ctx, "pipeline.ProcessUserMessage")
	defer span.End()
	span.SetAttributes(attribute.String("message_type", string(req.Type)))

	run := &pipelineRun{
		o:      o,
		req:    req,
		result: &model.ProcessResult{Suggestions: []model.SuggestedItem{}},
		logger: o.logger.With(zap.String("user_id", req.UserID)),
	}

	start := time.Now()
	err := run.execute(ctx)

	switch {
	case err == nil:
		metrics.PipelineRunsTotal.WithLabelValues("success").Inc()
		run.logger.Info("message processed",
			zap.Int("suggestions", len(run.result.Suggestions)),
			zap.Strings("fallbacks", run.result.Fallbacks),
			zap.Duration("duration", time.Since(start)),
		)
		return run.result, nil

	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		metrics.PipelineRunsTotal.WithLabelValues("canceled").Inc()
		span.SetStatus(codes.Error, "canceled")
		run.logger.Info("pipeline canceled", zap.Error(err))
		return nil, fmt.Errorf("pipeline canceled: %w", err)

	default:
		metrics.PipelineRunsTotal.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		run.logger.Error("pipeline failed", zap.Error(err))
		run.event(ctx, model.PipelineEventFailure, "orchestrator", model.FallbackReason(err), nil)
		return &model.ProcessResult{
			Reply:          ApologyMessage,
			Suggestions:    []model.SuggestedItem{},
			ConversationID: run.result.ConversationID,
			Failed:         true,
		}, nil
	}
}

// pipelineRun carries the state of one ProcessUserMessage call.
type pipelineRun struct {
	o      *Orchestrator
	req    ProcessRequest
	conv   *model.Conversation
	result *model.ProcessResult
	logger *logger.Logger
	mark   time.Time
}

func fatal(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrPipelineFatal, err)
}

func (r *pipelineRun) execute(ctx context.Context) error {
	r.mark = time.Now()

	conv, created, err := r.o.store.GetOrCreateActive(ctx, r.req.UserID)
	if err != nil {
		return fatal(err)
	}
	if created {
		metrics.ConversationsTotal.Inc()
		r.logger.Info("conversation started", zap.String("conversation_id", conv.ID))
	}
	r.conv = conv
	r.result.ConversationID = conv.ID
	r.logger = r.logger.With(zap.String("conversation_id", conv.ID))
	if err := r.advance(ctx, StageSessionResolved); err != nil {
		return err
	}

	content := r.req.Content
	if strings.TrimSpace(content) == "" {
		content = "[" + string(r.req.Type) + "]"
	}
	userMsg, err := r.appendMessage(ctx, model.SenderUser, r.req.Type, content)
	if err != nil {
		return err
	}
	r.result.UserMessage = userMsg
	if err := r.advance(ctx, StageMessageLogged); err != nil {
		return err
	}

	var text string
	switch {
	case r.req.Type.IsMedia():
		text = mediaReply(r.req.Type)
		r.logger.Info("media message acknowledged", zap.String("type", string(r.req.Type)))
		if err := r.skipSearch(ctx); err != nil {
			return err
		}
	case r.o.cfg.GreetingShortCircuit && r.isBareGreeting():
		text = intent.HelpMessage()
		criteria := r.o.rules.Extract(r.req.Content)
		criteria.ConversationID = conv.ID
		r.result.Criteria = &criteria
		if err := r.skipSearch(ctx); err != nil {
			return err
		}
	default:
		if text, err = r.search(ctx); err != nil {
			return err
		}
	}
	r.result.Reply = text

	replyMsg, err := r.appendMessage(ctx, model.SenderSystem, model.MessageText, text)
	if err != nil {
		return err
	}
	r.result.ReplyMessage = replyMsg
	return r.advance(ctx, StageReplyLogged)
}

// search resolves intent, retrieves suggestions and synthesizes the reply.
func (r *pipelineRun) search(ctx context.Context) (string, error) {
	resolution := r.o.resolver.Resolve(ctx, r.req.Content, r.conv.ID)
	criteria := resolution.Criteria
	r.result.Criteria = &criteria
	if resolution.UsedFallback() {
		r.result.Fallbacks = append(r.result.Fallbacks, "intent")
		r.event(ctx, model.PipelineEventFallback, "intent", model.FallbackReason(resolution.Fallback), nil)
	}
	if err := r.advance(ctx, StageIntentResolved); err != nil {
		return "", err
	}

	suggestions := r.o.retriever.Retrieve(ctx, criteria)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.result.Suggestions = suggestions
	if err := r.o.store.SaveSuggestions(ctx, r.conv.ID, suggestions); err != nil {
		r.logger.Warn("failed to save suggestions", zap.Error(err))
	}
	if len(suggestions) > 0 {
		r.event(ctx, model.PipelineEventSuggestions, "suggest", "", map[string]any{
			"count": len(suggestions),
			"items": itemRefs(suggestions),
		})
	}
	if err := r.advance(ctx, StageSuggestionsRetrieved); err != nil {
		return "", err
	}

	var synthesis reply.Synthesis
	if r.req.OnToken != nil {
		synthesis = r.o.synthesizer.SynthesizeStream(ctx, r.req.Content, criteria, suggestions, r.req.OnToken)
	} else {
		synthesis = r.o.synthesizer.Synthesize(ctx, r.req.Content, criteria, suggestions)
	}
	if synthesis.UsedFallback() {
		r.result.Fallbacks = append(r.result.Fallbacks, "reply")
		r.event(ctx, model.PipelineEventFallback, "reply", model.FallbackReason(synthesis.Fallback), nil)
	}
	if err := r.advance(ctx, StageResponseSynthesized); err != nil {
		return "", err
	}
	return synthesis.Text, nil
}

func (r *pipelineRun) isBareGreeting() bool {
	if !intent.IsGreetingOrHelp(r.req.Content) {
		return false
	}
	c := r.o.rules.Extract(r.req.Content)
	return c.IsDefault()
}

// advance records a completed stage, notifies the observer and stops the
// run if ctx is done.
func (r *pipelineRun) advance(ctx context.Context, stage Stage) error {
	now := time.Now()
	metrics.RecordStage(string(stage), now.Sub(r.mark).Seconds())
	r.mark = now

	if r.req.OnStage != nil {
		r.req.OnStage(stage, r.result)
	}
	return ctx.Err()
}

// skipSearch emits the search stages that a short-circuited run does not
// perform so observers always see the full sequence.
func (r *pipelineRun) skipSearch(ctx context.Context) error {
	for _, stage := range []Stage{StageIntentResolved, StageSuggestionsRetrieved, StageResponseSynthesized} {
		if err := r.advance(ctx, stage); err != nil {
			return err
		}
	}
	return nil
}

func (r *pipelineRun) appendMessage(ctx context.Context, sender model.Sender, msgType model.MessageType, content string) (*model.Message, error) {
	msg, err := r.o.store.AppendMessage(ctx, r.conv.ID, sender, msgType, content)
	if err != nil {
		return nil, fatal(fmt.Errorf("append %s message: %w", sender, err))
	}
	msg.UserID = r.req.UserID
	metrics.MessagesTotal.WithLabelValues(string(sender)).Inc()

	if err := r.o.journal.RecordMessage(ctx, msg); err != nil {
		metrics.JournalPublishFailures.WithLabelValues("message").Inc()
		r.logger.Warn("failed to journal message", zap.String("message_id", msg.ID), zap.Error(err))
	}
	return msg, nil
}

func (r *pipelineRun) event(ctx context.Context, eventType model.PipelineEventType, component, reason string, metadata map[string]any) {
	if r.conv == nil {
		return
	}
	event := &model.PipelineEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: r.conv.ID,
		UserID:         r.req.UserID,
		Type:           eventType,
		Component:      component,
		Reason:         reason,
		Metadata:       metadata,
		CreatedAt:      time.Now(),
	}
	if err := r.o.journal.RecordEvent(context.WithoutCancel(ctx), event); err != nil {
		metrics.JournalPublishFailures.WithLabelValues("event").Inc()
		r.logger.Warn("failed to journal event", zap.String("type", string(eventType)), zap.Error(err))
	}
}

func itemRefs(items []model.SuggestedItem) []string {
	refs := make([]string, len(items))
	for i, it := range items {
		refs[i] = string(it.Type) + ":" + it.ItemID
	}
	return refs
}

func mediaReply(t model.MessageType) string {
	var what string
	switch t {
	case model.MessageImage:
		what = "image"
	case model.MessageAudio:
		what = "audio message"
	case model.MessageVideo:
		what = "video"
	default:
		what = "message"
	}
	return "I received your " + what + "! I can currently only process text messages about events. " +
		"Please send me a text message asking about events you're interested in."
}
