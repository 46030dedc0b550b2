// Package reply produces the natural-language answer for a pipeline run.
package reply

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/capitalize-ai/event-concierge/internal/llm"
	"github.com/capitalize-ai/event-concierge/internal/model"
	"github.com/capitalize-ai/event-concierge/internal/nlu"
	"github.com/capitalize-ai/event-concierge/pkg/logger"
	"github.com/capitalize-ai/event-concierge/pkg/metrics"
)

// NothingFoundMessage is the fallback reply when there are no suggestions.
const NothingFoundMessage = "I couldn't find any events, businesses, or offers matching your request. " +
	"Please try a different category or ask me about specific types of activities."

// Generator produces reply text with an external language service.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStream(ctx context.Context, prompt string, onToken llm.StreamCallback) (string, error)
}

// Synthesis is the synthesized reply and, when the template was used, the
// generator failure that caused it.
type Synthesis struct {
	Text     string
	Fallback error
}

// UsedFallback reports whether the template produced the reply.
func (s Synthesis) UsedFallback() bool {
	return s.Fallback != nil
}

// Synthesizer asks the generator once and falls back to a template.
type Synthesizer struct {
	generator Generator
	logger    *logger.Logger
}

// NewSynthesizer creates a synthesizer. A nil generator always uses the
// template.
func NewSynthesizer(generator Generator, log *logger.Logger) *Synthesizer {
	return &Synthesizer{
		generator: generator,
		logger:    log.With(zap.String("component", "reply")),
	}
}

// Synthesize returns the reply for text given the retrieved suggestions.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, criteria model.Criteria, suggestions []model.SuggestedItem) Synthesis {
	if s.generator == nil {
		return s.fallback(criteria, suggestions, fmt.Errorf("%w: no reply generator configured", model.ErrRemoteUnavailable))
	}

	out, err := s.generator.Generate(ctx, nlu.ReplyPrompt(text, suggestions))
	if err != nil {
		return s.fallback(criteria, suggestions, err)
	}
	return Synthesis{Text: out}
}

// SynthesizeStream is Synthesize with generated tokens forwarded to onToken.
// When the generator fails the template reply is returned whole; tokens
// already forwarded are not retracted.
func (s *Synthesizer) SynthesizeStream(ctx context.Context, text string, criteria model.Criteria, suggestions []model.SuggestedItem, onToken llm.StreamCallback) Synthesis {
	if s.generator == nil {
		return s.fallback(criteria, suggestions, fmt.Errorf("%w: no reply generator configured", model.ErrRemoteUnavailable))
	}

	out, err := s.generator.GenerateStream(ctx, nlu.ReplyPrompt(text, suggestions), onToken)
	if err != nil {
		return s.fallback(criteria, suggestions, err)
	}
	return Synthesis{Text: out}
}

func (s *Synthesizer) fallback(criteria model.Criteria, suggestions []model.SuggestedItem, err error) Synthesis {
	metrics.RecordFallback("reply", model.FallbackReason(err))
	s.logger.Warn("reply synthesis fell back to template",
		zap.String("conversation_id", criteria.ConversationID),
		zap.String("reason", model.FallbackReason(err)),
		zap.Int("suggestions", len(suggestions)),
		zap.Error(err),
	)
	return Synthesis{Text: Template(suggestions), Fallback: err}
}

var sections = []struct {
	itemType model.ItemType
	heading  string
}{
	{model.ItemEvent, "Events:"},
	{model.ItemBusiness, "Businesses:"},
	{model.ItemOffer, "Offers:"},
}

// Template renders suggestions grouped by type with a closing count.
func Template(suggestions []model.SuggestedItem) string {
	if len(suggestions) == 0 {
		return NothingFoundMessage
	}

	var b strings.Builder
	for _, sec := range sections {
		wrote := false
		for _, item := range suggestions {
			if item.Type != sec.itemType {
				continue
			}
			if !wrote {
				b.WriteString(sec.heading)
				b.WriteString("\n")
				wrote = true
			}
			fmt.Fprintf(&b, "• %s\n", item.Title)
		}
		if wrote {
			b.WriteString("\n")
		}
	}

	noun := "suggestions"
	if len(suggestions) == 1 {
		noun = "suggestion"
	}
	fmt.Fprintf(&b, "I found %d total %s. Let me know if you'd like more details about any specific item!", len(suggestions), noun)
	return b.String()
}
