package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/capitalize-ai/event-concierge/internal/llm"
	"github.com/capitalize-ai/event-concierge/internal/model"
	"github.com/capitalize-ai/event-concierge/pkg/metrics"
	"github.com/capitalize-ai/event-concierge/pkg/tracing"
)

// Generate runs the generative reply call and returns the reply text.
// Errors wrap model.ErrRemoteUnavailable or model.ErrMalformedResponse.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracing.Tracer().Start(ctx, "nlu.Generate")
	defer span.End()

	resp, err := c.complete(ctx, "reply", c.replyRequest(prompt))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	reply, err := c.ParseReply(resp.Content)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return reply, nil
}

// GenerateStream is Generate with tokens forwarded to onToken as they
// arrive. A JSON-wrapped answer is unwrapped on the fly, so the forwarded
// tokens join to the returned text.
func (c *Client) GenerateStream(ctx context.Context, prompt string, onToken llm.StreamCallback) (string, error) {
	ctx, span := tracing.Tracer().Start(ctx, "nlu.GenerateStream")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ReplyTimeout)
	defer cancel()

	req := c.replyRequest(prompt)
	req.MaxTokens = MaxTokens
	req.Temperature = Temperature
	req.TopP = TopP
	req.Stream = true

	start := time.Now()
	resp, err := c.llm.CompleteStream(ctx, req, newReplyStream(onToken).Write)
	if err != nil {
		metrics.RecordLLMCall("reply_stream", "", "error", time.Since(start).Seconds(), 0, 0)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("%w: %v", model.ErrRemoteUnavailable, err)
	}
	metrics.RecordLLMCall("reply_stream", resp.Model, "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)

	return c.ParseReply(resp.Content)
}

func (c *Client) replyRequest(prompt string) *llm.CompletionRequest {
	return &llm.CompletionRequest{
		Model:    c.cfg.ReplyModel,
		Messages: []llm.ChatMessage{{Role: "user", Content: prompt}},
	}
}

// ParseReply trims the model output and, when it is a JSON object, decodes
// it against the reply schema. Plain text is returned as is.
func (c *Client) ParseReply(content string) (string, error) {
	text := stripCodeFence(strings.TrimSpace(content))
	if text == "" {
		return "", fmt.Errorf("%w: empty reply", model.ErrMalformedResponse)
	}
	if !strings.HasPrefix(text, "{") {
		return text, nil
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrMalformedResponse, err)
	}
	if err := c.validators.reply.Validate(raw); err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrMalformedResponse, err)
	}

	reply, _ := raw["response"].(string)
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("%w: empty reply", model.ErrMalformedResponse)
	}
	return reply, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
