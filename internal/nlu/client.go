// Package nlu adapts a language model into the two remote calls the pipeline
// makes: criteria extraction and reply generation.
package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/capitalize-ai/event-concierge/internal/llm"
	"github.com/capitalize-ai/event-concierge/internal/model"
	"github.com/capitalize-ai/event-concierge/pkg/logger"
	"github.com/capitalize-ai/event-concierge/pkg/metrics"
	"github.com/capitalize-ai/event-concierge/pkg/tracing"
)

// Generation parameters shared by every remote call.
const (
	MaxTokens   = 200
	Temperature = 0.3
	TopP        = 0.9

	// DefaultTimeout bounds a single remote call.
	DefaultTimeout = 30 * time.Second
)

// Config configures a Client.
type Config struct {
	ExtractModel string
	ReplyModel   string
	Timeout      time.Duration
	// ReplyTimeout bounds reply generation. Zero uses Timeout.
	ReplyTimeout time.Duration
}

// Client calls a language model for criteria extraction and reply
// generation. Each call is a single attempt with no retry.
type Client struct {
	llm        llm.Client
	cfg        Config
	validators *validators
	logger     *logger.Logger
}

// NewClient creates a new NLU client on top of an LLM provider.
func NewClient(llmClient llm.Client, cfg Config, log *logger.Logger) (*Client, error) {
	if llmClient == nil {
		return nil, fmt.Errorf("nlu: llm client is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = cfg.Timeout
	}
	v, err := newValidators()
	if err != nil {
		return nil, fmt.Errorf("nlu: resolve schemas: %w", err)
	}
	return &Client{
		llm:        llmClient,
		cfg:        cfg,
		validators: v,
		logger:     log.With(zap.String("component", "nlu"), zap.String("provider", llmClient.Name())),
	}, nil
}

// Extract asks the remote model for criteria. Errors wrap
// model.ErrRemoteUnavailable, model.ErrMalformedResponse or
// model.ErrInvalidFields.
func (c *Client) Extract(ctx context.Context, text string) (model.Criteria, error) {
	ctx, span := tracing.Tracer().Start(ctx, "nlu.Extract")
	defer span.End()

	resp, err := c.complete(ctx, "extract", &llm.CompletionRequest{
		Model:          c.cfg.ExtractModel,
		Messages:       []llm.ChatMessage{{Role: "user", Content: extractionPrompt(text)}},
		ResponseSchema: CriteriaSchema(),
		SchemaName:     "search_criteria",
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return model.Criteria{}, err
	}

	criteria, err := c.ParseCriteria(resp.Content)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug("unusable criteria response",
			zap.Error(err),
			zap.String("content", truncate(resp.Content, 500)),
		)
		return model.Criteria{}, err
	}
	span.SetAttributes(attribute.String("criteria.category", string(criteria.Category)))
	return criteria, nil
}

// ParseCriteria decodes and validates a criteria response. The JSON object
// is taken from the first '{' to the last '}' so that chatty models that
// wrap the object in prose still parse.
func (c *Client) ParseCriteria(content string) (model.Criteria, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return model.Criteria{}, fmt.Errorf("%w: no JSON object in response", model.ErrMalformedResponse)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return model.Criteria{}, fmt.Errorf("%w: %v", model.ErrMalformedResponse, err)
	}
	normalize(raw)

	if err := c.validators.shape.Validate(raw); err != nil {
		return model.Criteria{}, fmt.Errorf("%w: %v", model.ErrMalformedResponse, err)
	}
	if err := c.validators.criteria.Validate(raw); err != nil {
		return model.Criteria{}, fmt.Errorf("%w: %v", model.ErrInvalidFields, err)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return model.Criteria{}, fmt.Errorf("%w: %v", model.ErrMalformedResponse, err)
	}
	var wire wireCriteria
	if err := json.Unmarshal(data, &wire); err != nil {
		return model.Criteria{}, fmt.Errorf("%w: %v", model.ErrMalformedResponse, err)
	}
	criteria := wire.criteria()

	if dropped := criteria.Sanitize(); len(dropped) > 0 {
		return model.Criteria{}, fmt.Errorf("%w: %s", model.ErrInvalidFields, strings.Join(dropped, ", "))
	}
	criteria.ApplyDefault()
	criteria.Source = model.SourceRemote
	return criteria, nil
}

// wireCriteria is the criteria object as the remote model returns it.
type wireCriteria struct {
	Intent         string   `json:"intent"`
	SearchTypes    []string `json:"search_types"`
	Category       string   `json:"category"`
	Subcategory    string   `json:"subcategory"`
	DateRange      string   `json:"date_range"`
	City           string   `json:"city"`
	Location       string   `json:"location"`
	PriceRange     string   `json:"price_range"`
	AgeRestriction string   `json:"age_restriction"`
	Keywords       []string `json:"keywords"`
}

func (w wireCriteria) criteria() model.Criteria {
	c := model.Criteria{
		Intent:         w.Intent,
		Category:       model.Category(w.Category),
		Subcategory:    w.Subcategory,
		DateRange:      model.DateRange(w.DateRange),
		City:           w.City,
		Location:       w.Location,
		PriceRange:     model.PriceRange(w.PriceRange),
		AgeRestriction: model.AgeRestriction(w.AgeRestriction),
		Keywords:       w.Keywords,
	}
	for _, st := range w.SearchTypes {
		c.SearchTypes = append(c.SearchTypes, model.SearchType(st))
	}
	return c
}

// normalize treats nulls and blank strings as absent, trims strings and
// lower-cases enum values.
func normalize(raw map[string]any) {
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			delete(raw, k)
		case string:
			val = strings.TrimSpace(val)
			if val == "" {
				delete(raw, k)
				continue
			}
			raw[k] = val
		case []any:
			if len(val) == 0 {
				delete(raw, k)
			}
		}
	}
	for _, k := range enumFields {
		if s, ok := raw[k].(string); ok {
			raw[k] = strings.ToLower(s)
		}
	}
	if items, ok := raw[fieldSearchTypes].([]any); ok {
		for i, item := range items {
			if s, ok := item.(string); ok {
				items[i] = strings.ToLower(strings.TrimSpace(s))
			}
		}
	}
}

func (c *Client) complete(ctx context.Context, purpose string, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	timeout := c.cfg.Timeout
	if purpose == "reply" {
		timeout = c.cfg.ReplyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req.MaxTokens = MaxTokens
	req.Temperature = Temperature
	req.TopP = TopP

	start := time.Now()
	resp, err := c.llm.Complete(ctx, req)
	if err != nil {
		metrics.RecordLLMCall(purpose, "", "error", time.Since(start).Seconds(), 0, 0)
		c.logger.Warn("remote call failed", zap.String("purpose", purpose), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", model.ErrRemoteUnavailable, err)
	}
	metrics.RecordLLMCall(purpose, resp.Model, "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)
	return resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
