package nlu

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/event-concierge/internal/llm"
	"github.com/capitalize-ai/event-concierge/internal/model"
	"github.com/capitalize-ai/event-concierge/pkg/logger"
)

type fakeLLM struct {
	CompleteFunc       func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error)
	CompleteStreamFunc func(ctx context.Context, req *llm.CompletionRequest, cb llm.StreamCallback) (*llm.CompletionResponse, error)
	requests           []*llm.CompletionRequest
}

func (f *fakeLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.requests = append(f.requests, req)
	return f.CompleteFunc(ctx, req)
}

func (f *fakeLLM) CompleteStream(ctx context.Context, req *llm.CompletionRequest, cb llm.StreamCallback) (*llm.CompletionResponse, error) {
	f.requests = append(f.requests, req)
	return f.CompleteStreamFunc(ctx, req, cb)
}

func (f *fakeLLM) Name() string     { return "fake" }
func (f *fakeLLM) Models() []string { return []string{"fake-1"} }

func replying(content string) *fakeLLM {
	return &fakeLLM{
		CompleteFunc: func(context.Context, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{Content: content, Model: "fake-1"}, nil
		},
	}
}

func newTestClient(t *testing.T, f *fakeLLM) *Client {
	t.Helper()
	c, err := NewClient(f, Config{Timeout: time.Second}, logger.NewNop())
	require.NoError(t, err)
	return c
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    model.Criteria
		wantErr error
	}{
		{
			name:    "plain object",
			content: `{"intent":"search_events","category":"music","date_range":"weekend","city":"Boston","search_types":["events"]}`,
			want: model.Criteria{
				Intent:      "search_events",
				Category:    model.CategoryMusic,
				DateRange:   model.DateWeekend,
				City:        "Boston",
				SearchTypes: []model.SearchType{model.SearchEvents},
				Source:      model.SourceRemote,
			},
		},
		{
			name:    "object wrapped in prose with nulls and mixed case",
			content: "Sure! Here you go:\n{\"category\":\"Food\",\"price_range\":\"LOW\",\"city\":null,\"subcategory\":\"\"}\nEnjoy.",
			want: model.Criteria{
				Category:   model.CategoryFood,
				PriceRange: model.PriceLow,
				Source:     model.SourceRemote,
			},
		},
		{
			name:    "empty object gets the universal default",
			content: `{}`,
			want: model.Criteria{
				Category:  model.CategoryGeneral,
				DateRange: model.DateUpcoming,
				Source:    model.SourceRemote,
			},
		},
		{
			name:    "no object",
			content: "I could not understand that.",
			wantErr: model.ErrMalformedResponse,
		},
		{
			name:    "broken json",
			content: `{"category": "music",}`,
			wantErr: model.ErrMalformedResponse,
		},
		{
			name:    "wrong type",
			content: `{"category": 42}`,
			wantErr: model.ErrMalformedResponse,
		},
		{
			name:    "category outside enum",
			content: `{"category": "opera"}`,
			wantErr: model.ErrInvalidFields,
		},
		{
			name:    "search type outside enum",
			content: `{"search_types": ["events", "restaurants"]}`,
			wantErr: model.ErrInvalidFields,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, replying(tt.content))

			got, err := c.Extract(context.Background(), "anything")
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractUsesFixedGenerationParameters(t *testing.T) {
	f := replying(`{"category":"art"}`)
	c := newTestClient(t, f)

	_, err := c.Extract(context.Background(), "art shows")
	require.NoError(t, err)

	require.Len(t, f.requests, 1)
	req := f.requests[0]
	assert.Equal(t, MaxTokens, req.MaxTokens)
	assert.Equal(t, Temperature, req.Temperature)
	assert.Equal(t, TopP, req.TopP)
	assert.NotNil(t, req.ResponseSchema)
	assert.Contains(t, req.Messages[0].Content, "art shows")
}

func TestExtractRemoteFailure(t *testing.T) {
	f := &fakeLLM{
		CompleteFunc: func(context.Context, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, errors.New("connection refused")
		},
	}
	c := newTestClient(t, f)

	_, err := c.Extract(context.Background(), "jazz tonight")
	assert.ErrorIs(t, err, model.ErrRemoteUnavailable)
	assert.Len(t, f.requests, 1, "no retry")
}

func TestExtractTimeout(t *testing.T) {
	f := &fakeLLM{
		CompleteFunc: func(ctx context.Context, _ *llm.CompletionRequest) (*llm.CompletionResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	c, err := NewClient(f, Config{Timeout: 20 * time.Millisecond}, logger.NewNop())
	require.NoError(t, err)

	_, err = c.Extract(context.Background(), "jazz tonight")
	assert.ErrorIs(t, err, model.ErrRemoteUnavailable)
}

func TestParseReply(t *testing.T) {
	c := newTestClient(t, replying(""))

	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"plain text", "  Here are a few ideas for you!  ", "Here are a few ideas for you!", false},
		{"json wrapped", `{"response": "Check out Jazz Night!"}`, "Check out Jazz Night!", false},
		{"fenced json", "```json\n{\"response\": \"Try the museum.\"}\n```", "Try the museum.", false},
		{"reply with quotes", `{"response": "The \"Big Show\" is on tonight"}`, `The "Big Show" is on tonight`, false},
		{"empty", "   ", "", true},
		{"missing response key", `{"text": "hello"}`, "", true},
		{"response wrong type", `{"response": 3}`, "", true},
		{"blank response", `{"response": "  "}`, "", true},
		{"broken json", `{"response": "hi"`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ParseReply(tt.content)
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateStream(t *testing.T) {
	f := &fakeLLM{
		CompleteStreamFunc: func(_ context.Context, _ *llm.CompletionRequest, cb llm.StreamCallback) (*llm.CompletionResponse, error) {
			for i, tok := range []string{"Have ", "fun!"} {
				if err := cb(tok, i); err != nil {
					return nil, err
				}
			}
			return &llm.CompletionResponse{Content: "Have fun!"}, nil
		},
	}
	c := newTestClient(t, f)

	var tokens []string
	got, err := c.GenerateStream(context.Background(), "prompt", func(token string, _ int) error {
		tokens = append(tokens, token)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Have fun!", got)
	assert.Equal(t, []string{"Have", " fun!"}, tokens)
}

func TestGenerateStreamUnwrapsJSON(t *testing.T) {
	tests := []struct {
		name   string
		deltas []string
		want   string
	}{
		{"json wrapped", []string{`{"response": "`, `Try the `, `Jazz Night`, `!"}`}, "Try the Jazz Night!"},
		{"key split across deltas", []string{`{"resp`, `onse"`, ` :`, `"Blue `, `Note"}`}, "Blue Note"},
		{"escapes", []string{`{"response": "The \"Big`, ` Show\" \u00e9t\u00e9\nsoon"}`}, "The \"Big Show\" \u00e9t\u00e9\nsoon"},
		{"padded value", []string{`{"response": "  Hi `, ` there  "}`}, "Hi  there"},
		{"fenced json", []string{"```json\n{\"response\"", `: "Museum day."}`, "\n```"}, "Museum day."},
		{"plain text with padding", []string{"  Have ", "fun! ", " "}, "Have fun!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeLLM{
				CompleteStreamFunc: func(_ context.Context, _ *llm.CompletionRequest, cb llm.StreamCallback) (*llm.CompletionResponse, error) {
					for i, d := range tt.deltas {
						if err := cb(d, i); err != nil {
							return nil, err
						}
					}
					return &llm.CompletionResponse{Content: strings.Join(tt.deltas, "")}, nil
				},
			}
			c := newTestClient(t, f)

			var tokens []string
			got, err := c.GenerateStream(context.Background(), "prompt", func(token string, index int) error {
				assert.Equal(t, len(tokens), index)
				tokens = append(tokens, token)
				return nil
			})
			require.NoError(t, err)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, strings.Join(tokens, ""))
		})
	}
}

func TestReplyPromptNumbersSuggestions(t *testing.T) {
	prompt := ReplyPrompt("jazz this weekend", []model.SuggestedItem{
		{Type: model.ItemEvent, Title: "Jazz Night"},
		{Type: model.ItemBusiness, Title: "Blue Note Cafe", Description: "Live music bar"},
	})

	assert.Contains(t, prompt, `"jazz this weekend"`)
	assert.Contains(t, prompt, "1. event: Jazz Night")
	assert.Contains(t, prompt, "2. business: Blue Note Cafe - Live music bar")
}
