package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient is the OpenAI LLM client. It also talks to OpenAI-compatible
// servers when created with NewOpenAICompatibleClient.
type OpenAIClient struct {
	client       *openai.Client
	name         string
	defaultModel string
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	return &OpenAIClient{
		client:       openai.NewClient(apiKey),
		name:         string(ProviderOpenAI),
		defaultModel: "gpt-4o-mini",
	}, nil
}

// NewOpenAICompatibleClient creates a client for a self-hosted server that
// speaks the OpenAI chat completions API. Local servers usually ignore the
// key, so an empty one is allowed.
func NewOpenAICompatibleClient(baseURL, apiKey string) (*OpenAIClient, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required for a local LLM server")
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")

	return &OpenAIClient{
		client:       openai.NewClientWithConfig(cfg),
		name:         string(ProviderLocal),
		defaultModel: "Llama 3 8B Instruct",
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return c.name
}

// Models returns available models.
func (c *OpenAIClient) Models() []string {
	if c.name == string(ProviderLocal) {
		return []string{c.defaultModel}
	}
	return []string{
		"gpt-4o-mini",
		"gpt-4o",
		"gpt-4-turbo",
	}
}

func (c *OpenAIClient) request(req *CompletionRequest) (openai.ChatCompletionRequest, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	out := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
		TopP:        float32(req.TopP),
		Stream:      req.Stream,
	}

	if req.ResponseSchema != nil {
		raw, err := json.Marshal(req.ResponseSchema)
		if err != nil {
			return out, fmt.Errorf("marshal response schema: %w", err)
		}
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   name,
				Schema: json.RawMessage(raw),
			},
		}
	}

	return out, nil
}

// Complete sends a completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	chatReq, err := c.request(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, err
	}

	var content, stopReason string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		stopReason = string(resp.Choices[0].FinishReason)
	}

	return &CompletionResponse{
		Content:    content,
		Model:      resp.Model,
		TokensIn:   resp.Usage.PromptTokens,
		TokensOut:  resp.Usage.CompletionTokens,
		StopReason: stopReason,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// CompleteStream sends a streaming completion request.
func (c *OpenAIClient) CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error) {
	start := time.Now()

	chatReq, err := c.request(req)
	if err != nil {
		return nil, err
	}
	chatReq.Stream = true

	stream, err := c.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var content strings.Builder
	var stopReason string
	index := 0

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if len(response.Choices) > 0 {
			delta := response.Choices[0].Delta.Content
			if delta != "" {
				content.WriteString(delta)
				if err := callback(delta, index); err != nil {
					return nil, err
				}
				index++
			}

			if response.Choices[0].FinishReason != "" {
				stopReason = string(response.Choices[0].FinishReason)
			}
		}
	}

	// Streaming responses carry no usage block.
	return &CompletionResponse{
		Content:    content.String(),
		Model:      chatReq.Model,
		StopReason: stopReason,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}
