package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localServer(t *testing.T, handle func(w http.ResponseWriter, body map[string]any)) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		if !assert.NoError(t, json.Unmarshal(raw, &body)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		handle(w, body)
	}))
	t.Cleanup(srv.Close)

	c, err := NewOpenAICompatibleClient(srv.URL+"/v1/", "")
	require.NoError(t, err)
	return c
}

func TestOpenAICompatibleComplete(t *testing.T) {
	var got map[string]any
	c := localServer(t, func(w http.ResponseWriter, body map[string]any) {
		got = body
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","model":"local-model",
			"choices":[{"index":0,"message":{"role":"assistant","content":"{\"response\":\"hi\"}"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":12,"completion_tokens":4,"total_tokens":16}}`)
	})

	resp, err := c.Complete(context.Background(), &CompletionRequest{
		System:      "extract criteria",
		Messages:    []ChatMessage{{Role: "user", Content: "jazz tonight"}},
		MaxTokens:   200,
		Temperature: 0.3,
		TopP:        0.9,
		ResponseSchema: &jsonschema.Schema{
			Type:     "object",
			Required: []string{"response"},
		},
		SchemaName: "reply",
	})
	require.NoError(t, err)

	assert.Equal(t, `{"response":"hi"}`, resp.Content)
	assert.Equal(t, "local-model", resp.Model)
	assert.Equal(t, 12, resp.TokensIn)
	assert.Equal(t, 4, resp.TokensOut)
	assert.Equal(t, "stop", resp.StopReason)

	assert.Equal(t, "Llama 3 8B Instruct", got["model"])
	assert.EqualValues(t, 200, got["max_tokens"])
	messages := got["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	format := got["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, "reply", format["json_schema"].(map[string]any)["name"])
}

func TestOpenAICompatibleCompleteStream(t *testing.T) {
	c := localServer(t, func(w http.ResponseWriter, body map[string]any) {
		assert.Equal(t, true, body["stream"])
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{
			`{"id":"s1","object":"chat.completion.chunk","model":"m","choices":[{"index":0,"delta":{"content":"Jazz "}}]}`,
			`{"id":"s1","object":"chat.completion.chunk","model":"m","choices":[{"index":0,"delta":{"content":"tonight"}}]}`,
			`{"id":"s1","object":"chat.completion.chunk","model":"m","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		} {
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var tokens []string
	resp, err := c.CompleteStream(context.Background(), &CompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	}, func(token string, index int) error {
		assert.Equal(t, len(tokens), index)
		tokens = append(tokens, token)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Jazz ", "tonight"}, tokens)
	assert.Equal(t, "Jazz tonight", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
}

func TestOpenAICompatibleServerError(t *testing.T) {
	c := localServer(t, func(w http.ResponseWriter, _ map[string]any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"model not loaded","type":"server_error"}}`)
	})

	_, err := c.Complete(context.Background(), &CompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	assert.Error(t, err)
}

func TestNewClient(t *testing.T) {
	_, err := NewClient("mystery", Options{})
	assert.Error(t, err)

	_, err = NewClient(ProviderOpenAI, Options{})
	assert.Error(t, err)

	_, err = NewClient(ProviderLocal, Options{})
	assert.Error(t, err)

	c, err := NewClient(ProviderLocal, Options{BaseURL: "http://localhost:4891/v1"})
	require.NoError(t, err)
	assert.Equal(t, "local", c.Name())
	assert.Equal(t, []string{"Llama 3 8B Instruct"}, c.Models())
}
