package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/agenthands/docgraph/internal/config"
)

func TestOpenAIClient_GenerateAndEmbed(t *testing.T) {
	var embedModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/chat/completions":
			fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"invoice"}}]}`)
		case "/v1/embeddings":
			var req map[string]any
			_ = json.NewDecoder(r.Body).Decode(&req)
			embedModel, _ = req["model"].(string)
			fmt.Fprint(w, `{"data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewOpenAIClient("key", "gpt-test", "embed-test", srv.URL+"/v1")

	out, err := c.Generate(context.Background(), "classify")
	require.NoError(t, err)
	assert.Equal(t, "invoice", out)

	vec, err := c.Embed(context.Background(), "Acme : Organization")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vec)
	assert.Equal(t, "embed-test", embedModel)
}

func TestOpenAIClient_SystemPromptAndTruncation(t *testing.T) {
	var roles []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, m := range req.Messages {
			roles = append(roles, m.Role)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"index":0,"finish_reason":"length","message":{"role":"assistant","content":"{\"entities\": ["}}]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("key", "gpt-test", "", srv.URL+"/v1")
	_, err := c.Generate(context.Background(), "extract")
	assert.ErrorIs(t, err, ErrTruncated)
	assert.False(t, IsTransient(err))
	assert.Equal(t, []string{openai.ChatMessageRoleSystem, openai.ChatMessageRoleUser}, roles)
}

func TestOpenAIClient_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("key", "gpt-test", "", srv.URL+"/v1")
	_, err := c.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"openai 429", &openai.APIError{HTTPStatusCode: 429}, true},
		{"openai 400", &openai.APIError{HTTPStatusCode: 400}, false},
		{"openai request 502", fmt.Errorf("wrapped: %w", &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")}), true},
		{"anthropic rate limit", &anthropic.APIError{Type: anthropic.ErrTypeRateLimit}, true},
		{"anthropic invalid", &anthropic.APIError{Type: anthropic.ErrTypeInvalidRequest}, false},
		{"google 503", fmt.Errorf("gemini generate: %w", &googleapi.Error{Code: 503}), true},
		{"google 403", &googleapi.Error{Code: 403}, false},
		{"truncated", fmt.Errorf("openai chat: %w", ErrTruncated), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestFactory(t *testing.T) {
	ctx := context.Background()

	c, err := NewClient(ctx, config.LLMConfig{Provider: "ollama", Model: "llama3"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	c, err = NewClient(ctx, config.LLMConfig{Provider: "Claude", Model: "claude-3-5-sonnet-latest"})
	require.NoError(t, err)
	assert.IsType(t, &ClaudeClient{}, c)
	_, embeds := c.(EmbedderClient)
	assert.False(t, embeds)

	_, err = NewClient(ctx, config.LLMConfig{Provider: "cohere"})
	assert.Error(t, err)

	e, err := NewEmbedder(ctx, config.EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-large"})
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-large", e.(*OpenAIClient).embeddingModel)

	_, err = NewEmbedder(ctx, config.EmbeddingConfig{Provider: "claude"})
	assert.Error(t, err)
}

func TestOllamaURL(t *testing.T) {
	assert.Equal(t, "http://localhost:11434/v1", ollamaURL(""))
	assert.Equal(t, "http://gpu:11434/v1", ollamaURL("http://gpu:11434/"))
	assert.Equal(t, "http://gpu:11434/v1", ollamaURL("http://gpu:11434/v1"))
}
