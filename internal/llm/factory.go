package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/docgraph/internal/config"
	"github.com/agenthands/docgraph/internal/logger"
)

// NewClient builds the text-generation client used for classification and
// extraction.
func NewClient(ctx context.Context, cfg config.LLMConfig) (LLMClient, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, "", cfg.BaseURL), nil

	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model, "")

	case "claude":
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "ollama":
		baseURL := ollamaURL(cfg.BaseURL)
		logger.Info("using ollama via OpenAI-compatible API", "base_url", baseURL, "model", cfg.Model)
		return NewOpenAIClient(ollamaKey(cfg.APIKey), cfg.Model, "", baseURL), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}

// NewEmbedder builds the embedding client. Claude has no embedding endpoint
// and is rejected by config validation.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (EmbedderClient, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, "", cfg.Model, cfg.BaseURL), nil

	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, "", cfg.Model)

	case "ollama":
		return NewOpenAIClient(ollamaKey(cfg.APIKey), "", cfg.Model, ollamaURL(cfg.BaseURL)), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}
}

func ollamaURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
	}
	return baseURL
}

// Ollama ignores the key but the OpenAI client requires one.
func ollamaKey(apiKey string) string {
	if apiKey == "" {
		return "ollama"
	}
	return apiKey
}
