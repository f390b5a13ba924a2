package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/agenthands/docgraph/internal/metrics"
)

// Extraction output for a full contract can be long.
const claudeMaxTokens = 4096

// ClaudeClient generates with Anthropic models. Anthropic has no embedding
// endpoint, so embeddings come from another provider.
type ClaudeClient struct {
	api   *anthropic.Client
	model string
}

func NewClaudeClient(apiKey, model, baseURL string) *ClaudeClient {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &ClaudeClient{api: anthropic.NewClient(apiKey, opts...), model: model}
}

func (c *ClaudeClient) Generate(ctx context.Context, prompt string) (string, error) {
	metrics.ExternalCalls.WithLabelValues("llm").Inc()
	temperature := float32(0)
	resp, err := c.api.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		System:      systemPrompt,
		Temperature: &temperature,
		MaxTokens:   claudeMaxTokens,
		Messages:    []anthropic.Message{anthropic.NewUserTextMessage(prompt)},
	})
	if err != nil {
		return "", fmt.Errorf("claude messages: %w", err)
	}
	if resp.StopReason == anthropic.MessagesStopReasonMaxTokens {
		return "", fmt.Errorf("claude messages: %w", ErrTruncated)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Text != nil {
			sb.WriteString(*block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("claude messages: %w", ErrEmptyResponse)
	}
	return sb.String(), nil
}
