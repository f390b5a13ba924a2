package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/agenthands/docgraph/internal/metrics"
)

const defaultGeminiEmbeddingModel = "text-embedding-004"

type GeminiClient struct {
	api            *genai.Client
	model          string
	embeddingModel string
}

func NewGeminiClient(ctx context.Context, apiKey, model, embeddingModel string) (*GeminiClient, error) {
	api, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if embeddingModel == "" {
		embeddingModel = defaultGeminiEmbeddingModel
	}
	return &GeminiClient{api: api, model: model, embeddingModel: embeddingModel}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	metrics.ExternalCalls.WithLabelValues("llm").Inc()
	m := c.api.GenerativeModel(c.model)
	m.SetTemperature(0)
	m.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini generate: %w", ErrEmptyResponse)
	}
	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonMaxTokens {
		return "", fmt.Errorf("gemini generate: %w", ErrTruncated)
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini generate: %w", ErrEmptyResponse)
	}
	return sb.String(), nil
}

func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	metrics.ExternalCalls.WithLabelValues("embedder").Inc()
	res, err := c.api.EmbeddingModel(c.embeddingModel).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini embed: %w", ErrEmptyResponse)
	}
	return res.Embedding.Values, nil
}

func (c *GeminiClient) Close() error {
	return c.api.Close()
}
