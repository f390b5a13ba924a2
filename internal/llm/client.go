package llm

import (
	"context"
	"errors"
	"net"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
)

var (
	ErrEmptyResponse = errors.New("provider returned no content")
	// ErrTruncated means the output hit the token limit; a retry would be
	// cut at the same place.
	ErrTruncated = errors.New("response truncated at token limit")
)

// systemPrompt is sent with every generation request.
const systemPrompt = "You extract structured business data from documents. " +
	"Answer exactly in the format the user asks for, without commentary."

type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type EmbedderClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// IsTransient reports whether a provider error is worth retrying: rate
// limits, overloads, 5xx responses and network failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var oaAPI *openai.APIError
	if errors.As(err, &oaAPI) {
		return retryableStatus(oaAPI.HTTPStatusCode)
	}
	var oaReq *openai.RequestError
	if errors.As(err, &oaReq) {
		return retryableStatus(oaReq.HTTPStatusCode)
	}
	var anAPI *anthropic.APIError
	if errors.As(err, &anAPI) {
		return anAPI.IsRateLimitErr() || anAPI.IsOverloadedErr() || anAPI.IsApiErr()
	}
	var anReq *anthropic.RequestError
	if errors.As(err, &anReq) {
		return retryableStatus(anReq.StatusCode)
	}
	var gAPI *googleapi.Error
	if errors.As(err, &gAPI) {
		return retryableStatus(gAPI.Code)
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}
