package extraction

import (
	"context"
	"strings"
	"sync"
)

// MockLLMClient answers classification prompts with Classification and every
// other prompt with Response.
type MockLLMClient struct {
	Classification string
	Response       string
	Err            error

	mu      sync.Mutex
	Prompts []string
}

func (m *MockLLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	if strings.Contains(prompt, "Determine which type of document") {
		return m.Classification, nil
	}
	return m.Response, nil
}

func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}
