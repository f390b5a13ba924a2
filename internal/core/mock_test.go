package core

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/agenthands/docgraph/internal/parser"
)

type MockParser struct {
	Text string
	// Fail maps a file path to the errors returned by successive calls.
	Fail map[string][]error

	mu    sync.Mutex
	calls atomic.Int32
}

func (m *MockParser) Parse(ctx context.Context, content []byte, fileName, mimeType string) (parser.NormalizedText, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if errs := m.Fail[fileName]; len(errs) > 0 {
		err := errs[0]
		m.Fail[fileName] = errs[1:]
		if err != nil {
			return "", err
		}
	}
	return parser.NormalizedText(m.Text + "\n" + string(content)), nil
}

func (m *MockParser) Calls() int { return int(m.calls.Load()) }

// MockEmbedder derives a deterministic vector from the text, so equal texts
// embed identically and different texts are far apart.
type MockEmbedder struct {
	Err   error
	calls atomic.Int32
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	h := fnv.New32a()
	h.Write([]byte(text))
	v := make([]float32, 8)
	v[h.Sum32()%8] = 1
	v[(h.Sum32()/8)%8] += 0.5
	return v, nil
}

func (m *MockEmbedder) Calls() int { return int(m.calls.Load()) }

var errPermanent = errors.New("corrupt file")
