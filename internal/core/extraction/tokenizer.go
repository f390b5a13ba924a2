package extraction

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/agenthands/docgraph/internal/logger"
)

type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t tiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// defaultTokenizer loads cl100k_base once. It returns nil when the encoding
// cannot be loaded, which disables truncation.
var defaultTokenizer = sync.OnceValue(func() Tokenizer {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Warn("tokenizer unavailable, input truncation disabled", "err", err)
		return nil
	}
	return tiktokenTokenizer{enc: enc}
})

// Truncate cuts text to at most maxTokens tokens. maxTokens <= 0 or a nil
// tokenizer returns text unchanged.
func Truncate(tok Tokenizer, text string, maxTokens int) (string, bool) {
	if maxTokens <= 0 || tok == nil {
		return text, false
	}
	tokens := tok.Encode(text)
	if len(tokens) <= maxTokens {
		return text, false
	}
	return tok.Decode(tokens[:maxTokens]), true
}
