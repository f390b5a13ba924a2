// Package embedding attaches vectors to the resolvable entities of an
// extraction.
package embedding

import (
	"context"
	"fmt"

	"github.com/agenthands/docgraph/internal/core/model"
	"github.com/agenthands/docgraph/internal/llm"
)

type Embedder struct {
	Client llm.EmbedderClient
}

func NewEmbedder(client llm.EmbedderClient) *Embedder {
	return &Embedder{Client: client}
}

// CanonicalText is the string embedded for an entity: its name, or its
// description when it has no name, followed by its type. ok is false when
// the entity has neither.
func CanonicalText(e *model.Entity) (string, bool) {
	label := e.StringProp(model.PropName)
	if label == "" {
		label = e.StringProp(model.PropDescription)
	}
	if label == "" {
		return "", false
	}
	return fmt.Sprintf("%s : %s", label, e.Type), true
}

// Embed sets Embedding on every resolvable entity that has a canonical text.
// Other entities are left untouched. ext is modified in place.
func (m *Embedder) Embed(ctx context.Context, ext *model.DocumentExtraction) error {
	for i := range ext.Entities {
		e := &ext.Entities[i]
		if !e.Type.Resolvable() {
			continue
		}
		text, ok := CanonicalText(e)
		if !ok {
			continue
		}
		vec, err := m.Client.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("embed %s: %w", e.Ref(), err)
		}
		e.Embedding = vec
	}
	return nil
}
