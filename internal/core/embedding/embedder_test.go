package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/docgraph/internal/core/model"
)

type MockEmbedderClient struct {
	Texts []string
	Err   error
}

func (m *MockEmbedderClient) Embed(ctx context.Context, text string) ([]float32, error) {
	m.Texts = append(m.Texts, text)
	if m.Err != nil {
		return nil, m.Err
	}
	return []float32{float32(len(text)), 1}, nil
}

func entity(t model.EntityType, props map[string]any) model.Entity {
	return model.Entity{Type: t, Properties: props}
}

func TestEmbed(t *testing.T) {
	ext := &model.DocumentExtraction{Entities: []model.Entity{
		entity(model.Organization, map[string]any{"id": "o", "name": "Acme"}),
		entity(model.ServiceItem, map[string]any{"id": "s", "description": "Window cleaning"}),
		entity(model.Employee, map[string]any{"id": "e"}),
		entity(model.Invoice, map[string]any{"id": "i", "description": "Invoice 42"}),
		entity(model.Document, map[string]any{"id": "d", "path": "a.pdf"}),
	}}
	client := &MockEmbedderClient{}

	require.NoError(t, NewEmbedder(client).Embed(context.Background(), ext))

	assert.Equal(t, []string{"Acme : Organization", "Window cleaning : ServiceItem"}, client.Texts)
	assert.NotEmpty(t, ext.Entities[0].Embedding)
	assert.NotEmpty(t, ext.Entities[1].Embedding)
	assert.Empty(t, ext.Entities[2].Embedding, "no name or description")
	assert.Empty(t, ext.Entities[3].Embedding, "invoices are not resolvable")
	assert.Empty(t, ext.Entities[4].Embedding)
}

func TestCanonicalText_PrefersName(t *testing.T) {
	e := entity(model.Department, map[string]any{"name": "Finance", "description": "money people"})
	text, ok := CanonicalText(&e)
	assert.True(t, ok)
	assert.Equal(t, "Finance : Department", text)
}

func TestEmbed_Error(t *testing.T) {
	boom := errors.New("embedder down")
	ext := &model.DocumentExtraction{Entities: []model.Entity{
		entity(model.Organization, map[string]any{"id": "o", "name": "Acme"}),
	}}
	err := NewEmbedder(&MockEmbedderClient{Err: boom}).Embed(context.Background(), ext)
	assert.ErrorIs(t, err, boom)
}
