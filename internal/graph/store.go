// Package graph is the pipeline's view of the shared property graph: the
// lookups the resolver needs and the transactional writes the commit needs.
package graph

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/agenthands/docgraph/internal/core/model"
)

// ErrMissingEndpoint is returned when a relationship references a node that
// does not exist at write time.
var ErrMissingEndpoint = errors.New("relationship endpoint not found")

type Store interface {
	// FindDocumentByPath returns the id of a Document node with this path.
	FindDocumentByPath(ctx context.Context, path string) (string, bool, error)
	// BestMatch returns the node of the given label whose embedding has the
	// highest cosine similarity to the query vector.
	BestMatch(ctx context.Context, label model.EntityType, embedding []float32) (model.Match, bool, error)
	// DocumentProcessed reports whether a Document node for path carries a
	// processed timestamp.
	DocumentProcessed(ctx context.Context, path string) (bool, error)
	// WriteTx applies fn atomically; nothing is persisted if fn fails.
	WriteTx(ctx context.Context, fn func(w Writer) error) error
	Stats(ctx context.Context) (Stats, error)
}

type Writer interface {
	MergeEntity(ctx context.Context, e model.Entity) error
	MergeRelationship(ctx context.Context, r model.Relationship) error
	MarkDocument(ctx context.Context, path, id string, processedAt time.Time) (string, error)
}

type Stats struct {
	Nodes         int64 `json:"nodes"`
	Relationships int64 `json:"relationships"`
}

// CosineSimilarity returns 0 for empty, zero-norm, or mismatched vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
