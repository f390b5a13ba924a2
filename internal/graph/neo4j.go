package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/docgraph/internal/core/model"
	"github.com/agenthands/docgraph/internal/driver"
)

type Neo4jStore struct {
	Driver driver.GraphDriver
}

func NewNeo4jStore(d driver.GraphDriver) *Neo4jStore {
	return &Neo4jStore{Driver: d}
}

func (s *Neo4jStore) FindDocumentByPath(ctx context.Context, path string) (string, bool, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.FindDocumentByPathQuery, map[string]interface{}{"path": path})
	if err != nil {
		return "", false, err
	}
	if len(res.Records) == 0 {
		return "", false, nil
	}
	id, _, err := neo4j.GetRecordValue[string](res.Records[0], "id")
	if err != nil {
		return "", false, fmt.Errorf("document %s: %w", path, err)
	}
	return id, true, nil
}

func (s *Neo4jStore) BestMatch(ctx context.Context, label model.EntityType, embedding []float32) (model.Match, bool, error) {
	params := map[string]interface{}{"embedding": toFloat64s(embedding)}
	res, err := s.Driver.ExecuteQuery(ctx, driver.BestMatchQuery(label), params)
	if err != nil {
		return model.Match{}, false, err
	}
	if len(res.Records) == 0 {
		return model.Match{}, false, nil
	}
	rec := res.Records[0]
	id, _, err := neo4j.GetRecordValue[string](rec, "id")
	if err != nil {
		return model.Match{}, false, fmt.Errorf("best match id: %w", err)
	}
	score, _, err := neo4j.GetRecordValue[float64](rec, "similarity")
	if err != nil {
		return model.Match{}, false, fmt.Errorf("best match similarity: %w", err)
	}
	return model.Match{ID: id, Score: score}, true, nil
}

func (s *Neo4jStore) DocumentProcessed(ctx context.Context, path string) (bool, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.DocumentProcessedQuery, map[string]interface{}{"path": path})
	if err != nil {
		return false, err
	}
	return len(res.Records) > 0, nil
}

func (s *Neo4jStore) WriteTx(ctx context.Context, fn func(w Writer) error) error {
	return s.Driver.ExecuteWrite(ctx, func(tx driver.Tx) error {
		return fn(&neo4jWriter{tx: tx})
	})
}

func (s *Neo4jStore) Stats(ctx context.Context) (Stats, error) {
	nodes, err := s.count(ctx, driver.CountNodesQuery)
	if err != nil {
		return Stats{}, err
	}
	rels, err := s.count(ctx, driver.CountRelationshipsQuery)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Nodes: nodes, Relationships: rels}, nil
}

func (s *Neo4jStore) count(ctx context.Context, query string) (int64, error) {
	res, err := s.Driver.ExecuteQuery(ctx, query, nil)
	if err != nil {
		return 0, err
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	n, _, err := neo4j.GetRecordValue[int64](res.Records[0], "count")
	return n, err
}

type neo4jWriter struct {
	tx driver.Tx
}

func (w *neo4jWriter) MergeEntity(ctx context.Context, e model.Entity) error {
	var embedding interface{}
	if len(e.Embedding) > 0 {
		embedding = toFloat64s(e.Embedding)
	}
	params := map[string]interface{}{
		"id":         e.ID(),
		"properties": SanitizeProperties(e.Properties),
		"embedding":  embedding,
	}
	if _, err := w.tx.Run(ctx, driver.MergeEntityQuery(e.Type), params); err != nil {
		return fmt.Errorf("merge %s %s: %w", e.Type, e.ID(), err)
	}
	return nil
}

func (w *neo4jWriter) MergeRelationship(ctx context.Context, r model.Relationship) error {
	params := map[string]interface{}{
		"from_id":    r.From.ID,
		"to_id":      r.To.ID,
		"properties": SanitizeProperties(r.Properties),
	}
	recs, err := w.tx.Run(ctx, driver.MergeRelationshipQuery(r.From.Type, r.To.Type, r.Type), params)
	if err != nil {
		return fmt.Errorf("merge %s %s->%s: %w", r.Type, r.From, r.To, err)
	}
	if len(recs) == 0 {
		return fmt.Errorf("%s %s->%s: %w", r.Type, r.From, r.To, ErrMissingEndpoint)
	}
	return nil
}

func (w *neo4jWriter) MarkDocument(ctx context.Context, path, id string, processedAt time.Time) (string, error) {
	params := map[string]interface{}{
		"path":         path,
		"id":           id,
		"processed_at": processedAt.UTC().Format(time.RFC3339Nano),
	}
	recs, err := w.tx.Run(ctx, driver.MergeDocumentMarkerQuery, params)
	if err != nil {
		return "", fmt.Errorf("mark document %s: %w", path, err)
	}
	if len(recs) == 0 {
		return id, nil
	}
	got, _, err := neo4j.GetRecordValue[string](recs[0], "id")
	if err != nil {
		return "", err
	}
	return got, nil
}

// SanitizeProperties drops nil values and the embedding key, and flattens
// values the graph engine cannot store as properties (maps, lists of maps)
// into JSON strings.
func SanitizeProperties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if v == nil || k == "embedding" {
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			out[k] = toJSON(val)
		case []any:
			if homogeneousScalars(val) {
				out[k] = val
			} else {
				out[k] = toJSON(val)
			}
		default:
			out[k] = v
		}
	}
	return out
}

func homogeneousScalars(list []any) bool {
	var kind string
	for _, v := range list {
		var k string
		switch v.(type) {
		case string:
			k = "string"
		case float64, int, int64:
			k = "number"
		case bool:
			k = "bool"
		default:
			return false
		}
		if kind != "" && kind != k {
			return false
		}
		kind = k
	}
	return true
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func toFloat64s(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
