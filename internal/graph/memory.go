package graph

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/agenthands/docgraph/internal/core/model"
)

type memNode struct {
	props     map[string]any
	embedding []float32
}

type relKey struct {
	fromType model.EntityType
	fromID   string
	toType   model.EntityType
	toID     string
	relType  model.RelationshipType
}

type memState struct {
	nodes map[model.EntityType]map[string]*memNode
	rels  map[relKey]map[string]any
}

func (s *memState) clone() *memState {
	c := &memState{
		nodes: make(map[model.EntityType]map[string]*memNode, len(s.nodes)),
		rels:  make(map[relKey]map[string]any, len(s.rels)),
	}
	for label, byID := range s.nodes {
		cm := make(map[string]*memNode, len(byID))
		for id, n := range byID {
			cm[id] = &memNode{props: maps.Clone(n.props), embedding: n.embedding}
		}
		c.nodes[label] = cm
	}
	for k, p := range s.rels {
		c.rels[k] = maps.Clone(p)
	}
	return c
}

// MemoryStore is an in-process graph used by tests and dry runs. Writes are
// copy-on-write so a failed transaction leaves no trace.
type MemoryStore struct {
	mu     sync.RWMutex
	state  *memState
	writes int

	// LookupErr, when set, fails every read lookup.
	LookupErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		nodes: map[model.EntityType]map[string]*memNode{},
		rels:  map[relKey]map[string]any{},
	}}
}

func (m *MemoryStore) FindDocumentByPath(ctx context.Context, path string) (string, bool, error) {
	if m.LookupErr != nil {
		return "", false, m.LookupErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range sortedIDs(m.state.nodes[model.Document]) {
		if m.state.nodes[model.Document][id].props[model.PropPath] == path {
			return id, true, nil
		}
	}
	return "", false, nil
}

// BestMatch orders candidates by similarity, then by id, so ties resolve
// deterministically.
func (m *MemoryStore) BestMatch(ctx context.Context, label model.EntityType, embedding []float32) (model.Match, bool, error) {
	if m.LookupErr != nil {
		return model.Match{}, false, m.LookupErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best model.Match
	found := false
	for _, id := range sortedIDs(m.state.nodes[label]) {
		n := m.state.nodes[label][id]
		if len(n.embedding) == 0 || len(n.embedding) != len(embedding) {
			continue
		}
		score := CosineSimilarity(n.embedding, embedding)
		if !found || score > best.Score {
			best = model.Match{ID: id, Score: score}
			found = true
		}
	}
	return best, found, nil
}

func (m *MemoryStore) DocumentProcessed(ctx context.Context, path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, n := range m.state.nodes[model.Document] {
		if n.props[model.PropPath] == path && n.props[model.PropProcessedAt] != nil {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) WriteTx(ctx context.Context, fn func(w Writer) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := &memWriter{state: m.state.clone()}
	if err := fn(w); err != nil {
		return err
	}
	m.state = w.state
	m.writes += w.writes
	return nil
}

func (m *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var nodes int64
	for _, byID := range m.state.nodes {
		nodes += int64(len(byID))
	}
	return Stats{Nodes: nodes, Relationships: int64(len(m.state.rels))}, nil
}

// Writes counts mutations applied by committed transactions.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Node returns a copy of a node's properties.
func (m *MemoryStore) Node(label model.EntityType, id string) (map[string]any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.state.nodes[label][id]
	if !ok {
		return nil, false
	}
	return maps.Clone(n.props), true
}

// Nodes returns the ids of all nodes carrying label, sorted.
func (m *MemoryStore) Nodes(label model.EntityType) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedIDs(m.state.nodes[label])
}

// HasRelationship reports whether an edge of relType joins the two nodes.
func (m *MemoryStore) HasRelationship(from model.EntityRef, rel model.RelationshipType, to model.EntityRef) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.state.rels[relKey{from.Type, from.ID, to.Type, to.ID, rel}]
	return ok
}

// Seed inserts a node directly, bypassing transactions.
func (m *MemoryStore) Seed(label model.EntityType, id string, props map[string]any, embedding []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := maps.Clone(props)
	if p == nil {
		p = map[string]any{}
	}
	p[model.PropID] = id
	if m.state.nodes[label] == nil {
		m.state.nodes[label] = map[string]*memNode{}
	}
	m.state.nodes[label][id] = &memNode{props: p, embedding: embedding}
}

type memWriter struct {
	state  *memState
	writes int
}

func (w *memWriter) MergeEntity(ctx context.Context, e model.Entity) error {
	id := e.ID()
	if id == "" {
		return fmt.Errorf("merge %s: empty id", e.Type)
	}
	byID := w.state.nodes[e.Type]
	if byID == nil {
		byID = map[string]*memNode{}
		w.state.nodes[e.Type] = byID
	}
	n, ok := byID[id]
	if !ok {
		n = &memNode{props: map[string]any{}}
		byID[id] = n
	}
	for k, v := range SanitizeProperties(e.Properties) {
		n.props[k] = v
	}
	if len(e.Embedding) > 0 {
		n.embedding = append([]float32(nil), e.Embedding...)
	}
	w.writes++
	return nil
}

func (w *memWriter) MergeRelationship(ctx context.Context, r model.Relationship) error {
	if _, ok := w.state.nodes[r.From.Type][r.From.ID]; !ok {
		return fmt.Errorf("%s %s->%s: %w", r.Type, r.From, r.To, ErrMissingEndpoint)
	}
	if _, ok := w.state.nodes[r.To.Type][r.To.ID]; !ok {
		return fmt.Errorf("%s %s->%s: %w", r.Type, r.From, r.To, ErrMissingEndpoint)
	}
	k := relKey{r.From.Type, r.From.ID, r.To.Type, r.To.ID, r.Type}
	props := w.state.rels[k]
	if props == nil {
		props = map[string]any{}
		w.state.rels[k] = props
	}
	for pk, v := range SanitizeProperties(r.Properties) {
		props[pk] = v
	}
	w.writes++
	return nil
}

func (w *memWriter) MarkDocument(ctx context.Context, path, id string, processedAt time.Time) (string, error) {
	byID := w.state.nodes[model.Document]
	if byID == nil {
		byID = map[string]*memNode{}
		w.state.nodes[model.Document] = byID
	}
	markedID := ""
	for _, nid := range sortedIDs(byID) {
		if byID[nid].props[model.PropPath] == path {
			byID[nid].props[model.PropProcessedAt] = processedAt.UTC()
			if markedID == "" {
				markedID = nid
			}
		}
	}
	if markedID == "" {
		byID[id] = &memNode{props: map[string]any{
			model.PropID:          id,
			model.PropPath:        path,
			model.PropProcessedAt: processedAt.UTC(),
		}}
		markedID = id
	}
	w.writes++
	return markedID, nil
}

func sortedIDs(byID map[string]*memNode) []string {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
