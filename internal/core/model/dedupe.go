package model

type mappingKey struct {
	Type EntityType
	ID   string
}

// IdentifierMapping translates extractor-local ids to durable graph ids for
// one extraction. It is never persisted.
type IdentifierMapping struct {
	ids map[mappingKey]string
}

func NewIdentifierMapping() *IdentifierMapping {
	return &IdentifierMapping{ids: make(map[mappingKey]string)}
}

func (m *IdentifierMapping) Set(t EntityType, originalID, resolvedID string) {
	m.ids[mappingKey{t, originalID}] = resolvedID
}

func (m *IdentifierMapping) Lookup(t EntityType, originalID string) (string, bool) {
	id, ok := m.ids[mappingKey{t, originalID}]
	return id, ok
}

func (m *IdentifierMapping) Len() int { return len(m.ids) }

// Match is the best similarity hit for a query vector.
type Match struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}
