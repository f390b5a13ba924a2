package driver

import (
	"fmt"
	"strings"

	"github.com/agenthands/docgraph/internal/core/model"
)

const (
	FindDocumentByPathQuery = `
		MATCH (d:Document {path: $path})
		RETURN d.id AS id
		LIMIT 1
	`

	DocumentProcessedQuery = `
		MATCH (d:Document {path: $path})
		WHERE d.processedAt IS NOT NULL
		RETURN d.id AS id
		LIMIT 1
	`

	// The marker is merged on path so a Document entity committed earlier in
	// the same transaction is marked instead of duplicated.
	MergeDocumentMarkerQuery = `
		MERGE (d:Document {path: $path})
		ON CREATE SET d.id = $id
		SET d.processedAt = datetime($processed_at)
		RETURN d.id AS id
	`

	CountNodesQuery = `
		MATCH (n)
		RETURN count(n) AS count
	`

	CountRelationshipsQuery = `
		MATCH ()-[r]->()
		RETURN count(r) AS count
	`
)

// Labels and relationship types cannot be parameterized in Cypher. Callers
// only pass validated enum values, and backticks are stripped regardless.
func quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "") + "`"
}

func BestMatchQuery(label model.EntityType) string {
	return fmt.Sprintf(`
		MATCH (e:%s)
		WHERE e.embedding IS NOT NULL AND size(e.embedding) = size($embedding)
		WITH e, vector.similarity.cosine(e.embedding, $embedding) AS similarity
		WHERE similarity IS NOT NULL
		RETURN e.id AS id, similarity
		ORDER BY similarity DESC
		LIMIT 1
	`, quote(string(label)))
}

func MergeEntityQuery(label model.EntityType) string {
	return fmt.Sprintf(`
		MERGE (e:%s {id: $id})
		SET e += $properties
		SET e.embedding = coalesce($embedding, e.embedding)
		RETURN e.id AS id
	`, quote(string(label)))
}

func MergeRelationshipQuery(from, to model.EntityType, rel model.RelationshipType) string {
	return fmt.Sprintf(`
		MATCH (from:%s {id: $from_id})
		MATCH (to:%s {id: $to_id})
		MERGE (from)-[r:%s]->(to)
		SET r += $properties
		RETURN type(r) AS type
	`, quote(string(from)), quote(string(to)), quote(string(rel)))
}

// SchemaStatements returns one uniqueness constraint on id per label plus an
// index on Document.path.
func SchemaStatements() []string {
	stmts := make([]string, 0, len(model.EntityTypes)+1)
	for _, t := range model.EntityTypes {
		stmts = append(stmts, fmt.Sprintf(
			"CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE",
			quote(strings.ToLower(string(t))+"_id_unique"), quote(string(t)),
		))
	}
	stmts = append(stmts, "CREATE INDEX document_path IF NOT EXISTS FOR (d:Document) ON (d.path)")
	return stmts
}
