package driver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type GraphDriver interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error)
	// ExecuteWrite runs fn inside one write transaction; any error rolls it back.
	ExecuteWrite(ctx context.Context, fn func(tx Tx) error) error
	ApplySchema(ctx context.Context) error
	Close(ctx context.Context) error
}

// Tx is a query runner bound to an open transaction.
type Tx interface {
	Run(ctx context.Context, query string, params map[string]interface{}) ([]*neo4j.Record, error)
}
