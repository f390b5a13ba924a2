package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/docgraph/internal/driver"
)

type MockDriver struct {
	QueryExecuted string
	QueryParams   map[string]interface{}
	MockResult    neo4j.EagerResult
	Err           error

	TxQueries []string
	TxParams  []map[string]interface{}
	// TxResults is consumed in order by Run; once empty, Run returns one
	// record per call.
	TxResults [][]*neo4j.Record
	TxErr     error
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.QueryExecuted = query
	m.QueryParams = params
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	return m.MockResult, nil
}

func (m *MockDriver) ExecuteWrite(ctx context.Context, fn func(tx driver.Tx) error) error {
	return fn(&mockTx{d: m})
}

func (m *MockDriver) ApplySchema(ctx context.Context) error {
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	return nil
}

type mockTx struct {
	d *MockDriver
}

func (t *mockTx) Run(ctx context.Context, query string, params map[string]interface{}) ([]*neo4j.Record, error) {
	t.d.TxQueries = append(t.d.TxQueries, query)
	t.d.TxParams = append(t.d.TxParams, params)
	if t.d.TxErr != nil {
		return nil, t.d.TxErr
	}
	if len(t.d.TxResults) > 0 {
		res := t.d.TxResults[0]
		t.d.TxResults = t.d.TxResults[1:]
		return res, nil
	}
	return []*neo4j.Record{{Keys: []string{"id"}, Values: []interface{}{"x"}}}, nil
}
