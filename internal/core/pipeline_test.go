package core

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/docgraph/internal/cache"
	"github.com/agenthands/docgraph/internal/config"
	"github.com/agenthands/docgraph/internal/core/commit"
	"github.com/agenthands/docgraph/internal/core/common"
	"github.com/agenthands/docgraph/internal/core/dedupe"
	"github.com/agenthands/docgraph/internal/core/embedding"
	"github.com/agenthands/docgraph/internal/core/extraction"
	"github.com/agenthands/docgraph/internal/core/model"
	"github.com/agenthands/docgraph/internal/corpus"
	"github.com/agenthands/docgraph/internal/graph"
	"github.com/agenthands/docgraph/internal/logger"
	"github.com/agenthands/docgraph/internal/parser"
)

const invoiceExtraction = `{
  "entities": [
    {"type": "Invoice", "properties": {"id": "invoice_1", "description": "Window cleaning", "invoiceDate": "2024-11-04", "amount": 1200}},
    {"type": "Organization", "properties": {"id": "organization_1", "name": "Acme"}},
    {"type": "Document", "properties": {"id": "document_1", "path": "ignored", "description": "invoice"}}
  ],
  "relationships": [
    {"from_": {"type": "Invoice", "id": "invoice_1"}, "to": {"type": "Organization", "id": "organization_1"}, "type": "BILLED_TO", "properties": {"amount": 1200}}
  ]
}`

type fixture struct {
	llm      *extraction.MockLLMClient
	parser   *MockParser
	embedder *MockEmbedder
	graph    *graph.MemoryStore
	cache    *cache.MemoryStore
}

func newFixture() *fixture {
	return &fixture{
		llm:      &extraction.MockLLMClient{Classification: "invoice", Response: invoiceExtraction},
		parser:   &MockParser{Text: "INVOICE"},
		embedder: &MockEmbedder{},
		graph:    graph.NewMemoryStore(),
		cache:    cache.NewMemoryStore(),
	}
}

func (f *fixture) pipeline(t *testing.T, workers int) *Pipeline {
	t.Helper()
	ext, err := extraction.NewExtractor(f.llm, config.ExtractionPrompts{})
	require.NoError(t, err)
	return &Pipeline{
		Parser:    f.parser,
		Extractor: ext,
		Embedder:  embedding.NewEmbedder(f.embedder),
		Resolver:  dedupe.NewResolver(f.graph),
		Writer:    commit.NewWriter(f.graph, dedupe.NanoID),
		Cache:     f.cache,
		Scanner:   &corpus.Scanner{Supported: parser.LocalSupported},
		Retry:     common.RetryPolicy{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
		Workers:   workers,
	}
}

func corpusDir(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}
	return root
}

func TestRun_EndToEndIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.NewConsole(&buf, "info"))
	defer logger.Init()

	ctx := context.Background()
	f := newFixture()
	root := corpusDir(t, map[string]string{"inv-1.txt": "Invoice 1 from Acme"})

	report, err := f.pipeline(t, 1).Run(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts[OutcomeCommitted])
	assert.NotEmpty(t, report.RunID)

	stats, _ := f.graph.Stats(ctx)
	assert.Equal(t, graph.Stats{Nodes: 3, Relationships: 1}, stats)
	docs := f.graph.Nodes(model.Document)
	require.Len(t, docs, 1)
	props, _ := f.graph.Node(model.Document, docs[0])
	assert.Equal(t, filepath.Join(root, "inv-1.txt"), props[model.PropPath])
	assert.NotNil(t, props[model.PropProcessedAt])

	writes := f.graph.Writes()
	report, err = f.pipeline(t, 1).Run(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts[OutcomeAlreadyProcessed])
	assert.Equal(t, writes, f.graph.Writes(), "second run writes nothing")
	assert.Equal(t, model.Committed, report.Documents[0].Stage)
	assert.Contains(t, buf.String(), "document already processed")

	stats, _ = f.graph.Stats(ctx)
	assert.Equal(t, graph.Stats{Nodes: 3, Relationships: 1}, stats)
}

func TestRun_RelativeAndAbsoluteRootsAreOneCorpus(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	root := corpusDir(t, map[string]string{"inv-1.txt": "Invoice 1 from Acme"})
	wd, err := os.Getwd()
	require.NoError(t, err)
	relRoot, err := filepath.Rel(wd, root)
	require.NoError(t, err)

	report, err := f.pipeline(t, 1).Run(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts[OutcomeCommitted])

	report, err = f.pipeline(t, 1).Run(ctx, relRoot)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts[OutcomeAlreadyProcessed])
	assert.Equal(t, filepath.Join(root, "inv-1.txt"), report.Documents[0].Path)

	stats, _ := f.graph.Stats(ctx)
	assert.Equal(t, graph.Stats{Nodes: 3, Relationships: 1}, stats)
	assert.Equal(t, 2, f.llm.Calls(), "the second spelling is served from cache")
}

func TestRun_CacheAvoidsExternalCalls(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	root := corpusDir(t, map[string]string{"inv-1.txt": "Invoice 1 from Acme"})

	_, err := f.pipeline(t, 1).Run(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, f.parser.Calls())
	assert.Equal(t, 2, f.llm.Calls(), "classify + extract")
	assert.Equal(t, 1, f.embedder.Calls(), "only the organization is resolvable")
	assert.Equal(t, 1, f.cache.Len(cache.StageParsed))
	assert.Equal(t, 1, f.cache.Len(cache.StageExtracted))
	assert.Equal(t, 1, f.cache.Len(cache.StageEmbeddings))

	// Fresh graph, same cache: every stage is served from cache.
	f.graph = graph.NewMemoryStore()
	report, err := f.pipeline(t, 1).Run(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts[OutcomeCommitted])
	assert.Equal(t, 1, f.parser.Calls())
	assert.Equal(t, 2, f.llm.Calls())
	assert.Equal(t, 1, f.embedder.Calls())
	assert.Equal(t, []cache.Stage{cache.StageParsed, cache.StageExtracted, cache.StageEmbeddings}, report.Documents[0].CacheHits)
}

func TestRun_CorruptCacheEntryIsRecomputed(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	root := corpusDir(t, map[string]string{"inv-1.txt": "Invoice 1"})
	path := filepath.Join(root, "inv-1.txt")

	text := parser.NormalizedText("INVOICE\nInvoice 1")
	key := cache.Key([]byte(path), []byte(text))
	require.NoError(t, f.cache.Put(ctx, cache.StageExtracted, key, []byte(`{"entities": [{"type": "Invo`)))

	report, err := f.pipeline(t, 1).Run(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts[OutcomeCommitted])
	assert.Equal(t, 2, f.llm.Calls())

	raw, ok, _ := f.cache.Get(ctx, cache.StageExtracted, key)
	require.True(t, ok)
	_, err = model.ParseExtraction(raw)
	assert.NoError(t, err, "corrupt entry overwritten")
}

func TestRun_FailureIsolatedPerDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	root := corpusDir(t, map[string]string{
		"bad.txt":  "garbage",
		"good.txt": "Invoice 2",
		"logo.png": "\x89PNG\r\n\x1a\n",
	})
	f.parser.Fail = map[string][]error{filepath.Join(root, "bad.txt"): {errPermanent}}

	report, err := f.pipeline(t, 1).Run(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts[OutcomeCommitted])
	assert.Equal(t, 1, report.Counts[OutcomeFailed])
	assert.Equal(t, 1, report.Counts[OutcomeSkipped])

	for _, d := range report.Documents {
		switch filepath.Base(d.Path) {
		case "bad.txt":
			assert.ErrorIs(t, d.Err(), errPermanent)
			assert.Equal(t, model.Unprocessed, d.Stage)
		case "logo.png":
			assert.Equal(t, OutcomeSkipped, d.Outcome)
		}
	}
	assert.Equal(t, 2, f.parser.Calls(), "permanent errors are not retried; png never parsed")
}

func TestRun_TransientParseErrorRetried(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	root := corpusDir(t, map[string]string{"inv.txt": "Invoice"})
	f.parser.Fail = map[string][]error{
		filepath.Join(root, "inv.txt"): {&parser.ServiceError{Op: "upload", StatusCode: 503}},
	}

	report, err := f.pipeline(t, 1).Run(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts[OutcomeCommitted])
	assert.Equal(t, 2, f.parser.Calls())
}

func TestRun_DanglingReferenceFailsDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.llm.Response = `{"entities": [{"type": "Invoice", "properties": {"id": "invoice_1"}}],
		"relationships": [{"from": {"type": "Invoice", "id": "invoice_1"}, "to": {"type": "Organization", "id": "organization_7"}, "type": "BILLED_TO", "properties": {}}]}`
	root := corpusDir(t, map[string]string{"inv.txt": "Invoice"})

	report, err := f.pipeline(t, 1).Run(ctx, root)
	require.NoError(t, err)
	require.Len(t, report.Documents, 1)
	d := report.Documents[0]
	assert.Equal(t, OutcomeFailed, d.Outcome)
	assert.Equal(t, model.Embedded, d.Stage)
	assert.ErrorIs(t, d.Err(), model.ErrDanglingReference)

	processed, _ := f.graph.DocumentProcessed(ctx, filepath.Join(root, "inv.txt"))
	assert.False(t, processed)
}

func TestRun_SchemaErrorNotRetried(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.llm.Response = "no entities here"
	root := corpusDir(t, map[string]string{"inv.txt": "Invoice"})

	report, err := f.pipeline(t, 1).Run(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts[OutcomeFailed])
	assert.True(t, model.IsSchemaError(report.Documents[0].Err()))
	assert.Equal(t, 2, f.llm.Calls())
}

func TestRun_ResolvesAcrossDocumentsWithWorkers(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	root := corpusDir(t, map[string]string{
		"inv-1.txt": "Invoice 1",
		"inv-2.txt": "Invoice 2",
		"inv-3.txt": "Invoice 3",
	})

	report, err := f.pipeline(t, 4).Run(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Counts[OutcomeCommitted])

	assert.Len(t, f.graph.Nodes(model.Organization), 1, "Acme resolved to one node")
	assert.Len(t, f.graph.Nodes(model.Invoice), 3)
	assert.Len(t, f.graph.Nodes(model.Document), 3)
	stats, _ := f.graph.Stats(ctx)
	assert.Equal(t, int64(3), stats.Relationships)
}

func TestProcessFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	root := corpusDir(t, map[string]string{"inv.txt": "Invoice", "scan.png": "\x89PNG\r\n\x1a\n"})
	p := f.pipeline(t, 1)

	res := p.ProcessFile(ctx, filepath.Join(root, "inv.txt"))
	assert.Equal(t, OutcomeCommitted, res.Outcome)
	assert.Equal(t, 3, res.Entities)

	res = p.ProcessFile(ctx, filepath.Join(root, "scan.png"))
	assert.Equal(t, OutcomeSkipped, res.Outcome)

	res = p.ProcessFile(ctx, filepath.Join(root, "missing.txt"))
	assert.Equal(t, OutcomeFailed, res.Outcome)
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := newFixture()
	root := corpusDir(t, map[string]string{"inv.txt": "Invoice"})

	_, err := f.pipeline(t, 1).Run(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}
