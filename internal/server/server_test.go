package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/docgraph/internal/cache"
	"github.com/agenthands/docgraph/internal/config"
	"github.com/agenthands/docgraph/internal/core"
	"github.com/agenthands/docgraph/internal/core/commit"
	"github.com/agenthands/docgraph/internal/core/dedupe"
	"github.com/agenthands/docgraph/internal/core/embedding"
	"github.com/agenthands/docgraph/internal/core/extraction"
	"github.com/agenthands/docgraph/internal/corpus"
	"github.com/agenthands/docgraph/internal/graph"
	"github.com/agenthands/docgraph/internal/parser"
)

type staticEmbedder struct{}

func (staticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func newTestServer(t *testing.T, root string) (*Server, *graph.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	llm := &extraction.MockLLMClient{
		Classification: "invoice",
		Response: `{"entities": [{"type": "Organization", "properties": {"id": "o", "name": "Acme"}}],
			"relationships": []}`,
	}
	ext, err := extraction.NewExtractor(llm, config.ExtractionPrompts{})
	require.NoError(t, err)

	store := graph.NewMemoryStore()
	p := &core.Pipeline{
		Parser:    parser.NewLocal(),
		Extractor: ext,
		Embedder:  embedding.NewEmbedder(staticEmbedder{}),
		Resolver:  dedupe.NewResolver(store),
		Writer:    commit.NewWriter(store, dedupe.NanoID),
		Cache:     cache.NewMemoryStore(),
		Scanner:   &corpus.Scanner{Supported: parser.LocalSupported},
		Workers:   1,
	}
	return NewServer(p, store, root), store
}

func TestIngestAndStatus(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("Invoice from Acme"), 0o644))
	srv, _ := newTestServer(t, root)
	r := srv.SetupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/ingest", bytes.NewBufferString(`{"path": "a.txt"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report core.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Counts[core.OutcomeCommitted])

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/documents/status?path=a.txt", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"path": "`+filepath.Join(root, "a.txt")+`", "processed": true}`, w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/documents/status?path=b.txt", nil)
	r.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `"processed":false`)
}

func TestIngest_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t, t.TempDir())
	r := srv.SetupRouter()

	for _, body := range []string{`{}`, `not json`, `{"path": "../../etc/passwd"}`} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/ingest", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/documents/status", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngest_MissingPath(t *testing.T) {
	srv, _ := newTestServer(t, t.TempDir())
	r := srv.SetupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/ingest", strings.NewReader(`{"path": "nope"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

type downGraph struct {
	graph.Store
}

func (downGraph) Stats(ctx context.Context) (graph.Stats, error) {
	return graph.Stats{}, errors.New("connection refused")
}

func TestHealthAndMetrics(t *testing.T) {
	srv, store := newTestServer(t, "")
	r := srv.SetupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	srv.Graph = downGraph{store}
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/healthz", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestResolvePath(t *testing.T) {
	s := &Server{Root: "/data/corpus"}
	p, err := s.resolvePath("invoices/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/data/corpus/invoices/a.pdf", p)

	_, err = s.resolvePath("/etc/passwd")
	assert.ErrorIs(t, err, errOutsideRoot)

	_, err = s.resolvePath("../corpus2/x")
	assert.ErrorIs(t, err, errOutsideRoot)

	s.Root = ""
	p, _ = s.resolvePath("./x/../y")
	wd, _ := os.Getwd()
	assert.Equal(t, filepath.Join(wd, "y"), p)
}
