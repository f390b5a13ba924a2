// Package core wires the ingestion stages into a pipeline: parse, extract,
// embed, resolve and commit, with the first three cached by content hash.
package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/docgraph/internal/cache"
	"github.com/agenthands/docgraph/internal/core/commit"
	"github.com/agenthands/docgraph/internal/core/common"
	"github.com/agenthands/docgraph/internal/core/dedupe"
	"github.com/agenthands/docgraph/internal/core/embedding"
	"github.com/agenthands/docgraph/internal/core/extraction"
	"github.com/agenthands/docgraph/internal/core/model"
	"github.com/agenthands/docgraph/internal/corpus"
	"github.com/agenthands/docgraph/internal/llm"
	"github.com/agenthands/docgraph/internal/logger"
	"github.com/agenthands/docgraph/internal/metrics"
	"github.com/agenthands/docgraph/internal/parser"
)

type Outcome string

const (
	OutcomeCommitted        Outcome = "committed"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeSkipped          Outcome = "skipped"
	OutcomeFailed           Outcome = "failed"
)

type DocumentResult struct {
	Path          string        `json:"path"`
	MIMEType      string        `json:"mime_type,omitempty"`
	Outcome       Outcome       `json:"outcome"`
	Stage         model.Stage   `json:"stage"`
	Error         string        `json:"error,omitempty"`
	CacheHits     []cache.Stage `json:"cache_hits,omitempty"`
	Entities      int           `json:"entities,omitempty"`
	Relationships int           `json:"relationships,omitempty"`
	Resolver      *dedupe.Stats `json:"resolver,omitempty"`
	Duration      time.Duration `json:"duration"`

	err error
}

// Err returns the failure behind a failed result.
func (r DocumentResult) Err() error { return r.err }

type Report struct {
	RunID     string           `json:"run_id"`
	Root      string           `json:"root"`
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration"`
	Counts    map[Outcome]int  `json:"counts"`
	Documents []DocumentResult `json:"documents"`
}

type Pipeline struct {
	Parser    parser.Parser
	Extractor *extraction.Extractor
	Embedder  *embedding.Embedder
	Resolver  *dedupe.Resolver
	Writer    *commit.Writer
	Cache     cache.Store
	Scanner   *corpus.Scanner
	Retry     common.RetryPolicy
	Workers   int

	// writeMu serializes resolve+commit so every resolution observes all
	// earlier commits.
	writeMu sync.Mutex
}

// Run scans root and processes every supported document. A failing document
// is reported and does not stop the run; only cancellation does.
func (p *Pipeline) Run(ctx context.Context, root string) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		Root:      root,
		StartedAt: time.Now().UTC(),
		Counts:    map[Outcome]int{},
	}
	log := []any{"run_id", report.RunID, "root", root}
	logger.Info("run started", log...)

	files, skipped, err := p.Scanner.Scan(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	results := make([]DocumentResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.Workers, 1))
	for i, f := range files {
		g.Go(func() error {
			results[i] = p.process(gctx, f)
			return gctx.Err()
		})
	}
	err = g.Wait()

	for _, f := range skipped {
		r := DocumentResult{Path: f.Path, MIMEType: f.MIMEType, Outcome: OutcomeSkipped, Stage: model.Unprocessed}
		metrics.DocumentsProcessed.WithLabelValues(string(OutcomeSkipped)).Inc()
		results = append(results, r)
	}
	for _, r := range results {
		// Documents never started because the run was canceled have no outcome.
		if r.Outcome == "" {
			continue
		}
		report.Counts[r.Outcome]++
		report.Documents = append(report.Documents, r)
	}
	report.Duration = time.Since(report.StartedAt)

	logger.Info("run finished", append(log,
		"committed", report.Counts[OutcomeCommitted],
		"already_processed", report.Counts[OutcomeAlreadyProcessed],
		"skipped", report.Counts[OutcomeSkipped],
		"failed", report.Counts[OutcomeFailed],
		"duration", report.Duration)...)
	return report, err
}

// ProcessFile runs one document through every stage.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) DocumentResult {
	files, skipped, err := p.Scanner.Scan(ctx, path)
	switch {
	case err != nil:
		return p.fail(DocumentResult{Path: path}, err)
	case len(skipped) > 0:
		metrics.DocumentsProcessed.WithLabelValues(string(OutcomeSkipped)).Inc()
		return DocumentResult{Path: path, MIMEType: skipped[0].MIMEType, Outcome: OutcomeSkipped}
	case len(files) != 1:
		return p.fail(DocumentResult{Path: path}, fmt.Errorf("%s is not a single document", path))
	}
	return p.process(ctx, files[0])
}

func (p *Pipeline) process(ctx context.Context, f corpus.File) (res DocumentResult) {
	start := time.Now()
	res = DocumentResult{Path: f.Path, MIMEType: f.MIMEType, Stage: model.Unprocessed}
	defer func() { res.Duration = time.Since(start) }()

	content, err := os.ReadFile(f.Path)
	if err != nil {
		return p.fail(res, err)
	}

	text, err := p.parse(ctx, f, content, &res)
	if err != nil {
		return p.fail(res, err)
	}
	res.Stage = model.Parsed

	ext, err := p.extract(ctx, f.Path, text, &res)
	if err != nil {
		return p.fail(res, err)
	}
	res.Stage = model.Extracted

	ext, err = p.embed(ctx, ext, &res)
	if err != nil {
		return p.fail(res, err)
	}
	res.Stage = model.Embedded
	res.Entities, res.Relationships = len(ext.Entities), len(ext.Relationships)

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	done, err := p.Writer.Processed(ctx, f.Path)
	if err != nil {
		return p.fail(res, fmt.Errorf("check processed: %w", err))
	}
	if done {
		logger.Info("document already processed", "path", f.Path)
		res.Stage = model.Committed
		res.Outcome = OutcomeAlreadyProcessed
		metrics.DocumentsProcessed.WithLabelValues(string(res.Outcome)).Inc()
		return res
	}

	resolved, err := p.resolve(ctx, &ext)
	if err != nil {
		return p.fail(res, err)
	}
	res.Stage = model.Resolved
	res.Resolver = &resolved.Stats

	outcome, err := p.commit(ctx, f.Path, resolved.Extraction)
	if err != nil {
		return p.fail(res, err)
	}
	res.Stage = model.Committed
	res.Outcome = OutcomeCommitted
	if outcome == commit.AlreadyProcessed {
		res.Outcome = OutcomeAlreadyProcessed
	}
	metrics.DocumentsProcessed.WithLabelValues(string(res.Outcome)).Inc()
	return res
}

func (p *Pipeline) parse(ctx context.Context, f corpus.File, content []byte, res *DocumentResult) (parser.NormalizedText, error) {
	defer observe(cache.StageParsed, time.Now())
	key := cache.Key(content, []byte(f.MIMEType))
	text, hit, err := cache.GetOrCompute(ctx, p.Cache, cache.StageParsed, key, func(ctx context.Context) (parser.NormalizedText, error) {
		return common.Retry(ctx, p.Retry, "parse", parser.IsTransient, func(ctx context.Context) (parser.NormalizedText, error) {
			return p.Parser.Parse(ctx, content, f.Path, f.MIMEType)
		})
	})
	p.noteHit(res, cache.StageParsed, hit)
	if err != nil {
		return "", fmt.Errorf("parse: %w", err)
	}
	return text, nil
}

func (p *Pipeline) extract(ctx context.Context, path string, text parser.NormalizedText, res *DocumentResult) (model.DocumentExtraction, error) {
	defer observe(cache.StageExtracted, time.Now())
	key := cache.Key([]byte(path), []byte(text))
	ext, hit, err := cache.GetOrCompute(ctx, p.Cache, cache.StageExtracted, key, func(ctx context.Context) (model.DocumentExtraction, error) {
		out, err := common.Retry(ctx, p.Retry, "extract", llm.IsTransient, func(ctx context.Context) (*model.DocumentExtraction, error) {
			return p.Extractor.Extract(ctx, path, string(text))
		})
		if err != nil {
			return model.DocumentExtraction{}, err
		}
		return *out, nil
	})
	p.noteHit(res, cache.StageExtracted, hit)
	if err != nil {
		return model.DocumentExtraction{}, fmt.Errorf("extract: %w", err)
	}
	return ext, nil
}

func (p *Pipeline) embed(ctx context.Context, ext model.DocumentExtraction, res *DocumentResult) (model.DocumentExtraction, error) {
	defer observe(cache.StageEmbeddings, time.Now())
	canonical, err := json.Marshal(ext)
	if err != nil {
		return model.DocumentExtraction{}, fmt.Errorf("embed: %w", err)
	}
	out, hit, err := cache.GetOrCompute(ctx, p.Cache, cache.StageEmbeddings, cache.Key(canonical), func(ctx context.Context) (model.DocumentExtraction, error) {
		return common.Retry(ctx, p.Retry, "embed", llm.IsTransient, func(ctx context.Context) (model.DocumentExtraction, error) {
			// Embed mutates in place; start each attempt from a fresh decode.
			var work model.DocumentExtraction
			if err := json.Unmarshal(canonical, &work); err != nil {
				return model.DocumentExtraction{}, err
			}
			if err := p.Embedder.Embed(ctx, &work); err != nil {
				return model.DocumentExtraction{}, err
			}
			return work, nil
		})
	})
	p.noteHit(res, cache.StageEmbeddings, hit)
	if err != nil {
		return model.DocumentExtraction{}, fmt.Errorf("embed: %w", err)
	}
	return out, nil
}

func (p *Pipeline) resolve(ctx context.Context, ext *model.DocumentExtraction) (*dedupe.Result, error) {
	defer observe("resolve", time.Now())
	r, err := p.Resolver.Resolve(ctx, ext)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	return r, nil
}

func (p *Pipeline) commit(ctx context.Context, path string, ext *model.DocumentExtraction) (commit.Outcome, error) {
	defer observe("commit", time.Now())
	return common.Retry(ctx, p.Retry, "commit", isRetryableGraphError, func(ctx context.Context) (commit.Outcome, error) {
		return p.Writer.Commit(ctx, path, ext)
	})
}

func isRetryableGraphError(err error) bool {
	return neo4j.IsRetryable(err)
}

func (p *Pipeline) noteHit(res *DocumentResult, stage cache.Stage, hit bool) {
	if hit {
		res.CacheHits = append(res.CacheHits, stage)
	}
}

func (p *Pipeline) fail(res DocumentResult, err error) DocumentResult {
	res.Outcome = OutcomeFailed
	res.Error = err.Error()
	res.err = err
	metrics.DocumentsProcessed.WithLabelValues(string(OutcomeFailed)).Inc()
	if errors.Is(err, context.Canceled) {
		logger.Warn("document canceled", "path", res.Path, "stage", res.Stage)
	} else {
		logger.Error("document failed", "path", res.Path, "stage", res.Stage, "err", err)
	}
	return res
}

func observe(stage cache.Stage, start time.Time) {
	metrics.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
}
