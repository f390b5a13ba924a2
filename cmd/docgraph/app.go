package main

import (
	"context"
	"fmt"

	"github.com/agenthands/docgraph/internal/cache"
	"github.com/agenthands/docgraph/internal/config"
	"github.com/agenthands/docgraph/internal/core"
	"github.com/agenthands/docgraph/internal/core/commit"
	"github.com/agenthands/docgraph/internal/core/common"
	"github.com/agenthands/docgraph/internal/core/dedupe"
	"github.com/agenthands/docgraph/internal/core/embedding"
	"github.com/agenthands/docgraph/internal/core/extraction"
	"github.com/agenthands/docgraph/internal/corpus"
	"github.com/agenthands/docgraph/internal/driver"
	"github.com/agenthands/docgraph/internal/graph"
	"github.com/agenthands/docgraph/internal/llm"
	"github.com/agenthands/docgraph/internal/logger"
	"github.com/agenthands/docgraph/internal/parser"
)

type app struct {
	cfg      *config.Config
	driver   driver.GraphDriver
	graph    graph.Store
	pipeline *core.Pipeline
}

func (a *app) Close(ctx context.Context) {
	if a.driver != nil {
		if err := a.driver.Close(ctx); err != nil {
			logger.Warn("closing graph driver", "err", err)
		}
	}
}

func openGraph(ctx context.Context, cfg *config.Config) (driver.GraphDriver, graph.Store, error) {
	if cfg.Pipeline.DryRun {
		logger.Warn("dry run: using in-memory graph, nothing will be persisted")
		return nil, graph.NewMemoryStore(), nil
	}
	d, err := driver.NewNeo4jDriver(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to neo4j: %w", err)
	}
	return d, graph.NewNeo4jStore(d), nil
}

func openCache(ctx context.Context, cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Backend {
	case "memory":
		return cache.NewMemoryStore(), nil
	case "s3":
		client, err := cache.NewS3Client(ctx, cache.S3Options{
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("using s3 cache", "bucket", cfg.Bucket, "prefix", cfg.Prefix, "access_key", logger.Mask(cfg.AccessKey))
		return cache.NewS3Store(client, cfg.Bucket, cfg.Prefix), nil
	default:
		return cache.NewFileStore(cfg.Dir)
	}
}

func openParser(cfg config.ParserConfig) (parser.Parser, func(string) bool) {
	if cfg.Backend == "local" {
		return parser.NewLocal(), parser.LocalSupported
	}
	if cfg.APIKey == "" {
		logger.Warn("LLAMA_PARSE_API_KEY is empty; parse requests will be rejected")
	}
	logger.Info("using llamaparse", "base_url", cfg.BaseURL, "api_key", logger.Mask(cfg.APIKey))
	return parser.NewLlamaParse(parser.LlamaParseOptions{
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		PollInterval: cfg.PollInterval.Duration,
		Timeout:      cfg.Timeout.Duration,
	}), parser.Supported
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	d, store, err := openGraph(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.driver, a.graph = d, store

	cacheStore, err := openCache(ctx, cfg.Cache)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("open cache: %w", err)
	}

	llmClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	embedder, err := llm.NewEmbedder(ctx, cfg.Embedding)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	extractor, err := extraction.NewExtractor(llmClient, cfg.Extraction)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	p, supported := openParser(cfg.Parser)
	a.pipeline = &core.Pipeline{
		Parser:    p,
		Extractor: extractor,
		Embedder:  embedding.NewEmbedder(embedder),
		Resolver:  dedupe.NewResolver(store),
		Writer:    commit.NewWriter(store, dedupe.NanoID),
		Cache:     cacheStore,
		Scanner: &corpus.Scanner{
			Include:   cfg.Corpus.Include,
			Exclude:   cfg.Corpus.Exclude,
			Supported: supported,
		},
		Retry: common.RetryPolicy{
			MaxRetries:      cfg.Pipeline.MaxRetries,
			InitialInterval: cfg.Pipeline.InitialInterval.Duration,
			MaxInterval:     cfg.Pipeline.MaxInterval.Duration,
		},
		Workers: cfg.Pipeline.Workers,
	}

	logger.Info("pipeline ready",
		"llm", cfg.LLM.Provider, "model", cfg.LLM.Model,
		"embedding", cfg.Embedding.Model,
		"parser", cfg.Parser.Backend,
		"cache", cfg.Cache.Backend,
		"workers", cfg.Pipeline.Workers,
		"neo4j", cfg.Neo4j.URI, "neo4j_password", logger.Mask(cfg.Neo4j.Password))
	return a, nil
}
