// Package dedupe resolves extractor-local entity ids to durable graph ids.
package dedupe

import (
	"context"
	"fmt"
	"maps"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/agenthands/docgraph/internal/core/model"
	"github.com/agenthands/docgraph/internal/graph"
	"github.com/agenthands/docgraph/internal/logger"
	"github.com/agenthands/docgraph/internal/metrics"
)

// SimilarityThreshold is the cosine score an existing node must exceed to be
// treated as the same real-world entity.
const SimilarityThreshold = 0.95

type IDGenerator func() (string, error)

func NanoID() (string, error) {
	return gonanoid.New()
}

type Outcome string

const (
	OutcomeMatched     Outcome = "matched"
	OutcomeMinted      Outcome = "minted"
	OutcomeNoEmbedding Outcome = "no_embedding"
	OutcomeDocReused   Outcome = "document_reused"
	OutcomeLookupError Outcome = "lookup_error"
)

type Stats struct {
	Matched      int `json:"matched"`
	Minted       int `json:"minted"`
	LookupErrors int `json:"lookup_errors"`
}

type Result struct {
	Extraction *model.DocumentExtraction
	Mapping    *model.IdentifierMapping
	Stats      Stats
}

type Resolver struct {
	Store graph.Store
	NewID IDGenerator
}

func NewResolver(store graph.Store) *Resolver {
	return &Resolver{Store: store, NewID: NanoID}
}

// Resolve assigns a graph id to every entity and rewrites relationship
// endpoints through the resulting mapping. The input extraction is not
// modified.
//
// Documents are matched exactly on path. Entities of a resolvable type with
// an embedding adopt the id of the most similar node of the same label when
// the score is strictly above SimilarityThreshold. Everything else gets a
// fresh id. A failed lookup is treated as no match.
func (r *Resolver) Resolve(ctx context.Context, ext *model.DocumentExtraction) (*Result, error) {
	out := &model.DocumentExtraction{
		Entities:      make([]model.Entity, len(ext.Entities)),
		Relationships: make([]model.Relationship, len(ext.Relationships)),
	}
	res := &Result{Extraction: out, Mapping: model.NewIdentifierMapping()}
	docIDs := map[string]string{}

	for i, src := range ext.Entities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e := src
		e.Properties = maps.Clone(src.Properties)
		if e.Properties == nil {
			e.Properties = map[string]any{}
		}
		originalID := src.ID()

		var id string
		var err error
		if e.Type == model.Document {
			id, err = r.resolveDocument(ctx, &e, docIDs, &res.Stats)
		} else {
			id, err = r.resolveEntity(ctx, &e, &res.Stats)
		}
		if err != nil {
			return nil, err
		}

		e.SetID(id)
		if originalID != "" {
			res.Mapping.Set(e.Type, originalID, id)
		}
		out.Entities[i] = e
	}

	present := make(map[model.EntityRef]struct{}, len(out.Entities))
	for i := range out.Entities {
		present[out.Entities[i].Ref()] = struct{}{}
	}

	for i, rel := range ext.Relationships {
		rel.Properties = maps.Clone(rel.Properties)
		rel.From = rewrite(res.Mapping, rel.From)
		rel.To = rewrite(res.Mapping, rel.To)
		for _, end := range []model.EntityRef{rel.From, rel.To} {
			if _, ok := present[end]; !ok {
				return nil, fmt.Errorf("%s %s->%s: %s: %w", rel.Type, rel.From, rel.To, end, model.ErrDanglingReference)
			}
		}
		out.Relationships[i] = rel
	}

	return res, nil
}

func rewrite(m *model.IdentifierMapping, ref model.EntityRef) model.EntityRef {
	if id, ok := m.Lookup(ref.Type, ref.ID); ok {
		ref.ID = id
	}
	return ref
}

func (r *Resolver) resolveDocument(ctx context.Context, e *model.Entity, seen map[string]string, stats *Stats) (string, error) {
	path := e.StringProp(model.PropPath)
	if path == "" {
		return r.mint(e, OutcomeMinted, stats)
	}
	if id, ok := seen[path]; ok {
		return id, nil
	}

	id, found, err := r.Store.FindDocumentByPath(ctx, path)
	switch {
	case err != nil:
		r.lookupFailed(e, err, stats)
		id, err = r.mint(e, OutcomeLookupError, stats)
		if err != nil {
			return "", err
		}
	case found:
		logger.Debug("document matched by path", "path", path, "id", id)
		metrics.ResolverOutcomes.WithLabelValues(string(OutcomeDocReused)).Inc()
		stats.Matched++
	default:
		if id, err = r.mint(e, OutcomeMinted, stats); err != nil {
			return "", err
		}
	}
	seen[path] = id
	return id, nil
}

func (r *Resolver) resolveEntity(ctx context.Context, e *model.Entity, stats *Stats) (string, error) {
	if !e.Type.Resolvable() {
		e.Embedding = nil
		return r.mint(e, OutcomeMinted, stats)
	}
	if len(e.Embedding) == 0 {
		return r.mint(e, OutcomeNoEmbedding, stats)
	}

	match, found, err := r.Store.BestMatch(ctx, e.Type, e.Embedding)
	if err != nil {
		r.lookupFailed(e, err, stats)
		return r.mint(e, OutcomeLookupError, stats)
	}
	if found && match.Score > SimilarityThreshold {
		logger.Debug("entity matched", "type", e.Type, "original_id", e.ID(), "id", match.ID, "score", match.Score)
		metrics.ResolverOutcomes.WithLabelValues(string(OutcomeMatched)).Inc()
		stats.Matched++
		return match.ID, nil
	}

	logger.Info("no match", "type", e.Type, "original_id", e.ID(), "best_score", match.Score)
	return r.mint(e, OutcomeMinted, stats)
}

func (r *Resolver) lookupFailed(e *model.Entity, err error, stats *Stats) {
	logger.Warn("lookup failed", "type", e.Type, "original_id", e.ID(), "err", err)
	stats.LookupErrors++
}

func (r *Resolver) mint(e *model.Entity, outcome Outcome, stats *Stats) (string, error) {
	id, err := r.NewID()
	if err != nil {
		return "", fmt.Errorf("mint id for %s: %w", e.Type, err)
	}
	metrics.ResolverOutcomes.WithLabelValues(string(outcome)).Inc()
	stats.Minted++
	return id, nil
}
