// Package commit applies a resolved extraction to the graph in one
// transaction and marks the source document as processed.
package commit

import (
	"context"
	"fmt"
	"time"

	"github.com/agenthands/docgraph/internal/core/model"
	"github.com/agenthands/docgraph/internal/graph"
	"github.com/agenthands/docgraph/internal/logger"
)

type Outcome string

const (
	Committed        Outcome = "committed"
	AlreadyProcessed Outcome = "already_processed"
)

type Writer struct {
	Store graph.Store
	NewID func() (string, error)
	Now   func() time.Time
}

func NewWriter(store graph.Store, newID func() (string, error)) *Writer {
	return &Writer{Store: store, NewID: newID, Now: time.Now}
}

// Processed reports whether path already carries the processed marker.
func (w *Writer) Processed(ctx context.Context, path string) (bool, error) {
	return w.Store.DocumentProcessed(ctx, path)
}

// Commit writes entities, then relationships, then the Document marker, all
// in one transaction. A document that is already marked is skipped without
// any write. On failure nothing is persisted, including the marker.
func (w *Writer) Commit(ctx context.Context, path string, ext *model.DocumentExtraction) (Outcome, error) {
	done, err := w.Processed(ctx, path)
	if err != nil {
		return "", fmt.Errorf("check processed %s: %w", path, err)
	}
	if done {
		logger.Info("document already processed", "path", path)
		return AlreadyProcessed, nil
	}

	markerID, err := w.NewID()
	if err != nil {
		return "", fmt.Errorf("mint document id: %w", err)
	}
	now := w.Now()

	err = w.Store.WriteTx(ctx, func(tx graph.Writer) error {
		for _, e := range ext.Entities {
			if err := tx.MergeEntity(ctx, e); err != nil {
				return err
			}
		}
		for _, r := range ext.Relationships {
			if err := tx.MergeRelationship(ctx, r); err != nil {
				return err
			}
		}
		id, err := tx.MarkDocument(ctx, path, markerID, now)
		if err != nil {
			return err
		}
		logger.Debug("document marked", "path", path, "id", id)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("commit %s: %w", path, err)
	}

	logger.Info("document committed", "path", path, "entities", len(ext.Entities), "relationships", len(ext.Relationships))
	return Committed, nil
}
