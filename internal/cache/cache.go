// Package cache is the content-addressed stage cache. Every pipeline stage
// stores its output under (stage, hash of the stage input).
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/agenthands/docgraph/internal/logger"
	"github.com/agenthands/docgraph/internal/metrics"
)

type Stage string

const (
	StageParsed     Stage = "parsed"
	StageExtracted  Stage = "extracted"
	StageEmbeddings Stage = "embeddings"
)

type Store interface {
	// Get returns ok=false on a miss. A missing namespace is a miss, not an error.
	Get(ctx context.Context, stage Stage, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, stage Stage, key string, value []byte) error
	Delete(ctx context.Context, stage Stage, key string) error
}

// Key hashes the given parts into a hex SHA-256 key. Parts are length
// prefixed so ("ab","c") and ("a","bc") never collide.
func Key(parts ...[]byte) string {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// GetJSON loads a cached value. Undecodable entries count as a miss so the
// caller recomputes and overwrites them.
func GetJSON[T any](ctx context.Context, s Store, stage Stage, key string) (T, bool, error) {
	var zero T
	data, ok, err := s.Get(ctx, stage, key)
	if err != nil {
		return zero, false, fmt.Errorf("cache get %s/%s: %w", stage, key, err)
	}
	if !ok {
		metrics.CacheMisses.WithLabelValues(string(stage)).Inc()
		return zero, false, nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		logger.Warn("corrupt cache entry, recomputing", "stage", stage, "key", key, "err", err)
		metrics.CacheCorrupt.WithLabelValues(string(stage)).Inc()
		metrics.CacheMisses.WithLabelValues(string(stage)).Inc()
		return zero, false, nil
	}
	metrics.CacheHits.WithLabelValues(string(stage)).Inc()
	return v, true, nil
}

func PutJSON[T any](ctx context.Context, s Store, stage Stage, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", stage, err)
	}
	if err := s.Put(ctx, stage, key, data); err != nil {
		return fmt.Errorf("cache put %s/%s: %w", stage, key, err)
	}
	return nil
}

// Validator is implemented by cached values that need more than JSON decoding
// to be trusted.
type Validator interface {
	Validate() error
}

func validatorOf[T any](v *T) (Validator, bool) {
	if vv, ok := any(*v).(Validator); ok {
		return vv, true
	}
	vv, ok := any(v).(Validator)
	return vv, ok
}

// GetOrCompute returns the cached value for key, or runs compute and stores
// its result. Values failing Validate are treated like corrupt entries.
func GetOrCompute[T any](ctx context.Context, s Store, stage Stage, key string, compute func(context.Context) (T, error)) (T, bool, error) {
	v, ok, err := GetJSON[T](ctx, s, stage, key)
	if err != nil {
		return v, false, err
	}
	if ok {
		if vv, isV := validatorOf(&v); isV {
			if verr := vv.Validate(); verr != nil {
				logger.Warn("cached value failed validation, recomputing", "stage", stage, "key", key, "err", verr)
				metrics.CacheCorrupt.WithLabelValues(string(stage)).Inc()
				ok = false
			}
		}
	}
	if ok {
		return v, true, nil
	}

	v, err = compute(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if err := PutJSON(ctx, s, stage, key, v); err != nil {
		// The value is still good; the next run recomputes it.
		logger.Warn("failed to write cache entry", "stage", stage, "err", err)
	}
	return v, false, nil
}
