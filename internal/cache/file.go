package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps one JSON file per entry under dir/<stage>/<key[:2]>/<key>.json.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(stage Stage, key string) string {
	shard := key
	if len(shard) > 2 {
		shard = key[:2]
	}
	return filepath.Join(f.dir, string(stage), shard, key+".json")
}

func (f *FileStore) Get(ctx context.Context, stage Stage, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.path(stage, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Put writes to a temp file and renames it into place, so readers never see
// a partially written entry.
func (f *FileStore) Put(ctx context.Context, stage Stage, key string, value []byte) error {
	dst := f.path(stage, key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+key+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func (f *FileStore) Delete(ctx context.Context, stage Stage, key string) error {
	err := os.Remove(f.path(stage, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
