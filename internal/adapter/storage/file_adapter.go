package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/rl1809/shop-admin/internal/port"
)

// FileStore keeps each state entry as <dir>/<key>.json. Files hold the raw
// JSON array so they stay hand-editable. Versions live in memory, so the
// compare-and-set only guards writers inside this process.
type FileStore struct {
	fs  afero.Fs
	dir string

	mu       sync.Mutex
	versions map[string]int64
}

func NewFileStore(fsys afero.Fs, dir string) (*FileStore, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStore{fs: fsys, dir: dir, versions: make(map[string]int64)}, nil
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *FileStore) Load(ctx context.Context, key string) (port.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := afero.ReadFile(f.fs, f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return port.Snapshot{Version: f.versions[key]}, nil
	}
	if err != nil {
		return port.Snapshot{}, fmt.Errorf("read %s: %w", key, err)
	}
	return port.Snapshot{Data: data, Version: f.versions[key]}, nil
}

// Store writes to a temp file and renames it over the entry.
func (f *FileStore) Store(ctx context.Context, key string, data []byte, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.versions[key] != expectedVersion {
		return port.ErrOptimisticLock
	}

	tmp := filepath.Join(f.dir, "."+key+"-"+uuid.NewString()+".tmp")
	if err := afero.WriteFile(f.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.fs.Rename(tmp, f.path(key)); err != nil {
		f.fs.Remove(tmp)
		return fmt.Errorf("replace %s: %w", key, err)
	}

	f.versions[key] = expectedVersion + 1
	return nil
}

func (f *FileStore) Ping(ctx context.Context) error {
	if _, err := f.fs.Stat(f.dir); err != nil {
		return fmt.Errorf("stat state dir: %w", err)
	}
	return nil
}
