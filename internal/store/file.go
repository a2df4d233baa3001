package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ashinth-ffyo/harmony-cup/internal/models"
)

// FileStore persists the snapshot as a single JSON file on disk.
type FileStore struct {
	mu   sync.RWMutex
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	return &FileStore{path: path}, nil
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) read() (models.Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.NewSnapshot(), nil
		}
		return nil, &IOError{Op: "reading snapshot", Path: f.path, Err: err}
	}

	snap, err := DecodeSnapshot(data)
	if err != nil {
		return nil, &IOError{Op: "parsing snapshot", Path: f.path, Err: err}
	}
	return snap, nil
}

func (f *FileStore) write(snap models.Snapshot) error {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return &IOError{Op: "writing snapshot", Path: f.path, Err: err}
	}

	// Write to temp file then rename for atomic writes
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return &IOError{Op: "writing snapshot", Path: f.path, Err: err}
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return &IOError{Op: "renaming snapshot", Path: f.path, Err: err}
	}
	return nil
}

func (f *FileStore) Bootstrap(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := os.Stat(f.path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, &IOError{Op: "checking snapshot", Path: f.path, Err: err}
	}

	if err := f.write(models.NewSnapshot()); err != nil {
		return false, err
	}
	return true, nil
}

func (f *FileStore) LoadSnapshot(_ context.Context) (models.Snapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.read()
}

func (f *FileStore) SaveSnapshot(_ context.Context, snap models.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.write(snap)
}
