package store

import (
	"context"
	"sync"

	"github.com/ashinth-ffyo/harmony-cup/internal/models"
)

type MemoryStore struct {
	mu    sync.RWMutex
	snap  models.Snapshot
	saves int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Bootstrap(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snap != nil {
		return false, nil
	}
	m.snap = models.NewSnapshot()
	return true, nil
}

func (m *MemoryStore) LoadSnapshot(_ context.Context) (models.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.snap == nil {
		return models.NewSnapshot(), nil
	}
	// Deep copy to avoid external mutation
	return m.snap.Clone(), nil
}

func (m *MemoryStore) SaveSnapshot(_ context.Context, snap models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snap = snap.Clone()
	m.saves++
	return nil
}

// Saves reports how many times SaveSnapshot has been called.
func (m *MemoryStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
