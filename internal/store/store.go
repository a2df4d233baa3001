package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ashinth-ffyo/harmony-cup/internal/models"
)

// Store persists the registry snapshot.
// Implementations can back this with a local file, memory, Firestore, or any other provider.
type Store interface {
	// Bootstrap writes an empty snapshot when no durable copy exists yet and
	// reports whether it did.
	Bootstrap(ctx context.Context) (bool, error)
	// LoadSnapshot returns the empty snapshot when no durable copy exists.
	LoadSnapshot(ctx context.Context) (models.Snapshot, error)
	SaveSnapshot(ctx context.Context, snap models.Snapshot) error
}

// ErrIO matches every *IOError via errors.Is.
var ErrIO = errors.New("snapshot i/o failed")

// IOError reports a snapshot that could not be read, parsed, written or mirrored.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// EncodeSnapshot renders the snapshot file format: a JSON object keyed by
// category in declared order, indented by four spaces.
func EncodeSnapshot(snap models.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses and validates a snapshot document.
func DecodeSnapshot(data []byte) (models.Snapshot, error) {
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap == nil {
		snap = models.NewSnapshot()
	}
	return snap, nil
}

// FreshLoader is implemented by stores that may answer LoadSnapshot from a
// cache. LoadFreshSnapshot always reads durable storage.
type FreshLoader interface {
	LoadFreshSnapshot(ctx context.Context) (models.Snapshot, error)
}

// LoadFresh reads the durable snapshot of s, skipping any cache in front of it.
func LoadFresh(ctx context.Context, s Store) (models.Snapshot, error) {
	if f, ok := s.(FreshLoader); ok {
		return f.LoadFreshSnapshot(ctx)
	}
	return s.LoadSnapshot(ctx)
}
