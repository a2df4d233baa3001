package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ashinth-ffyo/harmony-cup/internal/models"
)

// Mirror publishes a copy of the serialized snapshot to a remote content store.
// Publish updates the document at path if it exists and creates it otherwise.
type Mirror interface {
	Publish(ctx context.Context, path string, content []byte, message string) error
}

// MirroredStore writes through to a primary store and then publishes the same
// document to a mirror.
type MirroredStore struct {
	primary Store
	mirror  Mirror
	path    string
	log     zerolog.Logger
}

func NewMirroredStore(primary Store, mirror Mirror, path string, log zerolog.Logger) *MirroredStore {
	return &MirroredStore{primary: primary, mirror: mirror, path: path, log: log}
}

func (m *MirroredStore) Bootstrap(ctx context.Context) (bool, error) {
	created, err := m.primary.Bootstrap(ctx)
	if err != nil || !created {
		return created, err
	}
	return true, m.publish(ctx, models.NewSnapshot(), "Initialize "+m.path)
}

func (m *MirroredStore) LoadSnapshot(ctx context.Context) (models.Snapshot, error) {
	return m.primary.LoadSnapshot(ctx)
}

func (m *MirroredStore) SaveSnapshot(ctx context.Context, snap models.Snapshot) error {
	if err := m.primary.SaveSnapshot(ctx, snap); err != nil {
		return err
	}
	return m.publish(ctx, snap, "Update "+m.path)
}

func (m *MirroredStore) publish(ctx context.Context, snap models.Snapshot, message string) error {
	content, err := EncodeSnapshot(snap)
	if err != nil {
		return &IOError{Op: "mirroring snapshot", Path: m.path, Err: err}
	}
	if err := m.mirror.Publish(ctx, m.path, content, message); err != nil {
		m.log.Error().Err(err).Str("path", m.path).Msg("mirror publish failed")
		return &IOError{Op: "mirroring snapshot", Path: m.path, Err: fmt.Errorf("failed to commit: %w", err)}
	}
	m.log.Debug().Str("path", m.path).Str("message", message).Msg("snapshot mirrored")
	return nil
}
