// Package registry enforces the team record invariants on top of a snapshot store.
//
// Every mutation is a read-modify-write of the whole snapshot followed by
// exactly one save. Mutations are serialized by a single lock: because the
// full snapshot is rewritten, locking per category would still lose updates
// made concurrently in another category. Mutations read durable storage, not
// a cached copy, so writes made by another process sharing the store are kept.
package registry

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ashinth-ffyo/harmony-cup/internal/models"
	"github.com/ashinth-ffyo/harmony-cup/internal/store"
)

type Registry struct {
	mu    sync.Mutex
	store store.Store
	log   zerolog.Logger
}

// New bootstraps the store, writing an empty snapshot if none exists yet.
func New(ctx context.Context, s store.Store, log zerolog.Logger) (*Registry, error) {
	created, err := s.Bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping registry: %w", err)
	}
	if created {
		log.Info().Msg("initialized empty team registry")
	}
	return &Registry{store: s, log: log}, nil
}

func parseCategory(category string) (models.Category, error) {
	c, err := models.ParseCategory(category)
	if err != nil {
		return "", &NotFoundError{Category: models.Category(category)}
	}
	return c, nil
}

// List returns the teams of a category. A recognized sortField sorts the
// result stably in ascending order: numerically for REF_NO, lexicographically
// otherwise. Any other sortField keeps insertion order.
func (r *Registry) List(ctx context.Context, category, sortField string) ([]models.Team, error) {
	c, err := parseCategory(category)
	if err != nil {
		return nil, err
	}

	snap, err := r.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", c, err)
	}

	teams := slices.Clone(snap[c])
	if teams == nil {
		teams = []models.Team{}
	}

	switch {
	case sortField == models.ColRefNo:
		slices.SortStableFunc(teams, func(a, b models.Team) int {
			return cmp.Compare(a.RefNo, b.RefNo)
		})
	case models.IsColumn(sortField):
		slices.SortStableFunc(teams, func(a, b models.Team) int {
			return cmp.Compare(a.Value(sortField), b.Value(sortField))
		})
	}
	return teams, nil
}

func (r *Registry) Get(ctx context.Context, category string, refNo int) (models.Team, error) {
	c, err := parseCategory(category)
	if err != nil {
		return models.Team{}, err
	}

	snap, err := r.store.LoadSnapshot(ctx)
	if err != nil {
		return models.Team{}, fmt.Errorf("reading %s: %w", c, err)
	}
	i := indexOf(snap[c], refNo)
	if i < 0 {
		return models.Team{}, &NotFoundError{Category: c, RefNo: refNo}
	}
	return snap[c][i], nil
}

// Snapshot returns a copy of the whole registry.
func (r *Registry) Snapshot(ctx context.Context) (models.Snapshot, error) {
	snap, err := r.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Clone(), nil
}

// Add validates fields, assigns the next REF_NO of the category and persists
// the snapshot. REF_NO is one more than the highest in use, so numbers freed
// by deletion are never handed out again unless they were the highest.
func (r *Registry) Add(ctx context.Context, category string, fields models.TeamFields) (int, error) {
	t, err := r.Insert(ctx, category, fields)
	if err != nil {
		return 0, err
	}
	return t.RefNo, nil
}

// Insert is Add returning the stored team.
func (r *Registry) Insert(ctx context.Context, category string, fields models.TeamFields) (models.Team, error) {
	c, err := parseCategory(category)
	if err != nil {
		return models.Team{}, err
	}
	if field, missing := fields.MissingRequired(); missing {
		return models.Team{}, &ValidationError{Field: field, Reason: "cannot be empty"}
	}
	fields.ApplyStatusDefaults()
	if field, bad := fields.InvalidStatus(); bad {
		return models.Team{}, &ValidationError{Field: field, Reason: fmt.Sprintf("must be one of %v", models.StatusOptions)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := store.LoadFresh(ctx, r.store)
	if err != nil {
		return models.Team{}, fmt.Errorf("failed to add team: %w", err)
	}

	refNo := 1
	for _, t := range snap[c] {
		if t.RefNo >= refNo {
			refNo = t.RefNo + 1
		}
	}
	team := models.Team{RefNo: refNo, TeamFields: fields}
	snap[c] = append(snap[c], team)

	if err := r.store.SaveSnapshot(ctx, snap); err != nil {
		return models.Team{}, fmt.Errorf("failed to add team: %w", err)
	}
	r.log.Info().Str("category", string(c)).Int("ref_no", refNo).Msg("team added")
	return team, nil
}

// Update merges the supplied fields into an existing team. Required fields
// are not re-checked, so an edit may clear them.
func (r *Registry) Update(ctx context.Context, category string, refNo int, patch models.TeamPatch) error {
	_, err := r.Patch(ctx, category, refNo, patch)
	return err
}

// Patch is Update returning the stored team.
func (r *Registry) Patch(ctx context.Context, category string, refNo int, patch models.TeamPatch) (models.Team, error) {
	c, err := parseCategory(category)
	if err != nil {
		return models.Team{}, err
	}
	if field, bad := patch.InvalidStatus(); bad {
		return models.Team{}, &ValidationError{Field: field, Reason: fmt.Sprintf("must be one of %v", models.StatusOptions)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := store.LoadFresh(ctx, r.store)
	if err != nil {
		return models.Team{}, fmt.Errorf("failed to update team: %w", err)
	}

	i := indexOf(snap[c], refNo)
	if i < 0 {
		return models.Team{}, &NotFoundError{Category: c, RefNo: refNo}
	}
	patch.ApplyTo(&snap[c][i].TeamFields)
	team := snap[c][i]

	if err := r.store.SaveSnapshot(ctx, snap); err != nil {
		return models.Team{}, fmt.Errorf("failed to update team: %w", err)
	}
	r.log.Info().Str("category", string(c)).Int("ref_no", refNo).Msg("team updated")
	return team, nil
}

// Delete removes the team if present. The snapshot is saved either way.
func (r *Registry) Delete(ctx context.Context, category string, refNo int) error {
	c, err := parseCategory(category)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := store.LoadFresh(ctx, r.store)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}

	before := len(snap[c])
	snap[c] = slices.DeleteFunc(snap[c], func(t models.Team) bool { return t.RefNo == refNo })
	if snap[c] == nil {
		snap[c] = []models.Team{}
	}

	if err := r.store.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	if len(snap[c]) < before {
		r.log.Info().Str("category", string(c)).Int("ref_no", refNo).Msg("team deleted")
	} else {
		r.log.Debug().Str("category", string(c)).Int("ref_no", refNo).Msg("delete matched no team")
	}
	return nil
}

func indexOf(teams []models.Team, refNo int) int {
	return slices.IndexFunc(teams, func(t models.Team) bool { return t.RefNo == refNo })
}
