// Package app assembles the store stack and registry from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ashinth-ffyo/harmony-cup/internal/config"
	"github.com/ashinth-ffyo/harmony-cup/internal/registry"
	"github.com/ashinth-ffyo/harmony-cup/internal/store"
	"github.com/ashinth-ffyo/harmony-cup/internal/watcher"
)

type App struct {
	Registry *registry.Registry
	Store    store.Store

	closers []func() error
}

// Open builds the primary store chosen by STORE_BACKEND, wraps it with the
// configured mirror and the snapshot cache, and bootstraps the registry.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{}

	var primary store.Store
	switch cfg.StoreBackend {
	case config.StoreBackendFile:
		fs, err := store.NewFileStore(cfg.DataFile)
		if err != nil {
			return nil, fmt.Errorf("initializing file store: %w", err)
		}
		primary = fs
		log.Info().Str("file", cfg.DataFile).Msg("using file store")
	case config.StoreBackendFirestore:
		fst, err := store.NewFirestoreStore(ctx, cfg.GCPProjectID, cfg.FirestoreDatabase, cfg.GoogleCredentialsFile, cfg.FirestoreCollection, cfg.FirestoreDocument)
		if err != nil {
			return nil, fmt.Errorf("initializing firestore store: %w", err)
		}
		a.closers = append(a.closers, fst.Close)
		fst.SetSnapshotName(cfg.MirrorPath)
		primary = fst
		log.Info().Str("project", cfg.GCPProjectID).Str("collection", cfg.FirestoreCollection).Msg("using firestore store")
	default:
		primary = store.NewMemoryStore()
		log.Info().Msg("using in-memory store")
	}

	switch cfg.Mirror {
	case config.MirrorGitHub:
		client := store.NewGitHubClient(cfg.GitHubToken)
		mirror := store.NewGitHubMirror(client, cfg.GitHubRepoOwner, cfg.GitHubRepoName, cfg.GitHubBranch)
		primary = store.NewMirroredStore(primary, mirror, cfg.MirrorPath, log)
		log.Info().Str("repo", cfg.GitHubRepoOwner+"/"+cfg.GitHubRepoName).Str("path", cfg.MirrorPath).Msg("mirroring snapshot to github")
	case config.MirrorFirestore:
		fst, err := store.NewFirestoreStore(ctx, cfg.GCPProjectID, cfg.FirestoreDatabase, cfg.GoogleCredentialsFile, cfg.FirestoreCollection, cfg.FirestoreDocument)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("initializing firestore mirror: %w", err)
		}
		a.closers = append(a.closers, fst.Close)
		primary = store.NewMirroredStore(primary, fst, cfg.MirrorPath, log)
		log.Info().Str("collection", cfg.FirestoreCollection).Str("path", cfg.MirrorPath).Msg("mirroring snapshot to firestore")
	}

	a.Store = primary
	if cfg.CacheTTL > 0 {
		cached := store.NewCachedStore(primary, cfg.CacheTTL, log)
		a.Store = cached

		if cfg.WatchDataFile && cfg.StoreBackend == config.StoreBackendFile {
			if err := a.watch(cfg.DataFile, cached, log); err != nil {
				a.Close()
				return nil, err
			}
		}
	}

	reg, err := registry.New(ctx, a.Store, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Registry = reg
	return a, nil
}

// watch drops the cached snapshot whenever the data file changes on disk.
func (a *App) watch(path string, cached *store.CachedStore, log zerolog.Logger) error {
	wcfg := watcher.DefaultConfig(path)
	wcfg.OnError = func(err error) {
		log.Warn().Err(err).Msg("data file watch error")
	}
	w, err := watcher.New(wcfg)
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return err
	}

	stopped := make(chan struct{})
	go func() {
		for {
			select {
			case <-changes:
				log.Debug().Str("file", path).Msg("data file changed, dropping snapshot cache")
				cached.Invalidate()
			case <-stopped:
				return
			}
		}
	}()

	a.closers = append(a.closers, func() error {
		close(stopped)
		return w.Stop()
	})
	return nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
