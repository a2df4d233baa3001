package store

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/ashinth-ffyo/harmony-cup/internal/models"
)

const snapshotKey = "snapshot"

// CachedStore keeps the most recent snapshot in memory so repeated listings
// skip the backing store. Callers always receive a copy.
//
// A load that misses the cache only fills it if no save or invalidation
// happened while it was reading, so a slow reader never replaces a newer
// snapshot with the one it loaded.
type CachedStore struct {
	inner Store
	cache *gocache.Cache
	ttl   time.Duration
	log   zerolog.Logger

	mu  sync.Mutex
	gen uint64
}

func NewCachedStore(inner Store, ttl time.Duration, log zerolog.Logger) *CachedStore {
	return &CachedStore{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
		log:   log,
	}
}

func (c *CachedStore) Bootstrap(ctx context.Context) (bool, error) {
	c.Invalidate()
	return c.inner.Bootstrap(ctx)
}

func (c *CachedStore) LoadSnapshot(ctx context.Context) (models.Snapshot, error) {
	if v, found := c.cache.Get(snapshotKey); found {
		if snap, ok := v.(models.Snapshot); ok {
			c.log.Debug().Msg("snapshot cache hit")
			return snap.Clone(), nil
		}
	}
	return c.LoadFreshSnapshot(ctx)
}

// LoadFreshSnapshot reads the backing store, bypassing the cache, and
// refreshes the cache with the result.
func (c *CachedStore) LoadFreshSnapshot(ctx context.Context) (models.Snapshot, error) {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	snap, err := c.inner.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.cache.Set(snapshotKey, snap.Clone(), c.ttl)
	} else {
		c.log.Debug().Msg("snapshot changed during load, not caching")
	}
	c.mu.Unlock()
	return snap, nil
}

func (c *CachedStore) SaveSnapshot(ctx context.Context, snap models.Snapshot) error {
	err := c.inner.SaveSnapshot(ctx, snap)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if err != nil {
		// The backing state is unknown after a failed save.
		c.cache.Delete(snapshotKey)
		return err
	}
	c.cache.Set(snapshotKey, snap.Clone(), c.ttl)
	return nil
}

// Invalidate drops the cached snapshot.
func (c *CachedStore) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.cache.Delete(snapshotKey)
}
