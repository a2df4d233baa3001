package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashinth-ffyo/harmony-cup/internal/models"
	"github.com/ashinth-ffyo/harmony-cup/internal/store"
)

type countingStore struct {
	store.MemoryStore
	loads int
}

func (c *countingStore) LoadSnapshot(ctx context.Context) (models.Snapshot, error) {
	c.loads++
	return c.MemoryStore.LoadSnapshot(ctx)
}

func TestCachedStore_ServesFromCache(t *testing.T) {
	inner := &countingStore{}
	cs := store.NewCachedStore(inner, time.Minute, zerolog.Nop())
	ctx := context.Background()

	_, err := cs.LoadSnapshot(ctx)
	require.NoError(t, err)
	_, err = cs.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.loads)

	require.NoError(t, cs.SaveSnapshot(ctx, sampleSnapshot()))
	snap, err := cs.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), snap)
	assert.Equal(t, 1, inner.loads, "save refreshes the cache")

	cs.Invalidate()
	_, err = cs.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.loads)
}

func TestCachedStore_ReturnsCopies(t *testing.T) {
	cs := store.NewCachedStore(store.NewMemoryStore(), time.Minute, zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, cs.SaveSnapshot(ctx, sampleSnapshot()))

	snap, err := cs.LoadSnapshot(ctx)
	require.NoError(t, err)
	snap[models.CategoryF1][0].Name1 = "mutated"
	snap[models.CategoryF2] = append(snap[models.CategoryF2], models.Team{RefNo: 9})

	again, err := cs.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), again)
}

func TestCachedStore_FailedSaveDropsCache(t *testing.T) {
	inner := &failingCountingStore{}
	cs := store.NewCachedStore(inner, time.Minute, zerolog.Nop())
	ctx := context.Background()

	_, err := cs.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Error(t, cs.SaveSnapshot(ctx, sampleSnapshot()))

	snap, err := cs.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.NewSnapshot(), snap, "unsaved change is not served")
	assert.Equal(t, 2, inner.loads)
}

type failingCountingStore struct {
	countingStore
}

func (f *failingCountingStore) SaveSnapshot(context.Context, models.Snapshot) error {
	return &store.IOError{Op: "writing snapshot", Err: assert.AnError}
}

// gatedStore holds the next LoadSnapshot after it has read the data until
// release is closed. Later loads pass straight through.
type gatedStore struct {
	store.MemoryStore
	armed   atomic.Bool
	loaded  chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{loaded: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedStore) LoadSnapshot(ctx context.Context) (models.Snapshot, error) {
	snap, err := g.MemoryStore.LoadSnapshot(ctx)
	if g.armed.CompareAndSwap(true, false) {
		close(g.loaded)
		<-g.release
	}
	return snap, err
}

func TestCachedStore_SlowReaderDoesNotOverwriteNewerSave(t *testing.T) {
	inner := newGatedStore()
	cs := store.NewCachedStore(inner, time.Minute, zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, cs.SaveSnapshot(ctx, models.NewSnapshot()))
	cs.Invalidate()

	inner.armed.Store(true)
	stale := make(chan models.Snapshot, 1)
	go func() {
		snap, err := cs.LoadSnapshot(ctx)
		assert.NoError(t, err)
		stale <- snap
	}()

	<-inner.loaded
	require.NoError(t, cs.SaveSnapshot(ctx, sampleSnapshot()))
	close(inner.release)

	assert.Equal(t, models.NewSnapshot(), <-stale, "reader sees what it loaded")

	snap, err := cs.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), snap, "cache keeps the newer save")
}

func TestCachedStore_SlowReaderDoesNotOverwriteInvalidate(t *testing.T) {
	inner := newGatedStore()
	cs := store.NewCachedStore(inner, time.Minute, zerolog.Nop())
	ctx := context.Background()

	inner.armed.Store(true)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := cs.LoadSnapshot(ctx)
		assert.NoError(t, err)
	}()

	<-inner.loaded
	// Another process rewrites the store and the file watcher invalidates.
	require.NoError(t, inner.MemoryStore.SaveSnapshot(ctx, sampleSnapshot()))
	cs.Invalidate()
	close(inner.release)
	<-done

	snap, err := cs.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), snap)
}

func TestCachedStore_LoadFreshSeesExternalWrite(t *testing.T) {
	inner := &countingStore{}
	cs := store.NewCachedStore(inner, time.Hour, zerolog.Nop())
	ctx := context.Background()

	_, err := cs.LoadSnapshot(ctx)
	require.NoError(t, err)

	// Written behind the cache's back.
	require.NoError(t, inner.MemoryStore.SaveSnapshot(ctx, sampleSnapshot()))

	cached, err := cs.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.NewSnapshot(), cached)

	fresh, err := store.LoadFresh(ctx, cs)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), fresh)
	assert.Equal(t, 2, inner.loads)

	cached, err = cs.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), cached, "fresh load refreshes the cache")
}

func TestLoadFresh_PlainStore(t *testing.T) {
	mem := store.NewMemoryStore()
	require.NoError(t, mem.SaveSnapshot(context.Background(), sampleSnapshot()))

	snap, err := store.LoadFresh(context.Background(), mem)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), snap)
}

func TestCachedStore_ConcurrentReadersAndWriter(t *testing.T) {
	cs := store.NewCachedStore(store.NewMemoryStore(), time.Minute, zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, cs.SaveSnapshot(ctx, models.NewSnapshot()))

	const saves = 50
	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				cs.Invalidate()
				_, err := cs.LoadSnapshot(ctx)
				assert.NoError(t, err)
			}
		}()
	}

	snap := models.NewSnapshot()
	for i := 1; i <= saves; i++ {
		snap[models.CategoryF1] = append(snap[models.CategoryF1], models.Team{RefNo: i})
		require.NoError(t, cs.SaveSnapshot(ctx, snap))
	}
	close(stop)
	wg.Wait()

	got, err := cs.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, got[models.CategoryF1], saves)
}
