package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

// fakeClock is advanced manually so TTL behaviour can be tested without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.October, 6, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func sampleRecord(id string) Record {
	return Record{
		ID:          id,
		Topic:       "electric vehicles",
		GeneratedAt: time.Date(2025, time.October, 6, 11, 59, 0, 0, time.UTC),
		JSON:        []byte(`{"id":"` + id + `"}`),
		Markdown:    "# Daily News Digest: electric vehicles\n",
	}
}

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, store Store, clock *fakeClock) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.Error(t, store.Put(ctx, Record{}))

	rec := sampleRecord("d1")
	require.NoError(t, store.Put(ctx, rec))

	got, err := store.Get(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, rec.Topic, got.Topic)
	require.Equal(t, rec.JSON, got.JSON)
	require.Equal(t, rec.Markdown, got.Markdown)
	require.True(t, rec.GeneratedAt.Equal(got.GeneratedAt))
	require.True(t, got.ExpiresAt.After(clock.Now()))

	updated := sampleRecord("d1")
	updated.Markdown = "# replaced\n"
	require.NoError(t, store.Put(ctx, updated))
	got, err = store.Get(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, "# replaced\n", got.Markdown)

	clock.Advance(2 * time.Hour)
	_, err = store.Get(ctx, "d1")
	require.True(t, errors.Is(err, ErrNotFound), "expected expired record, got %v", err)
}

func TestMemoryStore(t *testing.T) {
	clock := newFakeClock()
	store, err := NewStore(context.Background(), TypeMemory, Options{TTL: time.Hour, Now: clock.Now})
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store, clock)
}

func TestBoltStore(t *testing.T) {
	clock := newFakeClock()
	path := filepath.Join(t.TempDir(), "nested", "exports.db")
	store, err := NewStore(context.Background(), TypeBBolt, Options{
		Path:            path,
		TTL:             time.Hour,
		CleanupInterval: time.Minute,
		Now:             clock.Now,
	})
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store, clock)
}

func TestBoltStoreCleanupPurgesExpired(t *testing.T) {
	clock := newFakeClock()
	store, err := openBolt(filepath.Join(t.TempDir(), "exports.db"), normalizeOptions(Options{
		TTL:             time.Minute,
		CleanupInterval: time.Minute,
		Now:             clock.Now,
	}))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, sampleRecord("old")))
	clock.Advance(5 * time.Minute)
	require.NoError(t, store.Put(ctx, sampleRecord("new")))

	var keys int
	require.NoError(t, store.db.View(func(tx *bolt.Tx) error {
		keys = tx.Bucket([]byte(exportBucket)).Stats().KeyN
		return nil
	}))
	require.Equal(t, 1, keys)
}

func TestBoltStoreGetDeletesExpiredRecord(t *testing.T) {
	clock := newFakeClock()
	store, err := openBolt(filepath.Join(t.TempDir(), "exports.db"), normalizeOptions(Options{
		TTL:             time.Minute,
		CleanupInterval: time.Hour,
		Now:             clock.Now,
	}))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, sampleRecord("stale")))
	clock.Advance(2 * time.Minute)

	_, err = store.Get(ctx, "stale")
	require.ErrorIs(t, err, ErrNotFound)

	var keys int
	require.NoError(t, store.db.View(func(tx *bolt.Tx) error {
		keys = tx.Bucket([]byte(exportBucket)).Stats().KeyN
		return nil
	}))
	require.Zero(t, keys, "expired record must be removed by the read")
}

func TestNoopStore(t *testing.T) {
	store, err := NewStore(context.Background(), "none", Options{})
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), sampleRecord("x")))
	_, err = store.Get(context.Background(), "x")
	require.ErrorIs(t, err, ErrNotFound)

	require.False(t, Enabled(" None "))
	require.False(t, Enabled(""))
	require.True(t, Enabled("bbolt"))
}

func TestNewStoreValidation(t *testing.T) {
	ctx := context.Background()
	_, err := NewStore(ctx, "bbolt", Options{})
	require.Error(t, err)
	_, err = NewStore(ctx, "postgres", Options{})
	require.Error(t, err)
	_, err = NewStore(ctx, "redis", Options{})
	require.Error(t, err)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("NEWSDIGEST_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("NEWSDIGEST_TEST_POSTGRES_DSN not set")
	}

	clock := newFakeClock()
	store, err := NewStore(context.Background(), TypePostgres, Options{DSN: dsn, TTL: time.Hour, Now: clock.Now})
	require.NoError(t, err)
	defer store.Close()

	pg := store.(*postgresStore)
	_, err = pg.pool.Exec(context.Background(), "DELETE FROM "+exportsTable)
	require.NoError(t, err)

	exerciseStore(t, store, clock)
}
