package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	exportBucket     = "exports"
	expiryValueBytes = 8
)

// boltStore implements Store backed by BoltDB. Values are an 8 byte big-endian
// expiry followed by the JSON encoded record.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	ttl             time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (*boltStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(exportBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		ttl:             opts.TTL,
		cleanupInterval: opts.CleanupInterval,
		now:             opts.Now,
	}
	store.lastCleanup.Store(store.now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Put stores rec under its id, replacing any previous export with that id.
func (b *boltStore) Put(_ context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	rec.ExpiresAt = now.Add(b.ttl).UTC()
	payload, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(exportBucket))
		if bucket == nil {
			return fmt.Errorf("export bucket missing")
		}
		buf := make([]byte, expiryValueBytes, expiryValueBytes+len(payload))
		binary.BigEndian.PutUint64(buf, uint64(rec.ExpiresAt.Unix()))
		return bucket.Put([]byte(rec.ID), append(buf, payload...))
	})
}

// Get returns the live record for id. Expired entries are deleted on read.
func (b *boltStore) Get(_ context.Context, id string) (Record, error) {
	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return Record{}, err
	}

	var (
		rec     Record
		expired bool
	)
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(exportBucket))
		if bucket == nil {
			return fmt.Errorf("export bucket missing")
		}

		key := []byte(id)
		value := bucket.Get(key)
		if value == nil {
			return ErrNotFound
		}

		expiry, ok := decodeExpiry(value)
		if !ok || !expiry.After(now) {
			expired = true
			return bucket.Delete(key)
		}

		decoded, err := decodeRecord(value[expiryValueBytes:])
		if err != nil {
			return err
		}
		rec = decoded
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	if expired {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// maybeCleanupExpired removes expired exports on a fixed cadence to avoid unbounded growth.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(exportBucket))
		if bucket == nil {
			return fmt.Errorf("export bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			expiry, ok := decodeExpiry(v)
			if !ok || !expiry.After(now) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

// decodeExpiry reads the expiry prefix of a stored value.
func decodeExpiry(value []byte) (time.Time, bool) {
	if len(value) < expiryValueBytes {
		return time.Time{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value[:expiryValueBytes]))
	if unix <= 0 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
