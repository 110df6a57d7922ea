package storage

import (
	"context"
	"sync"
	"time"
)

// memoryStore keeps exports in process. Expired entries are dropped lazily.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	ttl     time.Duration
	now     func() time.Time
}

func newMemoryStore(opts Options) *memoryStore {
	return &memoryStore{
		records: make(map[string]Record),
		ttl:     opts.TTL,
		now:     opts.Now,
	}
}

func (m *memoryStore) Put(_ context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	now := m.now()
	rec.ExpiresAt = now.Add(m.ttl).UTC()
	rec.JSON = append([]byte(nil), rec.JSON...)

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.records {
		if !r.ExpiresAt.After(now) {
			delete(m.records, id)
		}
	}
	m.records[rec.ID] = rec
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if !rec.ExpiresAt.After(m.now()) {
		delete(m.records, id)
		return Record{}, ErrNotFound
	}
	rec.JSON = append([]byte(nil), rec.JSON...)
	return rec, nil
}

func (m *memoryStore) Close() error { return nil }
