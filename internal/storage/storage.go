package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Package storage keeps rendered digest exports around long enough to be downloaded.

// ErrNotFound is returned by Get for unknown or expired records.
var ErrNotFound = errors.New("export not found")

// Record is one archived digest with both renderings.
type Record struct {
	ID          string    `json:"id"`
	Topic       string    `json:"topic"`
	GeneratedAt time.Time `json:"generated_at"`
	JSON        []byte    `json:"json"`
	Markdown    string    `json:"markdown"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Store archives exports with a TTL.
type Store interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	Close() error
}

// Options controls retention and backend specific settings.
type Options struct {
	// Path is the bbolt database file.
	Path string
	// DSN is the postgres connection string.
	DSN             string
	TTL             time.Duration
	CleanupInterval time.Duration
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

const (
	defaultTTL             = time.Hour
	defaultCleanupInterval = 10 * time.Minute
)

// Backend names accepted by NewStore.
const (
	TypeNone     = "none"
	TypeMemory   = "memory"
	TypeBBolt    = "bbolt"
	TypePostgres = "postgres"
)

// NewStore creates the configured storage backend.
func NewStore(ctx context.Context, typ string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch {
	case !Enabled(typ):
		return noopStore{}, nil
	case typ == TypeMemory:
		return newMemoryStore(opts), nil
	case typ == TypeBBolt:
		if strings.TrimSpace(opts.Path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(opts.Path, opts)
	case typ == TypePostgres:
		if strings.TrimSpace(opts.DSN) == "" {
			return nil, fmt.Errorf("postgres storage requires a dsn")
		}
		return openPostgres(ctx, opts.DSN, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

// Enabled reports whether typ names a backend that actually keeps records.
func Enabled(typ string) bool {
	switch strings.TrimSpace(strings.ToLower(typ)) {
	case "", TypeNone, "disabled":
		return false
	default:
		return true
	}
}

func normalizeOptions(opts Options) Options {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return opts
}

func validateRecord(rec Record) error {
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("record id is required")
	}
	return nil
}

func encodeRecord(rec Record) ([]byte, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	return b, nil
}

func decodeRecord(b []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

type noopStore struct{}

func (noopStore) Put(context.Context, Record) error { return nil }
func (noopStore) Get(context.Context, string) (Record, error) {
	return Record{}, ErrNotFound
}
func (noopStore) Close() error { return nil }
