package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const exportsTable = "digest_exports"

const createExportsTable = `
CREATE TABLE IF NOT EXISTS digest_exports (
    id           TEXT PRIMARY KEY,
    topic        TEXT        NOT NULL,
    generated_at TIMESTAMPTZ NOT NULL,
    json_body    BYTEA       NOT NULL,
    markdown     TEXT        NOT NULL,
    expires_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS digest_exports_expires_at_idx ON digest_exports (expires_at);`

// postgresStore implements Store on a pgx pool. Queries are built with squirrel.
type postgresStore struct {
	pool            *pgxpool.Pool
	psql            sq.StatementBuilderType
	ttl             time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	cleanupMu   sync.Mutex
	lastCleanup time.Time
}

func openPostgres(ctx context.Context, dsn string, opts Options) (*postgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createExportsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create %s table: %w", exportsTable, err)
	}

	return &postgresStore{
		pool:            pool,
		psql:            sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		ttl:             opts.TTL,
		cleanupInterval: opts.CleanupInterval,
		now:             opts.Now,
		lastCleanup:     opts.Now(),
	}, nil
}

func (p *postgresStore) Put(ctx context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	now := p.now()
	if err := p.maybeCleanupExpired(ctx, now); err != nil {
		return err
	}

	query, args, err := p.psql.
		Insert(exportsTable).
		Columns("id", "topic", "generated_at", "json_body", "markdown", "expires_at").
		Values(rec.ID, rec.Topic, rec.GeneratedAt.UTC(), rec.JSON, rec.Markdown, now.Add(p.ttl).UTC()).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			topic = EXCLUDED.topic,
			generated_at = EXCLUDED.generated_at,
			json_body = EXCLUDED.json_body,
			markdown = EXCLUDED.markdown,
			expires_at = EXCLUDED.expires_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert export %s: %w", rec.ID, err)
	}
	return nil
}

func (p *postgresStore) Get(ctx context.Context, id string) (Record, error) {
	query, args, err := p.psql.
		Select("id", "topic", "generated_at", "json_body", "markdown", "expires_at").
		From(exportsTable).
		Where(sq.Eq{"id": id}).
		Where(sq.Gt{"expires_at": p.now().UTC()}).
		ToSql()
	if err != nil {
		return Record{}, fmt.Errorf("build select: %w", err)
	}

	var rec Record
	err = p.pool.QueryRow(ctx, query, args...).
		Scan(&rec.ID, &rec.Topic, &rec.GeneratedAt, &rec.JSON, &rec.Markdown, &rec.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("select export %s: %w", id, err)
	}
	rec.GeneratedAt = rec.GeneratedAt.UTC()
	rec.ExpiresAt = rec.ExpiresAt.UTC()
	return rec, nil
}

func (p *postgresStore) maybeCleanupExpired(ctx context.Context, now time.Time) error {
	p.cleanupMu.Lock()
	defer p.cleanupMu.Unlock()
	if now.Sub(p.lastCleanup) < p.cleanupInterval {
		return nil
	}

	query, args, err := p.psql.Delete(exportsTable).Where(sq.LtOrEq{"expires_at": now.UTC()}).ToSql()
	if err != nil {
		return fmt.Errorf("build cleanup: %w", err)
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("purge expired exports: %w", err)
	}
	p.lastCleanup = now
	return nil
}

func (p *postgresStore) Close() error {
	if p == nil || p.pool == nil {
		return nil
	}
	p.pool.Close()
	return nil
}
