package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonboulle/clockwork"
)

// Querier is the subset of pgxpool.Pool used by the Postgres store.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres stores entries as JSONB rows in one cache table.
type Postgres[T any] struct {
	db    Querier
	table string
	clock clockwork.Clock
}

// NewPostgres creates a store over table, which must be one of Tables.
func NewPostgres[T any](db Querier, table string, clock clockwork.Clock) (*Postgres[T], error) {
	if !validTable(table) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Postgres[T]{db: db, table: table, clock: clock}, nil
}

// Get returns the unexpired row for key, or nil.
func (p *Postgres[T]) Get(ctx context.Context, key string) (*Entry[T], error) {
	query := fmt.Sprintf(`
		SELECT payload, retrieved_at_utc, expires_at_utc
		FROM %s
		WHERE natural_key = $1 AND expires_at_utc > $2`, p.table)

	var (
		raw   []byte
		entry = Entry[T]{Key: key}
	)
	err := p.db.QueryRow(ctx, query, key, p.clock.Now().UTC()).
		Scan(&raw, &entry.RetrievedAt, &entry.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", p.table, err)
	}

	if err := json.Unmarshal(raw, &entry.Payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", p.table, err)
	}
	return &entry, nil
}

// Upsert inserts the row or overwrites every field of the existing one.
func (p *Postgres[T]) Upsert(ctx context.Context, entry Entry[T]) error {
	raw, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", p.table, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (natural_key, payload, retrieved_at_utc, expires_at_utc)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (natural_key) DO UPDATE SET
			payload = EXCLUDED.payload,
			retrieved_at_utc = EXCLUDED.retrieved_at_utc,
			expires_at_utc = EXCLUDED.expires_at_utc,
			updated_at = now()`, p.table)

	if _, err := p.db.Exec(ctx, query, entry.Key, raw, entry.RetrievedAt.UTC(), entry.ExpiresAt.UTC()); err != nil {
		return fmt.Errorf("upsert %s: %w", p.table, err)
	}
	return nil
}

// PurgeExpired deletes rows that expired before the cutoff.
func (p *Postgres[T]) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at_utc < $1`, p.table)
	tag, err := p.db.Exec(ctx, query, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge %s: %w", p.table, err)
	}
	return tag.RowsAffected(), nil
}
