// Package cachestore provides the natural-key cache that stands between the
// provider clients and their upstream APIs. One implementation serves every
// provider; the payload type is the only thing that differs per table.
package cachestore

import (
	"context"
	"errors"
	"time"
)

// Table names of the persistent cache, one per provider.
const (
	TableNeighborhood = "context_neighborhood_cache"
	TableCrime        = "context_crime_cache"
	TableAmenity      = "context_amenity_cache"
	TableAirQuality   = "context_air_quality_cache"
)

// Tables lists every persistent cache table.
var Tables = []string{TableNeighborhood, TableCrime, TableAmenity, TableAirQuality}

// ErrUnknownTable is returned when a store is constructed for a table that
// is not part of the cache schema.
var ErrUnknownTable = errors.New("cachestore: unknown table")

// Entry is one cached provider payload addressed by its natural key.
type Entry[T any] struct {
	Key         string
	Payload     T
	RetrievedAt time.Time
	ExpiresAt   time.Time
}

// LiveAt reports whether the entry is still visible at now.
func (e *Entry[T]) LiveAt(now time.Time) bool {
	return e != nil && now.Before(e.ExpiresAt)
}

// Store is the get/upsert contract shared by every provider.
// Get returns nil without error when the key is absent or expired.
type Store[T any] interface {
	Get(ctx context.Context, key string) (*Entry[T], error)
	Upsert(ctx context.Context, entry Entry[T]) error
}

// Purger removes rows that expired before a cutoff. Readers never depend on it.
type Purger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

func validTable(table string) bool {
	for _, t := range Tables {
		if t == table {
			return true
		}
	}
	return false
}
