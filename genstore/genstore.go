// Package genstore tracks a write generation per storage key. A writer that
// observed generation g may only commit if the key is still at g; the
// generation then moves to g+1. Losing that race is how the document store
// detects concurrent writers.
package genstore

import (
	"context"
	"time"
)

// WriteFunc stores the record for generation next.
type WriteFunc func(ctx context.Context, next uint64) error

// GenStore abstracts where generations live.
// Use LocalGenStore for a single process, RedisGenStore for writers spread
// across replicas.
type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(ctx context.Context, storageKey string) (uint64, error)
	// CompareAndBump increments the generation only if it still equals
	// observed. ok=false (with nil error) means another writer got there first.
	CompareAndBump(ctx context.Context, storageKey string, observed uint64) (next uint64, ok bool, err error)
	// Commit holds storageKey at observed while write(next) stores the record,
	// then advances the generation to next. ok=false means the generation
	// moved or another commit holds the key; write is not called. A write
	// error leaves the generation at observed.
	Commit(ctx context.Context, storageKey string, observed uint64, write WriteFunc) (next uint64, ok bool, err error)
	// Cleanup prunes old metadata if applicable (no-op for Redis).
	Cleanup(retention time.Duration)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
