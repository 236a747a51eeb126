// Package provider defines the byte store the document store writes framed
// case records into. Backends live in subpackages: redis (shared, durable),
// bigcache and ristretto (in-process).
//
// A provider stores opaque bytes. Whatever it hands back from Get must equal
// what was given to Set for that key; any compression or encryption it applies
// internally is undone before returning. Records carry their own framing, so
// a provider that mangles bytes shows up as corrupt reads, not silent drift.
//
// Keys under "doc:<collection>:" belong to the document store.
package provider

import (
	"context"
	"time"
)

// Provider is safe for concurrent use.
type Provider interface {
	// Get reports a miss as (nil, false, nil). Backend failures return err.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set writes value. ttl <= 0 keeps the record until evicted. cost is a
	// hint for admission-controlled backends and may be ignored.
	// ok=false means the backend declined the write.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del is best effort; a missing key is not an error.
	Del(ctx context.Context, key string) error

	Close(ctx context.Context) error
}
