package ccfacade

import (
	"context"

	"github.com/unkn0wn-root/ccfacade/retry"
)

// ObjectStore is the backing store: a (collection, key) object store whose
// writes may fail with ErrContention. docstore.Store[CachedCase] satisfies it.
type ObjectStore interface {
	PutObject(ctx context.Context, collection, key string, value CachedCase) error
	GetObject(ctx context.Context, collection, key string) (CachedCase, bool, error)
}

// CaseStore persists cached cases by UPRN.
type CaseStore interface {
	// Store upserts c under its UPRN, retrying contended writes under the
	// configured policy. Failures are *WriteError.
	Store(ctx context.Context, c CachedCase) error
	// Read returns the case stored for uprn; ok=false when there is none.
	Read(ctx context.Context, uprn UPRN) (c CachedCase, ok bool, err error)
	// Collection is the collection name fixed at construction.
	Collection() string
}

// Options configure a CaseStore. Project, Schema and Store are required.
type Options struct {
	Project string // e.g. "census-cc"
	Schema  string // e.g. "cachedcase"
	Store   ObjectStore

	Backoff retry.Policy // zero => retry.DefaultPolicy()
	Logger  Logger       // if nil, NopLogger is used
	Hooks   Hooks        // if nil, NopHooks is used
}

func New(opts Options) (CaseStore, error) {
	return newCaseStore(opts)
}
