// Package docstore is an object store keyed by (collection, key) on top of a
// byte Provider. Writes are guarded by per-key generations: a writer that
// loses the generation race gets ErrContention and may simply try again.
//
// Keys:
//
//	doc:<collection>:<key>  - framed record (generation + encoded value)
//
// Write path:
//
//	obs := gen.Snapshot(k)
//	gen.Commit(k, obs, func(next) { provider.Set(k, frame(next, encode(v))) })
//
// Commit holds the key for the duration of Set, so a writer can never land
// a record over a newer one. Losing the key or the generation is
// ErrContention; the generation only advances once Set has succeeded.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	c "github.com/unkn0wn-root/ccfacade/codec"
	gen "github.com/unkn0wn-root/ccfacade/genstore"
	"github.com/unkn0wn-root/ccfacade/internal/util"
	"github.com/unkn0wn-root/ccfacade/internal/wire"
	pr "github.com/unkn0wn-root/ccfacade/provider"
)

var (
	// ErrContention reports that another writer committed the same key between
	// this writer's snapshot and its commit. Nothing was written.
	ErrContention = errors.New("docstore: write contention")
	// ErrRejected reports that the provider refused the write (e.g. admission
	// pressure). Not retried by callers.
	ErrRejected = errors.New("docstore: write rejected by provider")
	// ErrEmptyKey reports an empty collection or key.
	ErrEmptyKey = errors.New("docstore: empty collection or key")
	// ErrCorrupt is returned (wrapped) when a stored record fails framing checks.
	ErrCorrupt = wire.ErrCorrupt
)

// SetCostFunc sizes a framed record for cost-aware providers.
type SetCostFunc func(storageKey string, raw []byte) int64

// Options configure a Store. Provider and Codec are required.
type Options[V any] struct {
	Provider pr.Provider
	Codec    c.Codec[V]

	GenStore       gen.GenStore  // nil => LocalGenStore (in-process)
	TTL            time.Duration // per-record TTL; 0 => no expiry
	ComputeSetCost SetCostFunc   // default: len(raw)
}

type Store[V any] struct {
	provider pr.Provider
	codec    c.Codec[V]
	gen      gen.GenStore
	ttl      time.Duration
	cost     SetCostFunc
}

func New[V any](opts Options[V]) (*Store[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("docstore: provider is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("docstore: codec is required")
	}

	s := &Store[V]{
		provider: opts.Provider,
		codec:    opts.Codec,
		gen:      opts.GenStore,
		ttl:      opts.TTL,
		cost:     opts.ComputeSetCost,
	}
	if s.gen == nil {
		s.gen = gen.NewLocalGenStore(0, 0)
	}
	if s.cost == nil {
		s.cost = func(_ string, raw []byte) int64 { return int64(len(raw)) }
	}
	return s, nil
}

// PutObject overwrites the record at (collection, key). It makes exactly one
// commit attempt; ErrContention means a concurrent writer won or is still
// writing.
func (s *Store[V]) PutObject(ctx context.Context, collection, key string, value V) error {
	if collection == "" || key == "" {
		return ErrEmptyKey
	}
	k := util.StorageKey(collection, key)

	payload, err := s.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("docstore: encode %s: %w", k, err)
	}

	obs, err := s.gen.Snapshot(ctx, k)
	if err != nil {
		return fmt.Errorf("docstore: snapshot generation %s: %w", k, err)
	}

	var writeErr error
	_, ok, err := s.gen.Commit(ctx, k, obs, func(ctx context.Context, next uint64) error {
		raw := wire.EncodeRecord(next, payload)
		ok, err := s.provider.Set(ctx, k, raw, s.cost(k, raw), s.ttl)
		switch {
		case err != nil:
			writeErr = fmt.Errorf("docstore: set %s: %w", k, err)
		case !ok:
			writeErr = ErrRejected
		}
		return writeErr
	})
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		return fmt.Errorf("docstore: commit %s: %w", k, err)
	}
	if !ok {
		return ErrContention
	}
	return nil
}

// GetObject returns the record at (collection, key). A missing record is
// (zero, false, nil). Corrupt records are reported, never deleted.
func (s *Store[V]) GetObject(ctx context.Context, collection, key string) (V, bool, error) {
	var zero V
	if collection == "" || key == "" {
		return zero, false, ErrEmptyKey
	}
	k := util.StorageKey(collection, key)

	raw, ok, err := s.provider.Get(ctx, k)
	if err != nil {
		return zero, false, fmt.Errorf("docstore: get %s: %w", k, err)
	}
	if !ok {
		return zero, false, nil
	}
	_, payload, err := wire.DecodeRecord(raw)
	if err != nil {
		return zero, false, fmt.Errorf("docstore: %s: %w", k, err)
	}
	v, err := s.codec.Decode(payload)
	if err != nil {
		return zero, false, fmt.Errorf("docstore: decode %s: %w", k, err)
	}
	return v, true, nil
}

// Generation returns the generation framed into the stored record of
// (collection, key); 0 if there is none.
func (s *Store[V]) Generation(ctx context.Context, collection, key string) (uint64, error) {
	if collection == "" || key == "" {
		return 0, ErrEmptyKey
	}
	k := util.StorageKey(collection, key)
	raw, ok, err := s.provider.Get(ctx, k)
	if err != nil {
		return 0, fmt.Errorf("docstore: get %s: %w", k, err)
	}
	if !ok {
		return 0, nil
	}
	g, _, err := wire.DecodeRecord(raw)
	if err != nil {
		return 0, fmt.Errorf("docstore: %s: %w", k, err)
	}
	return g, nil
}

// Close closes the generation store first (best effort), then the provider.
func (s *Store[V]) Close(ctx context.Context) error {
	_ = s.gen.Close(ctx)
	return s.provider.Close(ctx)
}
