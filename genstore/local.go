package genstore

import (
	"context"
	"sync"
	"time"
)

type localGenEntry struct {
	Gen       uint64
	UpdatedAt time.Time
}

// LocalGenStore keeps generations in-process.
// Optional cleanup loop to prune long-inactive entries. A pruned key reads as
// generation 0 again, which only matters to a writer that snapshotted before
// the prune and commits after it; that writer then loses with ok=false.
type LocalGenStore struct {
	mu     sync.RWMutex
	gens   map[string]localGenEntry
	held   map[string]struct{} // keys with a Commit in flight
	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once

	retention time.Duration
}

var _ GenStore = (*LocalGenStore)(nil)

func NewLocalGenStore(cleanupInterval, retention time.Duration) *LocalGenStore {
	s := &LocalGenStore{
		gens:      make(map[string]localGenEntry),
		held:      make(map[string]struct{}),
		retention: retention,
	}
	if cleanupInterval > 0 && retention > 0 {
		s.ticker = time.NewTicker(cleanupInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.Cleanup(retention)
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *LocalGenStore) Snapshot(_ context.Context, k string) (uint64, error) {
	s.mu.RLock()
	e, ok := s.gens[k]
	s.mu.RUnlock()
	if !ok {
		return 0, nil
	}
	return e.Gen, nil
}

func (s *LocalGenStore) CompareAndBump(_ context.Context, k string, observed uint64) (uint64, bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.gens[k]
	if _, busy := s.held[k]; busy || e.Gen != observed {
		return e.Gen, false, nil
	}
	e.Gen++
	e.UpdatedAt = now
	s.gens[k] = e
	return e.Gen, true, nil
}

func (s *LocalGenStore) Commit(ctx context.Context, k string, observed uint64, write WriteFunc) (uint64, bool, error) {
	s.mu.Lock()
	if _, busy := s.held[k]; busy || s.gens[k].Gen != observed {
		s.mu.Unlock()
		return 0, false, nil
	}
	s.held[k] = struct{}{}
	s.mu.Unlock()

	next := observed + 1
	err := write(ctx, next)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.held, k)
	if err != nil {
		return 0, false, err
	}
	s.gens[k] = localGenEntry{Gen: next, UpdatedAt: time.Now()}
	return next, true, nil
}

func (s *LocalGenStore) Cleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-retention)

	s.mu.Lock()
	for k, e := range s.gens {
		if !e.UpdatedAt.IsZero() && e.UpdatedAt.Before(cutoff) {
			delete(s.gens, k)
		}
	}
	s.mu.Unlock()
}

// Close stops the cleanup loop. Safe to call more than once.
func (s *LocalGenStore) Close(_ context.Context) error {
	s.once.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			if s.ticker != nil {
				s.ticker.Stop() // stop ticker before waiting
			}
			s.wg.Wait()
		}
	})
	return nil
}
