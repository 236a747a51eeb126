package ccfacade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/ccfacade/retry"
)

type caseStore struct {
	collection string
	store      ObjectStore
	policy     retry.Policy
	log        Logger
	hooks      Hooks
}

func newCaseStore(opts Options) (*caseStore, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("ccfacade: object store is required")
	}
	if opts.Project == "" {
		return nil, fmt.Errorf("ccfacade: project is required")
	}
	if opts.Schema == "" {
		return nil, fmt.Errorf("ccfacade: schema is required")
	}

	s := &caseStore{
		collection: CollectionName(opts.Project, opts.Schema),
		store:      opts.Store,
		policy:     opts.Backoff,
	}
	if s.policy == (retry.Policy{}) {
		s.policy = retry.DefaultPolicy()
	}
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	return s, nil
}

func (s *caseStore) Collection() string { return s.collection }

func (s *caseStore) Store(ctx context.Context, c CachedCase) error {
	key, err := c.Key()
	if err != nil {
		return &WriteError{UPRN: c.UPRN, Err: err}
	}

	attempts, err := retry.Do(ctx, s.policy, isContention,
		func(ctx context.Context) error {
			return s.store.PutObject(ctx, s.collection, key, c)
		},
		func(attempt int, delay time.Duration, err error) {
			s.log.Debug("store contended; backing off", Fields{"uprn": key, "attempt": attempt, "delay": delay})
			s.hooks.ContentionRetry(key, attempt, delay)
		})
	if err == nil {
		if attempts > 1 {
			s.log.Info("stored case after contention", Fields{"uprn": key, "attempts": attempts})
		}
		return nil
	}

	if isContention(err) {
		s.log.Warn("store retries exhausted", Fields{"uprn": key, "attempts": attempts, "budget": s.policy.Budget()})
		s.hooks.RetriesExhausted(key, attempts)
	} else {
		s.log.Error("store failed", Fields{"uprn": key, "attempts": attempts, "err": err})
		s.hooks.WriteFailed(key, err)
	}
	return &WriteError{UPRN: key, Attempts: attempts, Err: err}
}

func (s *caseStore) Read(ctx context.Context, uprn UPRN) (CachedCase, bool, error) {
	if uprn > MaxUPRN {
		return CachedCase{}, false, fmt.Errorf("%w: %d", ErrInvalidUPRN, uint64(uprn))
	}
	key := uprn.String()
	c, ok, err := s.store.GetObject(ctx, s.collection, key)
	if err != nil {
		s.log.Error("read failed", Fields{"uprn": key, "err": err})
		s.hooks.ReadFailed(key, err)
		return CachedCase{}, false, fmt.Errorf("read case %s: %w", key, err)
	}
	if !ok {
		s.log.Debug("no cached case", Fields{"uprn": key})
	}
	return c, ok, nil
}

func isContention(err error) bool { return errors.Is(err, ErrContention) }
