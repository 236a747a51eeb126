package genstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisGenStore shares per-key generations across processes and survives restarts.
// Optionally, a TTL can be applied to generation keys to prevent unbounded growth.
// An expired generation key reads as 0; writers racing across the expiry
// lose their CompareAndBump and retry.
//
// Commit serialises writers of one key with a lease ("lease:<ns>:<key>",
// SET NX PX). The generation is advanced and the lease released by one
// script that first checks the lease still carries the writer's token.
type RedisGenStore struct {
	rdb   redis.UniversalClient
	ns    string        // logical namespace; usually the collection name
	ttl   time.Duration // optional TTL for generation keys; 0 disables expiry
	lease time.Duration // upper bound on one Commit's record write
}

var _ GenStore = (*RedisGenStore)(nil)

var errGenMoved = errors.New("genstore: generation moved")

// ErrLeaseExpired means the record was written but the commit lease ran out
// before the generation could be advanced. Another writer may have committed
// in between.
var ErrLeaseExpired = errors.New("genstore: commit lease expired")

// DefaultLease bounds a Redis Commit when no lease is configured.
const DefaultLease = 10 * time.Second

var commitScript = redis.NewScript(`
if redis.call("GET", KEYS[2]) ~= ARGV[1] then
  return 0
end
if tonumber(ARGV[3]) > 0 then
  redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
else
  redis.call("SET", KEYS[1], ARGV[2])
end
redis.call("DEL", KEYS[2])
return 1
`)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisGenStore creates a Redis-backed generation store without TTL.
func NewRedisGenStore(client redis.UniversalClient, namespace string) *RedisGenStore {
	return &RedisGenStore{rdb: client, ns: namespace, lease: DefaultLease}
}

// NewRedisGenStoreWithTTL creates a Redis-backed generation store with TTL.
// If ttl <= 0, keys do not expire.
func NewRedisGenStoreWithTTL(client redis.UniversalClient, namespace string, ttl time.Duration) *RedisGenStore {
	if ttl < 0 {
		ttl = 0 // go-redis reads negative expirations as KEEPTTL
	}
	return &RedisGenStore{rdb: client, ns: namespace, ttl: ttl, lease: DefaultLease}
}

// WithLease sets how long one Commit may hold a key. d <= 0 keeps the current lease.
func (s *RedisGenStore) WithLease(d time.Duration) *RedisGenStore {
	if d > 0 {
		s.lease = d
	}
	return s
}

func (s *RedisGenStore) key(k string) string      { return "gen:" + s.ns + ":" + k }
func (s *RedisGenStore) leaseKey(k string) string { return "lease:" + s.ns + ":" + k }

// Snapshot returns the current generation.
// Missing keys are treated as generation 0.
func (s *RedisGenStore) Snapshot(ctx context.Context, storageKey string) (uint64, error) {
	g, err := s.rdb.Get(ctx, s.key(storageKey)).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return g, nil
}

// CompareAndBump runs GET/compare/SET under WATCH so two processes cannot both
// advance from the same observed generation. An aborted transaction
// (redis.TxFailedErr) is reported as ok=false, like a plain mismatch.
func (s *RedisGenStore) CompareAndBump(ctx context.Context, storageKey string, observed uint64) (uint64, bool, error) {
	k, lk := s.key(storageKey), s.leaseKey(storageKey)
	var next uint64
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		held, err := tx.Exists(ctx, lk).Result()
		if err != nil {
			return err
		}
		if held > 0 {
			return errGenMoved
		}
		cur, err := tx.Get(ctx, k).Uint64()
		if err == redis.Nil {
			cur = 0
		} else if err != nil {
			return err
		}
		if cur != observed {
			return errGenMoved
		}
		next = cur + 1
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, k, next, s.ttl)
			return nil
		})
		return err
	}, k, lk)
	switch {
	case err == nil:
		return next, true, nil
	case errors.Is(err, errGenMoved), errors.Is(err, redis.TxFailedErr):
		return 0, false, nil
	default:
		return 0, false, err
	}
}

// Commit takes the key's lease, checks the generation, runs write and then
// advances the generation. A held lease or a moved generation is ok=false.
func (s *RedisGenStore) Commit(ctx context.Context, storageKey string, observed uint64, write WriteFunc) (uint64, bool, error) {
	lk := s.leaseKey(storageKey)
	token := uuid.NewString()
	acquired, err := s.rdb.SetNX(ctx, lk, token, s.lease).Result()
	if err != nil {
		return 0, false, err
	}
	if !acquired {
		return 0, false, nil
	}
	release := func() {
		_ = releaseScript.Run(context.WithoutCancel(ctx), s.rdb, []string{lk}, token).Err()
	}

	cur, err := s.Snapshot(ctx, storageKey)
	if err != nil {
		release()
		return 0, false, err
	}
	if cur != observed {
		release()
		return 0, false, nil
	}

	next := observed + 1
	if err := write(ctx, next); err != nil {
		release()
		return 0, false, err
	}

	n, err := commitScript.Run(ctx, s.rdb, []string{s.key(storageKey), lk}, token, next, s.ttl.Milliseconds()).Int()
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, ErrLeaseExpired
	}
	return next, true, nil
}

// Cleanup is not applicable for RedisGenStore (Redis handles expiry if TTL is set).
func (s *RedisGenStore) Cleanup(time.Duration) {}

// Close is a no-op: the client is shared with the provider and publisher and
// is closed by whoever created it.
func (s *RedisGenStore) Close(context.Context) error { return nil }
