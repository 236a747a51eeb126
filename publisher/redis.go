package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/ccfacade/codec"
)

// streamAdder is the slice of the go-redis client the publisher needs.
type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

type RedisStreamsConfig struct {
	Client streamAdder
	Codec  codec.Codec[Envelope] // nil => JSON
	Origin Origin

	// Prefix is prepended to the destination to form the stream key.
	Prefix string
	// MaxLen caps each stream approximately; 0 => unbounded.
	MaxLen int64

	Now   func() time.Time
	NewID func() string
}

// RedisStreams appends envelopes to Redis streams, one stream per destination.
type RedisStreams struct {
	client streamAdder
	codec  codec.Codec[Envelope]
	origin Origin
	prefix string
	maxLen int64
	now    func() time.Time
	newID  func() string
}

var _ Publisher = (*RedisStreams)(nil)

func NewRedisStreams(cfg RedisStreamsConfig) (*RedisStreams, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("publisher: redis client is required")
	}
	cd := cfg.Codec
	if cd == nil {
		cd = codec.JSON[Envelope]{}
	}
	return &RedisStreams{
		client: cfg.Client,
		codec:  cd,
		origin: cfg.Origin,
		prefix: cfg.Prefix,
		maxLen: cfg.MaxLen,
		now:    cfg.Now,
		newID:  cfg.NewID,
	}, nil
}

func (p *RedisStreams) Stream(destination string) string { return p.prefix + destination }

func (p *RedisStreams) Publish(ctx context.Context, destination, eventType string, payload any) (Envelope, error) {
	if destination == "" {
		return Envelope{}, ErrEmptyDestination
	}
	if eventType == "" {
		return Envelope{}, ErrEmptyEventType
	}

	env := NewEnvelope(p.origin, eventType, payload, p.now, p.newID)
	raw, err := p.codec.Encode(env)
	if err != nil {
		return Envelope{}, fmt.Errorf("publisher: encode %s: %w", eventType, err)
	}

	args := &redis.XAddArgs{
		Stream: p.Stream(destination),
		Values: map[string]any{
			"type":          eventType,
			"transactionId": env.Header.TransactionID,
			"envelope":      raw,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return Envelope{}, fmt.Errorf("publisher: xadd %s: %w", args.Stream, err)
	}
	return env, nil
}

// Close is a no-op; the client is owned by the caller.
func (p *RedisStreams) Close(context.Context) error { return nil }
