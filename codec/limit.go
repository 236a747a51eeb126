package codec

import (
	"errors"
	"fmt"
)

// ErrTooLarge is returned by LimitCodec when a payload exceeds its bound.
var ErrTooLarge = errors.New("codec: payload too large")

// LimitCodec wraps another codec and bounds payload size in both directions.
// A record that is too big to read back is refused at write time as well.
// If Max <= 0, size limiting is disabled.
//
// Typical use: protect against oversized records written by another
// process into a shared store.
type LimitCodec[V any] struct {
	Inner Codec[V]
	Max   int
}

func (c LimitCodec[V]) Encode(v V) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	if c.Max > 0 && len(b) > c.Max {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLarge, len(b), c.Max)
	}
	return b, nil
}

func (c LimitCodec[V]) Decode(b []byte) (V, error) {
	if c.Max > 0 && len(b) > c.Max {
		var zero V
		return zero, fmt.Errorf("%w: %d > %d", ErrTooLarge, len(b), c.Max)
	}
	return c.Inner.Decode(b)
}
