package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBOR encodes with fxamacker/cbor. Build it with NewCBOR; the zero value
// has no modes and panics on use.
//
// Struct fields are keyed by their json tag names, so a record written as
// CBOR carries the same field names as its JSON form. Timestamps (event
// envelopes) are RFC 3339 strings with nanoseconds.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec[struct{}] = CBOR[struct{}]{}

// NewCBOR builds a codec. canonical selects Core Deterministic Encoding
// (RFC 8949 4.2.1), so equal values always produce equal bytes.
func NewCBOR[V any](canonical bool) (CBOR[V], error) {
	eo := cbor.PreferredUnsortedEncOptions()
	if canonical {
		eo = cbor.CoreDetEncOptions()
	}
	eo.Time = cbor.TimeRFC3339Nano
	eo.FieldName = cbor.FieldNameToTextString

	em, err := eo.EncMode()
	if err != nil {
		return CBOR[V]{}, fmt.Errorf("codec: cbor enc mode: %w", err)
	}
	dm, err := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		MaxMapPairs: 1024,
	}.DecMode()
	if err != nil {
		return CBOR[V]{}, fmt.Errorf("codec: cbor dec mode: %w", err)
	}
	return CBOR[V]{enc: em, dec: dm}, nil
}

// MustCBOR panics where NewCBOR would fail.
func MustCBOR[V any](canonical bool) CBOR[V] {
	c, err := NewCBOR[V](canonical)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CBOR[V]) Encode(v V) ([]byte, error) { return c.enc.Marshal(v) }

func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	if err := c.dec.Unmarshal(b, &v); err != nil {
		return v, err
	}
	return v, nil
}
