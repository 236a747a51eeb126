// Package codec converts stored values to and from bytes.
package codec

import "fmt"

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// ByName returns the codec registered under name ("json", "msgpack", "cbor").
// CBOR is built in deterministic mode so equal records produce equal bytes.
func ByName[V any](name string) (Codec[V], error) {
	switch name {
	case "", "json":
		return JSON[V]{}, nil
	case "msgpack":
		return Msgpack[V]{}, nil
	case "cbor":
		c, err := NewCBOR[V](true)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}
