package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version    byte = 1
	kindRecord byte = 1
)

var (
	ErrCorrupt = errors.New("ccfacade: corrupt record")
	magic4     = [...]byte{'C', 'C', 'F', 'R'}
)

const headerLen = 4 + 1 + 1 + 8 + 4

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Record: magic(4) | ver(1) | kind(1=record) | gen(u64 be) | vlen(u32 be) | payload(vlen)
func EncodeRecord(gen uint64, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(headerLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindRecord)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], gen)
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// DecodeRecord returns the write generation and the payload. The payload
// aliases b.
func DecodeRecord(b []byte) (gen uint64, payload []byte, err error) {
	if len(b) < headerLen || !hasMagic(b) || b[4] != version || b[5] != kindRecord {
		return 0, nil, ErrCorrupt
	}

	off := 6
	gen = binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	// exact length: trailing bytes mean a foreign or truncated write
	if vlen < 0 || vlen != len(b)-off {
		return 0, nil, ErrCorrupt
	}

	return gen, b[off : off+vlen], nil
}
