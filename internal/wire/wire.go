// Package wire frames cached row-set payloads for storage. The envelope lets
// the read path distinguish a valid entry from foreign or truncated bytes so
// corrupt entries can be deleted and treated as misses instead of surfacing
// decode errors to callers.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version    byte = 1
	kindRowset byte = 1
)

var (
	ErrCorrupt = errors.New("cacheme: corrupt entry")
	magic4     = [...]byte{'C', 'H', 'M', 'E'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Rowset: magic(4) | ver(1) | kind(1=rowset) | rows(u32 be) | vlen(u32 be) | payload(vlen)
func EncodeRowset(rows uint32, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 4 + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindRowset)

	var u4 [4]byte

	binary.BigEndian.PutUint32(u4[:], rows)
	buf.Write(u4[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

func DecodeRowset(b []byte) (rows uint32, payload []byte, err error) {
	const hdr = 4 + 1 + 1 + 4 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindRowset {
		return 0, nil, ErrCorrupt
	}

	off := 6

	rows = binary.BigEndian.Uint32(b[off : off+4])
	off += 4

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen > len(b)-off { // overflow-safe bound check
		return 0, nil, ErrCorrupt
	}

	return rows, b[off : off+vlen], nil
}
