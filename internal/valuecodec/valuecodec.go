// Package valuecodec packs and unpacks the (term, cmd, payload) triple that
// every adapter except sqlitekv (which uses separate columns) stores as a
// single opaque value (§3):
//
//	offset 0..7  : term  (little-endian uint64)
//	offset 8..15 : cmd   (little-endian uint64)
//	offset 16..  : payload
//
// A stored value shorter than headerSize is malformed and decodes as
// term=0, cmd=0, payload=empty rather than erroring — this lets adapters
// treat any bytes found under a main-store key as decodable without a
// separate validity bit.
package valuecodec

import (
	"encoding/binary"

	"github.com/mattsta/kvidxkit/internal/buf"
)

const headerSize = 16

// Pack frames term, cmd and payload into a single stored value.
func Pack(term, cmd uint64, payload []byte) []byte {
	out := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint64(out[0:8], term)
	binary.LittleEndian.PutUint64(out[8:16], cmd)
	copy(out[headerSize:], payload)
	return out
}

// Unpack reverses Pack. A value shorter than headerSize decodes to the
// zeroed sentinel per §3 rather than returning an error.
func Unpack(stored []byte) (term, cmd uint64, payload []byte) {
	if len(stored) < headerSize {
		return 0, 0, nil
	}
	term = buf.U64LE(stored[0:8])
	cmd = buf.U64LE(stored[8:16])
	payload = stored[headerSize:]
	return
}

// PayloadLen returns the logical payload length of a stored value without
// allocating a sub-slice copy.
func PayloadLen(stored []byte) int {
	if len(stored) < headerSize {
		return 0
	}
	return len(stored) - headerSize
}

// IsMalformed reports whether stored is non-empty but too short to contain
// a valid header, i.e. Unpack would fall back to the zeroed sentinel.
// Adapters use this to decide whether a Get is worth a Warn log.
func IsMalformed(stored []byte) bool {
	return len(stored) > 0 && len(stored) < headerSize
}

// sliceBounded returns b[off:off+n], clamped to the available length,
// and whether off was within bounds at all. Used by ReadRange to avoid
// panics on out-of-range offsets.
func sliceBounded(b []byte, off, n int) (sub []byte, ok bool) {
	if buf.Has(b, off, n) {
		return buf.Slice(b, off, n)
	}
	if off < 0 || off > len(b) {
		return nil, false
	}
	return b[off:len(b)], true
}

// ReadRange returns up to length bytes of payload starting at offset.
// length == 0 means "read to end". offset >= len(payload) returns an empty,
// non-error slice (§4.6 getValueRange).
func ReadRange(payload []byte, offset, length int) []byte {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(payload) {
		return []byte{}
	}
	n := length
	if n == 0 {
		n = len(payload) - offset
	}
	sub, ok := sliceBounded(payload, offset, n)
	if !ok {
		return []byte{}
	}
	out := make([]byte, len(sub))
	copy(out, sub)
	return out
}

// WriteRange writes data into payload starting at offset, zero-extending
// payload first if offset+len(data) exceeds its current length (§4.6
// setValueRange). Returns the resulting payload (may be a new slice).
func WriteRange(payload []byte, offset int, data []byte) []byte {
	need := offset + len(data)
	if need > len(payload) {
		grown := make([]byte, need)
		copy(grown, payload)
		payload = grown
	}
	copy(payload[offset:], data)
	return payload
}
