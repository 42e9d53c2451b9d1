// Package fingerprint computes stable identifiers for byte data using xxHash64.
//
// The adaptive codec (package codec) uses it to fingerprint a value array's
// raw bytes so that repeated analysis passes over the same data can be
// memoized instead of re-walking the array.
package fingerprint

import (
	"encoding/binary"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// OfValues computes the xxHash64 of a uint64 value array without allocating
// an intermediate byte slice.
func OfValues(values []uint64) uint64 {
	if len(values) == 0 {
		return xxhash.Sum64(nil)
	}

	b := unsafe.Slice((*byte)(unsafe.Pointer(&values[0])), len(values)*8)

	return xxhash.Sum64(b)
}

// OfBytes computes the xxHash64 of an arbitrary byte slice.
func OfBytes(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Append writes the little-endian bytes of a fingerprint to dst and returns
// the extended slice, for embedding a fingerprint in a larger buffer.
func Append(dst []byte, fp uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, fp)
}
