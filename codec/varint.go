package codec

import (
	"fmt"

	"github.com/mattsta/datakit/errs"
)

// appendTagged appends v as a one-byte magnitude-length prefix (0-8) followed
// by that many big-endian magnitude bytes. The prefix is the minimal byte
// count needed to hold v, so the encoded length is self-describing from a
// single byte and non-decreasing in v's magnitude. This is the Tagged
// codec's per-value wire shape, and Delta reuses it for zigzag-encoded
// deltas, which is why its 9-byte worst case (1 prefix + 8 magnitude bytes)
// matches the suite-wide maximum encoded size bound.
func appendTagged(dst []byte, v uint64) []byte {
	n := magnitudeLen(v)
	dst = append(dst, byte(n))
	for i := n - 1; i >= 0; i-- {
		dst = append(dst, byte(v>>(8*uint(i))))
	}
	return dst
}

// readTagged reads one appendTagged-encoded value from the front of data,
// returning the value and the number of bytes consumed.
func readTagged(data []byte) (v uint64, consumed int, err error) {
	if len(data) < 1 {
		return 0, 0, fmt.Errorf("tagged varint: %w", errs.ErrFormatTruncated)
	}

	n := int(data[0])
	if n > 8 {
		return 0, 0, fmt.Errorf("tagged varint: prefix %d: %w", n, errs.ErrFormatUnknownTag)
	}
	if len(data) < 1+n {
		return 0, 0, fmt.Errorf("tagged varint: %w", errs.ErrFormatTruncated)
	}

	for i := 0; i < n; i++ {
		v = (v << 8) | uint64(data[1+i])
	}
	return v, 1 + n, nil
}

// magnitudeLen returns the minimal number of big-endian bytes (0-8) needed
// to represent v.
func magnitudeLen(v uint64) int {
	if v == 0 {
		return 0
	}
	n := 0
	for v > 0 {
		n++
		v >>= 8
	}
	return n
}
