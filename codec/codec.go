package codec

import (
	"fmt"

	"github.com/mattsta/datakit/errs"
)

// Codec is the contract every concrete representation satisfies. Encode
// appends a self-describing block (tag byte followed by payload) to dst and
// returns the extended slice, mirroring the endian package's Append-style
// API. Decode reads exactly one such block from the front of data and
// returns the recovered values plus the number of bytes consumed.
type Codec interface {
	Encode(dst []byte, values []uint64) ([]byte, error)
	Decode(data []byte, count int) (values []uint64, consumed int, err error)
	MaxEncodedSize(count int) int
	SelfSize(data []byte, count int) (int, error)
}

var registry = map[Tag]Codec{
	TagDelta:  deltaCodec{},
	TagFOR:    forCodec{},
	TagPFOR:   pforCodec{},
	TagDict:   dictCodec{},
	TagBitmap: bitmapCodec{},
	TagTagged: taggedCodec{},
}

// codecFor resolves a Tag to its Codec implementation.
func codecFor(tag Tag) (Codec, error) {
	c, ok := registry[tag]
	if !ok {
		return nil, fmt.Errorf("codec: tag %d: %w", tag, errs.ErrFormatUnknownTag)
	}
	return c, nil
}

// EncodeWithTag encodes values using the codec named by tag, independent of
// adaptive selection. Useful for forcing a representation.
func EncodeWithTag(tag Tag, values []uint64) ([]byte, error) {
	c, err := codecFor(tag)
	if err != nil {
		return nil, err
	}
	return c.Encode(nil, values)
}

// Decode reads a self-describing block from the front of data (data[0] is
// the tag byte) and returns exactly count decoded values.
func Decode(data []byte, count int) ([]uint64, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("codec: %w", errs.ErrFormatTruncated)
	}

	c, err := codecFor(Tag(data[0]))
	if err != nil {
		return nil, err
	}

	values, _, err := c.Decode(data, count)
	if err != nil {
		return nil, err
	}
	return values, nil
}

// MaxEncodedSize returns 1 + 9*count, Tagged's worst case (1 tag byte +
// count * (1 prefix + 8 magnitude bytes)), which also bounds Delta. It is
// not a bound for every codec: FOR, PFOR, Dict and Bitmap report larger
// bounds through their own MaxEncodedSize, and a buffer forced through
// EncodeWithTag can exceed it (an empty FOR buffer is 3 bytes).
func MaxEncodedSize(count int) int {
	return 1 + 9*count
}

// SelfSize inspects a self-describing block and returns how many bytes it
// occupies, without allocating or decoding its values.
func SelfSize(data []byte, count int) (int, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("codec: %w", errs.ErrFormatTruncated)
	}

	c, err := codecFor(Tag(data[0]))
	if err != nil {
		return 0, err
	}
	return c.SelfSize(data, count)
}
