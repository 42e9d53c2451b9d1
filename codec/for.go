package codec

import (
	"fmt"

	"github.com/mattsta/datakit/errs"
	"github.com/mattsta/datakit/internal/bitio"
)

// forCodec (frame-of-reference) stores a frame minimum, a fixed bit width,
// and each value's offset from the minimum bit-packed to that width. Best
// suited to arrays whose range is small relative to their count.
//
// Wire shape: tag byte, frame minimum (tagged varint), bit width (one
// byte, 0-64), then ceil(width*count/8) bytes of MSB-first packed offsets.
type forCodec struct{}

func (forCodec) Encode(dst []byte, values []uint64) ([]byte, error) {
	dst = append(dst, byte(TagFOR))

	if len(values) == 0 {
		dst = appendTagged(dst, 0)
		return append(dst, 0), nil
	}

	minV, maxV := values[0], values[0]
	for _, v := range values[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	width := bitWidth(maxV - minV)
	dst = appendTagged(dst, minV)
	dst = append(dst, byte(width))

	w := bitio.NewWriter()
	for _, v := range values {
		w.WriteBits(v-minV, width)
	}
	dst = append(dst, w.Bytes()...)
	w.Release()

	return dst, nil
}

func (forCodec) Decode(data []byte, count int) ([]uint64, int, error) {
	minV, width, pos, err := forParseHeader(data)
	if err != nil {
		return nil, 0, err
	}

	if count == 0 {
		return []uint64{}, pos, nil
	}

	packedBytes := packedByteLen(width, count)
	if len(data) < pos+packedBytes {
		return nil, 0, fmt.Errorf("for: %w", errs.ErrFormatTruncated)
	}

	r := bitio.NewReader(data[pos:])
	values := make([]uint64, count)
	for i := 0; i < count; i++ {
		off, err := r.ReadBits(width)
		if err != nil {
			return nil, 0, fmt.Errorf("for: value %d: %w", i, err)
		}
		values[i] = minV + off
	}

	return values, pos + packedBytes, nil
}

func (forCodec) MaxEncodedSize(count int) int {
	return 1 + 9 + 1 + packedByteLen(64, count)
}

func (forCodec) SelfSize(data []byte, count int) (int, error) {
	_, width, pos, err := forParseHeader(data)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return pos, nil
	}
	return pos + packedByteLen(width, count), nil
}

// forParseHeader reads the tag byte, frame minimum, and bit width shared by
// FOR and PFOR, returning the minimum, width, and the offset of the first
// byte following the header.
func forParseHeader(data []byte) (minV uint64, width, pos int, err error) {
	if len(data) < 1 {
		return 0, 0, 0, fmt.Errorf("for: %w", errs.ErrFormatTruncated)
	}
	if Tag(data[0]) != TagFOR && Tag(data[0]) != TagPFOR {
		return 0, 0, 0, fmt.Errorf("for: %w", errs.ErrFormatUnknownTag)
	}
	pos = 1

	minV, n, err := readTagged(data[pos:])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("for: minimum: %w", err)
	}
	pos += n

	if len(data) < pos+1 {
		return 0, 0, 0, fmt.Errorf("for: %w", errs.ErrFormatTruncated)
	}
	width = int(data[pos])
	pos++

	return minV, width, pos, nil
}

// packedByteLen returns the number of bytes needed to hold count values
// each packed to width bits, rounded up to a whole byte.
func packedByteLen(width, count int) int {
	return (width*count + 7) / 8
}
