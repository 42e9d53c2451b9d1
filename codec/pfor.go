package codec

import (
	"fmt"

	"github.com/mattsta/datakit/errs"
	"github.com/mattsta/datakit/internal/bitio"
)

// pforCodec (patched frame-of-reference) is forCodec plus an exception
// sidecar: the bit width is chosen to cover the 90th percentile of offsets,
// and the small minority of values whose offset needs more bits are packed
// as zero in the main array and recorded as (index, true offset) pairs in a
// trailing sidecar instead. Best suited to arrays that are mostly small
// with a thin tail of outliers, where FOR's single width would otherwise
// have to stretch to cover the tail.
//
// Wire shape: FOR's header and packed array (outlier slots packed as
// zero), followed by an exception count (tagged varint) and that many
// (index, offset) tagged-varint pairs.
type pforCodec struct{}

func (pforCodec) Encode(dst []byte, values []uint64) ([]byte, error) {
	dst = append(dst, byte(TagPFOR))

	n := len(values)
	if n == 0 {
		dst = appendTagged(dst, 0)
		dst = append(dst, 0)
		return appendTagged(dst, 0), nil
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
	_ = maxV

	var hist [65]int
	for _, v := range values {
		hist[bitWidth(v-minV)]++
	}
	width := percentileWidth(hist[:], n, 0.90)

	type exception struct {
		index  int
		offset uint64
	}
	var exceptions []exception

	w := bitio.NewWriter()
	for i, v := range values {
		off := v - minV
		if bitWidth(off) > width {
			exceptions = append(exceptions, exception{i, off})
			w.WriteBits(0, width)
			continue
		}
		w.WriteBits(off, width)
	}

	dst = appendTagged(dst, minV)
	dst = append(dst, byte(width))
	dst = append(dst, w.Bytes()...)
	w.Release()

	dst = appendTagged(dst, uint64(len(exceptions)))
	for _, e := range exceptions {
		dst = appendTagged(dst, uint64(e.index))
		dst = appendTagged(dst, e.offset)
	}

	return dst, nil
}

func (pforCodec) Decode(data []byte, count int) ([]uint64, int, error) {
	minV, width, pos, err := forParseHeader(data)
	if err != nil {
		return nil, 0, err
	}

	values := make([]uint64, count)

	if count > 0 {
		packedBytes := packedByteLen(width, count)
		if len(data) < pos+packedBytes {
			return nil, 0, fmt.Errorf("pfor: %w", errs.ErrFormatTruncated)
		}

		r := bitio.NewReader(data[pos:])
		for i := 0; i < count; i++ {
			off, err := r.ReadBits(width)
			if err != nil {
				return nil, 0, fmt.Errorf("pfor: value %d: %w", i, err)
			}
			values[i] = minV + off
		}
		pos += packedBytes
	}

	excCount, n, err := readTagged(data[pos:])
	if err != nil {
		return nil, 0, fmt.Errorf("pfor: exception count: %w", err)
	}
	pos += n

	for e := 0; e < int(excCount); e++ {
		idx, n, err := readTagged(data[pos:])
		if err != nil {
			return nil, 0, fmt.Errorf("pfor: exception %d index: %w", e, err)
		}
		pos += n

		off, n, err := readTagged(data[pos:])
		if err != nil {
			return nil, 0, fmt.Errorf("pfor: exception %d offset: %w", e, err)
		}
		pos += n

		if int(idx) >= count {
			return nil, 0, fmt.Errorf("pfor: exception index %d: %w", idx, errs.ErrFormatCountMismatch)
		}
		values[idx] = minV + off
	}

	return values, pos, nil
}

func (pforCodec) MaxEncodedSize(count int) int {
	// Worst case: every value is an exception, doubling the tagged-varint
	// cost on top of FOR's packed array.
	return 1 + 9 + 1 + packedByteLen(64, count) + 9 + count*(9+9)
}

func (pforCodec) SelfSize(data []byte, count int) (int, error) {
	_, width, pos, err := forParseHeader(data)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		pos += packedByteLen(width, count)
	}

	excCount, n, err := readTagged(data[pos:])
	if err != nil {
		return 0, fmt.Errorf("pfor: exception count: %w", err)
	}
	pos += n

	for e := 0; e < int(excCount); e++ {
		_, n, err := readTagged(data[pos:])
		if err != nil {
			return 0, fmt.Errorf("pfor: exception %d index: %w", e, err)
		}
		pos += n

		_, n, err = readTagged(data[pos:])
		if err != nil {
			return 0, fmt.Errorf("pfor: exception %d offset: %w", e, err)
		}
		pos += n
	}

	return pos, nil
}
