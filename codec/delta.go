package codec

import (
	"fmt"

	"github.com/mattsta/datakit/errs"
)

// deltaCodec stores a base value followed by zigzag-encoded, length-tagged
// deltas between consecutive values. Best suited to sorted or near-sorted
// runs where consecutive differences are small relative to the overall
// range.
type deltaCodec struct{}

func (deltaCodec) Encode(dst []byte, values []uint64) ([]byte, error) {
	dst = append(dst, byte(TagDelta))
	if len(values) == 0 {
		return dst, nil
	}

	dst = appendTagged(dst, values[0])
	prev := values[0]
	for _, v := range values[1:] {
		dst = appendTagged(dst, zigzagEncode(v-prev))
		prev = v
	}
	return dst, nil
}

func (deltaCodec) Decode(data []byte, count int) ([]uint64, int, error) {
	if len(data) < 1 || Tag(data[0]) != TagDelta {
		return nil, 0, fmt.Errorf("delta: %w", errs.ErrFormatUnknownTag)
	}
	pos := 1

	if count == 0 {
		return []uint64{}, pos, nil
	}

	base, n, err := readTagged(data[pos:])
	if err != nil {
		return nil, 0, fmt.Errorf("delta: base: %w", err)
	}
	pos += n

	values := make([]uint64, count)
	values[0] = base
	prev := base

	for i := 1; i < count; i++ {
		zz, n, err := readTagged(data[pos:])
		if err != nil {
			return nil, 0, fmt.Errorf("delta: value %d: %w", i, err)
		}
		pos += n

		v := prev + zigzagDecode(zz)
		values[i] = v
		prev = v
	}

	return values, pos, nil
}

func (deltaCodec) MaxEncodedSize(count int) int {
	return 1 + 9*count
}

func (deltaCodec) SelfSize(data []byte, count int) (int, error) {
	if len(data) < 1 || Tag(data[0]) != TagDelta {
		return 0, fmt.Errorf("delta: %w", errs.ErrFormatUnknownTag)
	}
	pos := 1

	if count == 0 {
		return pos, nil
	}

	_, n, err := readTagged(data[pos:])
	if err != nil {
		return 0, fmt.Errorf("delta: base: %w", err)
	}
	pos += n

	for i := 1; i < count; i++ {
		_, n, err := readTagged(data[pos:])
		if err != nil {
			return 0, fmt.Errorf("delta: value %d: %w", i, err)
		}
		pos += n
	}

	return pos, nil
}
