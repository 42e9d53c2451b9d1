package codec

import (
	"fmt"

	"github.com/mattsta/datakit/errs"
)

// taggedCodec stores each value as a length-prefixed big-endian magnitude.
// It has no precondition on the input and is the selector's fallback when
// no other profile fits; it is also the sole representation for empty
// input, which encodes as a single tag byte and decodes to zero values.
type taggedCodec struct{}

func (taggedCodec) Encode(dst []byte, values []uint64) ([]byte, error) {
	dst = append(dst, byte(TagTagged))
	for _, v := range values {
		dst = appendTagged(dst, v)
	}
	return dst, nil
}

func (taggedCodec) Decode(data []byte, count int) ([]uint64, int, error) {
	if len(data) < 1 || Tag(data[0]) != TagTagged {
		return nil, 0, fmt.Errorf("tagged: %w", errs.ErrFormatUnknownTag)
	}
	pos := 1

	values := make([]uint64, count)
	for i := 0; i < count; i++ {
		v, n, err := readTagged(data[pos:])
		if err != nil {
			return nil, 0, fmt.Errorf("tagged: value %d: %w", i, err)
		}
		values[i] = v
		pos += n
	}

	return values, pos, nil
}

func (taggedCodec) MaxEncodedSize(count int) int {
	return 1 + 9*count
}

func (taggedCodec) SelfSize(data []byte, count int) (int, error) {
	if len(data) < 1 || Tag(data[0]) != TagTagged {
		return 0, fmt.Errorf("tagged: %w", errs.ErrFormatUnknownTag)
	}
	pos := 1

	for i := 0; i < count; i++ {
		_, n, err := readTagged(data[pos:])
		if err != nil {
			return 0, fmt.Errorf("tagged: value %d: %w", i, err)
		}
		pos += n
	}

	return pos, nil
}
