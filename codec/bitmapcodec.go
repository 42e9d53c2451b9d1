package codec

import (
	"fmt"

	"github.com/mattsta/datakit/bitmap"
	"github.com/mattsta/datakit/errs"
)

// bitmapCodec wraps a bitmap set payload (package bitmap) as one of the six
// codec representations. Values must all fit a bitmap's domain (0-65535);
// this is normally guaranteed by the selector only choosing TagBitmap when
// Stats.FitsBitmapRange holds, but Encode validates it independently so
// forcing TagBitmap directly (through EncodeWithTag) fails
// cleanly on out-of-range input rather than silently truncating values.
type bitmapCodec struct{}

func (bitmapCodec) Encode(dst []byte, values []uint64) ([]byte, error) {
	dst = append(dst, byte(TagBitmap))

	narrow := make([]uint16, len(values))
	for i, v := range values {
		if v > 65535 {
			return nil, fmt.Errorf("bitmap codec: value %d out of domain: %w", v, errs.ErrInvalidArgument)
		}
		narrow[i] = uint16(v)
	}

	bm := bitmap.FromUint16(narrow)
	return append(dst, bm.Serialize()...), nil
}

func (bitmapCodec) Decode(data []byte, count int) ([]uint64, int, error) {
	if len(data) < 1 || Tag(data[0]) != TagBitmap {
		return nil, 0, fmt.Errorf("bitmap codec: %w", errs.ErrFormatUnknownTag)
	}

	bm, consumed, err := bitmap.Deserialize(data[1:])
	if err != nil {
		return nil, 0, fmt.Errorf("bitmap codec: %w", err)
	}

	narrow := bm.ToArray()
	if len(narrow) != count {
		return nil, 0, fmt.Errorf("bitmap codec: decoded %d values, want %d: %w", len(narrow), count, errs.ErrFormatCountMismatch)
	}

	values := make([]uint64, len(narrow))
	for i, v := range narrow {
		values[i] = uint64(v)
	}

	return values, 1 + consumed, nil
}

func (bitmapCodec) MaxEncodedSize(count int) int {
	return 1 + bitmap.MaxSerializedSize()
}

func (bitmapCodec) SelfSize(data []byte, count int) (int, error) {
	if len(data) < 1 || Tag(data[0]) != TagBitmap {
		return 0, fmt.Errorf("bitmap codec: %w", errs.ErrFormatUnknownTag)
	}
	n, err := bitmap.SelfSize(data[1:])
	if err != nil {
		return 0, fmt.Errorf("bitmap codec: %w", err)
	}
	return 1 + n, nil
}
