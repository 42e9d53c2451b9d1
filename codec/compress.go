package codec

import (
	"fmt"

	"github.com/mattsta/datakit/compress"
	"github.com/mattsta/datakit/format"
)

// EncodeCompressed encodes values with the adaptive codec and then runs the
// result through an optional second compression stage. Compression is
// strictly independent of the codec tag byte: the returned buffer still
// begins with a Tag, and the caller must remember compressionType
// separately to reverse the outer stage before calling Decode.
func EncodeCompressed(values []uint64, compressionType format.CompressionType) ([]byte, Tag, error) {
	a := NewAdaptiveCodec()
	encoded, tag, err := a.Encode(values)
	if err != nil {
		return nil, 0, err
	}

	if compressionType == format.CompressionNone {
		return encoded, tag, nil
	}

	out, err := compress.EncodeCompressed(encoded, compressionType)
	if err != nil {
		return nil, 0, fmt.Errorf("codec: %w", err)
	}
	return out, tag, nil
}

// DecodeCompressed reverses EncodeCompressed: it undoes the outer
// compression stage (if any) and then decodes exactly count values from
// the recovered codec buffer.
func DecodeCompressed(data []byte, count int, compressionType format.CompressionType) ([]uint64, error) {
	if compressionType != format.CompressionNone {
		out, err := compress.DecodeCompressed(data, compressionType)
		if err != nil {
			return nil, fmt.Errorf("codec: %w", err)
		}
		data = out
	}

	return Decode(data, count)
}
