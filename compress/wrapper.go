package compress

import (
	"fmt"

	"github.com/mattsta/datakit/format"
)

// EncodeCompressed runs a second, optional compression stage over an
// already-encoded codec-suite buffer. Callers are responsible for
// remembering which CompressionType was used — the codec tag byte embedded
// in data never reflects this stage.
func EncodeCompressed(data []byte, compressionType format.CompressionType) ([]byte, error) {
	codec, err := GetCodec(compressionType)
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}

	out, err := codec.Compress(data)
	if err != nil {
		return nil, fmt.Errorf("compress: compression failed: %w", err)
	}

	return out, nil
}

// DecodeCompressed reverses EncodeCompressed, restoring the original
// codec-suite buffer so it can be passed to codec.Decode.
func DecodeCompressed(data []byte, compressionType format.CompressionType) ([]byte, error) {
	codec, err := GetCodec(compressionType)
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}

	out, err := codec.Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("compress: decompression failed: %w", err)
	}

	return out, nil
}
