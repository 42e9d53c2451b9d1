package main

import (
	"math/rand"
	"time"

	"github.com/mattsta/datakit/codec"
)

// speedReport is the result of one speedRun invocation, exported for the
// --json/--csv output modes.
type speedReport struct {
	MB             int     `json:"mb"`
	Iters          int     `json:"iters"`
	EncodeMBPerSec float64 `json:"encode_mb_per_sec"`
	DecodeMBPerSec float64 `json:"decode_mb_per_sec"`
}

// speedRun generates mb megabytes worth of synthetic uint64 values (one
// array in three sections: a sorted ramp, low-cardinality values, and
// small-range values) and round-trips that array through the adaptive
// codec iters times. The array is encoded as a whole, so a run measures the
// single representation the selector picks for it. Throughput is reported
// in megabytes of raw input (8 bytes per value) per second.
func speedRun(mb, iters int) (speedReport, error) {
	const bytesPerValue = 8
	count := (mb * 1 << 20) / bytesPerValue
	values := syntheticValues(count)

	ac := codec.NewAdaptiveCodec()

	var encoded []byte
	encodeStart := time.Now()
	for i := 0; i < iters; i++ {
		buf, _, err := ac.Encode(values)
		if err != nil {
			return speedReport{}, err
		}
		encoded = buf
	}
	encodeElapsed := time.Since(encodeStart)

	decodeStart := time.Now()
	for i := 0; i < iters; i++ {
		if _, err := codec.Decode(encoded, len(values)); err != nil {
			return speedReport{}, err
		}
	}
	decodeElapsed := time.Since(decodeStart)

	totalBytes := float64(len(values)) * bytesPerValue * float64(iters)
	totalMB := totalBytes / (1 << 20)

	return speedReport{
		MB:             mb,
		Iters:          iters,
		EncodeMBPerSec: totalMB / encodeElapsed.Seconds(),
		DecodeMBPerSec: totalMB / decodeElapsed.Seconds(),
	}, nil
}

func syntheticValues(count int) []uint64 {
	r := rand.New(rand.NewSource(1))
	values := make([]uint64, count)

	section := count / 3
	for i := 0; i < section && i < count; i++ {
		values[i] = uint64(i) * 3
	}
	for i := section; i < 2*section && i < count; i++ {
		values[i] = uint64(r.Intn(4))
	}
	for i := 2 * section; i < count; i++ {
		values[i] = uint64(r.Intn(200))
	}
	return values
}
