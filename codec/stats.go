package codec

import (
	"math/bits"

	"github.com/mattsta/datakit/internal/fingerprint"
)

// Stats is the statistics record Analyze computes in a single pass over a
// value array. Select consumes a Stats to pick a Tag; AdaptiveCodec memoizes
// that choice by Stats.Fingerprint so repeated encodes of the same content
// skip re-analysis.
type Stats struct {
	Count int

	Min, Max uint64
	Range    uint64 // Max - Min

	UniqueCount int
	UniqueRatio float64 // UniqueCount / Count

	Sorted        bool // non-decreasing
	ReverseSorted bool // non-increasing

	AvgDelta    float64 // mean absolute consecutive delta
	MaxAbsDelta uint64

	// OutlierCount/OutlierRatio classify values whose frame-of-reference
	// bit width (relative to a running minimum seen so far) exceeds the
	// 90th-percentile width observed across the array. PFOR's exception
	// sidecar targets exactly these values.
	OutlierCount int
	OutlierRatio float64

	// FitsBitmapRange reports whether every value fits a bitmap set's
	// domain (0-65535), a precondition for TagBitmap.
	FitsBitmapRange bool

	// Fingerprint is an xxHash64 digest of the value array's raw bytes,
	// used as the AdaptiveCodec memoization key.
	Fingerprint uint64
}

// Analyze computes a Stats record for values in one pass, plus a bounded
// (65-bucket) finishing scan of the bit-width histogram gathered during
// that pass.
func Analyze(values []uint64) Stats {
	n := len(values)
	if n == 0 {
		return Stats{Fingerprint: fingerprint.OfValues(nil)}
	}

	var hist [65]int

	minV, maxV := values[0], values[0]
	runningMin := values[0]
	prev := values[0]

	uniqueSeen := make(map[uint64]struct{}, min(n, 4096))
	uniqueSeen[values[0]] = struct{}{}

	sorted := true
	reverseSorted := true
	var sumAbsDelta float64
	var maxAbsDelta uint64

	hist[bitWidth(0)]++ // values[0] relative to itself

	for i := 1; i < n; i++ {
		v := values[i]

		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
		uniqueSeen[v] = struct{}{}

		if v < prev {
			sorted = false
		}
		if v > prev {
			reverseSorted = false
		}

		var absDelta uint64
		if v >= prev {
			absDelta = v - prev
		} else {
			absDelta = prev - v
		}
		sumAbsDelta += float64(absDelta)
		if absDelta > maxAbsDelta {
			maxAbsDelta = absDelta
		}

		if v < runningMin {
			runningMin = v
		}
		hist[bitWidth(v-runningMin)]++

		prev = v
	}

	avgDelta := 0.0
	if n > 1 {
		avgDelta = sumAbsDelta / float64(n-1)
	}

	threshold := percentileWidth(hist[:], n, 0.90)
	outliers := 0
	for w := threshold + 1; w <= 64; w++ {
		outliers += hist[w]
	}

	return Stats{
		Count:           n,
		Min:             minV,
		Max:             maxV,
		Range:           maxV - minV,
		UniqueCount:     len(uniqueSeen),
		UniqueRatio:     float64(len(uniqueSeen)) / float64(n),
		Sorted:          sorted,
		ReverseSorted:   reverseSorted,
		AvgDelta:        avgDelta,
		MaxAbsDelta:     maxAbsDelta,
		OutlierCount:    outliers,
		OutlierRatio:    float64(outliers) / float64(n),
		FitsBitmapRange: maxV <= 65535,
		Fingerprint:     fingerprint.OfValues(values),
	}
}

func bitWidth(v uint64) int {
	if v == 0 {
		return 0
	}
	return bits.Len64(v)
}

// percentileWidth returns the smallest bit width w such that at least
// pct*n of the histogram's mass falls at or below w.
func percentileWidth(hist []int, n int, pct float64) int {
	target := pct * float64(n)
	running := 0.0
	for w, count := range hist {
		running += float64(count)
		if running >= target {
			return w
		}
	}
	return len(hist) - 1
}
