package codec

// Select picks a Tag for stats, applying the adaptive selection rules in
// order; the first rule that matches wins.
//
//  1. Few distinct values repeat often: Dict.
//  2. Every value fits a bitmap's domain and the count stays under 10,000
//     (past that, a presence bitmap costs more than the packed
//     representations below): Bitmap.
//  3. The array is sorted (or reverse-sorted) and consecutive deltas are
//     small relative to the overall range: Delta.
//  4. Few values would force FOR's frame wider for everyone: PFOR.
//  5. The value range is small relative to the count: FOR.
//  6. None of the above: Tagged, the always-correct fallback.
func Select(stats Stats) Tag {
	if stats.Count == 0 {
		return TagTagged
	}

	switch {
	case stats.UniqueRatio < 0.10:
		return TagDict
	case stats.FitsBitmapRange && stats.Count < 10000:
		return TagBitmap
	case (stats.Sorted || stats.ReverseSorted) && stats.Range > 0 &&
		stats.AvgDelta*float64(stats.Count) <= 2*float64(stats.Range):
		return TagDelta
	case stats.OutlierRatio > 0 && stats.OutlierRatio < 0.05:
		return TagPFOR
	case stats.Range < uint64(stats.Count)*100:
		return TagFOR
	default:
		return TagTagged
	}
}

// AdaptiveCodec selects and applies a representation per call, memoizing
// the Stats -> Tag choice by the value array's fingerprint so repeated
// encodes of identical content skip re-analysis. It is not safe for
// concurrent use from multiple goroutines without external synchronization,
// matching the suite's single-threaded, cooperative concurrency model.
type AdaptiveCodec struct {
	cache map[uint64]Tag
}

// NewAdaptiveCodec creates an AdaptiveCodec with an empty memoization cache.
func NewAdaptiveCodec() *AdaptiveCodec {
	return &AdaptiveCodec{cache: make(map[uint64]Tag)}
}

// SelectCached analyzes values and returns the chosen Tag alongside the
// Stats that produced it, consulting and populating the memoization cache
// by fingerprint.
func (a *AdaptiveCodec) SelectCached(values []uint64) (Tag, Stats) {
	stats := Analyze(values)

	if tag, ok := a.cache[stats.Fingerprint]; ok {
		return tag, stats
	}

	tag := Select(stats)
	a.cache[stats.Fingerprint] = tag
	return tag, stats
}

// Encode analyzes values, selects a representation, and encodes it,
// returning the encoded buffer and the Tag chosen.
func (a *AdaptiveCodec) Encode(values []uint64) ([]byte, Tag, error) {
	tag, _ := a.SelectCached(values)
	buf, err := EncodeWithTag(tag, values)
	return buf, tag, err
}

// Forget drops a fingerprint's cached selection, if present.
func (a *AdaptiveCodec) Forget(fingerprint uint64) {
	delete(a.cache, fingerprint)
}

// CacheSize reports how many fingerprints are currently memoized.
func (a *AdaptiveCodec) CacheSize() int {
	return len(a.cache)
}
