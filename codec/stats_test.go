package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnalyzeEmpty(t *testing.T) {
	stats := Analyze(nil)
	require.Equal(t, 0, stats.Count)
}

func TestAnalyzeSortedDetection(t *testing.T) {
	stats := Analyze([]uint64{1, 2, 2, 5, 9})
	require.True(t, stats.Sorted)
	require.False(t, stats.ReverseSorted)

	stats = Analyze([]uint64{9, 5, 2, 2, 1})
	require.False(t, stats.Sorted)
	require.True(t, stats.ReverseSorted)

	stats = Analyze([]uint64{1, 5, 2})
	require.False(t, stats.Sorted)
	require.False(t, stats.ReverseSorted)
}

func TestAnalyzeMinMaxRange(t *testing.T) {
	stats := Analyze([]uint64{10, 3, 44, 7})
	require.Equal(t, uint64(3), stats.Min)
	require.Equal(t, uint64(44), stats.Max)
	require.Equal(t, uint64(41), stats.Range)
}

func TestAnalyzeUniqueRatio(t *testing.T) {
	stats := Analyze([]uint64{1, 1, 1, 1, 2})
	require.Equal(t, 2, stats.UniqueCount)
	require.InDelta(t, 0.4, stats.UniqueRatio, 0.0001)
}

func TestAnalyzeFitsBitmapRange(t *testing.T) {
	require.True(t, Analyze([]uint64{1, 2, 65535}).FitsBitmapRange)
	require.False(t, Analyze([]uint64{1, 2, 65536}).FitsBitmapRange)
}

func TestAnalyzeFingerprintDeterministic(t *testing.T) {
	values := []uint64{1, 2, 3, 4, 5}
	a := Analyze(values)
	b := Analyze(append([]uint64(nil), values...))
	require.Equal(t, a.Fingerprint, b.Fingerprint)
}

func TestSelectRulesInOrder(t *testing.T) {
	// Low unique ratio wins even when every value also fits the bitmap
	// domain, because Dict is checked first.
	repeated := make([]uint64, 21)
	for i := range repeated {
		repeated[i] = 1
	}
	repeated[0] = 2
	lowUnique := Analyze(repeated)
	require.InDelta(t, 2.0/21.0, lowUnique.UniqueRatio, 0.0001)
	require.Equal(t, TagDict, Select(lowUnique))

	bitmapFit := Analyze([]uint64{1, 7, 9, 11, 2000, 65000, 3, 4, 5, 6,
		8, 10, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25,
		26, 27, 28, 29, 30, 31, 32, 33, 34, 35, 36, 37, 38, 39, 40,
		41, 42, 43, 44, 45, 46, 47, 48, 49, 50, 51, 52, 53, 54, 55,
		56, 57, 58, 59, 60, 61, 62, 63, 64, 65})
	require.Equal(t, TagBitmap, Select(bitmapFit))

	// Past the 10,000-value threshold, a bitmap-domain-fitting array must
	// fall through to a packed representation instead of Bitmap, even
	// though every value still fits the 16-bit domain.
	wide := make([]uint64, 10000)
	for i := range wide {
		wide[i] = uint64((i * 7919) % 65536)
	}
	tooLargeForBitmap := Analyze(wide)
	require.True(t, tooLargeForBitmap.FitsBitmapRange)
	require.NotEqual(t, TagBitmap, Select(tooLargeForBitmap))
}
