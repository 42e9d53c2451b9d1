package bitmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddContainsRemove(t *testing.T) {
	b := New()
	require.False(t, b.Contains(42))

	require.True(t, b.Add(42))
	require.True(t, b.Contains(42))
	require.False(t, b.Add(42)) // already present

	require.True(t, b.Remove(42))
	require.False(t, b.Contains(42))
	require.False(t, b.Remove(42)) // already absent
}

func TestToArrayIsSortedAndDeduplicated(t *testing.T) {
	b := FromUint16([]uint16{5, 1, 3, 1, 5, 2})
	require.Equal(t, []uint16{1, 2, 3, 5}, b.ToArray())
	require.Equal(t, 4, b.Cardinality())
}

func TestArrayToBitmapTransition(t *testing.T) {
	b := New()
	for i := uint32(0); i < arrayMaxCardinality; i++ {
		b.Add(uint16(i))
	}
	require.Equal(t, KindArray, b.Kind())

	b.Add(uint16(arrayMaxCardinality))
	require.Equal(t, KindBitmap, b.Kind())

	b.Remove(uint16(arrayMaxCardinality))
	require.Equal(t, KindArray, b.Kind())
}

func TestDenseToRunsTransition(t *testing.T) {
	b := New()
	require.NoError(t, b.AddRange(0, 65536))
	require.Equal(t, 65536, b.Cardinality())
	require.Equal(t, KindRuns, b.Kind())

	arr := b.ToArray()
	require.Len(t, arr, 65536)
	require.Equal(t, uint16(0), arr[0])
	require.Equal(t, uint16(65535), arr[len(arr)-1])
}

func TestAddRangeInvalid(t *testing.T) {
	b := New()
	require.Error(t, b.AddRange(10, 5))
	require.Error(t, b.AddRange(0, 65537))
}

func TestAddRangePartialOverlapOnArray(t *testing.T) {
	b := FromUint16([]uint16{1, 2, 10, 11, 12})
	require.NoError(t, b.AddRange(2, 11))
	require.Equal(t, []uint16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, b.ToArray())
}

func TestRemoveRangePartialOverlapOnArray(t *testing.T) {
	b := FromUint16([]uint16{1, 2, 3, 4, 5, 10})
	require.NoError(t, b.RemoveRange(2, 5))
	require.Equal(t, []uint16{1, 5, 10}, b.ToArray())
}

func TestAddRangeOnBitmapBackedSet(t *testing.T) {
	b := New()
	for i := uint32(0); i < 5000; i++ {
		b.Add(uint16(i * 13)) // spread: stays dense, never folds into runs
	}
	require.Equal(t, KindBitmap, b.Kind())

	before := b.Cardinality()
	require.NoError(t, b.AddRange(70, 80))
	require.Equal(t, KindBitmap, b.Kind())
	for v := uint32(70); v < 80; v++ {
		require.True(t, b.Contains(uint16(v)), "missing %d", v)
	}
	// 78 (13*6) was already present; the other nine values in [70,80) are new.
	require.Equal(t, before+9, b.Cardinality())
}

func TestRemoveRangeOnBitmapBackedSet(t *testing.T) {
	b := New()
	for i := uint32(0); i < 5000; i++ {
		b.Add(uint16(i * 13))
	}
	require.Equal(t, KindBitmap, b.Kind())

	before := b.Cardinality()
	require.NoError(t, b.RemoveRange(0, 100))
	require.Equal(t, KindBitmap, b.Kind())
	for v := uint32(0); v < 100; v += 13 {
		require.False(t, b.Contains(uint16(v)))
	}
	// multiples of 13 in [0,100): 0,13,...,91 -> 8 values removed.
	require.Equal(t, before-8, b.Cardinality())
}

func TestAddRangeMergesAdjacentRuns(t *testing.T) {
	// Past 4096 members the set goes array -> bitmap -> runs; trimming it
	// back to [0,100) keeps the run container.
	b := New()
	require.NoError(t, b.AddRange(0, 5000))
	require.NoError(t, b.RemoveRange(100, 5000))
	require.Equal(t, KindRuns, b.Kind())

	require.NoError(t, b.AddRange(100, 200)) // exactly adjacent to the existing run
	require.Equal(t, KindRuns, b.Kind())
	require.Equal(t, 200, b.Cardinality())

	arr := b.ToArray()
	require.Len(t, arr, 200)
	require.Equal(t, uint16(0), arr[0])
	require.Equal(t, uint16(199), arr[len(arr)-1])
}

func TestRemoveRangeSplitsRun(t *testing.T) {
	b := New()
	require.NoError(t, b.AddRange(0, 5000))
	require.NoError(t, b.RemoveRange(100, 5000))
	require.Equal(t, KindRuns, b.Kind())

	require.NoError(t, b.RemoveRange(40, 50))
	require.Equal(t, KindRuns, b.Kind())
	require.Equal(t, 90, b.Cardinality())

	for v := uint32(40); v < 50; v++ {
		require.False(t, b.Contains(uint16(v)))
	}
	require.True(t, b.Contains(39))
	require.True(t, b.Contains(50))
}

func TestCloneIsIndependent(t *testing.T) {
	b := FromUint16([]uint16{1, 2, 3})
	clone := b.Clone()
	clone.Add(4)

	require.False(t, b.Contains(4))
	require.True(t, clone.Contains(4))
}

func TestSetOperations(t *testing.T) {
	a := FromUint16([]uint16{1, 2, 3, 4})
	b := FromUint16([]uint16{3, 4, 5, 6})

	require.Equal(t, []uint16{3, 4}, And(a, b).ToArray())
	require.Equal(t, []uint16{1, 2, 3, 4, 5, 6}, Or(a, b).ToArray())
	require.Equal(t, []uint16{1, 2, 5, 6}, Xor(a, b).ToArray())
	require.Equal(t, []uint16{1, 2}, AndNot(a, b).ToArray())
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	cases := map[string]*Bitmap{
		"array": FromUint16([]uint16{1, 10, 100}),
		"runs":  mustBitmap(t, func(b *Bitmap) { require.NoError(t, b.AddRange(0, 65536)) }),
	}

	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			data := b.Serialize()
			got, consumed, err := Deserialize(data)
			require.NoError(t, err)
			require.Equal(t, len(data), consumed)
			require.Equal(t, b.ToArray(), got.ToArray())

			selfSize, err := SelfSize(data)
			require.NoError(t, err)
			require.Equal(t, len(data), selfSize)
		})
	}
}

func TestDenseSerializeDeserializeRoundTrip(t *testing.T) {
	b := New()
	for i := uint32(0); i < 10000; i += 2 { // even values only, avoids run collapse
		b.Add(uint16(i))
	}
	require.Equal(t, KindBitmap, b.Kind())

	data := b.Serialize()
	got, consumed, err := Deserialize(data)
	require.NoError(t, err)
	require.Equal(t, len(data), consumed)
	require.Equal(t, b.ToArray(), got.ToArray())
}

func TestStats(t *testing.T) {
	b := FromUint16([]uint16{1, 2, 3})
	stats := b.Stats()
	require.Equal(t, KindArray, stats.Kind)
	require.Equal(t, 3, stats.Cardinality)
	require.Equal(t, 65536, stats.Capacity)
	require.Equal(t, 3+3*2, stats.Bytes)
}

func TestIterator(t *testing.T) {
	b := FromUint16([]uint16{1, 2, 3})
	it := b.Iterator()

	var got []uint16
	for it.HasNext() {
		got = append(got, it.Next())
	}
	require.Equal(t, []uint16{1, 2, 3}, got)
}

func mustBitmap(t *testing.T, setup func(*Bitmap)) *Bitmap {
	t.Helper()
	b := New()
	setup(b)
	return b
}
