// Package bitmap implements a Roaring-style compressed bitmap set over the
// uint16 domain (0-65535), switching among three backing containers —
// sorted array, dense bit array, and run-length list — as cardinality and
// clustering change, so neither a sparse nor a dense set pays for the
// other's shape.
package bitmap

import (
	"fmt"
	"math/bits"

	"github.com/mattsta/datakit/endian"
	"github.com/mattsta/datakit/errs"
)

// wire is the byte order for every multi-byte field in a serialized
// Bitmap, matching the little-endian convention spec.md §6 sets for the
// codec suite's own encoded buffers.
var wire = endian.GetLittleEndianEngine()

// Bitmap is a mutable set of uint16 values backed by exactly one container
// at a time. The zero value is not usable; construct with New or
// FromUint16.
type Bitmap struct {
	c container
}

// New returns an empty Bitmap, starting out as the cheapest representation
// for zero elements: an array.
func New() *Bitmap {
	return &Bitmap{c: newArrayContainer()}
}

// FromUint16 returns a Bitmap containing every value in values.
func FromUint16(values []uint16) *Bitmap {
	b := New()
	for _, v := range values {
		b.Add(v)
	}
	return b
}

// Add inserts v, returning true if it was not already present. A
// cardinality- or shape-crossing insert may trigger a container
// transition.
func (b *Bitmap) Add(v uint16) bool {
	added := b.c.add(v)
	if added {
		b.rebalance()
	}
	return added
}

// Remove deletes v, returning true if it was present.
func (b *Bitmap) Remove(v uint16) bool {
	removed := b.c.remove(v)
	if removed {
		b.rebalance()
	}
	return removed
}

// Contains reports whether v is a member.
func (b *Bitmap) Contains(v uint16) bool {
	return b.c.contains(v)
}

// Cardinality returns the number of members.
func (b *Bitmap) Cardinality() int {
	return b.c.cardinality()
}

// AddRange inserts every value in [lo, hi) in a single pass over the
// touched container — setting whole dense words or inserting one merged
// run, rather than looping a scalar Add per value — so cost tracks the
// container's own size plus the range, not a per-value rebalance check.
// hi may be 65536 to include the domain maximum 65535.
func (b *Bitmap) AddRange(lo, hi uint32) error {
	if lo > hi || hi > 65536 {
		return fmt.Errorf("bitmap: addrange [%d,%d): %w", lo, hi, errs.ErrInvalidRange)
	}
	if added := b.c.addRange(lo, hi); added > 0 {
		b.rebalanceFully()
	}
	return nil
}

// RemoveRange deletes every value in [lo, hi) with the same single-pass
// bulk strategy as AddRange. hi may be 65536 to include the domain maximum
// 65535.
func (b *Bitmap) RemoveRange(lo, hi uint32) error {
	if lo > hi || hi > 65536 {
		return fmt.Errorf("bitmap: removerange [%d,%d): %w", lo, hi, errs.ErrInvalidRange)
	}
	if removed := b.c.removeRange(lo, hi); removed > 0 {
		b.rebalanceFully()
	}
	return nil
}

// Clone returns an independent copy.
func (b *Bitmap) Clone() *Bitmap {
	return &Bitmap{c: b.c.clone()}
}

// Clear empties the set, resetting it to the array container.
func (b *Bitmap) Clear() {
	b.c = newArrayContainer()
}

// ToArray returns every member in ascending order.
func (b *Bitmap) ToArray() []uint16 {
	return b.c.toArray()
}

// Kind reports the container currently backing the set.
func (b *Bitmap) Kind() ContainerKind {
	return b.c.kind()
}

// Iterate calls fn for every member in ascending order.
func (b *Bitmap) Iterate(fn func(uint16)) {
	b.c.iterate(fn)
}

// Iterator returns a stateful cursor over the set's members in ascending
// order, snapshotting membership at the time it is created.
func (b *Bitmap) Iterator() *Iterator {
	return &Iterator{values: b.ToArray()}
}

// Iterator is a stateful, single-pass cursor returned by Bitmap.Iterator.
type Iterator struct {
	values []uint16
	pos    int
}

// HasNext reports whether Next would return another value.
func (it *Iterator) HasNext() bool {
	return it.pos < len(it.values)
}

// Next returns the next value and advances the cursor. Calling Next past
// the end of iteration panics with an index-out-of-range; callers must
// guard with HasNext.
func (it *Iterator) Next() uint16 {
	v := it.values[it.pos]
	it.pos++
	return v
}

// rebalance checks the current container against the transition
// thresholds and replaces it at most once if a cheaper representation now
// applies. A bitmapContainer only pays tryRuns's O(cardinality) scan the
// first time it sees this check (sinceRunsCheck == 0, which also covers
// one just converted from an array) and then every runsCheckInterval
// calls after that, not on every single Add/Remove.
func (b *Bitmap) rebalance() {
	switch c := b.c.(type) {
	case *arrayContainer:
		if len(c.values) > arrayMaxCardinality {
			b.c = fromArrayToBitmap(c)
		}
	case *bitmapContainer:
		if c.card <= arrayMaxCardinality {
			b.c = toArrayContainer(c)
			return
		}
		if c.sinceRunsCheck > 0 && c.sinceRunsCheck < runsCheckInterval {
			c.sinceRunsCheck++
			return
		}
		c.sinceRunsCheck = 1
		if rc := tryRuns(c); rc != nil {
			b.c = rc
		}
	case *runContainer:
		if len(c.runs)*4 > runMaxBytes {
			if c.cardinality() <= arrayMaxCardinality {
				b.c = toArrayFromRuns(c)
			} else {
				b.c = toBitmapFromRuns(c)
			}
		}
	}
}

// rebalanceFully repeats rebalance until a call leaves the container
// unchanged. A single AddRange/RemoveRange call can move cardinality far
// enough to cross more than one transition boundary at once (array
// straight past bitmap into runs, say), which a string of individual
// scalar Add calls would have settled one rebalance at a time; this
// reaches the same fixed point in one bulk call instead.
func (b *Bitmap) rebalanceFully() {
	for {
		before := b.c
		b.rebalance()
		if b.c == before {
			return
		}
	}
}

func toArrayContainer(bc *bitmapContainer) *arrayContainer {
	return &arrayContainer{values: bc.toArray()}
}

// Stats summarizes a Bitmap's current shape.
type Stats struct {
	Kind        ContainerKind
	Cardinality int
	Bytes       int // current serialized size
	Capacity    int // domain size, fixed at 65536
}

// Stats reports the set's current container kind, cardinality, serialized
// byte cost, and domain capacity.
func (b *Bitmap) Stats() Stats {
	var n int
	switch c := b.c.(type) {
	case *arrayContainer:
		n = 3 + len(c.values)*2
	case *bitmapContainer:
		n = 1 + denseBytes
	case *runContainer:
		n = 3 + len(c.runs)*4
	}
	return Stats{Kind: b.c.kind(), Cardinality: b.c.cardinality(), Bytes: n, Capacity: 65536}
}

// Serialize encodes the bitmap to its wire form: a container-kind tag byte
// followed by that container's payload. The payload is always
// self-describing in length, so Deserialize never needs an external size.
func (b *Bitmap) Serialize() []byte {
	switch c := b.c.(type) {
	case *arrayContainer:
		buf := make([]byte, 0, 3+len(c.values)*2)
		buf = append(buf, byte(KindArray))
		buf = wire.AppendUint16(buf, uint16(len(c.values)))
		for _, v := range c.values {
			buf = wire.AppendUint16(buf, v)
		}
		return buf
	case *bitmapContainer:
		buf := make([]byte, 0, 1+denseBytes)
		buf = append(buf, byte(KindBitmap))
		for _, w := range c.words {
			buf = wire.AppendUint64(buf, w)
		}
		return buf
	case *runContainer:
		buf := make([]byte, 0, 3+len(c.runs)*4)
		buf = append(buf, byte(KindRuns))
		buf = wire.AppendUint16(buf, uint16(len(c.runs)))
		for _, r := range c.runs {
			buf = wire.AppendUint16(buf, r.start)
			buf = wire.AppendUint16(buf, r.length)
		}
		return buf
	default:
		panic("bitmap: unknown container kind")
	}
}

// Deserialize decodes a Bitmap from the front of data, returning it
// alongside the number of bytes consumed.
func Deserialize(data []byte) (*Bitmap, int, error) {
	if len(data) < 1 {
		return nil, 0, fmt.Errorf("bitmap: %w", errs.ErrFormatTruncated)
	}

	switch ContainerKind(data[0]) {
	case KindArray:
		if len(data) < 3 {
			return nil, 0, fmt.Errorf("bitmap: array header: %w", errs.ErrFormatTruncated)
		}
		n := int(wire.Uint16(data[1:3]))
		need := 3 + n*2
		if len(data) < need {
			return nil, 0, fmt.Errorf("bitmap: array payload: %w", errs.ErrFormatTruncated)
		}
		values := make([]uint16, n)
		for i := 0; i < n; i++ {
			values[i] = wire.Uint16(data[3+i*2:])
		}
		return &Bitmap{c: &arrayContainer{values: values}}, need, nil

	case KindBitmap:
		need := 1 + denseBytes
		if len(data) < need {
			return nil, 0, fmt.Errorf("bitmap: dense payload: %w", errs.ErrFormatTruncated)
		}
		bc := newBitmapContainer()
		for w := 0; w < denseWords; w++ {
			word := wire.Uint64(data[1+w*8:])
			bc.words[w] = word
			bc.card += bits.OnesCount64(word)
		}
		return &Bitmap{c: bc}, need, nil

	case KindRuns:
		if len(data) < 3 {
			return nil, 0, fmt.Errorf("bitmap: runs header: %w", errs.ErrFormatTruncated)
		}
		n := int(wire.Uint16(data[1:3]))
		need := 3 + n*4
		if len(data) < need {
			return nil, 0, fmt.Errorf("bitmap: runs payload: %w", errs.ErrFormatTruncated)
		}
		runs := make([]run, n)
		for i := 0; i < n; i++ {
			off := 3 + i*4
			runs[i] = run{
				start:  wire.Uint16(data[off:]),
				length: wire.Uint16(data[off+2:]),
			}
		}
		return &Bitmap{c: &runContainer{runs: runs}}, need, nil

	default:
		return nil, 0, fmt.Errorf("bitmap: kind %d: %w", data[0], errs.ErrFormatUnknownTag)
	}
}

// SelfSize inspects a serialized bitmap and returns how many bytes it
// occupies, without materializing a Bitmap.
func SelfSize(data []byte) (int, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("bitmap: %w", errs.ErrFormatTruncated)
	}

	switch ContainerKind(data[0]) {
	case KindArray:
		if len(data) < 3 {
			return 0, fmt.Errorf("bitmap: array header: %w", errs.ErrFormatTruncated)
		}
		n := int(wire.Uint16(data[1:3]))
		return 3 + n*2, nil
	case KindBitmap:
		return 1 + denseBytes, nil
	case KindRuns:
		if len(data) < 3 {
			return 0, fmt.Errorf("bitmap: runs header: %w", errs.ErrFormatTruncated)
		}
		n := int(wire.Uint16(data[1:3]))
		return 3 + n*4, nil
	default:
		return 0, fmt.Errorf("bitmap: kind %d: %w", data[0], errs.ErrFormatUnknownTag)
	}
}

// MaxSerializedSize returns the worst-case serialized size across every
// container kind.
func MaxSerializedSize() int {
	return max(3+arrayMaxCardinality*2, 1+denseBytes, 3+runMaxBytes)
}
