package bitmap

import "sort"

// run is a contiguous span of length set values starting at start.
type run struct {
	start  uint16
	length uint16
}

// runContainer holds a sorted, non-overlapping, non-adjacent list of runs.
type runContainer struct {
	runs []run
}

func newRunContainer() *runContainer {
	return &runContainer{}
}

// findRun returns the run index containing v (inside=true), or the index
// at which a new run covering v alone would be inserted (inside=false).
func (c *runContainer) findRun(v uint16) (idx int, inside bool) {
	lo, hi := 0, len(c.runs)
	for lo < hi {
		mid := (lo + hi) / 2
		r := c.runs[mid]
		switch {
		case uint32(v) < uint32(r.start):
			hi = mid
		case uint32(v) > uint32(r.start)+uint32(r.length)-1:
			lo = mid + 1
		default:
			return mid, true
		}
	}
	return lo, false
}

func (c *runContainer) contains(v uint16) bool {
	_, inside := c.findRun(v)
	return inside
}

func (c *runContainer) cardinality() int {
	n := 0
	for _, r := range c.runs {
		n += int(r.length)
	}
	return n
}

func (c *runContainer) add(v uint16) bool {
	idx, inside := c.findRun(v)
	if inside {
		return false
	}

	mergeLeft := idx > 0 && uint32(c.runs[idx-1].start)+uint32(c.runs[idx-1].length) == uint32(v)
	mergeRight := idx < len(c.runs) && uint32(v)+1 == uint32(c.runs[idx].start)

	switch {
	case mergeLeft && mergeRight:
		c.runs[idx-1].length += 1 + c.runs[idx].length
		c.runs = append(c.runs[:idx], c.runs[idx+1:]...)
	case mergeLeft:
		c.runs[idx-1].length++
	case mergeRight:
		c.runs[idx].start = v
		c.runs[idx].length++
	default:
		c.runs = append(c.runs, run{})
		copy(c.runs[idx+1:], c.runs[idx:])
		c.runs[idx] = run{start: v, length: 1}
	}
	return true
}

func (c *runContainer) remove(v uint16) bool {
	idx, inside := c.findRun(v)
	if !inside {
		return false
	}

	r := c.runs[idx]
	switch {
	case r.length == 1:
		c.runs = append(c.runs[:idx], c.runs[idx+1:]...)
	case v == r.start:
		c.runs[idx].start++
		c.runs[idx].length--
	case uint32(v) == uint32(r.start)+uint32(r.length)-1:
		c.runs[idx].length--
	default:
		leftLen := v - r.start
		rightStart := v + 1
		rightLen := r.length - leftLen - 1
		c.runs[idx].length = leftLen
		c.runs = append(c.runs, run{})
		copy(c.runs[idx+2:], c.runs[idx+1:])
		c.runs[idx+1] = run{start: rightStart, length: rightLen}
	}
	return true
}

// addRange merges [lo, hi) into the sorted run list as a single run,
// absorbing any runs it overlaps or touches. Cost is O(len(runs)) for the
// two binary/linear scans that locate the affected segment plus one slice
// splice, not O(range) scalar inserts each re-walking the run list.
func (c *runContainer) addRange(lo, hi uint32) int {
	if lo >= hi {
		return 0
	}
	before := c.cardinality()

	start := sort.Search(len(c.runs), func(i int) bool {
		r := c.runs[i]
		return uint32(r.start)+uint32(r.length) >= lo
	})
	end := start
	for end < len(c.runs) && uint32(c.runs[end].start) <= hi {
		end++
	}

	newLo, newHi := lo, hi
	if start < end {
		if uint32(c.runs[start].start) < newLo {
			newLo = uint32(c.runs[start].start)
		}
		last := c.runs[end-1]
		if lastEnd := uint32(last.start) + uint32(last.length); lastEnd > newHi {
			newHi = lastEnd
		}
	}

	merged := run{start: uint16(newLo), length: uint16(newHi - newLo)}
	replacement := append(c.runs[:start:start], merged)
	c.runs = append(replacement, c.runs[end:]...)

	return c.cardinality() - before
}

// removeRange subtracts [lo, hi) from every run it overlaps, truncating or
// splitting runs in place in a single O(len(runs)) pass.
func (c *runContainer) removeRange(lo, hi uint32) int {
	if lo >= hi {
		return 0
	}
	before := c.cardinality()

	result := make([]run, 0, len(c.runs)+1)
	for _, r := range c.runs {
		rs, re := uint32(r.start), uint32(r.start)+uint32(r.length)
		if re <= lo || rs >= hi {
			result = append(result, r)
			continue
		}
		if rs < lo {
			result = append(result, run{start: r.start, length: uint16(lo - rs)})
		}
		if re > hi {
			result = append(result, run{start: uint16(hi), length: uint16(re - hi)})
		}
	}
	c.runs = result

	return before - c.cardinality()
}

func (c *runContainer) toArray() []uint16 {
	out := make([]uint16, 0, c.cardinality())
	c.iterate(func(v uint16) { out = append(out, v) })
	return out
}

func (c *runContainer) clone() container {
	return &runContainer{runs: append([]run(nil), c.runs...)}
}

func (c *runContainer) kind() ContainerKind { return KindRuns }

func (c *runContainer) iterate(fn func(uint16)) {
	for _, r := range c.runs {
		for i := 0; i < int(r.length); i++ {
			fn(r.start + uint16(i))
		}
	}
}

// tryRuns builds a runContainer equivalent to bc's contents, returning nil
// if the result would exceed runMaxBytes and so isn't worth switching to.
func tryRuns(bc *bitmapContainer) *runContainer {
	rc := newRunContainer()
	hasPrev := false
	var prev uint16

	bc.iterate(func(v uint16) {
		if hasPrev && uint32(prev)+1 == uint32(v) {
			rc.runs[len(rc.runs)-1].length++
		} else {
			rc.runs = append(rc.runs, run{start: v, length: 1})
		}
		prev = v
		hasPrev = true
	})

	if len(rc.runs)*4 > runMaxBytes {
		return nil
	}
	return rc
}

func toArrayFromRuns(rc *runContainer) *arrayContainer {
	return &arrayContainer{values: rc.toArray()}
}

func toBitmapFromRuns(rc *runContainer) *bitmapContainer {
	bc := newBitmapContainer()
	for _, r := range rc.runs {
		for i := 0; i < int(r.length); i++ {
			bc.add(r.start + uint16(i))
		}
	}
	return bc
}
