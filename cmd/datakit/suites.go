package main

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/mattsta/datakit/bitmap"
	"github.com/mattsta/datakit/codec"
	"github.com/mattsta/datakit/timingwheel"
)

// check is one named assertion within a suite. Suites run their checks as
// plain functions rather than through go test's process model, so the CLI
// can report pass/fail without shelling out to the toolchain.
type check struct {
	name string
	err  error
}

// suiteDef is one registered test/benchmark suite.
type suiteDef struct {
	name        string
	description string
	checks      func() []check
	benchmark   func(b *testing.B)
}

func ok(name string, cond bool, format string, args ...any) check {
	if cond {
		return check{name: name}
	}
	return check{name: name, err: fmt.Errorf(format, args...)}
}

func failIf(name string, err error) check {
	return check{name: name, err: err}
}

var suites = []suiteDef{
	codecSuite,
	bitmapSuite,
	timingWheelSuite,
}

func suiteByName(name string) (suiteDef, bool) {
	for _, s := range suites {
		if s.name == name {
			return s, true
		}
	}
	return suiteDef{}, false
}

// --- codec -----------------------------------------------------------------

var codecSuite = suiteDef{
	name:        "codec",
	description: "adaptive integer codec: tagged, delta, FOR, PFOR, dict, bitmap round trips",
	checks:      codecChecks,
	benchmark:   codecBenchmark,
}

func codecChecks() []check {
	var out []check

	cases := map[string][]uint64{
		"empty":      {},
		"single":     {42},
		"constant":   {7, 7, 7, 7, 7},
		"sorted":     {1, 2, 3, 5, 8, 13, 21},
		"small_dict": {1, 2, 1, 2, 1, 2, 1, 2, 3},
		"bitmap_fit": {1, 100, 200, 65000, 3},
		"wide_range": {0, 1, 1 << 40, ^uint64(0)},
	}

	ac := codec.NewAdaptiveCodec()
	for name, values := range cases {
		encoded, selected, err := ac.Encode(values)
		if err != nil {
			out = append(out, failIf("roundtrip:"+name, err))
			continue
		}

		size, err := codec.SelfSize(encoded, len(values))
		if err != nil {
			out = append(out, failIf("roundtrip:"+name+":selfsize", err))
			continue
		}
		out = append(out, ok("roundtrip:"+name+":selfsize", size == len(encoded), "self-size %d, want %d (tag %s)", size, len(encoded), selected))

		decoded, err := codec.Decode(encoded, len(values))
		if err != nil {
			out = append(out, failIf("roundtrip:"+name, err))
			continue
		}
		out = append(out, ok("roundtrip:"+name+":values", equalUint64(decoded, values), "decoded %v, want %v", decoded, values))
	}

	memo := codec.NewAdaptiveCodec()
	memoValues := []uint64{1, 2, 3, 1, 2, 3, 1, 2, 3}
	_, stats := memo.SelectCached(memoValues)
	_, stats2 := memo.SelectCached(memoValues)
	out = append(out, ok("adaptive:memoize", stats.Fingerprint == stats2.Fingerprint, "fingerprint changed across identical calls"))
	out = append(out, ok("adaptive:cache_size", memo.CacheSize() == 1, "expected one cached fingerprint, got %d", memo.CacheSize()))

	return out
}

func equalUint64(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func codecBenchmark(b *testing.B) {
	values := randomUint64s(4096, 0)
	ac := codec.NewAdaptiveCodec()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		encoded, _, err := ac.Encode(values)
		if err != nil {
			b.Fatalf("encode: %v", err)
		}
		if _, err := codec.Decode(encoded, len(values)); err != nil {
			b.Fatalf("decode: %v", err)
		}
	}
}

func randomUint64s(n int, max uint64) []uint64 {
	r := rand.New(rand.NewSource(1))
	values := make([]uint64, n)
	for i := range values {
		if max == 0 {
			values[i] = uint64(r.Intn(1000))
		} else {
			values[i] = uint64(r.Int63n(int64(max)))
		}
	}
	return values
}

// --- bitmap ------------------------------------------------------------------

var bitmapSuite = suiteDef{
	name:        "bitmap",
	description: "roaring-style uint16 bitmap set: container transitions, set algebra, serialization",
	checks:      bitmapChecks,
	benchmark:   bitmapBenchmark,
}

func bitmapChecks() []check {
	var out []check

	bm := bitmap.New()
	for _, v := range []uint16{5, 1, 3, 1, 5} {
		bm.Add(v)
	}
	out = append(out, ok("bitmap:dedup_cardinality", bm.Cardinality() == 3, "got %d, want 3", bm.Cardinality()))
	out = append(out, ok("bitmap:contains", bm.Contains(3) && !bm.Contains(4), "membership check failed"))

	dense := bitmap.New()
	for i := 0; i < 5000; i++ {
		// Strided rather than contiguous: a run-length encoding of 5000
		// isolated points would need one run per point, so this set stays
		// on the dense container instead of folding into runs.
		dense.Add(uint16(i * 13))
	}
	out = append(out, ok("bitmap:array_to_dense_transition", dense.Kind() == bitmap.KindBitmap, "got kind %s", dense.Kind()))

	runs := bitmap.New()
	if err := runs.AddRange(0, 65536); err != nil {
		out = append(out, failIf("bitmap:full_range", err))
	} else {
		out = append(out, ok("bitmap:dense_to_runs_transition", runs.Kind() == bitmap.KindRuns, "got kind %s", runs.Kind()))
	}

	a := bitmap.FromUint16([]uint16{1, 2, 3, 4})
	b := bitmap.FromUint16([]uint16{3, 4, 5, 6})
	out = append(out, ok("bitmap:and", bitmap.And(a, b).Cardinality() == 2, "want 2"))
	out = append(out, ok("bitmap:or", bitmap.Or(a, b).Cardinality() == 6, "want 6"))
	out = append(out, ok("bitmap:xor", bitmap.Xor(a, b).Cardinality() == 4, "want 4"))
	out = append(out, ok("bitmap:andnot", bitmap.AndNot(a, b).Cardinality() == 2, "want 2"))

	data := a.Serialize()
	decoded, n, err := bitmap.Deserialize(data)
	if err != nil {
		out = append(out, failIf("bitmap:serialize_roundtrip", err))
	} else {
		out = append(out, ok("bitmap:serialize_roundtrip", n == len(data) && decoded.Cardinality() == a.Cardinality(),
			"consumed %d/%d, cardinality %d/%d", n, len(data), decoded.Cardinality(), a.Cardinality()))
	}

	return out
}

func bitmapBenchmark(b *testing.B) {
	bm := bitmap.New()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bm.Add(uint16(i % 65536))
		bm.Contains(uint16(i % 65536))
	}
}

// --- timingwheel --------------------------------------------------------------

var timingWheelSuite = suiteDef{
	name:        "timingwheel",
	description: "four-level hierarchical timing wheel: placement, cascade, overflow, cancellation",
	checks:      timingWheelChecks,
	benchmark:   timingWheelBenchmark,
}

func timingWheelChecks() []check {
	var out []check

	w, err := timingwheel.New(timingwheel.WithResolution(time.Millisecond))
	if err != nil {
		return []check{failIf("timingwheel:construct", err)}
	}

	fired := 0
	noReschedule := func(*timingwheel.Wheel, timingwheel.ID, any) bool { fired++; return false }

	_, err = w.Register(5*time.Millisecond, noReschedule, nil)
	out = append(out, failIf("timingwheel:register", err))

	if _, err := w.Advance(5 * time.Millisecond); err != nil {
		out = append(out, failIf("timingwheel:advance", err))
	}
	out = append(out, ok("timingwheel:fires_once", fired == 1, "got %d", fired))

	id, err := w.Register(10*time.Millisecond, noReschedule, nil)
	out = append(out, failIf("timingwheel:register2", err))
	w.Unregister(id)
	if _, err := w.Advance(10 * time.Millisecond); err != nil {
		out = append(out, failIf("timingwheel:advance2", err))
	}
	out = append(out, ok("timingwheel:unregister_prevents_fire", fired == 1, "got %d", fired))

	cascadeFired := 0
	_, _ = w.Register(300*time.Millisecond, func(*timingwheel.Wheel, timingwheel.ID, any) bool {
		cascadeFired++
		return false
	}, nil)
	if _, err := w.Advance(300 * time.Millisecond); err != nil {
		out = append(out, failIf("timingwheel:cascade_advance", err))
	}
	out = append(out, ok("timingwheel:cascade_fires", cascadeFired == 1, "got %d", cascadeFired))

	_, _ = w.Register(70000000*time.Millisecond, func(*timingwheel.Wheel, timingwheel.ID, any) bool { return false }, nil)
	out = append(out, ok("timingwheel:overflow_placement", w.Stats().OverflowCount == 1, "got %d", w.Stats().OverflowCount))

	reentrantFired := 0
	_, _ = w.Register(1*time.Millisecond, func(wheel *timingwheel.Wheel, _ timingwheel.ID, _ any) bool {
		// A zero-delay registration from inside a callback must land in
		// the pending store and fire within this same Advance call.
		_, _ = wheel.Register(0, func(*timingwheel.Wheel, timingwheel.ID, any) bool {
			reentrantFired++
			return false
		}, nil)
		return false
	}, nil)
	if _, err := w.Advance(1 * time.Millisecond); err != nil {
		out = append(out, failIf("timingwheel:reentrant_advance", err))
	}
	out = append(out, ok("timingwheel:reentrant_registration_fires_promptly", reentrantFired == 1, "got %d", reentrantFired))

	return out
}

func timingWheelBenchmark(b *testing.B) {
	w, err := timingwheel.New(timingwheel.WithResolution(time.Millisecond))
	if err != nil {
		b.Fatalf("construct: %v", err)
	}
	noReschedule := func(*timingwheel.Wheel, timingwheel.ID, any) bool { return false }
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id, _ := w.Register(time.Duration(1+i%500)*time.Millisecond, noReschedule, nil)
		w.Unregister(id)
	}
}
