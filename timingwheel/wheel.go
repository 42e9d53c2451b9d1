// Package timingwheel implements a four-level hierarchical timing wheel:
// a 256-slot level ticking at the wheel's base resolution, cascaded by
// three 64-slot levels each spanning 64x the level below, with an overflow
// store for delays beyond the top level's total span and a pending store
// for timers registered with a sub-resolution delay or from inside a
// callback. Firing, cascading, and overflow/pending drainage all happen
// inside Advance, which callers drive from their own event loop — the
// wheel itself never starts a goroutine or timer.
package timingwheel

import (
	"fmt"
	"time"

	"github.com/mattsta/datakit/errs"
	"github.com/mattsta/datakit/internal/options"
)

const numLevels = 4

var levelSizes = [numLevels]int{256, 64, 64, 64}

// level is one tier of the wheel: size slots, each spanning tickSpan base
// ticks.
type level struct {
	size     int
	tickSpan int64
	slots    [][]*timer
}

func (l *level) totalSpan() int64 {
	return int64(l.size) * l.tickSpan
}

func (l *level) slotIndex(absoluteTick int64) int64 {
	return (absoluteTick / l.tickSpan) % int64(l.size)
}

// Wheel is a hierarchical timing wheel. The zero value is not usable;
// construct with New.
type Wheel struct {
	resolution time.Duration
	now        int64 // current tick, in units of resolution
	levels     [numLevels]*level
	overflow   *overflowHeap

	// pending holds timers that must wait for the next drain instead of
	// being placed directly into a level: those registered with a
	// sub-resolution delay, those registered from inside a callback (the
	// cursor is mid-advance, so slot indices computed against it would be
	// stale), and those cascaded or drained out of a higher store that
	// turn out already due.
	pending []*timer

	timers    map[ID]*timer
	cancelled map[ID]struct{}
	nextID    uint64

	inCallback bool
}

// WheelOption configures a Wheel at construction time.
type WheelOption = options.Option[*Wheel]

// WithResolution overrides the wheel's base tick duration (default 1ms).
// Tests use a coarser resolution to advance the wheel in fewer steps.
func WithResolution(d time.Duration) WheelOption {
	return options.NoError[*Wheel](func(w *Wheel) { w.resolution = d })
}

// New constructs a Wheel with its four levels sized 256/64/64/64.
func New(opts ...WheelOption) (*Wheel, error) {
	w := &Wheel{
		resolution: time.Millisecond,
		timers:     make(map[ID]*timer),
		cancelled:  make(map[ID]struct{}),
		overflow:   &overflowHeap{},
	}

	if err := options.Apply(w, opts...); err != nil {
		return nil, fmt.Errorf("timingwheel: %w", err)
	}
	if w.resolution <= 0 {
		return nil, fmt.Errorf("timingwheel: resolution must be positive: %w", errs.ErrInvalidArgument)
	}

	tickSpan := int64(1)
	for i, size := range levelSizes {
		w.levels[i] = &level{size: size, tickSpan: tickSpan, slots: make([][]*timer, size)}
		tickSpan *= int64(size)
	}

	return w, nil
}

// Register schedules a one-shot callback to run after delay, passing data
// back to cb unexamined on every fire.
func (w *Wheel) Register(delay time.Duration, cb Callback, data any) (ID, error) {
	return w.schedule(delay, 0, cb, data)
}

// RegisterRepeating schedules cb to run every period, starting after the
// first period elapses, passing data back to cb unexamined on every fire.
func (w *Wheel) RegisterRepeating(period time.Duration, cb Callback, data any) (ID, error) {
	if period <= 0 {
		return 0, fmt.Errorf("timingwheel: repeating period must be positive: %w", errs.ErrInvalidArgument)
	}
	return w.schedule(period, period, cb, data)
}

func (w *Wheel) schedule(delay, period time.Duration, cb Callback, data any) (ID, error) {
	if delay < 0 {
		return 0, fmt.Errorf("timingwheel: delay must be non-negative: %w", errs.ErrInvalidArgument)
	}
	if cb == nil {
		return 0, fmt.Errorf("timingwheel: callback must not be nil: %w", errs.ErrInvalidArgument)
	}
	if w.nextID == ^uint64(0) {
		return 0, fmt.Errorf("timingwheel: %w", errs.ErrIdentifierSpaceExhausted)
	}

	w.nextID++
	id := ID(w.nextID)

	t := getTimer()
	t.id = id
	t.expiresAt = w.now + durationToTicks(delay, w.resolution)
	t.period = durationToTicks(period, w.resolution)
	t.callback = cb
	t.data = data

	w.timers[id] = t

	// A sub-resolution delay (including zero) and a reentrant registration
	// from inside a callback both go to the pending store: the wheel's
	// slot granularity can't place the former, and the latter would
	// compute a slot index against a cursor that is mid-advance.
	if delay < w.resolution || w.inCallback {
		w.pending = append(w.pending, t)
	} else {
		w.place(t)
	}

	return id, nil
}

// Unregister cancels a previously registered timer, returning whether it
// was still live. Cancellation is lazy: the timer is dropped the next
// time its slot is visited rather than searched for immediately.
func (w *Wheel) Unregister(id ID) bool {
	if _, ok := w.timers[id]; !ok {
		return false
	}
	delete(w.timers, id)
	w.cancelled[id] = struct{}{}
	return true
}

// LiveCount approximates the number of timers currently scheduled
// (excluding cancelled-but-not-yet-swept entries).
func (w *Wheel) LiveCount() int {
	return len(w.timers)
}

// Stats summarizes the wheel's current occupancy.
type Stats struct {
	LiveCount        int
	OverflowCount    int
	PendingCount     int
	CancelledPending int
	CurrentTick      int64
}

// Stats reports the wheel's current occupancy.
func (w *Wheel) Stats() Stats {
	return Stats{
		LiveCount:        len(w.timers),
		OverflowCount:    w.overflow.Len(),
		PendingCount:     len(w.pending),
		CancelledPending: len(w.cancelled),
		CurrentTick:      w.now,
	}
}

// StopAll cancels every scheduled timer and returns how many were live.
// Teardown frees the slots, the overflow store, the pending store, and the
// cancellation set, in that order; callbacks still pending are not fired.
func (w *Wheel) StopAll() int {
	n := len(w.timers)

	for _, lvl := range w.levels {
		for i := range lvl.slots {
			for _, t := range lvl.slots[i] {
				putTimer(t)
			}
			lvl.slots[i] = nil
		}
	}
	for _, t := range *w.overflow {
		putTimer(t)
	}
	*w.overflow = nil

	for _, t := range w.pending {
		putTimer(t)
	}
	w.pending = nil

	w.timers = make(map[ID]*timer)
	w.cancelled = make(map[ID]struct{})
	return n
}

// PeekNextExpiration returns the delay until the earliest live timer
// fires, or false if none are scheduled. It scans every occupied slot and
// the pending store, so it is meant for diagnostics rather than a hot
// path.
func (w *Wheel) PeekNextExpiration() (time.Duration, bool) {
	best := int64(-1)
	consider := func(t *timer) {
		if _, cancelled := w.cancelled[t.id]; cancelled {
			return
		}
		if best == -1 || t.expiresAt < best {
			best = t.expiresAt
		}
	}

	for _, lvl := range w.levels {
		for _, slot := range lvl.slots {
			for _, t := range slot {
				consider(t)
			}
		}
	}
	if top := w.overflow.peek(); top != nil {
		consider(top)
	}
	for _, t := range w.pending {
		consider(t)
	}

	if best == -1 {
		return 0, false
	}
	delta := best - w.now
	if delta < 0 {
		delta = 0
	}
	return time.Duration(delta) * w.resolution, true
}

// Advance moves the wheel forward by d, firing every timer that becomes
// due along the way and cascading/draining overflow as level boundaries
// are crossed, then drains the pending store exactly once after the
// cursor has caught up. A timer registered reentrantly during that single
// drain pass lands in the new pending store and is left for the next
// Advance call, matching the pending-store semantics described in
// SPEC_FULL.md — draining to a fixed point here could let a callback's own
// registration fire before this call finishes stepping the cursor
// forward. It returns how many timers fired. Advance is not reentrant:
// calling it from within a callback returns errs.ErrInvalidArgument.
func (w *Wheel) Advance(d time.Duration) (int, error) {
	if w.inCallback {
		return 0, fmt.Errorf("timingwheel: reentrant Advance from within a callback: %w", errs.ErrInvalidArgument)
	}
	if d < 0 {
		return 0, fmt.Errorf("timingwheel: cannot advance by a negative duration: %w", errs.ErrInvalidArgument)
	}

	ticks := durationToTicks(d, w.resolution)
	if d == 0 {
		ticks = 0
	}

	fired := 0
	for i := int64(0); i < ticks; i++ {
		fired += w.tick()
	}
	fired += w.drainPending()
	return fired, nil
}

func (w *Wheel) tick() int {
	w.now++

	// Overflow and higher levels must cascade before level 0 is
	// processed: a timer falling all the way from the overflow store or
	// level 3 down to level 0 needs to land in *this* tick's due slot,
	// not wait for the next time its old level's boundary comes around.
	w.drainOverflow()
	for lvl := numLevels - 1; lvl >= 1; lvl-- {
		if w.now%w.levels[lvl].tickSpan == 0 {
			w.cascade(lvl)
		}
	}

	return w.processLevel0()
}

// processLevel0 drains the current tick's due slot and fires every live
// timer in it.
func (w *Wheel) processLevel0() int {
	l0 := w.levels[0]
	idx := l0.slotIndex(w.now)

	due := l0.slots[idx]
	l0.slots[idx] = nil

	fired := 0
	for _, t := range due {
		if w.fireOrDrop(t) {
			fired++
		}
	}
	return fired
}

// drainPending processes one generation of the pending store. The current
// contents are snapshotted and the store reset to empty before iterating,
// so a timer registered reentrantly during this pass accumulates in the
// new pending store instead of being visited in the same pass.
func (w *Wheel) drainPending() int {
	batch := w.pending
	w.pending = nil

	fired := 0
	for _, t := range batch {
		if _, cancelled := w.cancelled[t.id]; cancelled {
			delete(w.cancelled, t.id)
			putTimer(t)
			continue
		}
		if t.expiresAt <= w.now {
			if w.fireOrDrop(t) {
				fired++
			}
		} else {
			w.place(t)
		}
	}
	return fired
}

// fireOrDrop runs t's callback unless it was cancelled, then either
// reschedules it (repeating, and the callback asked to reschedule) or
// releases it back to the pool. Returns whether the callback actually ran.
func (w *Wheel) fireOrDrop(t *timer) bool {
	if _, cancelled := w.cancelled[t.id]; cancelled {
		delete(w.cancelled, t.id)
		putTimer(t)
		return false
	}

	w.inCallback = true
	reschedule := t.callback(w, t.id, t.data)
	w.inCallback = false

	if _, cancelled := w.cancelled[t.id]; cancelled {
		delete(w.cancelled, t.id)
		putTimer(t)
		return true
	}

	if t.period > 0 && reschedule {
		t.expiresAt = w.now + t.period
		w.place(t)
	} else {
		delete(w.timers, t.id)
		putTimer(t)
	}
	return true
}

// cascade empties the slot at level lvl that the wheel has just rolled
// into and re-homes every live timer in it, which recomputes a finer
// placement now that less time remains before it fires.
func (w *Wheel) cascade(lvl int) {
	l := w.levels[lvl]
	idx := l.slotIndex(w.now)

	entries := l.slots[idx]
	l.slots[idx] = nil

	for _, t := range entries {
		if _, cancelled := w.cancelled[t.id]; cancelled {
			delete(w.cancelled, t.id)
			putTimer(t)
			continue
		}
		w.place(t)
	}
}

// drainOverflow pulls timers from the overflow store into the wheel once
// their remaining delay fits within the top level's total span.
func (w *Wheel) drainOverflow() {
	span := w.levels[numLevels-1].totalSpan()
	for {
		top := w.overflow.peek()
		if top == nil || top.expiresAt-w.now >= span {
			return
		}
		t := w.overflow.pop()
		if _, cancelled := w.cancelled[t.id]; cancelled {
			delete(w.cancelled, t.id)
			putTimer(t)
			continue
		}
		w.place(t)
	}
}

// place puts t in the lowest level whose total span can still contain its
// remaining delay, the overflow store if none can, or the pending store if
// t is already due — which happens when a cascade or overflow drain
// re-homes a timer that turns out due exactly this tick.
func (w *Wheel) place(t *timer) {
	delta := t.expiresAt - w.now
	if delta <= 0 {
		w.pending = append(w.pending, t)
		return
	}

	for lvl := 0; lvl < numLevels; lvl++ {
		l := w.levels[lvl]
		if delta < l.totalSpan() {
			idx := l.slotIndex(t.expiresAt)
			t.level = lvl
			l.slots[idx] = append(l.slots[idx], t)
			return
		}
	}

	t.level = -1
	w.overflow.push(t)
}

func durationToTicks(d, resolution time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	ticks := int64(d / resolution)
	if ticks == 0 {
		ticks = 1
	}
	return ticks
}
