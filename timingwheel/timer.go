package timingwheel

import "sync"

// ID identifies a registered timer. IDs are assigned sequentially and
// never reused while the counter has room; Register returns
// errs.ErrIdentifierSpaceExhausted once it wraps past 2^64.
type ID uint64

// Callback is invoked when a timer fires. It receives the wheel handle, the
// timer's own ID, and the opaque client data supplied at registration, and
// returns whether the wheel should reschedule the timer using its stored
// repeat interval. The return value is ignored for one-shot timers.
type Callback func(w *Wheel, id ID, data any) bool

// timer is a single scheduled callback. Timers are pooled: Wheel pulls one
// from timerPool on Register and returns it once an unregistered timer is
// swept from its store, after a fire that does not reschedule, or on
// StopAll, following the same get/reset/put shape as
// internal/pool.ByteBufferPool.
type timer struct {
	id        ID
	expiresAt int64 // absolute tick, in the wheel's base resolution
	period    int64 // 0 for one-shot; repeat interval in ticks otherwise
	callback  Callback
	data      any // caller-opaque, passed back unexamined on every fire
	level     int // which wheel level currently holds this timer, -1 if in overflow
}

var timerPool = sync.Pool{
	New: func() any { return new(timer) },
}

func getTimer() *timer {
	return timerPool.Get().(*timer)
}

func putTimer(t *timer) {
	*t = timer{}
	timerPool.Put(t)
}
