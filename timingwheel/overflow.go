package timingwheel

import "container/heap"

// overflowHeap holds timers whose delay exceeds the wheel's total span,
// ordered by absolute expiration, so the wheel can cheaply ask "what's the
// next one to pull in" without scanning every overflow entry. No
// ordered-map or skiplist library appears anywhere in the example pack, so
// container/heap is the idiomatic stdlib answer for this shape.
type overflowHeap []*timer

func (h overflowHeap) Len() int            { return len(h) }
func (h overflowHeap) Less(i, j int) bool  { return h[i].expiresAt < h[j].expiresAt }
func (h overflowHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *overflowHeap) Push(x any)         { *h = append(*h, x.(*timer)) }

func (h *overflowHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

func (h *overflowHeap) push(t *timer) {
	heap.Push(h, t)
}

func (h *overflowHeap) pop() *timer {
	return heap.Pop(h).(*timer)
}

func (h overflowHeap) peek() *timer {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}
