package loop

import (
	"container/heap"
	"time"
)

type timer struct {
	when time.Time
	// insertion order, timers due at the same time run FIFO
	seq  uint64
	task func()
}

// timerHeap is a min-heap of timers
type timerHeap []timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	*h = append(*h, x.(timer))
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = timer{}
	*h = old[:n-1]
	return x
}

func (h *timerHeap) push(t timer) {
	heap.Push(h, t)
}

func (h *timerHeap) pop() timer {
	return heap.Pop(h).(timer)
}
