package loop

import (
	"container/heap"
	"sync"
	"time"
)

// Manual is a virtual-time scheduler. Nothing runs until the owner calls
// Advance or RunUntilIdle.
type Manual struct {
	// Latency delays delivery of Spawn continuations.
	Latency time.Duration

	mu    sync.Mutex
	now   time.Time
	seq   uint64
	items timerHeap
}

// NewManual returns a scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

type manualTimer struct {
	at      time.Time
	seq     uint64
	period  time.Duration
	fn      func()
	index   int
	stopped bool
}

type timerHeap []*manualTimer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x any) {
	t := x.(*manualTimer)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

func (m *Manual) schedule(at time.Time, period time.Duration, fn func()) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{at: at, seq: m.seq, period: period, fn: fn}
	heap.Push(&m.items, t)
	return t
}

func (m *Manual) stop(t *manualTimer) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	if t.index >= 0 {
		heap.Remove(&m.items, t.index)
		return true
	}
	return t.period > 0
}

// Now returns the virtual clock.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Post queues fn at the current virtual time.
func (m *Manual) Post(fn func()) {
	if fn == nil {
		return
	}
	m.schedule(m.Now(), 0, fn)
}

// AfterFunc schedules fn at now+d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	t := m.schedule(m.Now().Add(d), 0, fn)
	return stopFunc(func() bool { return m.stop(t) })
}

// Every schedules fn at every multiple of d from now.
func (m *Manual) Every(d time.Duration, fn func()) Timer {
	if d <= 0 {
		d = time.Millisecond
	}
	t := m.schedule(m.Now().Add(d), d, fn)
	return stopFunc(func() bool { return m.stop(t) })
}

// Spawn runs work synchronously and delivers the continuation after Latency.
func (m *Manual) Spawn(work func() func()) {
	next := work()
	if next == nil {
		return
	}
	m.schedule(m.Now().Add(m.Latency), 0, next)
}

// Advance moves the clock forward by d, firing every callback due on the way
// in timestamp order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()
	m.runUntil(target)
	m.mu.Lock()
	if m.now.Before(target) {
		m.now = target
	}
	m.mu.Unlock()
}

// RunUntilIdle fires every callback due at the current time, including
// callbacks they queue.
func (m *Manual) RunUntilIdle() {
	m.runUntil(m.Now())
}

// Pending reports the number of scheduled callbacks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Manual) runUntil(target time.Time) {
	for {
		m.mu.Lock()
		if len(m.items) == 0 || m.items[0].at.After(target) {
			m.mu.Unlock()
			return
		}
		t := heap.Pop(&m.items).(*manualTimer)
		if t.at.After(m.now) {
			m.now = t.at
		}
		if t.period > 0 && !t.stopped {
			m.seq++
			t.at = t.at.Add(t.period)
			t.seq = m.seq
			heap.Push(&m.items, t)
		}
		fn := t.fn
		m.mu.Unlock()
		fn()
	}
}
