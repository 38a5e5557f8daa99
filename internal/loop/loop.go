package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Loop is the wall-clock scheduler. Callbacks run inside Run.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
	onLoop atomic.Bool
}

// New constructs an idle loop. Call Run to start executing callbacks.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Run executes queued callbacks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			l.onLoop.Store(true)
			fn()
			l.onLoop.Store(false)
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			l.mu.Lock()
			l.closed = true
			l.queue = nil
			l.mu.Unlock()
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Now returns the wall clock.
func (l *Loop) Now() time.Time { return time.Now() }

// Post queues fn. Posts after Run returned are dropped.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

const (
	timerPending int32 = iota
	timerFired
	timerStopped
)

// AfterFunc runs fn on the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	var state atomic.Int32
	t := time.AfterFunc(d, func() {
		l.Post(func() {
			if state.CompareAndSwap(timerPending, timerFired) {
				fn()
			}
		})
	})
	return stopFunc(func() bool {
		t.Stop()
		return state.CompareAndSwap(timerPending, timerStopped)
	})
}

// Every runs fn on the loop every d until stopped.
func (l *Loop) Every(d time.Duration, fn func()) Timer {
	var stopped atomic.Bool
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				l.Post(func() {
					if !stopped.Load() {
						fn()
					}
				})
			}
		}
	}()
	return stopFunc(func() bool {
		if !stopped.CompareAndSwap(false, true) {
			return false
		}
		ticker.Stop()
		close(done)
		return true
	})
}

// Spawn runs work on a new goroutine and posts its continuation.
func (l *Loop) Spawn(work func() func()) {
	go func() {
		if next := work(); next != nil {
			l.Post(next)
		}
	}()
}

// OnLoop reports whether the caller is running inside a loop callback.
func (l *Loop) OnLoop() bool { return l.onLoop.Load() }
