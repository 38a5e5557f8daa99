package loop

import (
	"context"
	"errors"
	"time"
)

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop prevents the callback from firing again. It reports whether the
	// timer was still pending.
	Stop() bool
}

// Scheduler is the cooperative executor components schedule work on.
type Scheduler interface {
	Now() time.Time
	// Post queues fn to run on the loop after the current callback returns.
	Post(fn func())
	AfterFunc(d time.Duration, fn func()) Timer
	Every(d time.Duration, fn func()) Timer
	// Spawn runs work off the loop. The continuation it returns, if any, is
	// delivered back onto the loop.
	Spawn(work func() func())
}

// ErrClosed is returned when the scheduler stops before a posted call ran.
var ErrClosed = errors.New("loop closed")

// Await runs fn on the scheduler and waits for its result. It must not be
// called from the loop goroutine.
func Await[T any](ctx context.Context, s Scheduler, fn func() T) (T, error) {
	var zero T
	result := make(chan T, 1)
	s.Post(func() {
		result <- fn()
	})
	select {
	case v := <-result:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

type stopFunc func() bool

func (f stopFunc) Stop() bool { return f() }
