// Package anim drives linear value ramps on the scheduler. Opacity fades,
// audio volume envelopes, and camera motion all use it.
package anim

import (
	"time"

	"panelreel/internal/loop"
)

// DefaultTick is the ramp sampling interval.
const DefaultTick = 16 * time.Millisecond

// Tween is an in-flight ramp.
type Tween struct {
	ticker  loop.Timer
	end     loop.Timer
	current float64
	active  bool
}

// Ramp linearly moves a value from `from` to `to` over d, calling apply on
// every tick and once more with the exact final value. done runs after the
// final apply unless the tween was stopped. The final apply lands exactly at
// d regardless of the tick. A non-positive d jumps to `to` on the next loop
// turn.
func Ramp(sched loop.Scheduler, from, to float64, d, tick time.Duration, apply func(float64), done func()) *Tween {
	if tick <= 0 {
		tick = DefaultTick
	}
	t := &Tween{current: from, active: true}
	apply(from)

	finish := func() {
		if !t.active {
			return
		}
		t.stopTimers()
		t.current = to
		apply(to)
		if done != nil {
			done()
		}
	}

	if d <= 0 {
		sched.Post(finish)
		return t
	}

	start := sched.Now()
	t.end = sched.AfterFunc(d, finish)
	t.ticker = sched.Every(tick, func() {
		if !t.active {
			return
		}
		elapsed := sched.Now().Sub(start)
		if elapsed >= d {
			finish()
			return
		}
		frac := float64(elapsed) / float64(d)
		t.current = from + (to-from)*frac
		apply(t.current)
	})
	return t
}

// Stop cancels the ramp at its current value. done is not called.
func (t *Tween) Stop() {
	if t == nil || !t.active {
		return
	}
	t.stopTimers()
}

func (t *Tween) stopTimers() {
	t.active = false
	if t.ticker != nil {
		t.ticker.Stop()
	}
	if t.end != nil {
		t.end.Stop()
	}
}

// Active reports whether the ramp is still running.
func (t *Tween) Active() bool { return t != nil && t.active }

// Value returns the last applied value.
func (t *Tween) Value() float64 {
	if t == nil {
		return 0
	}
	return t.current
}
