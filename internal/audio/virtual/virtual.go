// Package virtual is an audio.Device that plays nothing and keeps time on
// the scheduler. Clip durations come from a probe function and missing
// sources report an error on the next loop turn, the same way a real
// backend reports a failed load.
package virtual

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"panelreel/internal/audio"
	"panelreel/internal/loop"
)

// ErrSourceMissing is reported for sources the Missing func rejects.
var ErrSourceMissing = errors.New("audio source missing")

// Options configures simulated clip behavior.
type Options struct {
	// Duration reports clip lengths. Unknown clips never end on their own.
	Duration func(addr string) (time.Duration, bool)
	// Missing reports sources that fail to load.
	Missing func(addr string) bool
}

// Device is the simulated output context.
type Device struct {
	sched     loop.Scheduler
	opts      Options
	suspended bool
	connected map[*Handle]int
	handles   []*Handle
}

// New constructs a virtual device.
func New(sched loop.Scheduler, opts Options) *Device {
	return &Device{sched: sched, opts: opts, connected: make(map[*Handle]int)}
}

func (d *Device) NewHandle(addr string) audio.Handle {
	h := &Handle{dev: d, source: addr, volume: 1, paused: true}
	if d.opts.Duration != nil {
		h.duration, h.known = d.opts.Duration(addr)
	}
	d.handles = append(d.handles, h)
	if addr == "" || (d.opts.Missing != nil && d.opts.Missing(addr)) {
		h.broken = true
		d.sched.Post(func() { h.fail(fmt.Errorf("load %q: %w", addr, ErrSourceMissing)) })
	}
	return h
}

func (d *Device) Suspend() { d.suspended = true }
func (d *Device) Resume()  { d.suspended = false }

// Suspended reports whether the output context is suspended.
func (d *Device) Suspended() bool { return d.suspended }

func (d *Device) Connect(h audio.Handle) func() {
	vh, ok := h.(*Handle)
	if !ok {
		return func() {}
	}
	d.connected[vh]++
	done := false
	return func() {
		if done {
			return
		}
		done = true
		d.connected[vh]--
		if d.connected[vh] <= 0 {
			delete(d.connected, vh)
		}
	}
}

// Connections counts handles routed through the meter.
func (d *Device) Connections() int { return len(d.connected) }

// Playing returns the handles currently playing.
func (d *Device) Playing() []*Handle {
	var out []*Handle
	for _, h := range d.handles {
		if !h.paused && !h.released {
			out = append(out, h)
		}
	}
	return out
}

// Handles returns every handle created so far.
func (d *Device) Handles() []*Handle { return slices.Clone(d.handles) }

// Handle is a simulated clip.
type Handle struct {
	dev      *Device
	source   string
	volume   float64
	muted    bool
	paused   bool
	loop     bool
	broken   bool
	released bool
	duration time.Duration
	known    bool
	position time.Duration
	started  time.Time
	timer    loop.Timer
	onEnded  []func()
	onError  []func(error)
}

func (h *Handle) Source() string         { return h.source }
func (h *Handle) Volume() float64        { return h.volume }
func (h *Handle) SetVolume(v float64)    { h.volume = v }
func (h *Handle) Paused() bool           { return h.paused }
func (h *Handle) SetLoop(loop bool)      { h.loop = loop }
func (h *Handle) SetMuted(muted bool)    { h.muted = muted }
func (h *Handle) Muted() bool            { return h.muted }
func (h *Handle) Released() bool         { return h.released }
func (h *Handle) OnEnded(fn func())      { h.onEnded = append(h.onEnded, fn) }
func (h *Handle) OnError(fn func(error)) { h.onError = append(h.onError, fn) }

func (h *Handle) Duration() (time.Duration, bool) { return h.duration, h.known }

func (h *Handle) Play() {
	if !h.paused || h.released || h.broken {
		return
	}
	h.paused = false
	h.started = h.dev.sched.Now()
	if !h.known {
		return
	}
	remaining := h.duration - h.position
	if remaining < 0 {
		remaining = 0
	}
	h.timer = h.dev.sched.AfterFunc(remaining, h.reachEnd)
}

func (h *Handle) reachEnd() {
	h.timer = nil
	if h.loop {
		h.position = 0
		h.started = h.dev.sched.Now()
		h.timer = h.dev.sched.AfterFunc(h.duration, h.reachEnd)
		return
	}
	h.paused = true
	h.position = h.duration
	for _, fn := range slices.Clone(h.onEnded) {
		fn()
	}
}

func (h *Handle) Pause() {
	if h.paused {
		return
	}
	h.paused = true
	h.position += h.dev.sched.Now().Sub(h.started)
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

func (h *Handle) Rewind() {
	playing := !h.paused
	h.Pause()
	h.position = 0
	if playing {
		h.Play()
	}
}

func (h *Handle) Release() {
	if h.released {
		return
	}
	h.Pause()
	h.released = true
	h.source = ""
	h.onEnded = nil
	h.onError = nil
}

func (h *Handle) fail(err error) {
	if h.released {
		return
	}
	for _, fn := range slices.Clone(h.onError) {
		fn(err)
	}
}
