package testsupport

import (
	"testing"
	"time"

	"panelreel/internal/audio"
	"panelreel/internal/audio/virtual"
	"panelreel/internal/config"
	"panelreel/internal/events"
	"panelreel/internal/loop"
	"panelreel/internal/playback"
)

// Epoch is the virtual clock origin for harness-driven tests.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// HarnessOptions configures simulated audio.
type HarnessOptions struct {
	// AudioDurations maps addresses to clip lengths. Addresses absent from
	// the map are treated as missing unless PresentAudio lists them.
	AudioDurations map[string]time.Duration
	// PresentAudio marks addresses that exist but have no known duration.
	PresentAudio map[string]bool
	Store        audio.MuteStore
}

// Harness wires a playback context onto a virtual clock and virtual audio.
type Harness struct {
	Clock    *loop.Manual
	Device   *virtual.Device
	PB       *playback.Context
	Recorder *Recorder
}

// NewHarness constructs a harness and registers cleanup.
func NewHarness(t testing.TB, cfg *config.Config, opts HarnessOptions) *Harness {
	t.Helper()

	clock := loop.NewManual(Epoch)
	device := virtual.New(clock, virtual.Options{
		Duration: func(addr string) (time.Duration, bool) {
			d, ok := opts.AudioDurations[addr]
			return d, ok
		},
		Missing: func(addr string) bool {
			if _, ok := opts.AudioDurations[addr]; ok {
				return false
			}
			return !opts.PresentAudio[addr]
		},
	})
	pb := playback.New(cfg, clock, device, opts.Store, nil)
	rec := NewRecorder(clock, pb.Bus)
	t.Cleanup(pb.Close)
	return &Harness{Clock: clock, Device: device, PB: pb, Recorder: rec}
}

// Elapsed reports virtual time since Epoch.
func (h *Harness) Elapsed() time.Duration {
	return h.Clock.Now().Sub(Epoch)
}

// Record is one observed bus event.
type Record struct {
	At    time.Duration
	Event events.Event
}

// Recorder captures bus events with their virtual timestamps.
type Recorder struct {
	clock   *loop.Manual
	Records []Record
}

// NewRecorder subscribes to every event on bus.
func NewRecorder(clock *loop.Manual, bus *events.Bus) *Recorder {
	r := &Recorder{clock: clock}
	bus.Subscribe(func(ev events.Event) {
		r.Records = append(r.Records, Record{At: clock.Now().Sub(Epoch), Event: ev})
	})
	return r
}

// Kind returns the records of one event kind.
func (r *Recorder) Kind(kind events.Kind) []Record {
	var out []Record
	for _, rec := range r.Records {
		if rec.Event.Kind() == kind {
			out = append(out, rec)
		}
	}
	return out
}

// Reset drops recorded events.
func (r *Recorder) Reset() { r.Records = nil }
