package audio

import "time"

// Handle is one playable audio source.
type Handle interface {
	Source() string
	Volume() float64
	SetVolume(float64)
	Play()
	Pause()
	Paused() bool
	Rewind()
	SetLoop(bool)
	// Duration reports the clip length once known.
	Duration() (time.Duration, bool)
	OnEnded(func())
	OnError(func(error))
	SetMuted(bool)
	// Release stops playback and clears the source.
	Release()
}

// Device is the playback backend shared by every handle.
type Device interface {
	NewHandle(addr string) Handle
	// Suspend and Resume pause and restart the shared output context.
	Suspend()
	Resume()
	// Connect routes h through the level meter. The returned func
	// disconnects it and is safe to call more than once.
	Connect(h Handle) (disconnect func())
}

// MuteStore persists the global mute flag.
type MuteStore interface {
	LoadMute() (bool, error)
	SaveMute(muted bool) error
}
