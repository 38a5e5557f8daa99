package audio

import (
	"log/slog"
	"sort"
	"time"

	"panelreel/internal/anim"
	"panelreel/internal/logging"
	"panelreel/internal/loop"
	"panelreel/internal/media"
)

// Channel names a long-lived audio channel.
type Channel string

const (
	ChannelBackground Channel = "background"
	ChannelAmbient    Channel = "ambient"
)

// Options configures crossfade windows.
type Options struct {
	FadeOut time.Duration
	FadeIn  time.Duration
	Tick    time.Duration
	Store   MuteStore
	Logger  *slog.Logger
}

const (
	defaultFadeOut = 1000 * time.Millisecond
	defaultFadeIn  = 1500 * time.Millisecond
	defaultTick    = 50 * time.Millisecond
)

// ChannelState is a snapshot of one channel.
type ChannelState struct {
	Address       string
	Volume        float64
	Target        float64
	Transitioning bool
}

// Manager routes channel requests and tracks registered handles.
type Manager struct {
	sched  loop.Scheduler
	device Device
	opts   Options
	logger *slog.Logger

	channels map[Channel]*channel
	owners   map[Handle]string
	conns    map[Handle]func()
	resume   map[Handle]struct{}
	muted    bool
}

type phase int

const (
	phaseFadeOut phase = iota
	phaseFadeIn
)

type channel struct {
	name    Channel
	current Handle
	addr    string
	target  float64
	trans   *transition
}

type transition struct {
	phase  phase
	out    Handle
	next   Handle
	addr   string
	target float64
	tween  *anim.Tween
}

// NewManager constructs a manager and loads the persisted mute flag.
func NewManager(sched loop.Scheduler, device Device, opts Options) *Manager {
	if opts.FadeOut <= 0 {
		opts.FadeOut = defaultFadeOut
	}
	if opts.FadeIn <= 0 {
		opts.FadeIn = defaultFadeIn
	}
	if opts.Tick <= 0 {
		opts.Tick = defaultTick
	}
	m := &Manager{
		sched:  sched,
		device: device,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "audio"),
		channels: map[Channel]*channel{
			ChannelBackground: {name: ChannelBackground},
			ChannelAmbient:    {name: ChannelAmbient},
		},
		owners: make(map[Handle]string),
		conns:  make(map[Handle]func()),
		resume: make(map[Handle]struct{}),
	}
	if opts.Store != nil {
		muted, err := opts.Store.LoadMute()
		if err != nil {
			logging.WarnWithContext(m.logger, "mute flag load failed", "mute_load_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check client state database permissions"),
				logging.String(logging.FieldImpact, "playback starts unmuted"),
			)
		}
		m.muted = muted
		if muted {
			device.Suspend()
		}
	}
	return m
}

// NewHandle creates an unregistered handle on the device.
func (m *Manager) NewHandle(addr string) Handle {
	return m.device.NewHandle(addr)
}

// PlayBackgroundAudio switches the background channel to addr at volume.
// An empty address fades the channel out.
func (m *Manager) PlayBackgroundAudio(addr string, volume float64) {
	m.play(ChannelBackground, addr, volume)
}

// PlayAmbientAudio switches the ambient channel to addr at volume.
func (m *Manager) PlayAmbientAudio(addr string, volume float64) {
	m.play(ChannelAmbient, addr, volume)
}

// StopChannel fades the channel to silence over fade and releases it.
func (m *Manager) StopChannel(name Channel, fade time.Duration) {
	ch, ok := m.channels[name]
	if !ok {
		return
	}
	if ch.current == nil && ch.trans == nil {
		return
	}
	m.transition(ch, "", 0, fade)
}

func (m *Manager) play(name Channel, addr string, volume float64) {
	ch := m.channels[name]
	volume = clamp(volume)
	if addr == "" {
		m.StopChannel(name, m.opts.FadeOut)
		return
	}
	base := media.BaseAddress(addr)

	if tr := ch.trans; tr != nil && tr.next != nil && media.BaseAddress(tr.addr) == base {
		tr.target = volume
		return
	}
	if ch.trans == nil && ch.current != nil && media.BaseAddress(ch.addr) == base {
		ch.target = volume
		ch.current.SetVolume(volume)
		return
	}
	m.transition(ch, addr, volume, m.opts.FadeOut)
}

// transition supersedes any in-flight transition and starts a new one
// towards addr. An empty addr fades the channel to silence.
func (m *Manager) transition(ch *channel, addr string, volume float64, fadeOut time.Duration) {
	out := ch.current
	if tr := ch.trans; tr != nil {
		tr.tween.Stop()
		switch tr.phase {
		case phaseFadeIn:
			// The pending handle already started; it becomes the one to fade.
			out = tr.next
		default:
			m.release(tr.next)
			out = tr.out
		}
		ch.trans = nil
	}

	tr := &transition{out: out, addr: addr, target: volume}
	if addr != "" {
		tr.next = m.device.NewHandle(addr)
		tr.next.SetVolume(0)
		tr.next.SetLoop(true)
		tr.next.SetMuted(m.muted)
		m.conns[tr.next] = m.device.Connect(tr.next)
		next := tr.next
		next.OnError(func(err error) { m.channelError(ch, next, err) })
	}
	ch.trans = tr
	ch.current = nil
	ch.addr = ""

	m.logger.Debug("channel transition",
		logging.String(logging.FieldChannel, string(ch.name)),
		logging.String(logging.FieldAsset, addr),
		logging.Float64("target", volume),
	)

	if out == nil {
		m.fadeIn(ch, tr)
		return
	}
	tr.phase = phaseFadeOut
	tr.tween = anim.Ramp(m.sched, out.Volume(), 0, fadeOut, m.opts.Tick, out.SetVolume, func() {
		if ch.trans != tr {
			return
		}
		m.release(out)
		tr.out = nil
		m.fadeIn(ch, tr)
	})
}

func (m *Manager) fadeIn(ch *channel, tr *transition) {
	if tr.next == nil {
		ch.trans = nil
		return
	}
	tr.phase = phaseFadeIn
	ch.current = tr.next
	ch.addr = tr.addr
	ch.target = tr.target
	if m.muted {
		m.resume[tr.next] = struct{}{}
	} else {
		tr.next.Play()
	}
	next := tr.next
	tr.tween = anim.Ramp(m.sched, 0, 1, m.opts.FadeIn, m.opts.Tick, func(p float64) {
		next.SetVolume(p * tr.target)
	}, func() {
		if ch.trans == tr {
			ch.trans = nil
			ch.target = tr.target
		}
	})
}

func (m *Manager) channelError(ch *channel, h Handle, err error) {
	logging.WarnWithContext(m.logger, "channel audio failed", "channel_audio_error",
		logging.String(logging.FieldChannel, string(ch.name)),
		logging.String(logging.FieldAsset, h.Source()),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "verify the audio file exists and is decodable"),
		logging.String(logging.FieldImpact, "channel stays silent until the next track"),
	)
	m.detach(h)
	m.release(h)
}

// RegisterAudio tracks a transient handle under owner. When connectToMeter
// is set the handle is routed through the device meter.
func (m *Manager) RegisterAudio(h Handle, owner string, connectToMeter bool) {
	if h == nil {
		return
	}
	m.owners[h] = owner
	if connectToMeter {
		if _, ok := m.conns[h]; !ok {
			m.conns[h] = m.device.Connect(h)
		}
	}
	h.SetMuted(m.muted)
}

// UnregisterAudio stops, releases and disconnects h, whether it is a
// transient handle or part of a channel transition.
func (m *Manager) UnregisterAudio(h Handle) {
	if h == nil {
		return
	}
	m.detach(h)
	m.release(h)
}

// UnregisterAllForOwner releases every handle registered under owner and
// returns how many were released.
func (m *Manager) UnregisterAllForOwner(owner string) int {
	var handles []Handle
	for h, o := range m.owners {
		if o == owner {
			handles = append(handles, h)
		}
	}
	for _, h := range handles {
		m.UnregisterAudio(h)
	}
	if len(handles) > 0 {
		m.logger.Debug("released owner audio",
			logging.String("owner", owner),
			logging.Int("handles", len(handles)),
		)
	}
	return len(handles)
}

// detach removes h from any channel that references it.
func (m *Manager) detach(h Handle) {
	for _, ch := range m.channels {
		if tr := ch.trans; tr != nil {
			switch h {
			case tr.out:
				tr.tween.Stop()
				tr.out = nil
				m.fadeIn(ch, tr)
			case tr.next:
				tr.tween.Stop()
				tr.next = nil
				ch.trans = nil
				if tr.out != nil {
					// keep the old track fading so the channel ends silent
					m.transitionFrom(ch, tr.out)
				}
			}
		}
		if ch.current == h {
			ch.current = nil
			ch.addr = ""
		}
	}
}

func (m *Manager) transitionFrom(ch *channel, out Handle) {
	ch.current = out
	m.transition(ch, "", 0, m.opts.FadeOut)
}

func (m *Manager) release(h Handle) {
	if h == nil {
		return
	}
	h.Pause()
	h.Release()
	if disconnect, ok := m.conns[h]; ok {
		disconnect()
		delete(m.conns, h)
	}
	delete(m.owners, h)
	delete(m.resume, h)
}

// ToggleGlobalMute flips the mute flag, persists it, and returns the new
// value.
func (m *Manager) ToggleGlobalMute() bool {
	m.SetMuted(!m.muted)
	return m.muted
}

// SetMuted applies and persists a mute state.
func (m *Manager) SetMuted(muted bool) {
	if muted == m.muted {
		return
	}
	m.muted = muted
	if muted {
		m.device.Suspend()
		for _, h := range m.handles() {
			if !h.Paused() {
				m.resume[h] = struct{}{}
			}
			h.SetMuted(true)
			h.Pause()
		}
	} else {
		m.device.Resume()
		for _, h := range m.handles() {
			h.SetMuted(false)
			if _, ok := m.resume[h]; ok && h.Source() != "" {
				h.Play()
			}
		}
		clear(m.resume)
	}
	if m.opts.Store != nil {
		if err := m.opts.Store.SaveMute(muted); err != nil {
			logging.WarnWithContext(m.logger, "mute flag save failed", "mute_save_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "mute state will not survive restart"),
			)
		}
	}
	m.logger.Info("global mute changed", logging.Bool("muted", muted))
}

// Muted reports the global mute flag.
func (m *Manager) Muted() bool { return m.muted }

func (m *Manager) handles() []Handle {
	seen := make(map[Handle]struct{})
	var out []Handle
	add := func(h Handle) {
		if h == nil {
			return
		}
		if _, ok := seen[h]; ok {
			return
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	for _, name := range []Channel{ChannelBackground, ChannelAmbient} {
		ch := m.channels[name]
		add(ch.current)
		if ch.trans != nil {
			add(ch.trans.out)
			if ch.trans.phase == phaseFadeIn {
				add(ch.trans.next)
			}
		}
	}
	owned := make([]Handle, 0, len(m.owners))
	for h := range m.owners {
		owned = append(owned, h)
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].Source() < owned[j].Source() })
	for _, h := range owned {
		add(h)
	}
	return out
}

// Channel returns a snapshot of one channel.
func (m *Manager) Channel(name Channel) ChannelState {
	ch, ok := m.channels[name]
	if !ok {
		return ChannelState{}
	}
	state := ChannelState{Address: ch.addr, Target: ch.target, Transitioning: ch.trans != nil}
	if ch.current != nil {
		state.Volume = ch.current.Volume()
	}
	return state
}

// Registered reports how many transient handles are tracked for owner.
func (m *Manager) Registered(owner string) int {
	n := 0
	for _, o := range m.owners {
		if o == owner {
			n++
		}
	}
	return n
}

// Close releases every handle and stops all transitions.
func (m *Manager) Close() {
	for _, ch := range m.channels {
		if tr := ch.trans; tr != nil {
			tr.tween.Stop()
			m.release(tr.out)
			m.release(tr.next)
			ch.trans = nil
		}
		m.release(ch.current)
		ch.current = nil
		ch.addr = ""
	}
	for h := range m.owners {
		m.release(h)
	}
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
