package window

import (
	"context"
	"log/slog"
	"time"

	"panelreel/internal/audio"
	"panelreel/internal/config"
	"panelreel/internal/content"
	"panelreel/internal/epoch"
	"panelreel/internal/events"
	"panelreel/internal/logging"
	"panelreel/internal/loop"
	"panelreel/internal/media"
	"panelreel/internal/playback"
	"panelreel/internal/scene"
	"panelreel/internal/sequencer"
	"panelreel/internal/view"
	"panelreel/internal/view/memview"
)

// ProgressStore records the reader's position after each settled navigation.
type ProgressStore interface {
	SaveProgress(ctx context.Context, page scene.PageRef, index int) error
}

// Options configures a Manager.
type Options struct {
	// Radius is how many pages on each side of the current one stay warm.
	Radius         int
	ExitTransition time.Duration
	// NewSurface builds the render tree for a fresh container.
	NewSurface func() view.Surface
	Sequencer  sequencer.Options
	Progress   ProgressStore
}

// Manager owns the page containers. It must only be used from the loop.
type Manager struct {
	pb     *playback.Context
	loader *content.Loader
	pages  []scene.PageRef
	opts   Options
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	nav        epoch.Counter
	current    int
	containers map[int]*container
	pool       []*container
	closed     bool
}

// New constructs a manager over pages in reading order.
func New(pb *playback.Context, loader *content.Loader, pages []scene.PageRef, opts Options) *Manager {
	if opts.Radius < 0 {
		opts.Radius = 0
	}
	if opts.NewSurface == nil {
		sched := pb.Sched
		opts.NewSurface = func() view.Surface { return memview.New(sched, memview.Options{}) }
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		pb:         pb,
		loader:     loader,
		pages:      append([]scene.PageRef(nil), pages...),
		opts:       opts,
		logger:     logging.NewComponentLogger(pb.Logger, "window"),
		ctx:        ctx,
		cancel:     cancel,
		current:    -1,
		containers: make(map[int]*container),
	}
}

// OptionsFromContext derives manager options from the playback config.
func OptionsFromContext(pb *playback.Context) Options {
	return Options{
		Radius:         pb.Config.Window.Radius,
		ExitTransition: pb.Config.ExitTransition(),
		Sequencer:      sequencer.OptionsFromConfig(pb.Config),
	}
}

// Len returns the number of pages.
func (m *Manager) Len() int { return len(m.pages) }

// Pages returns the reading order.
func (m *Manager) Pages() []scene.PageRef { return append([]scene.PageRef(nil), m.pages...) }

// Current returns the visible page index, or -1 before the first navigation.
func (m *Manager) Current() int { return m.current }

// State reports page i's load state.
func (m *Manager) State(i int) PageState {
	if c, ok := m.containers[i]; ok {
		return c.state
	}
	return StateUnloaded
}

// Surface returns the render tree of a warmed page.
func (m *Manager) Surface(i int) (view.Surface, bool) {
	c, ok := m.containers[i]
	if !ok {
		return nil, false
	}
	return c.surface, true
}

// Sequencer returns the cue sequencer of a loaded page.
func (m *Manager) Sequencer(i int) (*sequencer.Sequencer, bool) {
	c, ok := m.containers[i]
	if !ok || c.seq == nil {
		return nil, false
	}
	return c.seq, true
}

// Snapshot lists every warmed page in index order.
func (m *Manager) Snapshot() []PageStatus {
	out := make([]PageStatus, 0, len(m.containers))
	for i := range m.pages {
		c, ok := m.containers[i]
		if !ok {
			continue
		}
		st := PageStatus{
			Index:   i,
			Page:    c.page,
			State:   c.state,
			Visible: c.visible,
			Leaving: c.leaving,
			Cue:     -1,
		}
		if c.seq != nil {
			st.Sequence = c.seq.State()
			st.Cue = c.seq.Index()
		}
		out = append(out, st)
	}
	return out
}

// Window returns the clamped index range warmed around n.
func (m *Manager) Window(n int) (lo, hi int) {
	lo, hi = n-m.opts.Radius, n+m.opts.Radius
	if lo < 0 {
		lo = 0
	}
	if last := len(m.pages) - 1; hi > last {
		hi = last
	}
	return lo, hi
}

// GoToPage makes page n visible. The returned signal resolves once the
// window's loads have settled and every page outside it has been purged, or
// immediately when a later navigation supersedes this one.
func (m *Manager) GoToPage(n int) *loop.Signal {
	if m.closed || len(m.pages) == 0 {
		return loop.Resolved()
	}
	if n < 0 {
		n = 0
	}
	if last := len(m.pages) - 1; n > last {
		n = last
	}
	tok := m.nav.Next()
	settled := loop.NewSignal()

	if prev := m.current; prev != n && prev >= 0 {
		if c, ok := m.containers[prev]; ok {
			m.hide(c, true)
		}
	}
	m.current = n
	m.logger.Info("navigating",
		logging.Int(logging.FieldPageIndex, n),
		logging.String(logging.FieldPage, m.pages[n].Key()),
		logging.Uint64(logging.FieldGeneration, tok.Generation()),
	)

	lo, hi := m.Window(n)
	loads := make([]*loop.Signal, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		c := m.container(i)
		visible := i == n
		if c.state == StateLoaded {
			if visible {
				m.show(c)
			} else if c.visible {
				m.hide(c, false)
			}
			loads = append(loads, loop.Resolved())
			continue
		}
		c.wantVisible = visible
		loads = append(loads, m.load(c))
	}

	loop.All(loads...).Then(func() {
		if !tok.Current() {
			m.logger.Debug("navigation superseded before settling",
				logging.Uint64(logging.FieldGeneration, tok.Generation()),
			)
			settled.Resolve()
			return
		}
		m.purgeOutside(lo, hi).Then(func() {
			settled.Resolve()
		})
		m.saveProgress(n)
	})
	return settled
}

// Close purges every page without waiting for exit transitions.
func (m *Manager) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.nav.Invalidate()
	for i, c := range m.containers {
		m.purge(i, c)
	}
	m.cancel()
}

func (m *Manager) container(i int) *container {
	if c, ok := m.containers[i]; ok {
		return c
	}
	var c *container
	if n := len(m.pool); n > 0 {
		c = m.pool[n-1]
		m.pool = m.pool[:n-1]
	} else {
		c = &container{surface: m.opts.NewSurface()}
	}
	c.index = i
	c.page = m.pages[i]
	m.containers[i] = c
	return c
}

// purgeOutside purges every container outside [lo, hi]. Purges of pages
// still in their exit transition are retried when it ends.
func (m *Manager) purgeOutside(lo, hi int) *loop.Signal {
	var pending []*loop.Signal
	for i, c := range m.containers {
		if i >= lo && i <= hi {
			continue
		}
		pending = append(pending, m.purgeWhenIdle(i, c))
	}
	return loop.All(pending...)
}

func (m *Manager) purgeWhenIdle(i int, c *container) *loop.Signal {
	done := loop.NewSignal()
	var attempt func()
	attempt = func() {
		if m.containers[i] != c || m.inWindow(i) {
			done.Resolve()
			return
		}
		if c.leaving {
			if remaining := c.leaveUntil.Sub(m.pb.Sched.Now()); remaining > 0 {
				m.logger.Debug("purge deferred until exit transition ends",
					logging.String(logging.FieldPage, c.page.Key()),
					logging.Duration("remaining", remaining),
				)
				m.pb.Sched.AfterFunc(remaining, attempt)
				return
			}
		}
		m.purge(i, c)
		done.Resolve()
	}
	attempt()
	return done
}

func (m *Manager) inWindow(i int) bool {
	if m.current < 0 || m.closed {
		return false
	}
	lo, hi := m.Window(m.current)
	return i >= lo && i <= hi
}

// purge tears the page down and returns its container to the pool.
func (m *Manager) purge(i int, c *container) {
	c.abort.Invalidate()
	if c.seq != nil {
		c.seq.Cleanup()
	}
	m.pb.Bus.Publish(events.PageTeardown{Page: c.page})
	released := m.pb.Audio.UnregisterAllForOwner(c.page.Key())
	c.surface.Clear()
	m.logger.Debug("page purged",
		logging.String(logging.FieldPage, c.page.Key()),
		logging.Int("audio_released", released),
	)
	c.reset()
	delete(m.containers, i)
	m.pool = append(m.pool, c)
}

func (m *Manager) saveProgress(n int) {
	store := m.opts.Progress
	if store == nil {
		return
	}
	page := m.pages[n]
	ctx := m.ctx
	m.pb.Sched.Spawn(func() func() {
		err := store.SaveProgress(ctx, page, n)
		if err == nil {
			return nil
		}
		return func() {
			logging.WarnWithContext(m.logger, "progress save failed", "progress_save_failed",
				logging.String(logging.FieldPage, page.Key()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "reading position not remembered"),
			)
		}
	})
}

func (m *Manager) backgroundFor(c *container) {
	audioCfg := m.pb.Config.Audio
	entry, ok := scene.MatchAudioMap(c.audioMap, c.page.PageID)
	if !ok {
		m.pb.Audio.StopChannel(audio.ChannelBackground, config.MS(audioCfg.FadeOutMS))
	} else {
		vol := entry.Volume
		if vol <= 0 {
			vol = audioCfg.BackgroundVolume
		}
		m.pb.Audio.PlayBackgroundAudio(m.pb.Resolver.Resolve(entry.FileName, media.AssetAudio, c.page), vol)
	}

	amb := c.snap.Media.AmbientAudio
	if amb == nil || amb.FileName == "" {
		m.pb.Audio.StopChannel(audio.ChannelAmbient, config.MS(audioCfg.FadeOutMS))
		return
	}
	vol := amb.Volume
	if vol <= 0 {
		vol = audioCfg.AmbientVolume
	}
	m.pb.Audio.PlayAmbientAudio(m.pb.Resolver.Resolve(amb.FileName, media.AssetAudio, c.page), vol)
}
