package window

import (
	"time"

	"panelreel/internal/content"
	"panelreel/internal/dispatch"
	"panelreel/internal/epoch"
	"panelreel/internal/events"
	"panelreel/internal/logging"
	"panelreel/internal/loop"
	"panelreel/internal/media"
	"panelreel/internal/scene"
	"panelreel/internal/sequencer"
	"panelreel/internal/view"
)

// container is one reusable page slot.
type container struct {
	index   int
	page    scene.PageRef
	surface view.Surface

	abort       epoch.Counter
	state       PageState
	wantVisible bool
	visible     bool
	leaving     bool
	leaveUntil  time.Time

	snap     content.Snapshot
	audioMap []scene.AudioMapEntry
	seq      *sequencer.Sequencer
	disp     *dispatch.Dispatcher

	// videos holds binding videos by binding position; nil slots failed to load.
	videos     []view.Video
	anyLoop    bool
	boundReady bool
	chainPos   int
}

func (c *container) reset() {
	surface := c.surface
	*c = container{surface: surface, abort: c.abort}
}

// load fetches the page snapshot off the loop and attaches it. The returned
// signal resolves when the load settles, including when it is superseded.
func (m *Manager) load(c *container) *loop.Signal {
	tok := c.abort.Next()
	c.state = StatePreloading
	settled := loop.NewSignal()

	page := c.page
	ctx := m.ctx
	loader := m.loader
	m.pb.Sched.Spawn(func() func() {
		snap := loader.Page(ctx, page)
		audioMap := loader.AudioMap(ctx, page.Series, page.Volume)
		return func() {
			defer settled.Resolve()
			if !tok.Current() {
				m.logger.Debug("stale page load discarded",
					logging.String(logging.FieldPage, page.Key()),
					logging.Uint64(logging.FieldGeneration, tok.Generation()),
				)
				return
			}
			m.attach(c, snap, audioMap, tok)
		}
	})
	return settled
}

func (m *Manager) attach(c *container, snap content.Snapshot, audioMap []scene.AudioMapEntry, tok epoch.Token) {
	c.snap = snap
	c.audioMap = audioMap
	c.surface.MountLayout(snap.Layout)
	c.seq = sequencer.New(m.pb, c.page, snap.Cues, c.surface, m.opts.Sequencer)
	c.disp = dispatch.New(m.pb, c.page, c.surface)
	c.state = StateLoaded
	m.logger.Debug("page loaded",
		logging.String(logging.FieldPage, c.page.Key()),
		logging.Int("cues", len(snap.Cues)),
		logging.Int("panels", len(snap.Layout)),
	)
	m.mountBindings(c, tok)
	if c.wantVisible {
		m.show(c)
	}
}

// mountBindings preloads and mounts each panel's initial content. Videos
// become playable together once every binding has settled.
func (m *Manager) mountBindings(c *container, tok epoch.Token) {
	bindings := c.snap.Media.Media
	c.videos = make([]view.Video, len(bindings))
	c.boundReady = false
	remaining := len(bindings)
	settle := func() {
		remaining--
		if remaining > 0 {
			return
		}
		c.boundReady = true
		if c.visible {
			m.playVideos(c)
		}
	}
	if remaining == 0 {
		c.boundReady = true
		return
	}

	for i, b := range bindings {
		panel, ok := c.surface.Panel(b.Panel)
		assetType := media.AssetTypeFor(b.Type)
		if !ok || (b.Type != scene.ActionImage && b.Type != scene.ActionVideo) {
			m.pb.Sched.Post(tok.Guard(settle))
			continue
		}
		addr := m.pb.Resolver.Resolve(b.FileName, assetType, c.page)
		c.surface.Preload(addr, func(err error) {
			if !tok.Current() {
				return
			}
			defer settle()
			if err != nil {
				logging.WarnWithContext(m.logger, "panel binding unavailable", "binding_missing",
					logging.String(logging.FieldPage, c.page.Key()),
					logging.String(logging.FieldPanel, b.Panel),
					logging.String(logging.FieldAsset, addr),
					logging.Error(err),
					logging.String(logging.FieldImpact, "panel stays empty"),
				)
				return
			}
			if b.Type == scene.ActionImage {
				panel.Mount(c.surface.NewImage(addr))
				return
			}
			video := c.surface.NewVideo(addr)
			video.SetLoop(b.Loop && !c.snap.Media.SequentialVideoPlayback)
			if b.Loop {
				c.anyLoop = true
			}
			slot := i
			video.OnEnded(func() { m.videoEnded(c, slot, tok) })
			panel.Mount(video)
			c.videos[slot] = video
		})
	}
}

func (m *Manager) show(c *container) {
	c.wantVisible = true
	if c.visible {
		return
	}
	c.visible = true
	c.leaving = false
	m.pb.Bus.Publish(events.PageVisibility{Page: c.page, Index: c.index, Visible: true})
	m.backgroundFor(c)
	if c.boundReady {
		m.playVideos(c)
	}
	c.seq.Start()
}

// hide stops the page's sequence, the media its cues started, and its
// binding videos. A visible page that is leaving starts its exit transition.
func (m *Manager) hide(c *container, leaving bool) {
	c.wantVisible = false
	if !c.visible {
		return
	}
	c.visible = false
	if leaving {
		c.leaving = true
		c.leaveUntil = m.pb.Sched.Now().Add(m.opts.ExitTransition)
		tok := c.abort.Token()
		m.pb.Sched.AfterFunc(m.opts.ExitTransition, tok.Guard(func() {
			c.leaving = false
		}))
	}
	if c.seq != nil {
		c.seq.Cleanup()
	}
	if c.disp != nil {
		c.disp.Suspend()
	}
	m.pauseVideos(c)
	m.pb.Bus.Publish(events.PageVisibility{Page: c.page, Index: c.index, Visible: false})
}

func (m *Manager) playVideos(c *container) {
	if !c.snap.Media.SequentialVideoPlayback {
		for _, v := range c.videos {
			if v != nil {
				v.Play()
			}
		}
		return
	}
	m.playFrom(c, 0)
}

// playFrom starts the first loaded video at or after slot i.
func (m *Manager) playFrom(c *container, i int) {
	for ; i < len(c.videos); i++ {
		if v := c.videos[i]; v != nil {
			c.chainPos = i
			v.Rewind()
			v.Play()
			return
		}
	}
	if c.anyLoop && i > 0 {
		for j := range c.videos {
			if c.videos[j] != nil {
				m.playFrom(c, j)
				return
			}
		}
	}
}

func (m *Manager) videoEnded(c *container, slot int, tok epoch.Token) {
	if !tok.Current() || !c.visible || !c.snap.Media.SequentialVideoPlayback || slot != c.chainPos {
		return
	}
	m.playFrom(c, slot+1)
}

func (m *Manager) pauseVideos(c *container) {
	for _, v := range c.videos {
		if v != nil {
			v.Pause()
		}
	}
}
