// Package playlist cycles one panel through an ordered list of images and
// videos.
package playlist

import (
	"log/slog"
	"time"

	"panelreel/internal/anim"
	"panelreel/internal/epoch"
	"panelreel/internal/logging"
	"panelreel/internal/loop"
	"panelreel/internal/view"
)

// Mode selects how consecutive items transition.
type Mode string

const (
	// ModeSequential fades the current item out completely before the next
	// one fades in.
	ModeSequential Mode = "sequential"
	// ModeOverlap fades the next item in while the current one fades out.
	ModeOverlap Mode = "overlap"
)

const (
	DefaultDuration   = 3000 * time.Millisecond
	DefaultTransition = 500 * time.Millisecond
)

// Item is one playlist entry with a resolved address.
type Item struct {
	Address    string
	Kind       view.NodeKind
	Duration   time.Duration
	Transition time.Duration
}

// Options configures a playlist.
type Options struct {
	Items             []Item
	Loop              bool
	DefaultDuration   time.Duration
	DefaultTransition time.Duration
	Mode              Mode
	Tick              time.Duration
	Logger            *slog.Logger
}

// Playlist drives one panel. It must only be used from the loop.
type Playlist struct {
	sched   loop.Scheduler
	panel   view.Panel
	surface view.Surface
	opts    Options
	logger  *slog.Logger

	gen     epoch.Counter
	done    *loop.Signal
	index   int
	current view.Node
	mounted []view.Node
	tweens  []*anim.Tween
	timer   loop.Timer
	playing bool
	closed  bool
	// misses counts consecutive items that failed to load.
	misses  int
}

// New constructs a playlist for panel. Nodes are created through surface.
func New(sched loop.Scheduler, panel view.Panel, surface view.Surface, opts Options) *Playlist {
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = DefaultDuration
	}
	if opts.DefaultTransition < 0 {
		opts.DefaultTransition = 0
	} else if opts.DefaultTransition == 0 {
		opts.DefaultTransition = DefaultTransition
	}
	if opts.Mode != ModeOverlap {
		opts.Mode = ModeSequential
	}
	logger := logging.NewComponentLogger(opts.Logger, "playlist")
	if panel != nil {
		logger = logger.With(logging.String(logging.FieldPanel, panel.Selector()))
	}
	return &Playlist{
		sched:   sched,
		panel:   panel,
		surface: surface,
		opts:    opts,
		logger:  logger,
		done:    loop.NewSignal(),
	}
}

// Play starts from the first item. The returned signal resolves when a
// non-looping playlist shows its last item to completion, or when the
// playlist is stopped or destroyed.
func (p *Playlist) Play() *loop.Signal {
	if p.closed || p.playing {
		return p.done
	}
	if len(p.opts.Items) == 0 || p.panel == nil {
		p.done.Resolve()
		return p.done
	}
	p.playing = true
	p.misses = 0
	p.show(0, p.gen.Next())
	return p.done
}

// Done returns the completion signal.
func (p *Playlist) Done() *loop.Signal { return p.done }

// Index reports the item currently shown.
func (p *Playlist) Index() int { return p.index }

// Stop cancels timers and transitions, unmounts every node the playlist
// mounted, and resolves the completion signal.
func (p *Playlist) Stop() {
	p.gen.Invalidate()
	p.playing = false
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	for _, tw := range p.tweens {
		tw.Stop()
	}
	p.tweens = nil
	if p.panel != nil {
		for _, n := range p.mounted {
			p.panel.Unmount(n)
		}
	}
	p.mounted = nil
	p.current = nil
	p.done.Resolve()
}

// Destroy stops the playlist permanently.
func (p *Playlist) Destroy() {
	p.Stop()
	p.closed = true
}

func (p *Playlist) item(i int) Item {
	it := p.opts.Items[i]
	if it.Duration <= 0 {
		it.Duration = p.opts.DefaultDuration
	}
	if it.Transition <= 0 {
		it.Transition = p.opts.DefaultTransition
	}
	if it.Kind == "" {
		it.Kind = view.NodeImage
	}
	return it
}

func (p *Playlist) show(i int, tok epoch.Token) {
	p.index = i
	it := p.item(i)
	p.surface.Preload(it.Address, func(err error) {
		if !tok.Current() {
			return
		}
		if err != nil {
			logging.WarnWithContext(p.logger, "playlist item unavailable", "playlist_item_missing",
				logging.String(logging.FieldAsset, it.Address),
				logging.Int("index", i),
				logging.Error(err),
				logging.String(logging.FieldImpact, "item skipped"),
			)
			p.misses++
			if p.misses >= len(p.opts.Items) {
				p.exhausted()
				return
			}
			p.advance(i, tok)
			return
		}
		p.misses = 0
		p.transitionTo(i, it, tok)
	})
}

func (p *Playlist) transitionTo(i int, it Item, tok epoch.Token) {
	var next view.Node
	var video view.Video
	if it.Kind == view.NodeVideo {
		video = p.surface.NewVideo(it.Address)
		video.SetLoop(false)
		next = video
	} else {
		next = p.surface.NewImage(it.Address)
	}
	next.SetOpacity(0)
	p.panel.Mount(next)
	p.mounted = append(p.mounted, next)

	prev := p.current
	p.current = next
	display := func() {
		if !tok.Current() {
			return
		}
		p.display(i, it, video, tok)
	}
	fadeIn := func(done func()) {
		p.fade(next, 0, 1, it.Transition, done)
	}

	switch {
	case prev == nil:
		fadeIn(display)
	case p.opts.Mode == ModeOverlap:
		p.fade(prev, prev.Opacity(), 0, it.Transition, nil)
		fadeIn(func() {
			p.remove(prev)
			display()
		})
	default:
		p.fade(prev, prev.Opacity(), 0, it.Transition, func() {
			if !tok.Current() {
				return
			}
			p.remove(prev)
			fadeIn(display)
		})
	}
}

func (p *Playlist) display(i int, it Item, video view.Video, tok epoch.Token) {
	if video != nil {
		video.OnEnded(func() {
			if tok.Current() {
				p.advance(i, tok)
			}
		})
		video.OnReady(func() {
			if tok.Current() {
				video.Play()
			}
		})
		return
	}
	p.timer = p.sched.AfterFunc(it.Duration, func() {
		p.timer = nil
		if tok.Current() {
			p.advance(i, tok)
		}
	})
}

func (p *Playlist) advance(i int, tok epoch.Token) {
	switch {
	case i+1 < len(p.opts.Items):
		p.show(i+1, tok)
	case p.opts.Loop:
		p.show(0, tok)
	default:
		p.playing = false
		p.logger.Debug("playlist finished", logging.Int("items", len(p.opts.Items)))
		p.done.Resolve()
	}
}

// exhausted ends playback after a full pass in which no item loaded.
// Whatever is already mounted stays on the panel.
func (p *Playlist) exhausted() {
	p.playing = false
	logging.WarnWithContext(p.logger, "playlist has no playable items", "playlist_exhausted",
		logging.Int("items", len(p.opts.Items)),
		logging.String(logging.FieldImpact, "panel keeps its current content"),
	)
	p.done.Resolve()
}

func (p *Playlist) fade(n view.Node, from, to float64, d time.Duration, done func()) {
	tw := anim.Ramp(p.sched, from, to, d, p.opts.Tick, n.SetOpacity, done)
	p.tweens = append(p.tweens, tw)
	p.pruneTweens()
}

func (p *Playlist) pruneTweens() {
	live := p.tweens[:0]
	for _, tw := range p.tweens {
		if tw.Active() {
			live = append(live, tw)
		}
	}
	p.tweens = live
}

func (p *Playlist) remove(n view.Node) {
	p.panel.Unmount(n)
	for i, m := range p.mounted {
		if m == n {
			p.mounted = append(p.mounted[:i], p.mounted[i+1:]...)
			break
		}
	}
}
