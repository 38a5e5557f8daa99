// Package memview is an in-memory view.Surface. It records what was mounted
// where so headless playback and tests can inspect the render tree.
package memview

import (
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"panelreel/internal/loop"
	"panelreel/internal/scene"
	"panelreel/internal/view"
)

// Options configures simulated asset behavior.
type Options struct {
	// Missing reports addresses that fail to preload.
	Missing func(addr string) bool
	// VideoDuration reports how long a video plays before it ends.
	// Zero or negative means the default.
	VideoDuration func(addr string) time.Duration
	// DefaultVideoDuration applies when VideoDuration is nil or unknown.
	DefaultVideoDuration time.Duration
	// ReadyDelay delays video readiness.
	ReadyDelay time.Duration
}

var nodeSeq atomic.Uint64

// Surface is the in-memory render tree of one page container.
type Surface struct {
	sched  loop.Scheduler
	opts   Options
	root   *Panel
	panels map[string]*Panel
	order  []string
	videos []*Video
}

// New constructs an empty surface.
func New(sched loop.Scheduler, opts Options) *Surface {
	if opts.DefaultVideoDuration <= 0 {
		opts.DefaultVideoDuration = 5 * time.Second
	}
	return &Surface{
		sched:  sched,
		opts:   opts,
		root:   newPanel("root"),
		panels: make(map[string]*Panel),
	}
}

func (s *Surface) MountLayout(panels []string) {
	s.clearNodes()
	s.panels = make(map[string]*Panel, len(panels))
	s.order = s.order[:0]
	for _, sel := range panels {
		if sel == "" {
			continue
		}
		if _, ok := s.panels[sel]; ok {
			continue
		}
		s.panels[sel] = newPanel(sel)
		s.order = append(s.order, sel)
	}
}

func (s *Surface) Panel(selector string) (view.Panel, bool) {
	p, ok := s.panels[selector]
	if !ok {
		return nil, false
	}
	return p, true
}

// MemPanel returns the concrete panel for inspection.
func (s *Surface) MemPanel(selector string) (*Panel, bool) {
	p, ok := s.panels[selector]
	return p, ok
}

// Layout returns the mounted panel selectors in layout order.
func (s *Surface) Layout() []string { return slices.Clone(s.order) }

func (s *Surface) Root() view.Panel { return s.root }

// MemRoot returns the concrete root panel.
func (s *Surface) MemRoot() *Panel { return s.root }

func (s *Surface) NewImage(addr string) view.Node {
	return newNode(view.NodeImage, addr)
}

func (s *Surface) NewVideo(addr string) view.Video {
	d := s.opts.DefaultVideoDuration
	if s.opts.VideoDuration != nil {
		if v := s.opts.VideoDuration(addr); v > 0 {
			d = v
		}
	}
	v := &Video{Node: newNode(view.NodeVideo, addr), sched: s.sched, duration: d, paused: true}
	s.videos = append(s.videos, v)
	s.sched.AfterFunc(s.opts.ReadyDelay, v.markReady)
	return v
}

func (s *Surface) NewCue(cue scene.Cue, text string) view.Node {
	n := newNode(view.NodeCue, cue.ID)
	n.Text = text
	n.Cue = cue
	return n
}

func (s *Surface) Preload(addr string, done func(error)) {
	missing := addr == "" || (s.opts.Missing != nil && s.opts.Missing(addr))
	s.sched.Post(func() {
		if missing {
			done(fmt.Errorf("preload %q: %w", addr, view.ErrAssetUnavailable))
			return
		}
		done(nil)
	})
}

func (s *Surface) Clear() {
	s.clearNodes()
	s.panels = make(map[string]*Panel)
	s.order = s.order[:0]
}

func (s *Surface) clearNodes() {
	for _, v := range s.videos {
		v.Pause()
	}
	s.videos = nil
	s.root.Clear()
	for _, p := range s.panels {
		p.Clear()
	}
}

// Playing returns every video currently playing.
func (s *Surface) Playing() []*Video {
	var out []*Video
	for _, v := range s.videos {
		if !v.paused {
			out = append(out, v)
		}
	}
	return out
}

// MountedCount returns the number of nodes mounted across all panels.
func (s *Surface) MountedCount() int {
	n := len(s.root.nodes)
	for _, p := range s.panels {
		n += len(p.nodes)
	}
	return n
}

// Panel records mounts and the peak number of simultaneous nodes.
type Panel struct {
	selector string
	nodes    []view.Node
	mounts   int
	peak     int
}

func newPanel(selector string) *Panel {
	return &Panel{selector: selector}
}

func (p *Panel) Selector() string { return p.selector }

func (p *Panel) Mount(n view.Node) {
	if slices.Contains(p.nodes, n) {
		return
	}
	p.nodes = append(p.nodes, n)
	p.mounts++
	if len(p.nodes) > p.peak {
		p.peak = len(p.nodes)
	}
}

func (p *Panel) Unmount(n view.Node) {
	if i := slices.Index(p.nodes, n); i >= 0 {
		p.nodes = slices.Delete(p.nodes, i, i+1)
	}
	if v, ok := n.(*Video); ok {
		v.Pause()
	}
}

func (p *Panel) Nodes() []view.Node { return slices.Clone(p.nodes) }

func (p *Panel) Clear() {
	for _, n := range p.nodes {
		if v, ok := n.(*Video); ok {
			v.Pause()
		}
	}
	p.nodes = nil
}

// Mounts counts every Mount call that added a node.
func (p *Panel) Mounts() int { return p.mounts }

// Peak is the maximum number of simultaneously mounted nodes.
func (p *Panel) Peak() int { return p.peak }

// Node is a mounted image, cue, or the base of a video.
type Node struct {
	id        string
	kind      view.NodeKind
	source    string
	opacity   float64
	transform view.Transform
	// Text and Cue are set for cue nodes.
	Text string
	Cue  scene.Cue
}

func newNode(kind view.NodeKind, source string) *Node {
	return &Node{
		id:        fmt.Sprintf("%s-%d", kind, nodeSeq.Add(1)),
		kind:      kind,
		source:    source,
		opacity:   1,
		transform: view.Neutral(),
	}
}

func (n *Node) ID() string                    { return n.id }
func (n *Node) Kind() view.NodeKind           { return n.kind }
func (n *Node) Source() string                { return n.source }
func (n *Node) Opacity() float64              { return n.opacity }
func (n *Node) SetOpacity(v float64)          { n.opacity = v }
func (n *Node) Transform() view.Transform     { return n.transform }
func (n *Node) SetTransform(t view.Transform) { n.transform = t }

// Video simulates native playback on the scheduler.
type Video struct {
	*Node
	sched    loop.Scheduler
	duration time.Duration
	position time.Duration
	started  time.Time
	paused   bool
	loop     bool
	ready    bool
	marker   string
	timer    loop.Timer
	onEnded  []func()
	onReady  []func()
}

func (v *Video) markReady() {
	v.ready = true
	callbacks := v.onReady
	v.onReady = nil
	for _, fn := range callbacks {
		fn()
	}
}

func (v *Video) Play() {
	if !v.paused {
		return
	}
	v.paused = false
	v.started = v.sched.Now()
	remaining := v.duration - v.position
	if remaining < 0 {
		remaining = 0
	}
	v.timer = v.sched.AfterFunc(remaining, v.reachEnd)
}

func (v *Video) reachEnd() {
	v.timer = nil
	if v.loop {
		v.position = 0
		v.started = v.sched.Now()
		v.timer = v.sched.AfterFunc(v.duration, v.reachEnd)
		return
	}
	v.paused = true
	v.position = v.duration
	for _, fn := range slices.Clone(v.onEnded) {
		fn()
	}
}

func (v *Video) Pause() {
	if v.paused {
		return
	}
	v.paused = true
	v.position += v.sched.Now().Sub(v.started)
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
}

func (v *Video) Paused() bool { return v.paused }

func (v *Video) Rewind() {
	playing := !v.paused
	v.Pause()
	v.position = 0
	if playing {
		v.Play()
	}
}

func (v *Video) SetLoop(loop bool) { v.loop = loop }
func (v *Video) Loop() bool        { return v.loop }

func (v *Video) OnEnded(fn func()) { v.onEnded = append(v.onEnded, fn) }

func (v *Video) OnReady(fn func()) {
	if v.ready {
		fn()
		return
	}
	v.onReady = append(v.onReady, fn)
}

func (v *Video) SetCueMarker(cueID string) { v.marker = cueID }
func (v *Video) CueMarker() string         { return v.marker }

// Position reports the playback position.
func (v *Video) Position() time.Duration {
	if v.paused {
		return v.position
	}
	return v.position + v.sched.Now().Sub(v.started)
}
