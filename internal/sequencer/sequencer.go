// Package sequencer walks a page's cues in display order, gating each one on
// its audio, its text duration, or external completion signals.
package sequencer

import (
	"log/slog"
	"time"

	"panelreel/internal/audio"
	"panelreel/internal/config"
	"panelreel/internal/epoch"
	"panelreel/internal/events"
	"panelreel/internal/logging"
	"panelreel/internal/loop"
	"panelreel/internal/playback"
	"panelreel/internal/scene"
	"panelreel/internal/view"
)

// Options tunes one sequencer. Zero durations take the playback config
// values.
type Options struct {
	Comic          bool
	InterCuePause  time.Duration
	SafetyMargin   time.Duration
	SafetyFallback time.Duration
	ImplicitAudio  bool
}

// OptionsFromConfig reads pacing from the [playback] section.
func OptionsFromConfig(cfg *config.Config) Options {
	pb := cfg.Playback
	return Options{
		Comic:          cfg.ComicMode(),
		InterCuePause:  config.MS(pb.InterCuePauseMS),
		SafetyMargin:   config.MS(pb.AudioSafetyMarginMS),
		SafetyFallback: config.MS(pb.AudioSafetyFallbackMS),
		ImplicitAudio:  pb.ImplicitAudio,
	}
}

type mounted struct {
	panel view.Panel
	node  view.Node
}

type gate struct {
	index     int
	cue       scene.Cue
	primary   bool
	remaining int
	ended     bool
	started   time.Time
	handle    audio.Handle
}

// Sequencer drives one page's cues. All methods must be called on the loop.
type Sequencer struct {
	pb      *playback.Context
	page    scene.PageRef
	cues    []scene.Cue
	surface view.Surface
	opts    Options
	logger  *slog.Logger

	gen     epoch.Counter
	tok     epoch.Token
	state   State
	index   int
	gate    *gate
	nodes   []mounted
	handles []audio.Handle
	timers  []loop.Timer
	done    *loop.Signal
}

// New constructs an idle sequencer over cues, which are ordered by display
// order with ties kept in array position.
func New(pb *playback.Context, page scene.PageRef, cues []scene.Cue, surface view.Surface, opts Options) *Sequencer {
	return &Sequencer{
		pb:      pb,
		page:    page,
		cues:    scene.SortByDisplayOrder(cues),
		surface: surface,
		opts:    opts,
		logger: logging.NewComponentLogger(pb.Logger, "sequencer").With(
			logging.String(logging.FieldPage, page.Key()),
		),
		index: -1,
		done:  loop.NewSignal(),
	}
}

// State reports the lifecycle position.
func (s *Sequencer) State() State { return s.state }

// Index reports the cue being rendered, -1 before the first.
func (s *Sequencer) Index() int { return s.index }

// Cues returns the ordered cue list.
func (s *Sequencer) Cues() []scene.Cue { return s.cues }

// Done resolves when the current run completes or is torn down.
func (s *Sequencer) Done() *loop.Signal { return s.done }

// Start begins a run if none is in progress.
func (s *Sequencer) Start() {
	if s.state.Running() {
		return
	}
	s.begin()
}

// Restart abandons any run in progress and starts again from the first cue.
func (s *Sequencer) Restart() {
	s.teardown()
	s.begin()
}

// Cleanup releases every mounted node, audio handle and timer and resolves
// Done. It is idempotent and safe from any state.
func (s *Sequencer) Cleanup() {
	s.teardown()
	s.state = StateIdle
	s.index = -1
}

// SignalCompletion acknowledges a waitForCompletion action of the current
// cue in the current run.
func (s *Sequencer) SignalCompletion(cueID string) {
	s.signal(s.tok, cueID)
}

func (s *Sequencer) begin() {
	if s.done.Resolved() {
		s.done = loop.NewSignal()
	}
	s.tok = s.gen.Next()
	s.logger.Debug("sequence started",
		logging.Uint64(logging.FieldGeneration, s.tok.Generation()),
		logging.Int("cues", len(s.cues)),
		logging.Bool("comic", s.opts.Comic),
	)
	if s.opts.Comic {
		s.renderAll(s.tok)
		return
	}
	s.render(0, s.tok)
}

func (s *Sequencer) teardown() {
	s.gen.Invalidate()
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	for _, h := range s.handles {
		s.pb.Audio.UnregisterAudio(h)
	}
	s.handles = nil
	for _, m := range s.nodes {
		m.panel.Unmount(m.node)
	}
	s.nodes = nil
	s.gate = nil
	s.done.Resolve()
}

func (s *Sequencer) after(d time.Duration, tok epoch.Token, fn func()) loop.Timer {
	t := s.pb.Sched.AfterFunc(d, tok.Guard(fn))
	s.timers = append(s.timers, t)
	return t
}

func (s *Sequencer) renderAll(tok epoch.Token) {
	s.state = StateRendering
	for i, cue := range s.cues {
		if !tok.Current() {
			return
		}
		s.index = i
		s.mountVisual(cue)
		s.pb.Bus.Publish(events.CueStarted{
			Page:      s.page,
			Cue:       cue,
			Index:     i,
			Completer: completer{s: s, tok: tok},
		})
	}
	if tok.Current() {
		s.complete()
	}
}

func (s *Sequencer) render(i int, tok epoch.Token) {
	if i >= len(s.cues) {
		s.complete()
		return
	}
	cue := s.cues[i]
	s.state = StateRendering
	s.index = i
	logger := s.logger.With(
		logging.String(logging.FieldCueID, cue.ID),
		logging.String(logging.FieldCueKind, string(cue.Kind)),
	)

	var handle audio.Handle
	addr, explicit := s.pb.Resolver.CueAudio(cue, s.page)
	if addr != "" && (explicit || s.opts.ImplicitAudio) {
		handle = s.pb.Audio.NewHandle(addr)
		s.pb.Audio.RegisterAudio(handle, s.page.Key(), true)
		s.handles = append(s.handles, handle)
	}

	s.mountVisual(cue)

	textDuration := s.pb.Timing.Estimate(cue)
	estimated := textDuration
	if handle != nil {
		if d, ok := handle.Duration(); ok {
			estimated = d
		}
	}

	g := &gate{index: i, cue: cue, remaining: cue.PendingCompletions(), started: s.pb.Sched.Now(), handle: handle}
	s.gate = g

	logger.Debug("cue started",
		logging.Int("index", i),
		logging.Duration("estimated", estimated),
		logging.Int("pending_completions", g.remaining),
	)
	s.pb.Bus.Publish(events.CueStarted{
		Page:      s.page,
		Cue:       cue,
		Index:     i,
		Estimated: estimated,
		Completer: completer{s: s, tok: tok},
	})
	if !tok.Current() {
		return
	}
	s.state = StateGating

	if handle == nil {
		s.after(textDuration, tok, func() { s.satisfyPrimary(tok, g) })
		return
	}

	safety := s.opts.SafetyFallback
	if d, ok := handle.Duration(); ok {
		safety = d + s.opts.SafetyMargin
	}
	safetyTimer := s.after(safety, tok, func() {
		logger.Debug("audio safety timeout", logging.Duration("after", safety))
		s.satisfyPrimary(tok, g)
	})
	handle.OnEnded(tok.Guard(func() { s.satisfyPrimary(tok, g) }))
	handle.OnError(func(err error) {
		if !tok.Current() || g.primary {
			return
		}
		if explicit {
			logging.WarnWithContext(logger, "cue audio failed", "cue_audio_error",
				logging.String(logging.FieldAsset, addr),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "verify the audioRef file exists"),
				logging.String(logging.FieldImpact, "cue advances without audio"),
			)
			s.satisfyPrimary(tok, g)
			return
		}
		// No voice file for this cue: hold it for the text duration instead.
		safetyTimer.Stop()
		remaining := textDuration - s.pb.Sched.Now().Sub(g.started)
		logger.Debug("implicit audio absent", logging.String(logging.FieldAsset, addr))
		s.after(remaining, tok, func() { s.satisfyPrimary(tok, g) })
	})
	handle.Play()
}

func (s *Sequencer) mountVisual(cue scene.Cue) {
	text := scene.StripExpressiveFlags(cue.Text)
	switch cue.Kind {
	case scene.KindPause:
		return
	case scene.KindSoundEffect:
		if text == "" {
			return
		}
	}
	target := s.surface.Root()
	if sel := cue.Placement.Panel; sel != "" {
		if p, ok := s.surface.Panel(sel); ok {
			target = p
		} else if cue.Kind == scene.KindSpeechBubble {
			s.logger.Debug("cue panel missing, mounting on root",
				logging.String(logging.FieldCueID, cue.ID),
				logging.String(logging.FieldPanel, sel),
			)
		}
	}
	node := s.surface.NewCue(cue, text)
	target.Mount(node)
	s.nodes = append(s.nodes, mounted{panel: target, node: node})
}

func (s *Sequencer) satisfyPrimary(tok epoch.Token, g *gate) {
	if !tok.Current() || s.gate != g || g.primary {
		return
	}
	g.primary = true
	s.maybeEnd(tok, g)
}

func (s *Sequencer) signal(tok epoch.Token, cueID string) {
	g := s.gate
	if !tok.Current() || g == nil || g.cue.ID != cueID || g.remaining == 0 {
		return
	}
	g.remaining--
	s.maybeEnd(tok, g)
}

func (s *Sequencer) maybeEnd(tok epoch.Token, g *gate) {
	if g.ended || !g.primary || g.remaining > 0 {
		return
	}
	g.ended = true
	s.state = StateAdvancing
	if g.handle != nil {
		s.pb.Audio.UnregisterAudio(g.handle)
		s.dropHandle(g.handle)
	}
	s.logger.Debug("cue ended",
		logging.String(logging.FieldCueID, g.cue.ID),
		logging.Int("index", g.index),
	)
	s.pb.Bus.Publish(events.CueEnded{Page: s.page, Cue: g.cue, Index: g.index})
	if !tok.Current() {
		return
	}
	if g.index+1 >= len(s.cues) {
		s.complete()
		return
	}
	s.after(s.opts.InterCuePause, tok, func() { s.render(g.index+1, tok) })
}

func (s *Sequencer) dropHandle(h audio.Handle) {
	for i, x := range s.handles {
		if x == h {
			s.handles = append(s.handles[:i], s.handles[i+1:]...)
			return
		}
	}
}

func (s *Sequencer) complete() {
	s.state = StateCompleted
	s.gate = nil
	s.logger.Debug("sequence completed", logging.Int("cues", len(s.cues)))
	s.done.Resolve()
}

// completer binds waitForCompletion acknowledgements to the run that
// emitted the cue.
type completer struct {
	s   *Sequencer
	tok epoch.Token
}

func (c completer) SignalCompletion(cueID string) {
	c.s.signal(c.tok, cueID)
}
