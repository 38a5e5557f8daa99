// Package dispatch interprets cue media actions against a page's panels.
//
// Routing, first match wins per action:
//
//  1. backgroundAudio / ambientAudio go straight to the audio manager.
//  2. An unresolvable panel is a no-op.
//  3. An action without content is a play/pause control on the panel's
//     existing video, with any camera motion applied to existing content.
//  4. Anything else swaps content: the panel's playlist is destroyed and the
//     action routes to the image, video or playlist handler.
//
// Actions declaring waitForCompletion acknowledge the owning cue once their
// effect has finished; actions that cannot run acknowledge immediately so a
// cue never waits on them.
package dispatch

import (
	"log/slog"
	"time"

	"panelreel/internal/anim"
	"panelreel/internal/camera"
	"panelreel/internal/config"
	"panelreel/internal/epoch"
	"panelreel/internal/events"
	"panelreel/internal/logging"
	"panelreel/internal/media"
	"panelreel/internal/playback"
	"panelreel/internal/playlist"
	"panelreel/internal/scene"
	"panelreel/internal/view"
)

// DefaultTransition is the swap fade length when an action declares none.
const DefaultTransition = 500 * time.Millisecond

// Action kinds reported in PanelContentChanged.
const (
	ChangeSwap      = "swap"
	ChangeCrossfade = "crossfade"
	ChangePlaylist  = "playlist"
)

// Dispatcher routes one page's media actions. It must be used on the loop.
type Dispatcher struct {
	pb      *playback.Context
	page    scene.PageRef
	surface view.Surface
	logger  *slog.Logger

	gen       epoch.Counter
	playlists map[string]*playlist.Playlist
	motions   map[string]*anim.Tween
	fades     []fade
	videos    []view.Video
	unsub     func()
}

// fade is a swap tween in flight. settle jumps its node to the end state.
type fade struct {
	tw     *anim.Tween
	settle func()
}

// New constructs a dispatcher and subscribes it to the page's cue events.
// A PageTeardown for the page destroys it.
func New(pb *playback.Context, page scene.PageRef, surface view.Surface) *Dispatcher {
	d := &Dispatcher{
		pb:      pb,
		page:    page,
		surface: surface,
		logger: logging.NewComponentLogger(pb.Logger, "dispatch").With(
			logging.String(logging.FieldPage, page.Key()),
		),
		playlists: make(map[string]*playlist.Playlist),
		motions:   make(map[string]*anim.Tween),
	}
	d.gen.Next()
	d.unsub = pb.Bus.SubscribePage(page.Key(), d.handle)
	return d
}

func (d *Dispatcher) handle(ev events.Event) {
	switch e := ev.(type) {
	case events.CueStarted:
		d.OnCueStarted(e.Cue, e.Estimated, e.Completer)
	case events.CueEnded:
		d.OnCueEnded(e.Cue)
	case events.PageTeardown:
		d.Destroy()
	}
}

// OnCueStarted runs the cue's start-triggered actions.
func (d *Dispatcher) OnCueStarted(cue scene.Cue, estimated time.Duration, completer events.Completer) {
	tok := d.gen.Token()
	for _, action := range cue.MediaActions {
		if action.TriggerOrDefault() != scene.TriggerStart {
			continue
		}
		finish := func() {}
		if action.WaitForCompletion && completer != nil {
			id := cue.ID
			fired := false
			finish = func() {
				if fired || !tok.Current() {
					return
				}
				fired = true
				completer.SignalCompletion(id)
			}
		}
		d.route(action, cue, estimated, tok, finish)
	}
}

// OnCueEnded runs end-triggered actions, resets cameras that asked for it,
// and force-stops videos synced to the cue.
func (d *Dispatcher) OnCueEnded(cue scene.Cue) {
	tok := d.gen.Token()
	for _, action := range cue.MediaActions {
		if action.TriggerOrDefault() == scene.TriggerEnd {
			d.route(action, cue, 0, tok, func() {})
		}
		if action.Camera != nil && action.Camera.ResetOnEnd {
			d.resetCamera(action.Panel)
		}
		if action.SyncToDialogue {
			d.stopSynced(cue.ID, tok)
		}
	}
}

// Suspend quiets a page that stays mounted but is no longer visible. Videos
// it started pause, playlists and camera motion stop, and swap fades jump to
// their end state. The dispatcher keeps handling cue events afterwards.
func (d *Dispatcher) Suspend() {
	d.gen.Invalidate()
	d.halt(true)
	for _, v := range d.videos {
		v.Pause()
	}
}

// Destroy stops every playlist, motion and fade and unsubscribes. Pending
// continuations become inert.
func (d *Dispatcher) Destroy() {
	d.gen.Invalidate()
	d.halt(false)
	d.videos = nil
	if d.unsub != nil {
		d.unsub()
		d.unsub = nil
	}
}

func (d *Dispatcher) halt(settle bool) {
	for sel, pl := range d.playlists {
		pl.Destroy()
		delete(d.playlists, sel)
	}
	for sel, tw := range d.motions {
		tw.Stop()
		delete(d.motions, sel)
	}
	fades := d.fades
	d.fades = nil
	for _, f := range fades {
		if !f.tw.Active() {
			continue
		}
		f.tw.Stop()
		if settle {
			f.settle()
		}
	}
}

// Playlist returns the active playlist bound to a panel.
func (d *Dispatcher) Playlist(selector string) (*playlist.Playlist, bool) {
	pl, ok := d.playlists[selector]
	return pl, ok
}

func (d *Dispatcher) route(action scene.MediaAction, cue scene.Cue, estimated time.Duration, tok epoch.Token, finish func()) {
	if action.Type.IsAudio() {
		d.routeAudio(action)
		finish()
		return
	}

	panel, ok := d.surface.Panel(action.Panel)
	if !ok {
		d.logger.Debug("media action panel missing",
			logging.String(logging.FieldPanel, action.Panel),
			logging.String(logging.FieldCueID, cue.ID),
		)
		finish()
		return
	}

	if !action.IsSwap() {
		d.control(panel, action, cue, estimated)
		finish()
		return
	}

	if pl, ok := d.playlists[action.Panel]; ok {
		pl.Destroy()
		delete(d.playlists, action.Panel)
	}
	switch action.Type {
	case scene.ActionImage:
		d.swapImage(panel, action, estimated, tok, finish)
	case scene.ActionVideo:
		d.swapVideo(panel, action, cue, estimated, tok, finish)
	case scene.ActionPlaylist:
		d.startPlaylist(panel, action, tok, finish)
	default:
		finish()
	}
}

func (d *Dispatcher) routeAudio(action scene.MediaAction) {
	audioCfg := d.pb.Config.Audio
	addr := d.pb.Resolver.Resolve(action.FileName, media.AssetAudio, d.page)
	switch action.Type {
	case scene.ActionBackgroundAudio:
		d.pb.Audio.PlayBackgroundAudio(addr, volumeOr(action.Volume, audioCfg.BackgroundVolume))
	case scene.ActionAmbientAudio:
		d.pb.Audio.PlayAmbientAudio(addr, volumeOr(action.Volume, audioCfg.AmbientVolume))
	}
}

func (d *Dispatcher) control(panel view.Panel, action scene.MediaAction, cue scene.Cue, estimated time.Duration) {
	if action.Camera != nil {
		if node, ok := contentTop(panel); ok {
			d.applyCamera(panel.Selector(), node, *action.Camera, estimated)
		}
	}
	video, ok := view.VideoIn(panel)
	if !ok {
		return
	}
	d.track(video)
	switch action.Playback {
	case scene.PlaybackPause:
		video.Pause()
	case scene.PlaybackToggle:
		if video.Paused() {
			video.SetCueMarker(cue.ID)
			video.Play()
		} else {
			video.Pause()
		}
	default:
		if action.Camera != nil && action.Playback == "" {
			return
		}
		video.SetCueMarker(cue.ID)
		video.Play()
	}
}

func (d *Dispatcher) swapImage(panel view.Panel, action scene.MediaAction, estimated time.Duration, tok epoch.Token, finish func()) {
	addr := d.pb.Resolver.Resolve(action.FileName, media.AssetImage, d.page)
	d.surface.Preload(addr, func(err error) {
		if !tok.Current() {
			return
		}
		if err != nil {
			d.assetMissing(action, addr, err)
			finish()
			return
		}
		node := d.surface.NewImage(addr)
		d.replace(panel, node, action, func() {
			if action.Camera != nil {
				d.applyCamera(panel.Selector(), node, *action.Camera, estimated)
			}
		}, finish)
		d.changed(panel, action)
	})
}

func (d *Dispatcher) swapVideo(panel view.Panel, action scene.MediaAction, cue scene.Cue, estimated time.Duration, tok epoch.Token, finish func()) {
	addr := d.pb.Resolver.Resolve(action.FileName, media.AssetVideo, d.page)
	d.surface.Preload(addr, func(err error) {
		if !tok.Current() {
			return
		}
		if err != nil {
			d.assetMissing(action, addr, err)
			finish()
			return
		}
		video := d.surface.NewVideo(addr)
		video.SetLoop(action.Loop)
		video.SetCueMarker(cue.ID)
		d.track(video)
		if action.WaitForCompletion && !action.Loop {
			video.OnEnded(finish)
		}
		d.replace(panel, video, action, func() {
			video.OnReady(func() {
				if !tok.Current() {
					return
				}
				video.Play()
				if action.Camera != nil {
					d.applyCamera(panel.Selector(), video, *action.Camera, estimated)
				}
			})
		}, func() {
			if !action.WaitForCompletion || action.Loop {
				finish()
			}
		})
		d.changed(panel, action)
	})
}

func (d *Dispatcher) startPlaylist(panel view.Panel, action scene.MediaAction, tok epoch.Token, finish func()) {
	items := make([]playlist.Item, 0, len(action.Items))
	for _, it := range action.Items {
		kind := view.NodeImage
		assetType := media.AssetImage
		if it.Type == scene.ActionVideo {
			kind = view.NodeVideo
			assetType = media.AssetVideo
		}
		items = append(items, playlist.Item{
			Address:    d.pb.Resolver.Resolve(it.FileName, assetType, d.page),
			Kind:       kind,
			Duration:   config.MS(it.DurationMS),
			Transition: config.MS(it.TransitionMS),
		})
	}
	old := contentNodes(panel)
	pl := playlist.New(d.pb.Sched, panel, d.surface, playlist.Options{
		Items:             items,
		Loop:              action.Loop,
		DefaultDuration:   config.MS(action.GlobalDurationMS),
		DefaultTransition: config.MS(action.TransitionMS),
		Mode:              playlist.Mode(action.TransitionMode),
		Tick:              config.MS(d.pb.Config.Audio.TickMS),
		Logger:            d.pb.Logger,
	})
	d.playlists[panel.Selector()] = pl
	d.fadeOutAll(panel, old, transitionOf(action), nil)
	done := pl.Play()
	d.changed(panel, action)
	done.Then(func() {
		if tok.Current() {
			finish()
		}
	})
}

// replace mounts next over the panel's current content. Without crossfade
// the old content fades out first; with it both fades overlap. ready runs
// once next is mounted and finish once it is fully visible.
func (d *Dispatcher) replace(panel view.Panel, next view.Node, action scene.MediaAction, ready, finish func()) {
	old := contentNodes(panel)
	t := transitionOf(action)
	tick := config.MS(d.pb.Config.Audio.TickMS)
	tok := d.gen.Token()

	fadeIn := func() {
		if !tok.Current() {
			return
		}
		next.SetOpacity(0)
		panel.Mount(next)
		ready()
		tw := anim.Ramp(d.pb.Sched, 0, 1, t, tick, next.SetOpacity, finish)
		d.trackFade(tw, func() { next.SetOpacity(1) })
	}

	if len(old) == 0 {
		fadeIn()
		return
	}
	if action.Crossfade {
		fadeIn()
		d.fadeOutAll(panel, old, t, nil)
		return
	}
	d.fadeOutAll(panel, old, t, fadeIn)
}

func (d *Dispatcher) fadeOutAll(panel view.Panel, nodes []view.Node, t time.Duration, then func()) {
	if len(nodes) == 0 {
		if then != nil {
			then()
		}
		return
	}
	tick := config.MS(d.pb.Config.Audio.TickMS)
	remaining := len(nodes)
	for _, n := range nodes {
		tw := anim.Ramp(d.pb.Sched, n.Opacity(), 0, t, tick, n.SetOpacity, func() {
			panel.Unmount(n)
			remaining--
			if remaining == 0 && then != nil {
				then()
			}
		})
		d.trackFade(tw, func() {
			n.SetOpacity(0)
			panel.Unmount(n)
		})
	}
}

func (d *Dispatcher) trackFade(tw *anim.Tween, settle func()) {
	live := d.fades[:0]
	for _, f := range d.fades {
		if f.tw.Active() {
			live = append(live, f)
		}
	}
	d.fades = live
	if tw.Active() {
		d.fades = append(d.fades, fade{tw: tw, settle: settle})
	}
}

func (d *Dispatcher) applyCamera(selector string, node view.Node, action scene.CameraAction, estimated time.Duration) {
	if tw, ok := d.motions[selector]; ok {
		tw.Stop()
	}
	tick := config.MS(d.pb.Config.Audio.TickMS)
	if tw := camera.Apply(d.pb.Sched, node, action, estimated, tick, nil); tw != nil {
		d.motions[selector] = tw
	}
}

func (d *Dispatcher) resetCamera(selector string) {
	panel, ok := d.surface.Panel(selector)
	if !ok {
		return
	}
	if tw, ok := d.motions[selector]; ok {
		tw.Stop()
		delete(d.motions, selector)
	}
	for _, n := range contentNodes(panel) {
		camera.Reset(n)
	}
}

func (d *Dispatcher) stopSynced(cueID string, tok epoch.Token) {
	var synced []view.Video
	for _, v := range d.videos {
		if v.CueMarker() == cueID {
			forceStop(v)
			synced = append(synced, v)
		}
	}
	if len(synced) == 0 {
		return
	}
	recheck := config.MS(d.pb.Config.Playback.SyncStopRecheckMS)
	d.pb.Sched.AfterFunc(recheck, tok.Guard(func() {
		for _, v := range synced {
			if !v.Paused() {
				d.logger.Debug("synced video resumed late, stopping again",
					logging.String(logging.FieldCueID, cueID),
				)
				forceStop(v)
			}
		}
	}))
}

func forceStop(v view.Video) {
	v.SetLoop(false)
	v.Pause()
	v.Rewind()
}

func (d *Dispatcher) track(v view.Video) {
	for _, existing := range d.videos {
		if existing == v {
			return
		}
	}
	d.videos = append(d.videos, v)
}

func (d *Dispatcher) changed(panel view.Panel, action scene.MediaAction) {
	kind := ChangeSwap
	switch {
	case action.Type == scene.ActionPlaylist:
		kind = ChangePlaylist
	case action.Crossfade:
		kind = ChangeCrossfade
	}
	d.pb.Bus.Publish(events.PanelContentChanged{
		Page:     d.page,
		Panel:    panel.Selector(),
		Type:     action.Type,
		FileName: action.FileName,
		Action:   kind,
	})
}

func (d *Dispatcher) assetMissing(action scene.MediaAction, addr string, err error) {
	logging.WarnWithContext(d.logger, "media action asset unavailable", "media_asset_missing",
		logging.String(logging.FieldPanel, action.Panel),
		logging.String(logging.FieldAsset, addr),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "verify the media file exists for this page"),
		logging.String(logging.FieldImpact, "panel keeps its previous content"),
	)
}

// contentNodes returns the panel's media nodes, skipping cue overlays.
func contentNodes(panel view.Panel) []view.Node {
	var out []view.Node
	for _, n := range panel.Nodes() {
		if n.Kind() != view.NodeCue {
			out = append(out, n)
		}
	}
	return out
}

func contentTop(panel view.Panel) (view.Node, bool) {
	nodes := contentNodes(panel)
	if len(nodes) == 0 {
		return nil, false
	}
	return nodes[len(nodes)-1], true
}

func transitionOf(action scene.MediaAction) time.Duration {
	if action.TransitionMS > 0 {
		return config.MS(action.TransitionMS)
	}
	return DefaultTransition
}

func volumeOr(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}
