package dispatch_test

import (
	"slices"
	"strings"
	"testing"
	"time"

	"panelreel/internal/audio"
	"panelreel/internal/dispatch"
	"panelreel/internal/events"
	"panelreel/internal/media"
	"panelreel/internal/scene"
	"panelreel/internal/testsupport"
	"panelreel/internal/view"
	"panelreel/internal/view/memview"
)

var page = scene.PageRef{Series: "moon", Volume: "v1", Chapter: "c1", PageID: "p1"}

type completions struct {
	ids []string
}

func (c *completions) SignalCompletion(cueID string) { c.ids = append(c.ids, cueID) }

type fixture struct {
	h       *testsupport.Harness
	surface *memview.Surface
	d       *dispatch.Dispatcher
	done    *completions
}

func newFixture(t *testing.T, missing ...string) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	h := testsupport.NewHarness(t, cfg, testsupport.HarnessOptions{})
	surface := memview.New(h.Clock, memview.Options{
		Missing: func(addr string) bool {
			return slices.ContainsFunc(missing, func(m string) bool {
				return strings.HasSuffix(addr, "/"+m)
			})
		},
	})
	surface.MountLayout([]string{"#p1", "#p2"})
	return fixture{h: h, surface: surface, d: dispatch.New(h.PB, page, surface), done: &completions{}}
}

func (f fixture) start(cue scene.Cue) {
	f.h.PB.Bus.Publish(events.CueStarted{Page: page, Cue: cue, Estimated: 2 * time.Second, Completer: f.done})
}

func (f fixture) end(cue scene.Cue) {
	f.h.PB.Bus.Publish(events.CueEnded{Page: page, Cue: cue})
}

func (f fixture) panel(t *testing.T, sel string) *memview.Panel {
	t.Helper()
	p, ok := f.surface.MemPanel(sel)
	if !ok {
		t.Fatalf("panel %s missing", sel)
	}
	return p
}

func sources(p view.Panel) []string {
	var out []string
	for _, n := range p.Nodes() {
		out = append(out, n.Source())
	}
	return out
}

func (f fixture) addr(file string, typ media.AssetType) string {
	return f.h.PB.Resolver.Resolve(file, typ, page)
}

func TestImageSwapFadesOutThenIn(t *testing.T) {
	f := newFixture(t)
	p1 := f.panel(t, "#p1")
	old := f.surface.NewImage(f.addr("a.png", media.AssetImage))
	p1.Mount(old)

	f.start(scene.Cue{ID: "c", MediaActions: []scene.MediaAction{
		{Type: scene.ActionImage, Panel: "#p1", FileName: "b.png", TransitionMS: 400},
	}})

	f.h.Clock.Advance(399 * time.Millisecond)
	if got := sources(p1); len(got) != 1 || got[0] != old.Source() {
		t.Fatalf("expected only old content while fading out, got %v", got)
	}
	f.h.Clock.Advance(2 * time.Millisecond)
	next := f.addr("b.png", media.AssetImage)
	if got := sources(p1); len(got) != 1 || got[0] != next {
		t.Fatalf("expected new content after fade out, got %v", got)
	}
	f.h.Clock.Advance(500 * time.Millisecond)
	if top, _ := view.Top(p1); top.Opacity() != 1 {
		t.Fatalf("expected new content fully visible, got %v", top.Opacity())
	}

	changes := f.h.Recorder.Kind(events.KindPanelContentChanged)
	if len(changes) != 1 {
		t.Fatalf("expected one content change, got %d", len(changes))
	}
	ev := changes[0].Event.(events.PanelContentChanged)
	if ev.Panel != "#p1" || ev.Action != dispatch.ChangeSwap || ev.FileName != "b.png" {
		t.Fatalf("unexpected change event: %+v", ev)
	}
}

func TestCrossfadeOverlapsContent(t *testing.T) {
	f := newFixture(t)
	p1 := f.panel(t, "#p1")
	p1.Mount(f.surface.NewImage(f.addr("a.png", media.AssetImage)))

	f.start(scene.Cue{ID: "c", MediaActions: []scene.MediaAction{
		{Type: scene.ActionImage, Panel: "#p1", FileName: "b.png", Crossfade: true, TransitionMS: 400},
	}})

	f.h.Clock.Advance(200 * time.Millisecond)
	if n := len(p1.Nodes()); n != 2 {
		t.Fatalf("expected old and new content during crossfade, got %d nodes", n)
	}
	f.h.Clock.Advance(300 * time.Millisecond)
	if got := sources(p1); len(got) != 1 || got[0] != f.addr("b.png", media.AssetImage) {
		t.Fatalf("expected only new content after crossfade, got %v", got)
	}
	ev := f.h.Recorder.Kind(events.KindPanelContentChanged)[0].Event.(events.PanelContentChanged)
	if ev.Action != dispatch.ChangeCrossfade {
		t.Fatalf("expected crossfade change, got %q", ev.Action)
	}
}

func TestMissingImageKeepsPreviousContent(t *testing.T) {
	f := newFixture(t, "gone.png")
	p1 := f.panel(t, "#p1")
	old := f.surface.NewImage(f.addr("a.png", media.AssetImage))
	p1.Mount(old)

	f.start(scene.Cue{ID: "c", MediaActions: []scene.MediaAction{
		{Type: scene.ActionImage, Panel: "#p1", FileName: "gone.png", WaitForCompletion: true},
	}})
	f.h.Clock.Advance(time.Second)

	if got := sources(p1); len(got) != 1 || got[0] != old.Source() {
		t.Fatalf("expected previous content kept, got %v", got)
	}
	if len(f.done.ids) != 1 {
		t.Fatalf("expected failed swap to acknowledge completion, got %v", f.done.ids)
	}
	if n := len(f.h.Recorder.Kind(events.KindPanelContentChanged)); n != 0 {
		t.Fatalf("expected no content change, got %d", n)
	}
}

func TestMissingPanelIsNoop(t *testing.T) {
	f := newFixture(t)
	f.start(scene.Cue{ID: "c", MediaActions: []scene.MediaAction{
		{Type: scene.ActionImage, Panel: "#nowhere", FileName: "b.png", WaitForCompletion: true},
	}})
	if len(f.done.ids) != 1 || f.done.ids[0] != "c" {
		t.Fatalf("expected immediate acknowledgement, got %v", f.done.ids)
	}
	f.h.Clock.Advance(time.Second)
	if f.surface.MountedCount() != 0 {
		t.Fatalf("expected nothing mounted, got %d", f.surface.MountedCount())
	}
}

func TestBackgroundAudioRoutesToManager(t *testing.T) {
	f := newFixture(t)
	vol := 0.3
	f.start(scene.Cue{ID: "c", MediaActions: []scene.MediaAction{
		{Type: scene.ActionBackgroundAudio, FileName: "rain.mp3", Volume: &vol},
		{Type: scene.ActionAmbientAudio, FileName: "wind.mp3"},
	}})

	bg := f.h.PB.Audio.Channel(audio.ChannelBackground)
	if bg.Address != f.addr("rain.mp3", media.AssetAudio) || bg.Target != vol {
		t.Fatalf("unexpected background channel: %+v", bg)
	}
	amb := f.h.PB.Audio.Channel(audio.ChannelAmbient)
	if amb.Target != f.h.PB.Config.Audio.AmbientVolume {
		t.Fatalf("expected configured ambient volume, got %+v", amb)
	}
}

func TestPlaybackControlAndSyncToDialogue(t *testing.T) {
	f := newFixture(t)
	p2 := f.panel(t, "#p2")
	video := f.surface.NewVideo(f.addr("loop.mp4", media.AssetVideo)).(*memview.Video)
	video.SetLoop(true)
	p2.Mount(video)

	cue := scene.Cue{ID: "talk", MediaActions: []scene.MediaAction{
		{Type: scene.ActionVideo, Panel: "#p2", Playback: scene.PlaybackPlay, SyncToDialogue: true},
	}}
	f.start(cue)
	if video.Paused() || video.CueMarker() != "talk" {
		t.Fatalf("expected video playing with cue marker, paused=%v marker=%q", video.Paused(), video.CueMarker())
	}

	f.h.Clock.Advance(1500 * time.Millisecond)
	f.end(cue)
	if !video.Paused() || video.Position() != 0 || video.Loop() {
		t.Fatalf("expected synced video stopped and rewound, paused=%v pos=%v loop=%v",
			video.Paused(), video.Position(), video.Loop())
	}

	// A late resume is caught by the recheck.
	video.Play()
	f.h.Clock.Advance(time.Second)
	if !video.Paused() {
		t.Fatal("expected recheck to stop the resumed video")
	}
}

func TestToggleFlipsPlayback(t *testing.T) {
	f := newFixture(t)
	p2 := f.panel(t, "#p2")
	video := f.surface.NewVideo(f.addr("v.mp4", media.AssetVideo))
	p2.Mount(video)

	toggle := scene.Cue{ID: "t", MediaActions: []scene.MediaAction{
		{Type: scene.ActionVideo, Panel: "#p2", Playback: scene.PlaybackToggle},
	}}
	f.start(toggle)
	if video.Paused() {
		t.Fatal("expected toggle to start paused video")
	}
	f.start(toggle)
	if !video.Paused() {
		t.Fatal("expected second toggle to pause")
	}
}

func TestVideoSwapPlaysWhenReadyAndWaitsForEnd(t *testing.T) {
	f := newFixture(t)
	p1 := f.panel(t, "#p1")
	f.start(scene.Cue{ID: "clip", MediaActions: []scene.MediaAction{
		{Type: scene.ActionVideo, Panel: "#p1", FileName: "clip.mp4", TransitionMS: 100, WaitForCompletion: true},
	}})

	f.h.Clock.Advance(10 * time.Millisecond)
	video, ok := view.VideoIn(p1)
	if !ok {
		t.Fatal("expected video mounted")
	}
	if video.Paused() {
		t.Fatal("expected swapped video to autoplay once ready")
	}
	if len(f.done.ids) != 0 {
		t.Fatalf("expected completion to wait for video end, got %v", f.done.ids)
	}
	f.h.Clock.Advance(6 * time.Second)
	if len(f.done.ids) != 1 {
		t.Fatalf("expected completion after video end, got %v", f.done.ids)
	}
}

func TestPlaylistCompletionSignalsCue(t *testing.T) {
	f := newFixture(t)
	f.start(scene.Cue{ID: "slides", MediaActions: []scene.MediaAction{
		{
			Type:              scene.ActionPlaylist,
			Panel:             "#p1",
			GlobalDurationMS:  1000,
			TransitionMS:      200,
			WaitForCompletion: true,
			Items:             []scene.PlaylistItem{{FileName: "a.png"}, {FileName: "b.png"}},
		},
	}})

	if _, ok := f.d.Playlist("#p1"); !ok {
		t.Fatal("expected playlist bound to panel")
	}
	f.h.Clock.Advance(2500 * time.Millisecond)
	if len(f.done.ids) != 0 {
		t.Fatalf("expected playlist still running, got %v", f.done.ids)
	}
	f.h.Clock.Advance(200 * time.Millisecond)
	if len(f.done.ids) != 1 || f.done.ids[0] != "slides" {
		t.Fatalf("expected playlist completion, got %v", f.done.ids)
	}
	ev := f.h.Recorder.Kind(events.KindPanelContentChanged)[0].Event.(events.PanelContentChanged)
	if ev.Action != dispatch.ChangePlaylist {
		t.Fatalf("expected playlist change, got %q", ev.Action)
	}
}

func TestSwapDestroysPanelPlaylist(t *testing.T) {
	f := newFixture(t)
	f.start(scene.Cue{ID: "slides", MediaActions: []scene.MediaAction{
		{Type: scene.ActionPlaylist, Panel: "#p1", Loop: true, Items: []scene.PlaylistItem{{FileName: "a.png"}, {FileName: "b.png"}}},
	}})
	f.h.Clock.Advance(time.Second)
	pl, _ := f.d.Playlist("#p1")

	f.start(scene.Cue{ID: "still", MediaActions: []scene.MediaAction{
		{Type: scene.ActionImage, Panel: "#p1", FileName: "c.png"},
	}})
	if !pl.Done().Resolved() {
		t.Fatal("expected previous playlist destroyed")
	}
	if _, ok := f.d.Playlist("#p1"); ok {
		t.Fatal("expected playlist binding cleared")
	}
}

func TestEndTriggerAndCameraReset(t *testing.T) {
	f := newFixture(t)
	p1 := f.panel(t, "#p1")
	p1.Mount(f.surface.NewImage(f.addr("a.png", media.AssetImage)))

	cue := scene.Cue{ID: "zoom", MediaActions: []scene.MediaAction{
		{Type: scene.ActionImage, Panel: "#p1", Camera: &scene.CameraAction{Kind: scene.CameraZoom, DurationMS: 500, ResetOnEnd: true}},
		{Type: scene.ActionImage, Panel: "#p2", FileName: "after.png", Trigger: scene.TriggerEnd},
	}}
	f.start(cue)
	f.h.Clock.Advance(250 * time.Millisecond)
	top, _ := view.Top(p1)
	if top.Transform().IsNeutral() {
		t.Fatal("expected camera motion in progress")
	}
	if n := len(f.panel(t, "#p2").Nodes()); n != 0 {
		t.Fatalf("expected end action deferred, got %d nodes", n)
	}

	f.end(cue)
	if !top.Transform().IsNeutral() {
		t.Fatalf("expected camera reset on end, got %+v", top.Transform())
	}
	f.h.Clock.Advance(time.Second)
	if n := len(f.panel(t, "#p2").Nodes()); n != 1 {
		t.Fatalf("expected end-triggered swap, got %d nodes", n)
	}
}

func TestTeardownDestroysDispatcher(t *testing.T) {
	f := newFixture(t)
	f.start(scene.Cue{ID: "slides", MediaActions: []scene.MediaAction{
		{Type: scene.ActionPlaylist, Panel: "#p1", Loop: true, Items: []scene.PlaylistItem{{FileName: "a.png"}}},
	}})
	pl, _ := f.d.Playlist("#p1")

	f.h.PB.Bus.Publish(events.PageTeardown{Page: page})
	if !pl.Done().Resolved() {
		t.Fatal("expected teardown to stop playlists")
	}

	f.start(scene.Cue{ID: "late", MediaActions: []scene.MediaAction{
		{Type: scene.ActionImage, Panel: "#p2", FileName: "x.png"},
	}})
	f.h.Clock.Advance(time.Second)
	if n := len(f.panel(t, "#p2").Nodes()); n != 0 {
		t.Fatalf("expected destroyed dispatcher to ignore cues, got %d nodes", n)
	}
}

func TestDestroyStopsSwapFades(t *testing.T) {
	f := newFixture(t)
	p1 := f.panel(t, "#p1")
	old := f.surface.NewImage(f.addr("a.png", media.AssetImage))
	p1.Mount(old)

	f.start(scene.Cue{ID: "c", MediaActions: []scene.MediaAction{
		{Type: scene.ActionImage, Panel: "#p1", FileName: "b.png", TransitionMS: 400},
	}})
	f.h.Clock.Advance(200 * time.Millisecond)
	f.d.Destroy()
	opacity := old.Opacity()
	if opacity <= 0 || opacity >= 1 {
		t.Fatalf("expected fade in progress at destroy, opacity %v", opacity)
	}

	f.h.Clock.Advance(time.Second)
	if old.Opacity() != opacity {
		t.Fatalf("fade kept running after destroy: %v -> %v", opacity, old.Opacity())
	}
	if got := sources(p1); len(got) != 1 || got[0] != old.Source() {
		t.Fatalf("expected destroyed swap to leave the panel alone, got %v", got)
	}
}

func TestSuspendQuietsStartedMedia(t *testing.T) {
	f := newFixture(t)
	f.start(scene.Cue{ID: "c", MediaActions: []scene.MediaAction{
		{Type: scene.ActionVideo, Panel: "#p1", FileName: "loop.mp4", Loop: true, TransitionMS: 100},
		{Type: scene.ActionPlaylist, Panel: "#p2", Loop: true, GlobalDurationMS: 500, TransitionMS: 100,
			Items: []scene.PlaylistItem{{FileName: "a.png"}, {FileName: "b.png"}}},
	}})
	f.h.Clock.Advance(500 * time.Millisecond)
	if len(f.surface.Playing()) != 1 {
		t.Fatalf("expected swapped video playing, got %d", len(f.surface.Playing()))
	}
	pl, ok := f.d.Playlist("#p2")
	if !ok {
		t.Fatal("expected playlist bound to #p2")
	}

	f.d.Suspend()
	if n := len(f.surface.Playing()); n != 0 {
		t.Fatalf("expected no video playing after suspend, got %d", n)
	}
	if !pl.Done().Resolved() {
		t.Fatal("expected suspend to stop the playlist")
	}
	p2 := f.panel(t, "#p2")
	mounts := p2.Mounts()
	f.h.Clock.Advance(5 * time.Second)
	if p2.Mounts() != mounts {
		t.Fatalf("playlist kept cycling after suspend: %d -> %d mounts", mounts, p2.Mounts())
	}
	if n := len(f.surface.Playing()); n != 0 {
		t.Fatalf("expected videos to stay paused, got %d playing", n)
	}

	f.start(scene.Cue{ID: "again", MediaActions: []scene.MediaAction{
		{Type: scene.ActionImage, Panel: "#p2", FileName: "c.png", TransitionMS: 100},
	}})
	f.h.Clock.Advance(time.Second)
	top, ok := view.Top(p2)
	if !ok || top.Source() != f.addr("c.png", media.AssetImage) {
		t.Fatal("expected a suspended dispatcher to keep handling cues")
	}
}

func TestSuspendSettlesSwapFades(t *testing.T) {
	f := newFixture(t)
	p1 := f.panel(t, "#p1")
	p1.Mount(f.surface.NewImage(f.addr("a.png", media.AssetImage)))

	f.start(scene.Cue{ID: "c", MediaActions: []scene.MediaAction{
		{Type: scene.ActionImage, Panel: "#p1", FileName: "b.png", TransitionMS: 400},
	}})
	f.h.Clock.Advance(200 * time.Millisecond)
	f.d.Suspend()
	if n := len(p1.Nodes()); n != 0 {
		t.Fatalf("expected fading-out content removed on suspend, got %d nodes", n)
	}
	f.h.Clock.Advance(time.Second)
	if n := len(p1.Nodes()); n != 0 {
		t.Fatalf("expected the superseded fade-in to stay inert, got %d nodes", n)
	}
}

func TestOtherPagesIgnored(t *testing.T) {
	f := newFixture(t)
	other := scene.PageRef{Series: "moon", Volume: "v1", Chapter: "c1", PageID: "p2"}
	f.h.PB.Bus.Publish(events.CueStarted{Page: other, Cue: scene.Cue{ID: "x", MediaActions: []scene.MediaAction{
		{Type: scene.ActionImage, Panel: "#p1", FileName: "x.png"},
	}}})
	f.h.Clock.Advance(time.Second)
	if f.surface.MountedCount() != 0 {
		t.Fatal("expected events for other pages ignored")
	}
}
