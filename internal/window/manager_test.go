package window_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"panelreel/internal/audio"
	"panelreel/internal/content"
	"panelreel/internal/events"
	"panelreel/internal/media"
	"panelreel/internal/scene"
	"panelreel/internal/sequencer"
	"panelreel/internal/testsupport"
	"panelreel/internal/view"
	"panelreel/internal/view/memview"
	"panelreel/internal/window"
)

type fixture struct {
	h       *testsupport.Harness
	present map[string]bool
	src     *testsupport.FakeSource
	pages   []scene.PageRef
	m       *window.Manager
}

type fixtureOpts struct {
	pages    int
	latency  time.Duration
	progress window.ProgressStore
	setup    func(src *testsupport.FakeSource, pages []scene.PageRef)
}

func newFixture(t *testing.T, o fixtureOpts) fixture {
	t.Helper()
	if o.pages == 0 {
		o.pages = 5
	}
	cfg := testsupport.NewConfig(t)
	present := map[string]bool{}
	h := testsupport.NewHarness(t, cfg, testsupport.HarnessOptions{PresentAudio: present})
	h.Clock.Latency = o.latency

	pages := testsupport.Pages("moon", "v1", o.pages)
	src := testsupport.NewFakeSource(pages...)
	for _, p := range pages {
		src.SetScene(p, []scene.Cue{{ID: "rest-" + p.PageID, Kind: scene.KindPause, DurationMS: 1000}})
	}
	if o.setup != nil {
		o.setup(src, pages)
	}

	opts := window.OptionsFromContext(h.PB)
	opts.Progress = o.progress
	m := window.New(h.PB, content.NewLoader(src, content.NewCache(), nil), pages, opts)
	t.Cleanup(m.Close)
	return fixture{h: h, present: present, src: src, pages: pages, m: m}
}

func (f fixture) settle(t *testing.T, n int) {
	t.Helper()
	done := f.m.GoToPage(n)
	f.h.Clock.RunUntilIdle()
	for i := 0; i < 100 && !done.Resolved(); i++ {
		f.h.Clock.Advance(50 * time.Millisecond)
	}
	if !done.Resolved() {
		t.Fatalf("navigation to %d never settled", n)
	}
}

func loadedSet(m *window.Manager) []int {
	var out []int
	for i := 0; i < m.Len(); i++ {
		if m.State(i) == window.StateLoaded {
			out = append(out, i)
		}
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestWindowInvariantAfterSettle(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	tests := []struct {
		target int
		want   []int
	}{
		{target: 2, want: []int{1, 2, 3}},
		{target: 4, want: []int{3, 4}},
		{target: 0, want: []int{0, 1}},
		{target: 9, want: []int{3, 4}},
	}
	for _, tc := range tests {
		f.settle(t, tc.target)
		if got := loadedSet(f.m); !equalInts(got, tc.want) {
			t.Fatalf("after GoToPage(%d): loaded %v, want %v", tc.target, got, tc.want)
		}
	}
	if f.m.Current() != 4 {
		t.Fatalf("expected clamp to last page, got %d", f.m.Current())
	}
}

func TestLeavingPagePurgeWaitsForExitTransition(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	f.settle(t, 1)

	exit := f.h.PB.Config.ExitTransition()
	done := f.m.GoToPage(4)
	f.h.Clock.RunUntilIdle()
	if done.Resolved() {
		t.Fatal("expected navigation to wait for the leaving page")
	}
	if f.m.State(0) != window.StateUnloaded {
		t.Fatal("expected page 0 purged immediately")
	}
	if f.m.State(1) != window.StateLoaded {
		t.Fatal("expected leaving page 1 kept mid-transition")
	}

	f.h.Clock.Advance(exit)
	if !done.Resolved() {
		t.Fatal("expected navigation settled after exit transition")
	}
	if got := loadedSet(f.m); !equalInts(got, []int{3, 4}) {
		t.Fatalf("unexpected loaded set %v", got)
	}
}

func TestRapidNavigationLeavesFirstTargetInactive(t *testing.T) {
	f := newFixture(t, fixtureOpts{latency: 100 * time.Millisecond})

	first := f.m.GoToPage(0)
	second := f.m.GoToPage(3)
	f.h.Clock.Advance(100 * time.Millisecond)

	if !first.Resolved() || !second.Resolved() {
		t.Fatal("expected both navigations settled")
	}
	for _, rec := range f.h.Recorder.Kind(events.KindCueStarted) {
		if rec.Event.PageKey() == f.pages[0].Key() {
			t.Fatal("first target started its sequence")
		}
	}
	if _, ok := f.m.Sequencer(0); ok {
		t.Fatal("expected first target purged")
	}
	seq, ok := f.m.Sequencer(3)
	if !ok || !seq.State().Running() {
		t.Fatalf("expected page 3 sequence running")
	}

	visible := 0
	for _, st := range f.m.Snapshot() {
		if st.Visible {
			visible++
			if st.Index != 3 {
				t.Fatalf("unexpected visible page %d", st.Index)
			}
		}
	}
	if visible != 1 {
		t.Fatalf("expected exactly one visible page, got %d", visible)
	}
}

func TestNavigationStopsPreviousSequence(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	f.settle(t, 1)
	seq, _ := f.m.Sequencer(1)
	if !seq.State().Running() {
		t.Fatal("expected visible page sequence running")
	}

	f.settle(t, 2)
	if seq.State() != sequencer.StateIdle {
		t.Fatalf("expected hidden page sequence idle, got %v", seq.State())
	}

	vis := f.h.Recorder.Kind(events.KindPageVisibility)
	var last events.PageVisibility
	for _, r := range vis {
		ev := r.Event.(events.PageVisibility)
		if ev.Page == f.pages[1] {
			last = ev
		}
	}
	if last.Visible {
		t.Fatal("expected page 1 hidden notification")
	}
}

func TestPurgeTearsDownPage(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	f.settle(t, 0)
	f.settle(t, 3)
	f.h.Clock.Advance(time.Second)

	torn := map[string]bool{}
	for _, r := range f.h.Recorder.Kind(events.KindPageTeardown) {
		torn[r.Event.PageKey()] = true
	}
	if !torn[f.pages[0].Key()] || !torn[f.pages[1].Key()] {
		t.Fatalf("expected pages 0 and 1 torn down, got %v", torn)
	}
	if n := f.h.PB.Audio.Registered(f.pages[0].Key()); n != 0 {
		t.Fatalf("expected page audio released, got %d handles", n)
	}
}

func TestVisiblePageSelectsChannels(t *testing.T) {
	f := newFixture(t, fixtureOpts{
		pages: 3,
		setup: func(src *testsupport.FakeSource, pages []scene.PageRef) {
			src.SetAudioMap("moon", "v1", []scene.AudioMapEntry{{FileName: "volume:calm.mp3", Pages: []string{"p1", "p2"}, Volume: 0.5}})
			src.SetMedia(pages[0], scene.PageMedia{AmbientAudio: &scene.AmbientAudio{FileName: "rain.mp3"}})
		},
	})
	calm := f.h.PB.Resolver.Resolve("volume:calm.mp3", media.AssetAudio, f.pages[0])
	rain := f.h.PB.Resolver.Resolve("rain.mp3", media.AssetAudio, f.pages[0])
	f.present[calm] = true
	f.present[rain] = true

	f.settle(t, 0)
	bg := f.h.PB.Audio.Channel(audio.ChannelBackground)
	if bg.Address != calm || bg.Target != 0.5 {
		t.Fatalf("unexpected background: %+v", bg)
	}
	if amb := f.h.PB.Audio.Channel(audio.ChannelAmbient); amb.Address != rain {
		t.Fatalf("unexpected ambient: %+v", amb)
	}
	f.h.Clock.Advance(5 * time.Second)

	f.settle(t, 1)
	if bg := f.h.PB.Audio.Channel(audio.ChannelBackground); bg.Address != calm || bg.Transitioning {
		t.Fatalf("expected shared track to continue, got %+v", bg)
	}
	f.h.Clock.Advance(5 * time.Second)
	if amb := f.h.PB.Audio.Channel(audio.ChannelAmbient); amb.Address != "" {
		t.Fatalf("expected ambient stopped on page without ambient audio, got %+v", amb)
	}

	f.settle(t, 2)
	f.h.Clock.Advance(5 * time.Second)
	if bg := f.h.PB.Audio.Channel(audio.ChannelBackground); bg.Address != "" {
		t.Fatalf("expected background stopped without audio map match, got %+v", bg)
	}
}

func videoBindings(sequential bool, files ...string) scene.PageMedia {
	m := scene.PageMedia{SequentialVideoPlayback: sequential}
	for i, f := range files {
		m.Media = append(m.Media, scene.MediaBinding{Panel: "#v" + string(rune('1'+i)), Type: scene.ActionVideo, FileName: f})
	}
	return m
}

func videosOf(t *testing.T, m *window.Manager, i int) []view.Video {
	t.Helper()
	s, ok := m.Surface(i)
	if !ok {
		t.Fatalf("page %d not warmed", i)
	}
	var out []view.Video
	for _, sel := range []string{"#v1", "#v2"} {
		p, ok := s.Panel(sel)
		if !ok {
			continue
		}
		if v, ok := view.VideoIn(p); ok {
			out = append(out, v)
		}
	}
	return out
}

func TestVideosAutoplayOnlyWhenVisible(t *testing.T) {
	f := newFixture(t, fixtureOpts{
		pages: 2,
		setup: func(src *testsupport.FakeSource, pages []scene.PageRef) {
			src.SetMedia(pages[0], videoBindings(false, "a.mp4"))
			src.SetMedia(pages[1], videoBindings(false, "b.mp4"))
		},
	})
	f.settle(t, 0)

	if v := videosOf(t, f.m, 0); len(v) != 1 || v[0].Paused() {
		t.Fatal("expected visible page video playing")
	}
	if v := videosOf(t, f.m, 1); len(v) != 1 || !v[0].Paused() {
		t.Fatal("expected hidden page video paused")
	}

	f.settle(t, 1)
	if v := videosOf(t, f.m, 0); !v[0].Paused() {
		t.Fatal("expected hidden video paused after navigation")
	}
	if v := videosOf(t, f.m, 1); v[0].Paused() {
		t.Fatal("expected newly visible video playing")
	}
}

func TestHiddenPageStopsCueStartedMedia(t *testing.T) {
	f := newFixture(t, fixtureOpts{
		pages: 2,
		setup: func(src *testsupport.FakeSource, pages []scene.PageRef) {
			src.SetScene(pages[0], []scene.Cue{{
				ID:         "reveal",
				Kind:       scene.KindPause,
				DurationMS: 1000,
				MediaActions: []scene.MediaAction{
					{Type: scene.ActionVideo, Panel: "#p1", FileName: "loop.mp4", Loop: true, TransitionMS: 100},
					{Type: scene.ActionPlaylist, Panel: "#p2", Loop: true, GlobalDurationMS: 500, TransitionMS: 100,
						Items: []scene.PlaylistItem{{FileName: "a.png"}, {FileName: "b.png"}}},
				},
			}})
		},
	})
	f.settle(t, 0)
	f.h.Clock.Advance(500 * time.Millisecond)

	s, ok := f.m.Surface(0)
	if !ok {
		t.Fatal("page 0 not loaded")
	}
	surface := s.(*memview.Surface)
	if len(surface.Playing()) != 1 {
		t.Fatalf("expected the cue's video playing on the visible page, got %d", len(surface.Playing()))
	}

	f.settle(t, 1)
	if f.m.State(0) != window.StateLoaded {
		t.Fatal("expected page 0 to stay loaded inside the window")
	}
	if n := len(surface.Playing()); n != 0 {
		t.Fatalf("hidden page still has %d video(s) playing", n)
	}
	p2, _ := surface.MemPanel("#p2")
	mounts := p2.Mounts()
	f.h.Clock.Advance(5 * time.Second)
	if p2.Mounts() != mounts {
		t.Fatalf("hidden page playlist kept cycling: %d -> %d mounts", mounts, p2.Mounts())
	}
}

func TestSequentialVideoPlayback(t *testing.T) {
	f := newFixture(t, fixtureOpts{
		pages: 1,
		setup: func(src *testsupport.FakeSource, pages []scene.PageRef) {
			src.SetMedia(pages[0], videoBindings(true, "a.mp4", "b.mp4"))
		},
	})
	f.settle(t, 0)

	videos := videosOf(t, f.m, 0)
	if len(videos) != 2 {
		t.Fatalf("expected two videos, got %d", len(videos))
	}
	if videos[0].Paused() || !videos[1].Paused() {
		t.Fatal("expected only the first video playing")
	}
	f.h.Clock.Advance(5*time.Second + time.Millisecond)
	if !videos[0].Paused() || videos[1].Paused() {
		t.Fatal("expected playback handed to the second video")
	}
}

type progressRecorder struct {
	saved []int
}

func (p *progressRecorder) SaveProgress(_ context.Context, _ scene.PageRef, index int) error {
	p.saved = append(p.saved, index)
	return nil
}

func TestProgressSavedOnSettle(t *testing.T) {
	rec := &progressRecorder{}
	f := newFixture(t, fixtureOpts{progress: rec})
	f.settle(t, 2)
	f.settle(t, 3)
	if len(rec.saved) != 2 || rec.saved[0] != 2 || rec.saved[1] != 3 {
		t.Fatalf("unexpected saved progress %v", rec.saved)
	}
}

func TestProgressPersistsToClientState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	f := newFixture(t, fixtureOpts{progress: store})
	f.settle(t, 3)

	got, err := store.LoadProgress(context.Background(), "moon", "v1")
	if err != nil {
		t.Fatalf("LoadProgress: %v", err)
	}
	if got == nil || got.PageIndex != 3 || got.Page != f.pages[3] {
		t.Fatalf("unexpected progress %#v", got)
	}
}

func TestFetchFailureStillLoadsPage(t *testing.T) {
	f := newFixture(t, fixtureOpts{
		pages: 2,
		setup: func(src *testsupport.FakeSource, pages []scene.PageRef) {
			src.Fail[pages[0].Key()] = errors.New("backend down")
		},
	})
	f.settle(t, 0)
	if f.m.State(0) != window.StateLoaded {
		t.Fatal("expected page to load with empty snapshot")
	}
	seq, _ := f.m.Sequencer(0)
	if seq.State() != sequencer.StateCompleted || len(seq.Cues()) != 0 {
		t.Fatalf("expected empty sequence to complete, got %v", seq.State())
	}
}
