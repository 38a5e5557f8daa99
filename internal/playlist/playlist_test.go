package playlist

import (
	"testing"
	"time"

	"panelreel/internal/loop"
	"panelreel/internal/view"
	"panelreel/internal/view/memview"
)

type fixture struct {
	clock   *loop.Manual
	surface *memview.Surface
	panel   *memview.Panel
}

func newFixture(opts memview.Options) fixture {
	clock := loop.NewManual(time.Unix(0, 0))
	surface := memview.New(clock, opts)
	surface.MountLayout([]string{"#p1"})
	panel, _ := surface.MemPanel("#p1")
	return fixture{clock: clock, surface: surface, panel: panel}
}

func images(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{Address: string(rune('a'+i)) + ".png", Kind: view.NodeImage}
	}
	return items
}

func TestOverlapPlaylistTimingAndNodeBound(t *testing.T) {
	f := newFixture(memview.Options{})
	pl := New(f.clock, f.panel, f.surface, Options{
		Items:           images(3),
		DefaultDuration: 2000 * time.Millisecond,
		Mode:            ModeOverlap,
	})
	done := pl.Play()

	for elapsed := time.Duration(0); elapsed < 6000*time.Millisecond; elapsed += 10 * time.Millisecond {
		if done.Resolved() {
			t.Fatalf("play resolved early at %v", elapsed)
		}
		if n := len(f.panel.Nodes()); n > 2 {
			t.Fatalf("%d nodes mounted at %v", n, elapsed)
		}
		f.clock.Advance(10 * time.Millisecond)
	}
	f.clock.Advance(2 * time.Second)
	if !done.Resolved() {
		t.Fatal("play never resolved")
	}
	if f.panel.Peak() != 2 {
		t.Fatalf("expected overlap to reach two nodes, peak %d", f.panel.Peak())
	}
	nodes := f.panel.Nodes()
	if len(nodes) != 1 || nodes[0].Source() != "c.png" || nodes[0].Opacity() != 1 {
		t.Fatalf("expected last item left visible, got %d nodes", len(nodes))
	}
}

func TestOverlapResolvesAfterTransitionsAndDisplays(t *testing.T) {
	f := newFixture(memview.Options{})
	pl := New(f.clock, f.panel, f.surface, Options{
		Items:             images(3),
		DefaultDuration:   2000 * time.Millisecond,
		DefaultTransition: 500 * time.Millisecond,
		Mode:              ModeOverlap,
	})
	done := pl.Play()
	f.clock.Advance(7499 * time.Millisecond)
	if done.Resolved() {
		t.Fatal("resolved before the last display ended")
	}
	f.clock.Advance(time.Millisecond)
	if !done.Resolved() {
		t.Fatal("expected resolution at 3x(500+2000)ms")
	}
}

func TestSequentialRemovesOldBeforeFadingIn(t *testing.T) {
	f := newFixture(memview.Options{})
	pl := New(f.clock, f.panel, f.surface, Options{
		Items:             images(2),
		DefaultDuration:   time.Second,
		DefaultTransition: 400 * time.Millisecond,
	})
	pl.Play()
	f.clock.Advance(1400 * time.Millisecond)

	// Transition to b is underway: a fading out, b mounted at zero.
	f.clock.Advance(200 * time.Millisecond)
	nodes := f.panel.Nodes()
	if len(nodes) != 2 || nodes[1].Opacity() != 0 {
		t.Fatalf("expected b waiting at zero opacity, got %d nodes", len(nodes))
	}
	f.clock.Advance(200 * time.Millisecond)
	nodes = f.panel.Nodes()
	if len(nodes) != 1 || nodes[0].Source() != "b.png" {
		t.Fatalf("expected only b after fade out, got %d nodes", len(nodes))
	}
}

func TestLoopingPlaylistWrapsAround(t *testing.T) {
	f := newFixture(memview.Options{})
	pl := New(f.clock, f.panel, f.surface, Options{
		Items:             images(2),
		Loop:              true,
		DefaultDuration:   time.Second,
		DefaultTransition: 100 * time.Millisecond,
	})
	done := pl.Play()
	f.clock.Advance(2300 * time.Millisecond)
	if pl.Index() != 0 {
		t.Fatalf("expected wrap to index 0, got %d", pl.Index())
	}
	if done.Resolved() {
		t.Fatal("looping playlist resolved")
	}
	pl.Destroy()
	if !done.Resolved() {
		t.Fatal("Destroy should resolve the play signal")
	}
	if len(f.panel.Nodes()) != 0 {
		t.Fatal("Destroy should unmount playlist nodes")
	}
	f.clock.Advance(5 * time.Second)
	if len(f.panel.Nodes()) != 0 {
		t.Fatal("stale continuation mounted after Destroy")
	}
	if pl.Play() != done {
		t.Fatal("Play after Destroy should return the resolved signal")
	}
}

func TestMissingItemIsSkipped(t *testing.T) {
	f := newFixture(memview.Options{Missing: func(addr string) bool { return addr == "b.png" }})
	pl := New(f.clock, f.panel, f.surface, Options{
		Items:             images(3),
		DefaultDuration:   time.Second,
		DefaultTransition: 100 * time.Millisecond,
	})
	done := pl.Play()
	f.clock.Advance(10 * time.Second)
	if !done.Resolved() {
		t.Fatal("missing item stalled playlist")
	}
	if f.panel.Mounts() != 2 {
		t.Fatalf("expected two mounts, got %d", f.panel.Mounts())
	}
}

func TestLoopingPlaylistWithNoPlayableItemsFinishes(t *testing.T) {
	f := newFixture(memview.Options{Missing: func(string) bool { return true }})
	pl := New(f.clock, f.panel, f.surface, Options{
		Items:           images(2),
		Loop:            true,
		DefaultDuration: time.Second,
	})
	done := pl.Play()
	f.clock.Advance(10 * time.Millisecond)
	if !done.Resolved() {
		t.Fatal("looping playlist with only missing items should finish")
	}
	if f.panel.Mounts() != 0 {
		t.Fatalf("expected nothing mounted, got %d mounts", f.panel.Mounts())
	}
}

func TestLoopingPlaylistKeepsCyclingPastOneMissingItem(t *testing.T) {
	f := newFixture(memview.Options{Missing: func(addr string) bool { return addr == "b.png" }})
	pl := New(f.clock, f.panel, f.surface, Options{
		Items:             images(2),
		Loop:              true,
		DefaultDuration:   time.Second,
		DefaultTransition: 100 * time.Millisecond,
	})
	done := pl.Play()
	f.clock.Advance(5 * time.Second)
	if done.Resolved() {
		t.Fatal("one playable item should keep the loop running")
	}
	if f.panel.Mounts() < 3 {
		t.Fatalf("expected the playable item to be shown repeatedly, got %d mounts", f.panel.Mounts())
	}
	pl.Destroy()
}

func TestVideoItemAdvancesOnEnd(t *testing.T) {
	f := newFixture(memview.Options{VideoDuration: func(string) time.Duration { return 3 * time.Second }})
	pl := New(f.clock, f.panel, f.surface, Options{
		Items:             []Item{{Address: "clip.mp4", Kind: view.NodeVideo}},
		DefaultDuration:   time.Second,
		DefaultTransition: 100 * time.Millisecond,
	})
	done := pl.Play()
	f.clock.Advance(3 * time.Second)
	if done.Resolved() {
		t.Fatal("video playlist should wait for native end")
	}
	f.clock.Advance(200 * time.Millisecond)
	if !done.Resolved() {
		t.Fatal("video end did not finish the playlist")
	}
}

func TestEmptyPlaylistResolvesImmediately(t *testing.T) {
	f := newFixture(memview.Options{})
	if !New(f.clock, f.panel, f.surface, Options{}).Play().Resolved() {
		t.Fatal("empty playlist should resolve")
	}
}
