package memview

import (
	"errors"
	"testing"
	"time"

	"panelreel/internal/loop"
	"panelreel/internal/view"
)

func TestLayoutAndPeakTracking(t *testing.T) {
	m := loop.NewManual(time.Unix(0, 0))
	s := New(m, Options{})
	s.MountLayout([]string{"#p1", "#p2", "#p1", ""})

	if got := s.Layout(); len(got) != 2 {
		t.Fatalf("unexpected layout %v", got)
	}
	if _, ok := s.Panel("#missing"); ok {
		t.Fatal("unknown selector should not resolve")
	}

	p, _ := s.MemPanel("#p1")
	a, b := s.NewImage("a.png"), s.NewImage("b.png")
	p.Mount(a)
	p.Mount(b)
	p.Mount(b)
	p.Unmount(a)
	if p.Peak() != 2 || p.Mounts() != 2 || len(p.Nodes()) != 1 {
		t.Fatalf("peak=%d mounts=%d nodes=%d", p.Peak(), p.Mounts(), len(p.Nodes()))
	}
	if top, _ := view.Top(p); top != b {
		t.Fatal("expected b on top")
	}

	s.Clear()
	if s.MountedCount() != 0 || len(s.Layout()) != 0 {
		t.Fatal("Clear should drop nodes and layout")
	}
}

func TestVideoPlaybackOnScheduler(t *testing.T) {
	m := loop.NewManual(time.Unix(0, 0))
	s := New(m, Options{DefaultVideoDuration: time.Second})
	v := s.NewVideo("clip.mp4")

	ready := false
	v.OnReady(func() { ready = true })
	m.RunUntilIdle()
	if !ready {
		t.Fatal("video never became ready")
	}

	ended := 0
	v.OnEnded(func() { ended++ })
	v.Play()
	m.Advance(400 * time.Millisecond)
	v.Pause()
	if v.(*Video).Position() != 400*time.Millisecond {
		t.Fatalf("position %v", v.(*Video).Position())
	}
	m.Advance(time.Second)
	if ended != 0 {
		t.Fatal("paused video ended")
	}
	v.Play()
	m.Advance(600 * time.Millisecond)
	if ended != 1 || !v.Paused() {
		t.Fatalf("ended=%d paused=%v", ended, v.Paused())
	}

	v.Rewind()
	v.SetLoop(true)
	v.Play()
	m.Advance(3 * time.Second)
	if ended != 1 || v.Paused() {
		t.Fatal("looping video should keep playing without ending")
	}
	if len(s.Playing()) != 1 {
		t.Fatalf("expected one playing video, got %d", len(s.Playing()))
	}
}

func TestPreloadReportsMissingAssets(t *testing.T) {
	m := loop.NewManual(time.Unix(0, 0))
	s := New(m, Options{Missing: func(addr string) bool { return addr == "gone.png" }})

	var okErr, missingErr error = errors.New("unset"), nil
	s.Preload("here.png", func(err error) { okErr = err })
	s.Preload("gone.png", func(err error) { missingErr = err })
	m.RunUntilIdle()
	if okErr != nil {
		t.Fatalf("unexpected preload error: %v", okErr)
	}
	if !errors.Is(missingErr, view.ErrAssetUnavailable) {
		t.Fatalf("expected ErrAssetUnavailable, got %v", missingErr)
	}
}
