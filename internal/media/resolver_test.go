package media

import (
	"testing"

	"panelreel/internal/config"
	"panelreel/internal/scene"
)

func newTestResolver() *Resolver {
	cfg := config.Default()
	cfg.Assets.BaseURL = "https://cdn.example/assets/"
	return NewResolver(cfg.Assets)
}

func TestResolveNamespaces(t *testing.T) {
	r := newTestResolver()
	page := scene.PageRef{Series: "moon", Volume: "v1", Chapter: "c2", PageID: "p3"}

	tests := []struct {
		name string
		ref  string
		kind AssetType
		want string
	}{
		{"page local", "bg.png", AssetImage, "https://cdn.example/assets/moon/v1/c2/p3/images/bg.png"},
		{"volume", "volume:theme.mp3", AssetAudio, "https://cdn.example/assets/moon/v1/shared/audio/theme.mp3"},
		{"series", "series:logo.mp4", AssetVideo, "https://cdn.example/assets/moon/shared/videos/logo.mp4"},
		{"global", "global:click.mp3", AssetVoice, "https://cdn.example/assets/global/voice/click.mp3"},
		{"absolute passthrough", "https://other.example/x.png", AssetImage, "https://other.example/x.png"},
		{"empty", "", AssetImage, ""},
		{"prefix only", "global:", AssetImage, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.Resolve(tc.ref, tc.kind, page); got != tc.want {
				t.Fatalf("Resolve(%q) = %q, want %q", tc.ref, got, tc.want)
			}
		})
	}
}

func TestResolveLocalBase(t *testing.T) {
	cfg := config.Default()
	cfg.Assets.BaseURL = "/srv/comics/"
	r := NewResolver(cfg.Assets)
	got := r.Resolve("a.png", AssetImage, scene.PageRef{Series: "s", Volume: "v", Chapter: "c", PageID: "p"})
	if got != "/srv/comics/s/v/c/p/images/a.png" {
		t.Fatalf("unexpected local address %q", got)
	}
}

func TestCueAudio(t *testing.T) {
	r := newTestResolver()
	page := scene.PageRef{Series: "s", Volume: "v", Chapter: "c", PageID: "p"}

	addr, explicit := r.CueAudio(scene.Cue{ID: "hello", Kind: scene.KindSpeechBubble}, page)
	if explicit || addr != "https://cdn.example/assets/s/v/c/p/voice/hello.mp3" {
		t.Fatalf("implicit audio = %q explicit=%v", addr, explicit)
	}
	addr, explicit = r.CueAudio(scene.Cue{ID: "x", Kind: scene.KindSoundEffect, AudioRef: "global:boom.mp3"}, page)
	if !explicit || addr != "https://cdn.example/assets/global/voice/boom.mp3" {
		t.Fatalf("explicit audio = %q explicit=%v", addr, explicit)
	}
	if addr, _ := r.CueAudio(scene.Cue{ID: "rest", Kind: scene.KindPause}, page); addr != "" {
		t.Fatalf("pause should have no audio, got %q", addr)
	}
}

func TestBaseAddress(t *testing.T) {
	for in, want := range map[string]string{
		"https://cdn/a.mp3?v=2":   "https://cdn/a.mp3",
		"https://cdn/a.mp3#t=10":  "https://cdn/a.mp3",
		" /local/a.mp3 ":          "/local/a.mp3",
		"https://cdn/a.mp3?x#y=1": "https://cdn/a.mp3",
	} {
		if got := BaseAddress(in); got != want {
			t.Errorf("BaseAddress(%q) = %q, want %q", in, got, want)
		}
	}
}
