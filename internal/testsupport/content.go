package testsupport

import (
	"context"
	"fmt"
	"sync"

	"panelreel/internal/content"
	"panelreel/internal/scene"
)

// FakeSource is an in-memory content.Source. Missing documents report
// content.ErrNotFound; Fail forces an error for a page key or volume key.
type FakeSource struct {
	mu      sync.Mutex
	Scenes  map[string][]scene.Cue
	Media   map[string]scene.PageMedia
	Audio   map[string][]scene.AudioMapEntry
	Order   []scene.PageRef
	Fail    map[string]error
	fetches map[string]int
}

// NewFakeSource constructs an empty fake source for series/volume pages.
func NewFakeSource(pages ...scene.PageRef) *FakeSource {
	return &FakeSource{
		Scenes:  make(map[string][]scene.Cue),
		Media:   make(map[string]scene.PageMedia),
		Audio:   make(map[string][]scene.AudioMapEntry),
		Order:   pages,
		Fail:    make(map[string]error),
		fetches: make(map[string]int),
	}
}

// Pages builds n page refs p1..pn in one chapter.
func Pages(series, volume string, n int) []scene.PageRef {
	out := make([]scene.PageRef, n)
	for i := range out {
		out[i] = scene.PageRef{Series: series, Volume: volume, Chapter: "c1", PageID: fmt.Sprintf("p%d", i+1)}
	}
	return out
}

// SetScene stores cues for page.
func (f *FakeSource) SetScene(page scene.PageRef, cues []scene.Cue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Scenes[page.Key()] = cues
}

// SetMedia stores media for page.
func (f *FakeSource) SetMedia(page scene.PageRef, media scene.PageMedia) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Media[page.Key()] = media
}

// SetAudioMap stores the audio map for a volume.
func (f *FakeSource) SetAudioMap(series, volume string, entries []scene.AudioMapEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Audio[series+"/"+volume] = entries
}

// Fetches reports how many scene fetches hit page.
func (f *FakeSource) Fetches(page scene.PageRef) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[page.Key()]
}

func (f *FakeSource) FetchScene(_ context.Context, page scene.PageRef) ([]scene.Cue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[page.Key()]++
	if err := f.Fail[page.Key()]; err != nil {
		return nil, err
	}
	cues, ok := f.Scenes[page.Key()]
	if !ok {
		return nil, content.ErrNotFound
	}
	return append([]scene.Cue(nil), cues...), nil
}

func (f *FakeSource) FetchMedia(_ context.Context, page scene.PageRef) (scene.PageMedia, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Fail[page.Key()]; err != nil {
		return scene.PageMedia{}, err
	}
	media, ok := f.Media[page.Key()]
	if !ok {
		return scene.PageMedia{}, content.ErrNotFound
	}
	return media, nil
}

func (f *FakeSource) FetchAudioMap(_ context.Context, series, volume string) ([]scene.AudioMapEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := series + "/" + volume
	if err := f.Fail[key]; err != nil {
		return nil, err
	}
	entries, ok := f.Audio[key]
	if !ok {
		return nil, content.ErrNotFound
	}
	return entries, nil
}

func (f *FakeSource) ListPages(_ context.Context, series, volume string) ([]scene.PageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []scene.PageRef
	for _, p := range f.Order {
		if p.Series == series && p.Volume == volume {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, content.ErrNotFound
	}
	return out, nil
}
