package content

import (
	"strings"
	"sync"

	"panelreel/internal/scene"
)

// Snapshot is an immutable page view: ordered cues, media bindings, and the
// panel layout derived from both.
type Snapshot struct {
	Page   scene.PageRef
	Cues   []scene.Cue
	Media  scene.PageMedia
	Layout []string
}

// Cache holds snapshots and audio maps for the session. It is safe for
// concurrent use.
type Cache struct {
	mu     sync.Mutex
	pages  map[string]Snapshot
	audio  map[string][]scene.AudioMapEntry
	hits   uint64
	misses uint64
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Pages     int
	AudioMaps int
	Hits      uint64
	Misses    uint64
}

// NewCache constructs an empty cache.
func NewCache() *Cache {
	return &Cache{
		pages: make(map[string]Snapshot),
		audio: make(map[string][]scene.AudioMapEntry),
	}
}

func volumeKey(series, volume string) string {
	return series + "/" + volume
}

// Page returns the cached snapshot for ref.
func (c *Cache) Page(ref scene.PageRef) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.pages[ref.Key()]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return snap, ok
}

// StorePage caches snap under its page key.
func (c *Cache) StorePage(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[snap.Page.Key()] = snap
}

// AudioMap returns the cached audio map for a volume.
func (c *Cache) AudioMap(series, volume string) ([]scene.AudioMapEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, ok := c.audio[volumeKey(series, volume)]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return entries, ok
}

// StoreAudioMap caches a volume's audio map.
func (c *Cache) StoreAudioMap(series, volume string, entries []scene.AudioMapEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.audio[volumeKey(series, volume)] = entries
}

// InvalidatePage drops one page snapshot.
func (c *Cache) InvalidatePage(ref scene.PageRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pages, ref.Key())
}

// InvalidateVolume drops a volume's audio map and every page snapshot in it.
func (c *Cache) InvalidateVolume(series, volume string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := volumeKey(series, volume)
	delete(c.audio, key)
	for k := range c.pages {
		if strings.HasPrefix(k, key+"/") {
			delete(c.pages, k)
		}
	}
}

// InvalidateAll empties the cache.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.pages)
	clear(c.audio)
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Pages: len(c.pages), AudioMaps: len(c.audio), Hits: c.hits, Misses: c.misses}
}
