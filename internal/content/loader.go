package content

import (
	"context"
	"errors"
	"log/slog"

	"panelreel/internal/logging"
	"panelreel/internal/scene"
)

// Loader fronts a Source with the cache and the fail-open policy.
type Loader struct {
	src    Source
	cache  *Cache
	logger *slog.Logger
}

// NewLoader constructs a loader. A nil cache disables caching.
func NewLoader(src Source, cache *Cache, logger *slog.Logger) *Loader {
	return &Loader{
		src:    src,
		cache:  cache,
		logger: logging.NewComponentLogger(logger, "content"),
	}
}

// Cache returns the loader's cache, which may be nil.
func (l *Loader) Cache() *Cache { return l.cache }

// Page returns the snapshot for ref. Fetch failures degrade to an empty scene
// or empty media; degraded snapshots are not cached so the next load retries.
func (l *Loader) Page(ctx context.Context, ref scene.PageRef) Snapshot {
	if l.cache != nil {
		if snap, ok := l.cache.Page(ref); ok {
			return snap
		}
	}

	complete := true
	cues, err := l.src.FetchScene(ctx, ref)
	if err != nil {
		complete = l.fetchFailed(ref, "scene", err) && complete
		cues = nil
	}
	media, err := l.src.FetchMedia(ctx, ref)
	if err != nil {
		complete = l.fetchFailed(ref, "media", err) && complete
		media = scene.PageMedia{}
	}

	cues = scene.Normalize(cues)
	snap := Snapshot{
		Page:   ref,
		Cues:   cues,
		Media:  media,
		Layout: scene.Layout(cues, media),
	}
	if complete && l.cache != nil {
		l.cache.StorePage(snap)
	}
	return snap
}

// AudioMap returns a volume's background track assignments, empty on failure.
func (l *Loader) AudioMap(ctx context.Context, series, volume string) []scene.AudioMapEntry {
	if l.cache != nil {
		if entries, ok := l.cache.AudioMap(series, volume); ok {
			return entries
		}
	}
	entries, err := l.src.FetchAudioMap(ctx, series, volume)
	if err != nil {
		ref := scene.PageRef{Series: series, Volume: volume}
		if !l.fetchFailed(ref, "audio map", err) {
			return nil
		}
		entries = nil
	}
	if l.cache != nil {
		l.cache.StoreAudioMap(series, volume, entries)
	}
	return entries
}

// Pages lists a volume's pages in reading order. Unlike snapshots, a page
// list is required to navigate, so its failure is returned.
func (l *Loader) Pages(ctx context.Context, series, volume string) ([]scene.PageRef, error) {
	return l.src.ListPages(ctx, series, volume)
}

// fetchFailed logs a fetch failure and reports whether the empty result is
// authoritative (the document simply does not exist) and may be cached.
func (l *Loader) fetchFailed(ref scene.PageRef, what string, err error) bool {
	if errors.Is(err, ErrNotFound) {
		l.logger.Debug(what+" absent, using empty default",
			logging.String(logging.FieldPage, ref.Key()),
		)
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	logging.WarnWithContext(l.logger, what+" fetch failed", "content_fetch_failed",
		logging.String(logging.FieldPage, ref.Key()),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the content source is reachable and the document is valid"),
		logging.String(logging.FieldImpact, "page renders without "+what),
	)
	return false
}
