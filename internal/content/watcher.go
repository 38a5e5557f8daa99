package content

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"panelreel/internal/logging"
	"panelreel/internal/scene"
)

const defaultDebounce = 250 * time.Millisecond

// Change describes an invalidation caused by a file event. Page is set for
// page documents; Series and Volume are set for anything inside a volume.
type Change struct {
	Path   string
	Series string
	Volume string
	Page   scene.PageRef
}

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	Debounce time.Duration
	// OnChange runs once per changed path after the debounce window. It runs
	// on a timer goroutine.
	OnChange func(Change)
	Logger   *slog.Logger
}

// Watcher invalidates cached snapshots when documents under a DirSource root
// change.
type Watcher struct {
	root   string
	cache  *Cache
	opts   WatcherOptions
	logger *slog.Logger
	fsw    *fsnotify.Watcher

	mu       sync.Mutex
	debounce map[string]*time.Timer
}

// NewWatcher watches root and every directory beneath it.
func NewWatcher(root string, cache *Cache, opts WatcherOptions) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	w := &Watcher{
		root:     filepath.Clean(root),
		cache:    cache,
		opts:     opts,
		logger:   logging.NewComponentLogger(opts.Logger, "content-watch"),
		fsw:      fsw,
		debounce: make(map[string]*time.Timer),
	}
	if err := w.addTree(w.root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Run processes file events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "content watcher error", "content_watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "edits may not be picked up until restart"),
			)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if ev.Has(fsnotify.Create) {
		if err := w.addTree(ev.Name); err != nil {
			w.logger.Debug("watch new path failed", logging.String("path", ev.Name), logging.Error(err))
		}
	}

	change := w.Classify(ev.Name)
	switch {
	case !change.Page.IsZero():
		w.cache.InvalidatePage(change.Page)
	case change.Volume != "":
		w.cache.InvalidateVolume(change.Series, change.Volume)
	default:
		w.cache.InvalidateAll()
	}
	w.logger.Debug("content changed",
		logging.String("path", ev.Name),
		logging.String("op", ev.Op.String()),
	)

	if w.opts.OnChange == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounce[ev.Name]; ok {
		t.Stop()
	}
	w.debounce[ev.Name] = time.AfterFunc(w.opts.Debounce, func() {
		w.mu.Lock()
		delete(w.debounce, ev.Name)
		w.mu.Unlock()
		w.opts.OnChange(change)
	})
}

// Classify maps a path under the root to the page or volume it belongs to.
func (w *Watcher) Classify(path string) Change {
	change := Change{Path: path}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return change
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) >= 3 {
		change.Series, change.Volume = parts[0], parts[1]
	}
	if len(parts) >= 5 {
		change.Page = scene.PageRef{Series: parts[0], Volume: parts[1], Chapter: parts[2], PageID: parts[3]}
	}
	return change
}

func (w *Watcher) close() {
	w.mu.Lock()
	for k, t := range w.debounce {
		t.Stop()
		delete(w.debounce, k)
	}
	w.mu.Unlock()
	_ = w.fsw.Close()
}
