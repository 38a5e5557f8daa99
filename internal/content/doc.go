// Package content reads page snapshots (scene, media, audio map, page list)
// from a backend or a local directory.
//
// Sources return errors; the Loader turns every failure into an empty,
// neutral snapshot and a warning so a page always renders its static layout.
// Snapshots are cached per page for the session and invalidated by the
// Watcher when the underlying files change.
package content
