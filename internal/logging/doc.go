// Package logging assembles structured slog loggers and formatting helpers used
// across the playback core.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so page and cue code can tag log
// lines with page keys, cue ids, panels, and generations. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
