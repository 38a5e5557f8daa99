// Package config loads, normalizes, and validates panelreel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PANELREEL_API_TOKEN. The pacing constants that shape perceived playback
// (inter-cue pause, audio safety timeouts, text-duration heuristic, crossfade
// windows) live here as named, overridable values.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical modes, and clear validation errors.
package config
