// Package probe reads media durations with ffprobe.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Prober: cached duration lookup for resolved asset addresses
//
// Durations feed the virtual audio backend so gated playback waits on real
// clip lengths when assets live on local disk.
package probe
