// Package audio owns every playback handle in a session.
//
// Two long-lived channels, background and ambient, survive page changes and
// switch tracks with a two-phase crossfade: the current handle ramps to zero
// and is released, then the next handle starts and ramps up to its target.
// Only one transition per channel is ever in flight; a new request supersedes
// the running one immediately.
//
// Transient handles (cue voice, effects, panel media) are registered under an
// owner id and released together by UnregisterAllForOwner when that owner is
// torn down.
//
// The Manager is the single source of truth for the global mute flag. It
// persists the flag through a MuteStore.
package audio
