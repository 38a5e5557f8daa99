// Package loop provides the single-threaded cooperative scheduler every
// playback component runs on.
//
// All component callbacks (timers, media end notifications, fetch
// continuations) execute on one goroutine, so components keep plain fields
// without locks. Blocking work is pushed off-loop with Spawn and its
// continuation is delivered back onto the loop.
//
// Loop runs against the wall clock. Manual runs against a virtual clock that
// tests advance explicitly, which lets timing-sensitive behavior be pinned
// to the millisecond.
package loop
