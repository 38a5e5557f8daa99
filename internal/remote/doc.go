// Package remote exposes a running player to authoring and observability
// tools over HTTP.
//
// The bridge is fire-and-forget: playback never waits on it, and clients that
// fall behind on the event stream miss events instead of stalling the loop.
// Every handler that touches playback state hops onto the loop with
// loop.Await.
package remote
