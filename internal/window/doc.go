// Package window keeps the pages around the reader's position warm.
//
// GoToPage(n) loads page n as visible and its neighbours within the radius as
// hidden, then purges every page outside the window once those loads settle.
// Each page lives in a container with its own abort epoch: a new load or a
// purge invalidates every continuation of the previous one. A page that was
// visible plays an exit transition before it can be purged; purges that
// arrive mid-transition are retried once it ends.
package window
