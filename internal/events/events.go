// Package events is the notification surface playback components use to talk
// to each other without direct references.
//
// Subscribers registered with Subscribe run synchronously on the publishing
// goroutine, which is always the loop. Consumers living on other goroutines
// attach with Tap and receive events over a channel; when the channel is full
// the event is dropped rather than queued.
package events

import (
	"time"

	"panelreel/internal/scene"
)

// Kind names an event payload.
type Kind string

const (
	KindPageVisibility      Kind = "page_visibility"
	KindPageTeardown        Kind = "page_teardown"
	KindCueStarted          Kind = "cue_started"
	KindCueEnded            Kind = "cue_ended"
	KindPanelContentChanged Kind = "panel_content_changed"
)

// Event is implemented by every payload.
type Event interface {
	Kind() Kind
	// PageKey identifies the page the event belongs to.
	PageKey() string
}

// PageVisibility fires when a page becomes visible or hidden.
type PageVisibility struct {
	Page    scene.PageRef
	Index   int
	Visible bool
}

func (PageVisibility) Kind() Kind        { return KindPageVisibility }
func (e PageVisibility) PageKey() string { return e.Page.Key() }

// PageTeardown asks every component owned by the page to release its
// resources.
type PageTeardown struct {
	Page scene.PageRef
}

func (PageTeardown) Kind() Kind        { return KindPageTeardown }
func (e PageTeardown) PageKey() string { return e.Page.Key() }

// Completer receives waitForCompletion acknowledgements.
type Completer interface {
	SignalCompletion(cueID string)
}

// CueStarted fires when a cue becomes active. Estimated is zero in comic mode.
type CueStarted struct {
	Page      scene.PageRef
	Cue       scene.Cue
	Index     int
	Estimated time.Duration
	Completer Completer
}

func (CueStarted) Kind() Kind        { return KindCueStarted }
func (e CueStarted) PageKey() string { return e.Page.Key() }

// CueEnded fires once a cue's gate is satisfied.
type CueEnded struct {
	Page  scene.PageRef
	Cue   scene.Cue
	Index int
}

func (CueEnded) Kind() Kind        { return KindCueEnded }
func (e CueEnded) PageKey() string { return e.Page.Key() }

// PanelContentChanged reports a content swap on a panel.
type PanelContentChanged struct {
	Page     scene.PageRef
	Panel    string
	Type     scene.ActionType
	FileName string
	// Action is "swap", "crossfade", or "playlist".
	Action string
}

func (PanelContentChanged) Kind() Kind        { return KindPanelContentChanged }
func (e PanelContentChanged) PageKey() string { return e.Page.Key() }
