package window

import (
	"panelreel/internal/scene"
	"panelreel/internal/sequencer"
)

// PageState is a page container's load position.
type PageState int

const (
	StateUnloaded PageState = iota
	StatePreloading
	StateLoaded
)

func (s PageState) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StatePreloading:
		return "preloading"
	case StateLoaded:
		return "loaded"
	}
	return "unknown"
}

// MarshalText encodes the state by name.
func (s PageState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PageStatus is a point-in-time view of one warmed page.
type PageStatus struct {
	Index    int             `json:"index"`
	Page     scene.PageRef   `json:"page"`
	State    PageState       `json:"state"`
	Visible  bool            `json:"visible"`
	Leaving  bool            `json:"leaving"`
	Sequence sequencer.State `json:"sequence"`
	Cue      int             `json:"cue"`
}
