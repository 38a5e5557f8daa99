// Package view declares the render surface the playback core drives.
//
// A Surface belongs to one page container. Its panels are the named regions
// of the page layout; a selector that names no panel resolves to nothing and
// callers treat that as a no-op.
package view

import (
	"errors"

	"panelreel/internal/scene"
)

// ErrAssetUnavailable is reported by Preload when an asset cannot load.
var ErrAssetUnavailable = errors.New("asset unavailable")

// NodeKind classifies mounted nodes.
type NodeKind string

const (
	NodeImage NodeKind = "image"
	NodeVideo NodeKind = "video"
	NodeCue   NodeKind = "cue"
)

// Transform is the camera state of a node.
type Transform struct {
	Scale      float64
	TranslateX float64
	TranslateY float64
	Rotate     float64
	Blur       float64
}

// Neutral is the identity transform.
func Neutral() Transform { return Transform{Scale: 1} }

// IsNeutral reports whether t equals the identity transform.
func (t Transform) IsNeutral() bool { return t == Neutral() }

// Node is a mounted render element.
type Node interface {
	ID() string
	Kind() NodeKind
	Source() string
	Opacity() float64
	SetOpacity(float64)
	Transform() Transform
	SetTransform(Transform)
}

// Video is a node with native playback.
type Video interface {
	Node
	Play()
	Pause()
	Paused() bool
	Rewind()
	SetLoop(bool)
	Loop() bool
	// OnEnded registers a callback for native end of playback. Looping
	// videos never end.
	OnEnded(func())
	// OnReady registers a callback for when the video can play. It runs
	// immediately if the video is already ready.
	OnReady(func())
	// SetCueMarker tags the video with the cue that started it.
	SetCueMarker(cueID string)
	CueMarker() string
}

// Panel is a named region of the page layout.
type Panel interface {
	Selector() string
	Mount(Node)
	Unmount(Node)
	Nodes() []Node
	Clear()
}

// Surface is one page container's render tree.
type Surface interface {
	// MountLayout creates the named panels, replacing any previous layout.
	MountLayout(panels []string)
	Panel(selector string) (Panel, bool)
	// Root receives untargeted cues.
	Root() Panel
	NewImage(addr string) Node
	NewVideo(addr string) Video
	NewCue(cue scene.Cue, text string) Node
	// Preload fetches addr and reports the outcome on the loop.
	Preload(addr string, done func(error))
	// Clear unmounts everything and drops the layout.
	Clear()
}

// VideoIn returns the topmost video mounted in p.
func VideoIn(p Panel) (Video, bool) {
	nodes := p.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		if v, ok := nodes[i].(Video); ok {
			return v, true
		}
	}
	return nil, false
}

// Top returns the most recently mounted node in p.
func Top(p Panel) (Node, bool) {
	nodes := p.Nodes()
	if len(nodes) == 0 {
		return nil, false
	}
	return nodes[len(nodes)-1], true
}
