// Package scene defines the immutable page snapshot model consumed by the
// playback core: cues, media actions, panel bindings, and audio maps.
package scene

import (
	"fmt"
	"time"
)

// CueKind enumerates the sequencable cue shapes.
type CueKind string

const (
	KindSpeechBubble CueKind = "speechBubble"
	KindTextBlock    CueKind = "textBlock"
	KindSoundEffect  CueKind = "soundEffect"
	KindPause        CueKind = "pause"
)

// TextSubtype refines KindTextBlock cues.
type TextSubtype string

const (
	SubtypeNarrator          TextSubtype = "narrator"
	SubtypeInternalMonologue TextSubtype = "internalMonologue"
	SubtypeDialogue          TextSubtype = "dialogue"
)

// Tail describes the pointer geometry of a speech bubble.
type Tail struct {
	X         float64 `json:"x" yaml:"x"`
	Y         float64 `json:"y" yaml:"y"`
	Direction string  `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// Placement positions a cue inside its target panel using edge percentages.
type Placement struct {
	Panel  string  `json:"panel,omitempty" yaml:"panel,omitempty"`
	Top    float64 `json:"top,omitempty" yaml:"top,omitempty"`
	Left   float64 `json:"left,omitempty" yaml:"left,omitempty"`
	Right  float64 `json:"right,omitempty" yaml:"right,omitempty"`
	Bottom float64 `json:"bottom,omitempty" yaml:"bottom,omitempty"`
	Tail   *Tail   `json:"tail,omitempty" yaml:"tail,omitempty"`
}

// Cue is one sequencable unit on a page.
type Cue struct {
	ID           string        `json:"id" yaml:"id"`
	DisplayOrder int           `json:"displayOrder" yaml:"displayOrder"`
	Kind         CueKind       `json:"kind" yaml:"kind"`
	Subtype      TextSubtype   `json:"subtype,omitempty" yaml:"subtype,omitempty"`
	Character    string        `json:"character,omitempty" yaml:"character,omitempty"`
	Text         string        `json:"text,omitempty" yaml:"text,omitempty"`
	Placement    Placement     `json:"placement" yaml:"placement"`
	AudioRef     string        `json:"audioRef,omitempty" yaml:"audioRef,omitempty"`
	DurationMS   int           `json:"duration,omitempty" yaml:"duration,omitempty"`
	MediaActions []MediaAction `json:"mediaActions,omitempty" yaml:"mediaActions,omitempty"`
}

// Duration returns the declared duration, zero when unset.
func (c Cue) Duration() time.Duration {
	return time.Duration(c.DurationMS) * time.Millisecond
}

// HasAudio reports whether the cue kind can carry voice or effect audio.
func (c Cue) HasAudio() bool {
	return c.Kind != KindPause
}

// WaitsForCompletion reports whether any start-triggered action blocks
// advancement until acknowledged.
func (c Cue) WaitsForCompletion() bool {
	return c.PendingCompletions() > 0
}

// PendingCompletions counts the start-triggered actions declaring
// waitForCompletion.
func (c Cue) PendingCompletions() int {
	n := 0
	for _, a := range c.MediaActions {
		if a.WaitForCompletion && a.TriggerOrDefault() == TriggerStart {
			n++
		}
	}
	return n
}

// ActionType enumerates media action targets.
type ActionType string

const (
	ActionImage           ActionType = "image"
	ActionVideo           ActionType = "video"
	ActionPlaylist        ActionType = "Playlist"
	ActionBackgroundAudio ActionType = "backgroundAudio"
	ActionAmbientAudio    ActionType = "ambientAudio"
)

// IsAudio reports whether the action targets an audio channel.
func (t ActionType) IsAudio() bool {
	return t == ActionBackgroundAudio || t == ActionAmbientAudio
}

// Trigger selects the cue boundary an action fires on.
type Trigger string

const (
	TriggerStart Trigger = "start"
	TriggerEnd   Trigger = "end"
)

// PlaybackControl is a play/pause instruction for an existing panel video.
type PlaybackControl string

const (
	PlaybackPlay   PlaybackControl = "play"
	PlaybackPause  PlaybackControl = "pause"
	PlaybackToggle PlaybackControl = "toggle"
)

// PlaylistItem is one entry of a Playlist action.
type PlaylistItem struct {
	FileName     string     `json:"fileName" yaml:"fileName"`
	Type         ActionType `json:"type,omitempty" yaml:"type,omitempty"`
	DurationMS   int        `json:"duration,omitempty" yaml:"duration,omitempty"`
	TransitionMS int        `json:"transitionDuration,omitempty" yaml:"transitionDuration,omitempty"`
}

// MediaAction is a declarative side effect attached to a cue.
type MediaAction struct {
	Type              ActionType      `json:"type" yaml:"type"`
	Panel             string          `json:"panel,omitempty" yaml:"panel,omitempty"`
	FileName          string          `json:"fileName,omitempty" yaml:"fileName,omitempty"`
	Items             []PlaylistItem  `json:"items,omitempty" yaml:"items,omitempty"`
	Crossfade         bool            `json:"crossfade,omitempty" yaml:"crossfade,omitempty"`
	TransitionMS      int             `json:"transitionDuration,omitempty" yaml:"transitionDuration,omitempty"`
	GlobalDurationMS  int             `json:"globalDuration,omitempty" yaml:"globalDuration,omitempty"`
	TransitionMode    string          `json:"transitionMode,omitempty" yaml:"transitionMode,omitempty"`
	Loop              bool            `json:"loop,omitempty" yaml:"loop,omitempty"`
	Volume            *float64        `json:"volume,omitempty" yaml:"volume,omitempty"`
	Camera            *CameraAction   `json:"cameraAction,omitempty" yaml:"cameraAction,omitempty"`
	WaitForCompletion bool            `json:"waitForCompletion,omitempty" yaml:"waitForCompletion,omitempty"`
	SyncToDialogue    bool            `json:"syncToDialogue,omitempty" yaml:"syncToDialogue,omitempty"`
	Trigger           Trigger         `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Playback          PlaybackControl `json:"playback,omitempty" yaml:"playback,omitempty"`
}

// TriggerOrDefault returns the trigger, defaulting to start.
func (a MediaAction) TriggerOrDefault() Trigger {
	if a.Trigger == TriggerEnd {
		return TriggerEnd
	}
	return TriggerStart
}

// IsSwap reports whether the action replaces panel content.
func (a MediaAction) IsSwap() bool {
	if a.Type == ActionPlaylist {
		return len(a.Items) > 0
	}
	return a.FileName != ""
}

// CameraKind enumerates camera motions.
type CameraKind string

const (
	CameraZoom  CameraKind = "zoom"
	CameraPan   CameraKind = "pan"
	CameraShake CameraKind = "shake"
	CameraTilt  CameraKind = "tilt"
	CameraFocus CameraKind = "focus"
)

// CameraAction describes a motion applied to a panel's content node.
type CameraAction struct {
	Kind       CameraKind `json:"type" yaml:"type"`
	Magnitude  float64    `json:"magnitude,omitempty" yaml:"magnitude,omitempty"`
	DurationMS int        `json:"duration,omitempty" yaml:"duration,omitempty"`
	Direction  string     `json:"direction,omitempty" yaml:"direction,omitempty"`
	ResetOnEnd bool       `json:"resetOnEnd,omitempty" yaml:"resetOnEnd,omitempty"`
}

// MediaBinding is the initial content of a panel.
type MediaBinding struct {
	Panel    string     `json:"panel" yaml:"panel"`
	Type     ActionType `json:"type" yaml:"type"`
	FileName string     `json:"fileName" yaml:"fileName"`
	Loop     bool       `json:"loop,omitempty" yaml:"loop,omitempty"`
}

// AmbientAudio configures a page's ambient channel.
type AmbientAudio struct {
	FileName string  `json:"fileName" yaml:"fileName"`
	Volume   float64 `json:"volume,omitempty" yaml:"volume,omitempty"`
}

// PageMedia is the media snapshot of a page.
type PageMedia struct {
	// Layout lists panel selectors in render order. When empty the layout is
	// derived from bindings and cue targets.
	Layout                  []string       `json:"layout,omitempty" yaml:"layout,omitempty"`
	Media                   []MediaBinding `json:"media" yaml:"media"`
	SequentialVideoPlayback bool           `json:"sequentialVideoPlayback,omitempty" yaml:"sequentialVideoPlayback,omitempty"`
	AmbientAudio            *AmbientAudio  `json:"ambientAudio,omitempty" yaml:"ambientAudio,omitempty"`
}

// AudioMapEntry assigns a background track to a set of pages.
type AudioMapEntry struct {
	FileName string   `json:"fileName" yaml:"fileName"`
	Pages    []string `json:"pages" yaml:"pages"`
	Volume   float64  `json:"volume,omitempty" yaml:"volume,omitempty"`
}

// PageRef identifies a page.
type PageRef struct {
	Series  string `json:"series" yaml:"series"`
	Volume  string `json:"volume" yaml:"volume"`
	Chapter string `json:"chapter" yaml:"chapter"`
	PageID  string `json:"pageId" yaml:"pageId"`
}

// Key returns a stable identifier usable as an owner id or map key.
func (p PageRef) Key() string {
	return fmt.Sprintf("%s/%s/%s/%s", p.Series, p.Volume, p.Chapter, p.PageID)
}

func (p PageRef) String() string { return p.Key() }

// IsZero reports whether the ref is unset.
func (p PageRef) IsZero() bool { return p == PageRef{} }
