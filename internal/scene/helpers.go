package scene

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

var expressiveFlagPattern = regexp.MustCompile(`\[[^\[\]]*\]`)

// StripExpressiveFlags removes bracketed performance hints such as
// "[whispers]" and collapses the whitespace they leave behind.
func StripExpressiveFlags(text string) string {
	if !strings.Contains(text, "[") {
		return strings.TrimSpace(text)
	}
	return strings.Join(strings.Fields(expressiveFlagPattern.ReplaceAllString(text, " ")), " ")
}

// WordCount counts whitespace-separated words after flag stripping.
func WordCount(text string) int {
	return len(strings.Fields(StripExpressiveFlags(text)))
}

// Timing holds the text-duration heuristic constants.
type Timing struct {
	Base    time.Duration
	PerWord time.Duration
	Min     time.Duration
}

// DefaultTiming is max(1500ms, 800ms + 250ms × words).
var DefaultTiming = Timing{
	Base:    800 * time.Millisecond,
	PerWord: 250 * time.Millisecond,
	Min:     1500 * time.Millisecond,
}

// EstimateTextDuration applies the heuristic to text.
func (t Timing) EstimateTextDuration(text string) time.Duration {
	d := t.Base + time.Duration(WordCount(text))*t.PerWord
	if d < t.Min {
		return t.Min
	}
	return d
}

// Estimate returns the gating duration of a cue when no audio length is
// known: the declared duration for pauses or explicit durations, otherwise
// the text heuristic.
func (t Timing) Estimate(c Cue) time.Duration {
	if c.DurationMS > 0 {
		return c.Duration()
	}
	if c.Kind == KindPause {
		return 0
	}
	return t.EstimateTextDuration(c.Text)
}

// SortByDisplayOrder returns a copy of cues ordered by DisplayOrder. Ties
// keep their original array position.
func SortByDisplayOrder(cues []Cue) []Cue {
	out := slices.Clone(cues)
	slices.SortStableFunc(out, func(a, b Cue) int {
		return a.DisplayOrder - b.DisplayOrder
	})
	return out
}

// Normalize sorts cues, renumbers DisplayOrder densely from zero, and
// regenerates empty or duplicate ids. No cue is dropped.
func Normalize(cues []Cue) []Cue {
	out := SortByDisplayOrder(cues)
	seen := make(map[string]struct{}, len(out))
	for i := range out {
		out[i].DisplayOrder = i
		id := strings.TrimSpace(out[i].ID)
		if _, dup := seen[id]; id == "" || dup {
			id = uuid.NewString()
		}
		out[i].ID = id
		seen[id] = struct{}{}
	}
	return out
}

// MatchAudioMap returns the first entry listing pageID.
func MatchAudioMap(entries []AudioMapEntry, pageID string) (AudioMapEntry, bool) {
	for _, entry := range entries {
		if slices.Contains(entry.Pages, pageID) {
			return entry, true
		}
	}
	return AudioMapEntry{}, false
}

// Layout returns the panel selectors a page mounts: the explicit layout when
// present, otherwise every panel named by a binding, cue placement or media
// action, in first-seen order.
func Layout(cues []Cue, m PageMedia) []string {
	if len(m.Layout) > 0 {
		return append([]string(nil), m.Layout...)
	}
	seen := make(map[string]struct{})
	var out []string
	add := func(sel string) {
		if sel == "" {
			return
		}
		if _, ok := seen[sel]; ok {
			return
		}
		seen[sel] = struct{}{}
		out = append(out, sel)
	}
	for _, b := range m.Media {
		add(b.Panel)
	}
	for _, c := range SortByDisplayOrder(cues) {
		add(c.Placement.Panel)
		for _, a := range c.MediaActions {
			if !a.Type.IsAudio() {
				add(a.Panel)
			}
		}
	}
	return out
}
