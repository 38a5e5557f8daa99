package main

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"panelreel/internal/config"
	"panelreel/internal/media"
	"panelreel/internal/scene"
)

// timelineRow is one cue's projected slot in a gated run.
type timelineRow struct {
	Index     int           `json:"index"`
	ID        string        `json:"id"`
	Kind      string        `json:"kind"`
	Speaker   string        `json:"speaker,omitempty"`
	Text      string        `json:"text,omitempty"`
	Audio     string        `json:"audio,omitempty"`
	Start     time.Duration `json:"start"`
	Duration  time.Duration `json:"duration"`
	Gate      string        `json:"gate"`
	Actions   []string      `json:"actions,omitempty"`
	Completes int           `json:"completions,omitempty"`
}

// probeFunc reports a known audio length for addr.
type probeFunc func(addr string) (time.Duration, bool)

var titleCaser = cases.Title(language.Und)

// buildTimeline projects when each cue starts if every gate resolves on its
// primary condition. Comic mode renders every cue at zero.
func buildTimeline(cfg *config.Config, resolver *media.Resolver, timing scene.Timing, page scene.PageRef, cues []scene.Cue, probe probeFunc) []timelineRow {
	ordered := scene.SortByDisplayOrder(cues)
	pause := config.MS(cfg.Playback.InterCuePauseMS)
	rows := make([]timelineRow, 0, len(ordered))

	var at time.Duration
	for i, cue := range ordered {
		row := timelineRow{
			Index:     i,
			ID:        cue.ID,
			Kind:      string(cue.Kind),
			Speaker:   speakerLabel(cue),
			Text:      scene.StripExpressiveFlags(cue.Text),
			Start:     at,
			Duration:  timing.Estimate(cue),
			Gate:      "text",
			Actions:   actionLabels(cue),
			Completes: cue.PendingCompletions(),
		}
		if cue.Kind == scene.KindPause {
			row.Gate = "pause"
		}

		addr, explicit := resolver.CueAudio(cue, page)
		if addr != "" && (explicit || cfg.Playback.ImplicitAudio) {
			row.Audio = addr
			if d, ok := probe(addr); ok {
				row.Duration = d
				row.Gate = "audio"
			} else if explicit {
				row.Duration = config.MS(cfg.Playback.AudioSafetyFallbackMS)
				row.Gate = "audio?"
			}
		}
		if row.Completes > 0 {
			row.Gate += "+ack"
		}

		if cfg.ComicMode() {
			row.Start = 0
		} else {
			at += row.Duration
			if i < len(ordered)-1 {
				at += pause
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func speakerLabel(cue scene.Cue) string {
	name := strings.TrimSpace(cue.Character)
	if name == "" {
		if cue.Subtype != "" {
			return "(" + string(cue.Subtype) + ")"
		}
		return ""
	}
	return titleCaser.String(strings.ToLower(name))
}

func actionLabels(cue scene.Cue) []string {
	var out []string
	for _, a := range cue.MediaActions {
		label := string(a.Type)
		switch {
		case a.Camera != nil:
			label = "camera:" + string(a.Camera.Kind)
		case a.Playback != "":
			label = string(a.Type) + ":" + string(a.Playback)
		}
		if a.Panel != "" {
			label += "@" + a.Panel
		}
		if a.TriggerOrDefault() == scene.TriggerEnd {
			label += " (end)"
		}
		out = append(out, label)
	}
	return out
}

func formatOffset(d time.Duration) string {
	return fmt.Sprintf("%d.%03ds", int(d/time.Second), int(d%time.Second/time.Millisecond))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
