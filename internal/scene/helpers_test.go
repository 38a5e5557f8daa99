package scene

import (
	"testing"
	"time"
)

func TestStripExpressiveFlags(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello there", "Hello there"},
		{"[whispers] Don't   move.", "Don't move."},
		{"Wait [pause] for it [laughs]", "Wait for it"},
		{"  padded  ", "padded"},
		{"[sighs]", ""},
	}
	for _, tc := range tests {
		if got := StripExpressiveFlags(tc.in); got != tc.want {
			t.Errorf("StripExpressiveFlags(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEstimateTextDuration(t *testing.T) {
	tests := []struct {
		name string
		text string
		want time.Duration
	}{
		{"empty uses minimum", "", 1500 * time.Millisecond},
		{"short uses minimum", "Hi there", 1500 * time.Millisecond},
		{"ten words", "one two three four five six seven eight nine ten", 3300 * time.Millisecond},
		{"flags ignored", "[shouts] one two three four five six seven eight nine ten", 3300 * time.Millisecond},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DefaultTiming.EstimateTextDuration(tc.text); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestEstimatePrefersDeclaredDuration(t *testing.T) {
	pause := Cue{Kind: KindPause, DurationMS: 1000}
	if got := DefaultTiming.Estimate(pause); got != time.Second {
		t.Fatalf("pause estimate %v", got)
	}
	if got := DefaultTiming.Estimate(Cue{Kind: KindPause}); got != 0 {
		t.Fatalf("pause without duration should be zero, got %v", got)
	}
	bubble := Cue{Kind: KindSpeechBubble, Text: "a b c d e f g h i j"}
	if got := DefaultTiming.Estimate(bubble); got != 3300*time.Millisecond {
		t.Fatalf("bubble estimate %v", got)
	}
}

func TestNormalizeRenumbersAndRegeneratesIDs(t *testing.T) {
	in := []Cue{
		{ID: "b", DisplayOrder: 7},
		{ID: "a", DisplayOrder: 3},
		{ID: "a", DisplayOrder: 7},
		{ID: "", DisplayOrder: 10},
	}
	out := Normalize(in)
	if len(out) != len(in) {
		t.Fatalf("Normalize dropped cues: %d", len(out))
	}
	if out[0].ID != "a" || out[1].ID != "b" {
		t.Fatalf("unexpected order: %+v", out)
	}
	seen := map[string]bool{}
	for i, c := range out {
		if c.DisplayOrder != i {
			t.Fatalf("cue %d has order %d", i, c.DisplayOrder)
		}
		if c.ID == "" || seen[c.ID] {
			t.Fatalf("id %q not unique", c.ID)
		}
		seen[c.ID] = true
	}
	if in[0].DisplayOrder != 7 {
		t.Fatal("Normalize mutated its input")
	}
}

func TestSortByDisplayOrderKeepsArrayPositionOnTies(t *testing.T) {
	out := SortByDisplayOrder([]Cue{{ID: "x", DisplayOrder: 1}, {ID: "y", DisplayOrder: 0}, {ID: "z", DisplayOrder: 1}})
	if out[0].ID != "y" || out[1].ID != "x" || out[2].ID != "z" {
		t.Fatalf("unexpected order: %v %v %v", out[0].ID, out[1].ID, out[2].ID)
	}
}

func TestMatchAudioMap(t *testing.T) {
	entries := []AudioMapEntry{
		{FileName: "calm.mp3", Pages: []string{"p1", "p2"}},
		{FileName: "tense.mp3", Pages: []string{"p2", "p3"}},
	}
	entry, ok := MatchAudioMap(entries, "p2")
	if !ok || entry.FileName != "calm.mp3" {
		t.Fatalf("expected first match, got %+v %v", entry, ok)
	}
	if _, ok := MatchAudioMap(entries, "p9"); ok {
		t.Fatal("expected no match")
	}
}

func TestPendingCompletionsIgnoresEndTrigger(t *testing.T) {
	c := Cue{MediaActions: []MediaAction{
		{Type: ActionPlaylist, WaitForCompletion: true},
		{Type: ActionPlaylist, WaitForCompletion: true, Trigger: TriggerEnd},
		{Type: ActionImage},
	}}
	if c.PendingCompletions() != 1 {
		t.Fatalf("expected 1 pending completion, got %d", c.PendingCompletions())
	}
}

func TestLayoutDerivesPanels(t *testing.T) {
	cues := []Cue{
		{ID: "b", DisplayOrder: 1, Placement: Placement{Panel: "#p3"}},
		{ID: "a", DisplayOrder: 0, Placement: Placement{Panel: "#p1"}, MediaActions: []MediaAction{
			{Type: ActionImage, Panel: "#p4"},
			{Type: ActionBackgroundAudio, Panel: "#ignored"},
		}},
	}
	media := PageMedia{Media: []MediaBinding{{Panel: "#p2"}, {Panel: "#p1"}}}

	got := Layout(cues, media)
	want := []string{"#p2", "#p1", "#p4", "#p3"}
	if len(got) != len(want) {
		t.Fatalf("unexpected layout %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected layout %v, want %v", got, want)
		}
	}

	media.Layout = []string{"#only"}
	if got := Layout(cues, media); len(got) != 1 || got[0] != "#only" {
		t.Fatalf("expected explicit layout, got %v", got)
	}
}
