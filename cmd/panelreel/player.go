package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"panelreel/internal/events"
	"panelreel/internal/logging"
	"panelreel/internal/loop"
	"panelreel/internal/playback"
	"panelreel/internal/scene"
	"panelreel/internal/sequencer"
	"panelreel/internal/window"
)

// player narrates a running volume and turns commands into navigation.
// Every method runs on the loop.
type player struct {
	out    io.Writer
	sched  loop.Scheduler
	pb     *playback.Context
	mgr    *window.Manager
	logger *slog.Logger

	auto      bool
	dwell     time.Duration
	exitAtEnd bool
	quit      context.CancelFunc

	unsub func()
}

func newPlayer(out io.Writer, pb *playback.Context, mgr *window.Manager, quit context.CancelFunc) *player {
	p := &player{
		out:    out,
		sched:  pb.Sched,
		pb:     pb,
		mgr:    mgr,
		logger: logging.NewComponentLogger(pb.Logger, "player"),
		quit:   quit,
	}
	p.unsub = pb.Bus.Subscribe(p.narrate)
	return p
}

func (p *player) close() {
	if p.unsub != nil {
		p.unsub()
		p.unsub = nil
	}
}

func (p *player) narrate(ev events.Event) {
	switch e := ev.(type) {
	case events.PageVisibility:
		if e.Visible {
			fmt.Fprintf(p.out, "== page %d/%d  %s\n", e.Index+1, p.mgr.Len(), e.Page)
		}
	case events.CueStarted:
		fmt.Fprintln(p.out, cueLine(e.Cue))
	case events.PanelContentChanged:
		fmt.Fprintf(p.out, "   [%s %s %s]\n", e.Panel, e.Action, e.FileName)
	}
}

func cueLine(cue scene.Cue) string {
	text := scene.StripExpressiveFlags(cue.Text)
	switch cue.Kind {
	case scene.KindPause:
		return "   ..."
	case scene.KindSoundEffect:
		if text == "" {
			return "   *sfx*"
		}
		return "   *" + text + "*"
	}
	if who := speakerLabel(cue); who != "" {
		return fmt.Sprintf("   %s: %s", who, text)
	}
	return "   " + text
}

// goTo navigates and arms auto-advance once the window settles.
func (p *player) goTo(n int) {
	p.mgr.GoToPage(n).Then(func() {
		p.armAdvance(p.mgr.Current())
	})
}

func (p *player) armAdvance(n int) {
	if !p.auto || p.mgr.Current() != n {
		return
	}
	seq, ok := p.mgr.Sequencer(n)
	if !ok {
		return
	}
	seq.Done().Then(func() {
		if p.mgr.Current() != n || seq.State() != sequencer.StateCompleted {
			return
		}
		p.sched.AfterFunc(p.dwell, func() {
			if p.mgr.Current() != n {
				return
			}
			if n+1 >= p.mgr.Len() {
				fmt.Fprintln(p.out, "== end of volume")
				if p.exitAtEnd && p.quit != nil {
					p.quit()
				}
				return
			}
			p.goTo(n + 1)
		})
	})
}

// command handles one line of interactive input.
func (p *player) command(line string) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return
	}
	cur := p.mgr.Current()
	p.logger.Debug("command received", logging.String("command", fields[0]), logging.Int(logging.FieldPageIndex, cur))
	switch fields[0] {
	case "n", "next":
		if cur+1 < p.mgr.Len() {
			p.goTo(cur + 1)
		}
	case "p", "prev":
		if cur > 0 {
			p.goTo(cur - 1)
		}
	case "g", "goto":
		if len(fields) < 2 {
			fmt.Fprintln(p.out, "usage: goto <page>")
			return
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 || n > p.mgr.Len() {
			fmt.Fprintf(p.out, "page must be 1-%d\n", p.mgr.Len())
			return
		}
		p.goTo(n - 1)
	case "r", "restart":
		if seq, ok := p.mgr.Sequencer(cur); ok {
			seq.Restart()
			p.armAdvance(cur)
		}
	case "m", "mute":
		fmt.Fprintf(p.out, "muted: %s\n", yesNo(p.pb.Audio.ToggleGlobalMute()))
	case "s", "status":
		p.status()
	case "q", "quit":
		if p.quit != nil {
			p.quit()
		}
	default:
		fmt.Fprintln(p.out, "commands: next, prev, goto <n>, restart, mute, status, quit")
	}
}

func (p *player) status() {
	for _, st := range p.mgr.Snapshot() {
		marker := " "
		if st.Visible {
			marker = ">"
		}
		fmt.Fprintf(p.out, "%s %d %-10s %-10s cue %d\n", marker, st.Index+1, st.State, st.Sequence, st.Cue+1)
	}
	fmt.Fprintf(p.out, "muted: %s\n", yesNo(p.pb.Audio.Muted()))
}
