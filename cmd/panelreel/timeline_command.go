package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"panelreel/internal/config"
	"panelreel/internal/media"
	"panelreel/internal/media/probe"
	"panelreel/internal/scene"
)

func newTimelineCommand(ctx *commandContext) *cobra.Command {
	var series, volume string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "timeline <page>",
		Short: "Show when each cue of a page would start",
		Long: "Projects a page's cue timing from text length, declared durations, and " +
			"probed audio lengths. <page> is a 1-based page number or a page id.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			series, volume, err := ctx.volumeArgs(series, volume)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			loader, err := ctx.loader()
			if err != nil {
				return err
			}
			pages, err := ctx.pages(cmd.Context(), loader, series, volume)
			if err != nil {
				return err
			}
			page, err := pickPage(pages, args[0])
			if err != nil {
				return err
			}

			snap := loader.Page(cmd.Context(), page)
			prober := &probe.Prober{}
			timing := scene.Timing{
				Base:    config.MS(cfg.Playback.TextBaseMS),
				PerWord: config.MS(cfg.Playback.TextPerWordMS),
				Min:     config.MS(cfg.Playback.TextMinMS),
			}
			rows := buildTimeline(cfg, media.NewResolver(cfg.Assets), timing, page, snap.Cues, prober.Duration)

			if asJSON {
				return writeJSON(cmd, rows)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s mode, panels: %s)\n", page, cfg.Playback.Mode, strings.Join(snap.Layout, " "))
			if len(rows) == 0 {
				fmt.Fprintln(out, "No cues")
				return nil
			}
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				table = append(table, []string{
					strconv.Itoa(r.Index + 1),
					formatOffset(r.Start),
					formatOffset(r.Duration),
					r.Kind,
					r.Speaker,
					truncate(r.Text, 40),
					r.Gate,
					strings.Join(r.Actions, ", "),
				})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"#", "Start", "Length", "Kind", "Speaker", "Text", "Gate", "Actions"},
				table,
				[]columnAlignment{alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&series, "series", "", "Series id (defaults to [content] series)")
	cmd.Flags().StringVar(&volume, "volume", "", "Volume id (defaults to [content] volume)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newPagesCommand(ctx *commandContext) *cobra.Command {
	var series, volume string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "pages",
		Short: "List a volume's pages in reading order",
		RunE: func(cmd *cobra.Command, args []string) error {
			series, volume, err := ctx.volumeArgs(series, volume)
			if err != nil {
				return err
			}
			loader, err := ctx.loader()
			if err != nil {
				return err
			}
			pages, err := ctx.pages(cmd.Context(), loader, series, volume)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, pages)
			}
			rows := make([][]string, 0, len(pages))
			for i, p := range pages {
				snap := loader.Page(cmd.Context(), p)
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					p.Chapter,
					p.PageID,
					strconv.Itoa(len(snap.Cues)),
					strconv.Itoa(len(snap.Media.Media)),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out,
				[]string{"#", "Chapter", "Page", "Cues", "Bindings"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&series, "series", "", "Series id (defaults to [content] series)")
	cmd.Flags().StringVar(&volume, "volume", "", "Volume id (defaults to [content] volume)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

// pickPage accepts a 1-based page number or a page id.
func pickPage(pages []scene.PageRef, arg string) (scene.PageRef, error) {
	arg = strings.TrimSpace(arg)
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(pages) {
			return scene.PageRef{}, fmt.Errorf("page %d out of range (1-%d)", n, len(pages))
		}
		return pages[n-1], nil
	}
	for _, p := range pages {
		if p.PageID == arg || p.Key() == arg {
			return p, nil
		}
	}
	return scene.PageRef{}, fmt.Errorf("page %q not found", arg)
}
