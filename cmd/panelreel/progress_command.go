package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"panelreel/internal/clientstate"
)

func newProgressCommand(ctx *commandContext) *cobra.Command {
	progressCmd := &cobra.Command{
		Use:   "progress",
		Short: "Inspect or reset saved reading positions",
	}
	progressCmd.AddCommand(newProgressListCommand(ctx))
	progressCmd.AddCommand(newProgressClearCommand(ctx))
	return progressCmd
}

func newProgressListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the last page read in each volume",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *clientstate.Store) error {
				entries, err := store.ListProgress(cmd.Context())
				if err != nil {
					return fmt.Errorf("list progress: %w", err)
				}
				if asJSON {
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No reading progress saved")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, p := range entries {
					rows = append(rows, []string{
						p.Page.Series,
						p.Page.Volume,
						p.Page.Chapter + "/" + p.Page.PageID,
						strconv.Itoa(p.PageIndex + 1),
						p.UpdatedAt.Local().Format(time.DateTime),
					})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"Series", "Volume", "Page", "#", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newProgressClearCommand(ctx *commandContext) *cobra.Command {
	var series, volume string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget the saved position of a volume",
		RunE: func(cmd *cobra.Command, args []string) error {
			series, volume, err := ctx.volumeArgs(series, volume)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *clientstate.Store) error {
				removed, err := store.ClearProgress(cmd.Context(), series, volume)
				if err != nil {
					return fmt.Errorf("clear progress: %w", err)
				}
				if removed {
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared progress for %s/%s\n", series, volume)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "No progress saved for %s/%s\n", series, volume)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&series, "series", "", "Series id (defaults to [content] series)")
	cmd.Flags().StringVar(&volume, "volume", "", "Volume id (defaults to [content] volume)")
	return cmd
}
