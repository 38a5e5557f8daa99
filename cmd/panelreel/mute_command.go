package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"panelreel/internal/clientstate"
)

func newMuteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "mute [on|off|toggle|status]",
		Short:     "Show or change the persisted global mute flag",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off", "toggle", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "status"
			if len(args) == 1 {
				action = strings.ToLower(strings.TrimSpace(args[0]))
			}
			return ctx.withStore(func(store *clientstate.Store) error {
				muted, err := store.LoadMute()
				if err != nil {
					return fmt.Errorf("load mute flag: %w", err)
				}
				switch action {
				case "status":
				case "on":
					muted = true
				case "off":
					muted = false
				case "toggle":
					muted = !muted
				default:
					return fmt.Errorf("unknown mute action %q (want on, off, toggle, or status)", action)
				}
				if action != "status" {
					if err := store.SaveMute(muted); err != nil {
						return fmt.Errorf("save mute flag: %w", err)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Muted: %s\n", yesNo(muted))
				return nil
			})
		},
	}
}
