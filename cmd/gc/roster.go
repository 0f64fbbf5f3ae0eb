package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var rosterCmd = &cobra.Command{
	Use:     "roster",
	Short:   "Show inspectors recently active on gate checks",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stale, _ := cmd.Flags().GetDuration("stale")
		entries, err := gcClient.InspectorRoster(context.Background(), stale)
		if err != nil {
			return fmt.Errorf("getting roster: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), entries)
		}
		printRoster(cmd.OutOrStdout(), entries)
		return nil
	},
}

func init() {
	rosterCmd.Flags().Duration("stale", 30*time.Minute, "hide inspectors idle longer than this (0 shows all)")
}
