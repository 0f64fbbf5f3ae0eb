package main

import (
	"context"
	"fmt"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
	"github.com/spf13/cobra"
)

var deficiencyCmd = &cobra.Command{
	Use:     "deficiency",
	Aliases: []string{"def"},
	Short:   "List, show and resolve deficiencies",
	GroupID: "deficiencies",
}

var deficiencyListCmd = &cobra.Command{
	Use:   "list <lot>",
	Short: "List deficiencies recorded against a lot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		st := model.DeficiencyStatus(status)
		if st != "" && !st.IsValid() {
			return fmt.Errorf("invalid --status %q (want open or resolved)", status)
		}
		defs, err := gcClient.ListDeficiencies(context.Background(), args[0], st)
		if err != nil {
			return fmt.Errorf("listing deficiencies: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), defs)
		}
		printDeficiencyList(cmd.OutOrStdout(), defs)
		return nil
	},
}

var deficiencyShowCmd = &cobra.Command{
	Use:   "show <deficiency-id>",
	Short: "Show a deficiency",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := gcClient.GetDeficiency(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("getting deficiency: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), d)
		}
		printDeficiency(cmd.OutOrStdout(), d)
		return nil
	},
}

var deficiencyResolveCmd = &cobra.Command{
	Use:   "resolve <deficiency-id>",
	Short: "Mark a deficiency resolved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolution, _ := cmd.Flags().GetString("resolution")
		d, err := gcClient.ResolveDeficiency(context.Background(), args[0], actor, resolution)
		if err != nil {
			return fmt.Errorf("resolving deficiency: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), d)
		}
		printDeficiency(cmd.OutOrStdout(), d)
		return nil
	},
}

func init() {
	deficiencyListCmd.Flags().String("status", "", "filter by status (open or resolved)")
	deficiencyResolveCmd.Flags().StringP("resolution", "m", "", "how the deficiency was fixed")

	deficiencyCmd.AddCommand(deficiencyListCmd)
	deficiencyCmd.AddCommand(deficiencyShowCmd)
	deficiencyCmd.AddCommand(deficiencyResolveCmd)
}
