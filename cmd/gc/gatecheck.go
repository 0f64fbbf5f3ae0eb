package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/client"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/idgen"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
	"github.com/spf13/cobra"
)

var transitionsCmd = &cobra.Command{
	Use:     "transitions",
	Short:   "List phase transitions and their checklist sizes",
	GroupID: "checks",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		infos, err := gcClient.ListTransitions(context.Background())
		if err != nil {
			return fmt.Errorf("listing transitions: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), infos)
		}
		printTransitions(cmd.OutOrStdout(), infos)
		return nil
	},
}

var templateCmd = &cobra.Command{
	Use:     "template <transition>",
	Short:   "Show the checklist template for a transition",
	GroupID: "checks",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, err := model.ParseTransition(args[0])
		if err != nil {
			return err
		}
		items, err := gcClient.GetTemplateItems(context.Background(), tr)
		if err != nil {
			return fmt.Errorf("getting template: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), items)
		}
		printTemplate(cmd.OutOrStdout(), tr, items)
		return nil
	},
}

var latestCmd = &cobra.Command{
	Use:     "latest <lot> <transition>",
	Short:   "Show the most recent gate check for a lot and transition",
	GroupID: "checks",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, err := model.ParseTransition(args[1])
		if err != nil {
			return err
		}
		gc, err := gcClient.GetLatestGateCheck(context.Background(), args[0], tr)
		if err != nil {
			return fmt.Errorf("getting gate check: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), gc)
		}
		if gc == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "lot %s: %s not started\n", args[0], tr)
			return nil
		}
		printGateCheck(cmd.OutOrStdout(), gc)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:     "show <gate-check-id>",
	Short:   "Show a gate check with its checklist",
	GroupID: "checks",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gc, err := gcClient.GetGateCheck(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("getting gate check: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), gc)
		}
		printGateCheck(cmd.OutOrStdout(), gc)
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:     "start <lot> <transition>",
	Short:   "Start a gate check",
	GroupID: "checks",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, err := model.ParseTransition(args[1])
		if err != nil {
			return err
		}
		gc, err := gcClient.StartGateCheck(context.Background(), args[0], tr, actor)
		if err != nil {
			return fmt.Errorf("starting gate check: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), gc)
		}
		printGateCheck(cmd.OutOrStdout(), gc)
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set (<item-id> | <lot> <transition> <item-code>) <result>",
	Short: "Record an item result (pass, fail or na)",
	Long: `Record an inspection result for one checklist item.

The item is given by its ID, or by lot, transition and item code, in which
case the item is looked up on the lot's in-progress gate check.`,
	GroupID: "checks",
	Args: func(cmd *cobra.Command, args []string) error {
		switch len(args) {
		case 2:
			if !idgen.HasPrefix(args[0], idgen.PrefixItem) {
				return fmt.Errorf("%q is not an item ID; use <lot> <transition> <item-code> to select by code", args[0])
			}
			return nil
		case 4:
			return nil
		default:
			return fmt.Errorf("accepts 2 or 4 args, received %d", len(args))
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		itemID := args[0]
		if len(args) == 4 {
			id, err := resolveItemID(ctx, gcClient, args[0], args[1], args[2])
			if err != nil {
				return err
			}
			itemID = id
		}

		req := &client.UpdateItemRequest{
			ItemID: itemID,
			Result: model.ItemResult(strings.ToLower(args[len(args)-1])),
			Actor:  actor,
		}
		if cmd.Flags().Changed("notes") {
			notes, _ := cmd.Flags().GetString("notes")
			req.Notes = &notes
		}
		if cmd.Flags().Changed("photo") {
			photo, _ := cmd.Flags().GetString("photo")
			req.PhotoURL = &photo
		}

		item, err := gcClient.UpdateGateCheckItem(ctx, req)
		if err != nil {
			return fmt.Errorf("updating item: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), item)
		}
		printItem(cmd.OutOrStdout(), item)
		return nil
	},
}

// resolveItemID finds the item with the given code on the lot's latest gate
// check, which must still be in progress.
func resolveItemID(ctx context.Context, c client.GateCheckClient, lotID, transition, code string) (string, error) {
	tr, err := model.ParseTransition(transition)
	if err != nil {
		return "", err
	}
	gc, err := c.GetLatestGateCheck(ctx, lotID, tr)
	if err != nil {
		return "", fmt.Errorf("getting gate check: %w", err)
	}
	if gc == nil {
		return "", fmt.Errorf("lot %s has no %s gate check; run 'gc start %s %s' first", lotID, tr, lotID, tr)
	}
	if gc.Status != model.StatusInProgress {
		return "", fmt.Errorf("gate check %s is %s: %w", gc.ID, gc.Status, model.ErrGateCheckClosed)
	}
	for _, it := range gc.Items {
		if strings.EqualFold(it.ItemCode, code) {
			return it.ID, nil
		}
	}
	return "", fmt.Errorf("gate check %s has no item %q: %w", gc.ID, code, model.ErrNotFound)
}

var completeCmd = &cobra.Command{
	Use:     "complete <gate-check-id>",
	Short:   "Complete a gate check and compute its outcome",
	GroupID: "checks",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gc, err := gcClient.CompleteGateCheck(context.Background(), args[0], actor)
		if err != nil {
			return fmt.Errorf("completing gate check: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), gc)
		}
		printGateCheck(cmd.OutOrStdout(), gc)
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:     "cancel <gate-check-id>",
	Short:   "Cancel an in-progress gate check",
	GroupID: "checks",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		if strings.TrimSpace(reason) == "" {
			return fmt.Errorf("--reason is required")
		}
		gc, err := gcClient.CancelGateCheck(context.Background(), args[0], actor, reason)
		if err != nil {
			return fmt.Errorf("cancelling gate check: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), gc)
		}
		printGateCheck(cmd.OutOrStdout(), gc)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:     "history <lot> <transition>",
	Short:   "List past gate checks for a lot and transition, newest first",
	GroupID: "checks",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, err := model.ParseTransition(args[1])
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		gcs, err := gcClient.ListGateChecks(context.Background(), args[0], tr, limit)
		if err != nil {
			return fmt.Errorf("listing gate checks: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), gcs)
		}
		printGateCheckList(cmd.OutOrStdout(), gcs)
		return nil
	},
}

var eventsCmd = &cobra.Command{
	Use:     "events <gate-check-id>",
	Short:   "Show the audit trail of a gate check",
	GroupID: "views",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		evts, err := gcClient.GetEvents(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("getting events: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), evts)
		}
		printEvents(cmd.OutOrStdout(), evts)
		return nil
	},
}

func init() {
	setCmd.Flags().String("notes", "", "inspector notes for the item")
	setCmd.Flags().String("photo", "", "URL of a photo documenting the item")
	cancelCmd.Flags().String("reason", "", "why the gate check is abandoned")
	_ = cancelCmd.MarkFlagRequired("reason")
	historyCmd.Flags().Int("limit", 20, "maximum number of gate checks to show")
}
