package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/client"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/presence"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/ui"
)

const timeLayout = "2006-01-02 15:04"

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func printTransitions(w io.Writer, infos []client.TransitionInfo) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TRANSITION\tITEMS\tBLOCKING")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", info.Transition, info.Items, info.Blocking)
	}
	tw.Flush()
}

func printTemplate(w io.Writer, transition model.Transition, items []*model.TemplateItem) {
	fmt.Fprintf(w, "%s\n", ui.RenderAccent(string(transition)))
	for _, it := range items {
		fmt.Fprintf(w, "  %s %-4s %s\n", ui.BlockingMarker(it.IsBlocking), it.ItemCode, it.ItemLabel)
	}
	fmt.Fprintln(w, ui.RenderMuted("  * blocking: a fail here fails the gate"))
}

// printGateCheck renders the header and checklist of one gate check.
func printGateCheck(w io.Writer, gc *model.GateCheck) {
	fmt.Fprintf(w, "ID:          %s\n", gc.ID)
	fmt.Fprintf(w, "Lot:         %s\n", gc.LotID)
	fmt.Fprintf(w, "Transition:  %s\n", gc.Transition)
	fmt.Fprintf(w, "Status:      %s\n", ui.RenderStatus(gc.Status))
	fmt.Fprintf(w, "Started:     %s by %s\n", gc.StartedAt.Local().Format(timeLayout), gc.StartedBy)
	if gc.CompletedAt != nil {
		label := "Completed:"
		if gc.Status == model.StatusCancelled {
			label = "Cancelled:"
		}
		fmt.Fprintf(w, "%-12s %s", label, gc.CompletedAt.Local().Format(timeLayout))
		if gc.CompletedBy != "" {
			fmt.Fprintf(w, " by %s", gc.CompletedBy)
		}
		fmt.Fprintln(w)
	}
	if gc.CancelReason != "" {
		fmt.Fprintf(w, "Reason:      %s\n", gc.CancelReason)
	}

	fmt.Fprintln(w)
	width := ui.TerminalWidth() - 30
	for _, it := range gc.Items {
		fmt.Fprintf(w, "  %s %-4s %s %s", ui.BlockingMarker(it.IsBlocking), it.ItemCode, ui.RenderResult(it.Result), ui.Truncate(it.ItemLabel, width))
		if it.DeficiencyID != "" {
			fmt.Fprintf(w, "  %s", ui.RenderMuted("["+it.DeficiencyID+"]"))
		}
		fmt.Fprintln(w)
		if it.Notes != "" {
			fmt.Fprintf(w, "         %s\n", ui.RenderMuted(it.Notes))
		}
	}

	if pending := len(gc.PendingItems()); pending > 0 && gc.Status == model.StatusInProgress {
		fmt.Fprintf(w, "\n%d of %d items pending\n", pending, len(gc.Items))
	}
}

func printGateCheckList(w io.Writer, gcs []*model.GateCheck) {
	if len(gcs) == 0 {
		fmt.Fprintln(w, "no gate checks")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tSTARTED\tBY\tCLOSED")
	for _, gc := range gcs {
		closed := ""
		if gc.CompletedAt != nil {
			closed = gc.CompletedAt.Local().Format(timeLayout)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			gc.ID,
			gc.Status,
			gc.StartedAt.Local().Format(timeLayout),
			gc.StartedBy,
			closed,
		)
	}
	tw.Flush()
}

func printItem(w io.Writer, it *model.GateCheckItem) {
	fmt.Fprintf(w, "%s %s -> %s", it.ItemCode, ui.Truncate(it.ItemLabel, 40), ui.RenderResult(it.Result))
	if it.DeficiencyID != "" {
		fmt.Fprintf(w, " (deficiency %s)", it.DeficiencyID)
	}
	fmt.Fprintln(w)
}

func printDeficiency(w io.Writer, d *model.Deficiency) {
	fmt.Fprintf(w, "ID:          %s\n", d.ID)
	fmt.Fprintf(w, "Status:      %s\n", ui.RenderDeficiencyStatus(d.Status))
	fmt.Fprintf(w, "Lot:         %s\n", d.LotID)
	fmt.Fprintf(w, "Transition:  %s\n", d.Transition)
	fmt.Fprintf(w, "Item:        %s\n", d.ItemCode)
	fmt.Fprintf(w, "Gate check:  %s\n", d.GateCheckID)
	fmt.Fprintf(w, "Description: %s\n", d.Description)
	fmt.Fprintf(w, "Created:     %s", d.CreatedAt.Local().Format(timeLayout))
	if d.CreatedBy != "" {
		fmt.Fprintf(w, " by %s", d.CreatedBy)
	}
	fmt.Fprintln(w)
	if d.ResolvedAt != nil {
		fmt.Fprintf(w, "Resolved:    %s by %s\n", d.ResolvedAt.Local().Format(timeLayout), d.ResolvedBy)
	}
	if d.Resolution != "" {
		fmt.Fprintf(w, "Resolution:  %s\n", d.Resolution)
	}
}

func printDeficiencyList(w io.Writer, defs []*model.Deficiency) {
	if len(defs) == 0 {
		fmt.Fprintln(w, "no deficiencies")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTRANSITION\tITEM\tDESCRIPTION")
	for _, d := range defs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Status, d.Transition, d.ItemCode, ui.Truncate(d.Description, 50))
	}
	tw.Flush()
}

func printEvents(w io.Writer, evts []*model.Event) {
	if len(evts) == 0 {
		fmt.Fprintln(w, "no events")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTOPIC\tACTOR")
	for _, e := range evts {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.CreatedAt.Local().Format(time.DateTime), e.Topic, e.Actor)
	}
	tw.Flush()
}

func printRoster(w io.Writer, entries []presence.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no recent inspector activity")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTOR\tLAST ACTION\tLOT\tTRANSITION\tIDLE\tACTIONS")
	for _, e := range entries {
		idle := (time.Duration(e.IdleSecs) * time.Second).String()
		if e.Idle {
			idle += " (idle)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n", e.Actor, e.LastAction, e.LotID, e.Transition, idle, e.ActionCount)
	}
	tw.Flush()
}
