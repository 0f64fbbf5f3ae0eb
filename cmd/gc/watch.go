package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/client"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/events"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/ui"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow gate check events as they happen",
	Long: `Follow gate check events as they happen.

Events come from NATS when a NATS URL is known (--nats, GATECHECK_NATS_URL
or the active remote), otherwise from the server's SSE stream.`,
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		patterns, _ := cmd.Flags().GetStringSlice("topic")
		lotID, _ := cmd.Flags().GetString("lot")
		natsURL, _ := cmd.Flags().GetString("nats")
		if natsURL == "" {
			natsURL = os.Getenv("GATECHECK_NATS_URL")
		}
		if natsURL == "" {
			natsURL = activeRemoteNATSURL()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		f := &eventFilter{patterns: patterns, lotID: lotID}
		out := cmd.OutOrStdout()
		if natsURL != "" {
			return watchNATS(ctx, natsURL, f, out)
		}
		return watchSSE(ctx, client.NewHTTPClient(httpURL, authToken), f, out)
	},
}

// eventFilter selects which events gc watch prints.
type eventFilter struct {
	patterns []string
	lotID    string
}

func (f *eventFilter) matchTopic(topic string) bool {
	if len(f.patterns) == 0 {
		return true
	}
	for _, p := range f.patterns {
		if events.MatchTopic(p, topic) {
			return true
		}
	}
	return false
}

// eventPayload is the union of every published event shape.
type eventPayload struct {
	GateCheck  *model.GateCheck     `json:"gate_check"`
	Item       *model.GateCheckItem `json:"item"`
	Deficiency *model.Deficiency    `json:"deficiency"`
	LotID      string               `json:"lot_id"`
	Transition model.Transition     `json:"transition"`
	Previous   model.ItemResult     `json:"previous"`
	Reason     string               `json:"reason"`
	Blocking   []string             `json:"blocking"`
}

func (p *eventPayload) lot() string {
	switch {
	case p.GateCheck != nil:
		return p.GateCheck.LotID
	case p.Deficiency != nil:
		return p.Deficiency.LotID
	default:
		return p.LotID
	}
}

// describeEvent renders a one-line summary of an event payload.
func describeEvent(p *eventPayload) string {
	switch {
	case p.GateCheck != nil:
		gc := p.GateCheck
		s := fmt.Sprintf("%s %s %s %s", gc.LotID, gc.Transition, gc.ID, ui.RenderStatus(gc.Status))
		if len(p.Blocking) > 0 {
			s += " (blocking: " + strings.Join(p.Blocking, ", ") + ")"
		}
		if p.Reason != "" {
			s += " (" + p.Reason + ")"
		}
		return s
	case p.Item != nil:
		return fmt.Sprintf("%s %s %s %s -> %s", p.LotID, p.Transition, p.Item.ItemCode,
			strings.TrimSpace(ui.RenderResult(p.Previous)), strings.TrimSpace(ui.RenderResult(p.Item.Result)))
	case p.Deficiency != nil:
		d := p.Deficiency
		return fmt.Sprintf("%s %s %s %s %s", d.LotID, d.Transition, d.ItemCode, d.ID, ui.RenderDeficiencyStatus(d.Status))
	default:
		return ""
	}
}

// printEvent writes one event line unless the filter rejects it. Payloads
// that do not decode are printed raw.
func printEvent(w io.Writer, f *eventFilter, at time.Time, topic string, data []byte) {
	if !f.matchTopic(topic) {
		return
	}
	stamp := ui.RenderMuted(at.Local().Format(time.TimeOnly))

	if jsonOutput {
		fmt.Fprintf(w, "{\"topic\":%q,\"data\":%s}\n", topic, data)
		return
	}

	var p eventPayload
	if err := json.Unmarshal(data, &p); err != nil {
		fmt.Fprintf(w, "%s %s %s\n", stamp, topic, data)
		return
	}
	if f.lotID != "" && p.lot() != f.lotID {
		return
	}
	fmt.Fprintf(w, "%s %-30s %s\n", stamp, topic, describeEvent(&p))
}

// watchSSE follows the SSE stream, reconnecting with backoff and resuming
// after the last event seen.
func watchSSE(ctx context.Context, c *client.HTTPClient, f *eventFilter, w io.Writer) error {
	var lastID string

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0

	op := func() error {
		err := c.StreamEvents(ctx, f.patterns, lastID, func(ev client.StreamEvent) error {
			lastID = ev.ID
			bo.Reset()
			printEvent(w, f, time.Now(), ev.Topic, ev.Data)
			return nil
		})
		if ctx.Err() != nil {
			return nil
		}
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return backoff.Permanent(err)
		}
		if err == nil {
			err = errors.New("event stream closed by server")
		}
		log.Printf("watch: %v; reconnecting", err)
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// watchNATS subscribes to each filter pattern (all events when none) and
// prints messages until ctx is done.
func watchNATS(ctx context.Context, natsURL string, f *eventFilter, w io.Writer) error {
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("nats: reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	patterns := f.patterns
	if len(patterns) == 0 {
		patterns = []string{events.TopicAll}
	}

	merged := make(chan events.Message, 64)
	for _, pattern := range patterns {
		ch, cancel, err := sub.Subscribe(pattern)
		if err != nil {
			return fmt.Errorf("subscribing to events: %w", err)
		}
		defer cancel()
		go func() {
			for msg := range ch {
				select {
				case merged <- msg:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-merged:
			printEvent(w, f, time.Now(), msg.Topic, msg.Data)
		}
	}
}

func init() {
	watchCmd.Flags().StringSlice("topic", nil, "topic patterns to follow, e.g. gatecheck.deficiency.> (default all)")
	watchCmd.Flags().String("lot", "", "only show events for this lot")
	watchCmd.Flags().String("nats", "", "NATS URL to subscribe to instead of the SSE stream")
}
