package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"
)

const healthProbeTimeout = 10 * time.Second

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the gate check service",
	Long: `Check the health of the gate check service.

With --wait, keep probing until the service reports ok or the wait runs out,
which is handy in deploy scripts.`,
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wait, _ := cmd.Flags().GetDuration("wait")

		status, rtt, err := probeHealth(context.Background(), wait)
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			if err := printJSON(out, map[string]any{"status": status, "latency_ms": rtt.Milliseconds()}); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(out, "Health: %s (%s)\n", status, rtt.Round(time.Millisecond))
		}
		if status != "ok" {
			return fmt.Errorf("unhealthy: %s", status)
		}
		return nil
	},
}

// probeHealth asks the server for its status, retrying with backoff for up
// to wait. It returns the last status and the round trip of that probe.
func probeHealth(ctx context.Context, wait time.Duration) (string, time.Duration, error) {
	var (
		status string
		rtt    time.Duration
	)
	probe := func() error {
		pctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
		defer cancel()
		began := time.Now()
		s, err := gcClient.Health(pctx)
		rtt = time.Since(began)
		if err != nil {
			return err
		}
		status = s
		if s != "ok" {
			return fmt.Errorf("status %s", s)
		}
		return nil
	}

	if wait <= 0 {
		err := probe()
		if status != "" {
			err = nil
		}
		return status, rtt, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = wait
	err := backoff.Retry(probe, backoff.WithContext(bo, ctx))
	if status != "" {
		// An answer that is not ok is reported by the caller.
		err = nil
	}
	return status, rtt, err
}

func init() {
	healthCmd.Flags().Duration("wait", 0, "keep retrying until healthy or this long has passed")
}
