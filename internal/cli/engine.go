package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newRunDispatcherCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "run-dispatcher",
		Short: "Run one dispatch pass over the campaign queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *container) error {
				if batchSize <= 0 {
					batchSize = c.cfg.Worker.BatchSize
				}
				if err := c.newDispatcher().RunOnce(ctx, batchSize); err != nil {
					return err
				}
				cmd.Println("Dispatcher run completed.")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "max leads per campaign (default from DEFAULT_WORKER_BATCH_SIZE)")
	return cmd
}

func newRunContinuousCmd() *cobra.Command {
	var (
		batchSize   int
		tickSeconds int
	)

	cmd := &cobra.Command{
		Use:   "run-continuous",
		Short: "Run the dispatcher in a loop until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *container) error {
				if batchSize <= 0 {
					batchSize = c.cfg.Worker.BatchSize
				}
				if tickSeconds <= 0 {
					tickSeconds = c.cfg.Dispatcher.TickSeconds
				}

				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				return c.newDispatcher().Run(ctx, time.Duration(tickSeconds)*time.Second, batchSize)
			})
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "max leads per campaign (default from DEFAULT_WORKER_BATCH_SIZE)")
	cmd.Flags().IntVar(&tickSeconds, "tick-seconds", 0, "seconds between dispatch passes (default from DISPATCHER_TICK_SECONDS)")
	return cmd
}

func newRunWorkerCmd() *cobra.Command {
	var (
		batchSize int
		dryRun    bool
		since     string
	)

	cmd := &cobra.Command{
		Use:   "run-worker CAMPAIGN",
		Short: "Process one campaign's due leads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *container) error {
				campaignID := args[0]
				if batchSize <= 0 {
					batchSize = c.cfg.Worker.BatchSize
				}

				var sinceAt *time.Time
				if since != "" {
					parsed, err := parseInstant(since)
					if err != nil {
						return err
					}
					sinceAt = &parsed
				}

				processed, err := c.newWorker(dryRun).RunOnce(ctx, campaignID, batchSize, dryRun, sinceAt)
				if err != nil {
					return err
				}
				cmd.Printf("Worker run completed for campaign %s: %d leads processed.\n", campaignID, processed)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "max leads to process (default from DEFAULT_WORKER_BATCH_SIZE)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "render and advance progress without sending")
	cmd.Flags().StringVar(&since, "since", "", "override the due-selection instant (ISO timestamp)")
	return cmd
}

// parseInstant accepts an RFC3339 timestamp or a bare date.
func parseInstant(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
