package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/coldpipe/coldpipe/internal/domain"
	"github.com/coldpipe/coldpipe/internal/repository"
)

func newInitIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-indexes",
		Short: "Create all store indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *container) error {
				if err := repository.EnsureIndexes(ctx, c.db); err != nil {
					return err
				}
				cmd.Println("Indexes created successfully.")
				return nil
			})
		},
	}
}

func newBackfillProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-progress CAMPAIGN",
		Short: "Add default progress to leads imported without one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *container) error {
				modified, err := c.leads.BackfillProgress(ctx, args[0])
				if err != nil {
					return err
				}
				cmd.Printf("Progress backfilled for %d leads in campaign %s.\n", modified, args[0])
				return nil
			})
		},
	}
}

func newRecountRuntimeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recount-runtime MAILBOX DATE",
		Short: "Rebuild an account's daily counter from activities",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *container) error {
				count, err := c.runtime.Recount(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				cmd.Printf("Runtime state recounted for %s on %s: sent_count=%d.\n", args[0], args[1], count)
				return nil
			})
		},
	}
}

func newFixRuntimeStatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fix-runtime-states",
		Short: "Repair runtime records with corrupt availability timestamps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *container) error {
				fixed, err := c.runtime.FixStale(ctx, time.Now().UTC())
				if err != nil {
					return err
				}
				cmd.Printf("Fixed %d runtime state records.\n", fixed)
				return nil
			})
		},
	}
}

func newMakeLeadDueNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "make-lead-due-now LEAD",
		Short: "Force a lead due for its next step immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *container) error {
				lead, progress, err := resolveProgress(ctx, c, args[0])
				if err != nil {
					return err
				}
				now := time.Now().UTC()
				progress.NextDueAt = &now
				progress.Stopped = false
				progress.Reason = ""
				if err := c.leads.UpdateProgress(ctx, lead.ID.String(), progress); err != nil {
					return err
				}
				cmd.Printf("Lead %s is now due.\n", args[0])
				return nil
			})
		},
	}
}

func newResetLeadProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-lead-progress LEAD",
		Short: "Reset a lead to the first step with no processed recipients",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *container) error {
				lead, _, err := resolveProgress(ctx, c, args[0])
				if err != nil {
					return err
				}
				fresh := &domain.Progress{CurrentStepOrder: 1}
				if err := c.leads.UpdateProgress(ctx, lead.ID.String(), fresh); err != nil {
					return err
				}
				cmd.Printf("Progress reset for lead %s.\n", args[0])
				return nil
			})
		},
	}
}

func newUpdateLeadStatusesCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "update-lead-statuses CAMPAIGN",
		Short: "Stamp a status on recipients already processed by the sequence",
		Long: `Stamp lead_data[i].status for recipients present in processed_recipients.
Administrative only: the sequencing logic never reads these fields.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *container) error {
				updated, err := c.leads.MarkRecipientStatuses(ctx, args[0], status)
				if err != nil {
					return err
				}
				cmd.Printf("Updated %d leads in campaign %s.\n", updated, args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "contacted", "status value to stamp")
	return cmd
}
