package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/coldpipe/coldpipe/internal/domain"
)

func newListAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-accounts",
		Short: "List all active email accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *container) error {
				accounts, err := c.accounts.ListActiveAccounts(ctx)
				if err != nil {
					return err
				}
				for _, account := range accounts {
					cmd.Printf("ID: %s, Email: %s, Status: %s\n", account.ID, account.Email, orUnknown(account.Status))
				}
				return nil
			})
		},
	}
}

func newListCampaignsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-campaigns",
		Short: "List all campaigns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *container) error {
				campaigns, err := c.campaigns.ListCampaigns(ctx)
				if err != nil {
					return err
				}
				for _, campaign := range campaigns {
					cmd.Printf("ID: %s, Name: %s, Status: %s\n", campaign.ID, campaign.Name, orUnknown(campaign.Status))
				}
				return nil
			})
		},
	}
}

func newListLeadsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-leads CAMPAIGN",
		Short: "List a campaign's leads with their progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *container) error {
				leads, err := c.leads.ListLeads(ctx, args[0])
				if err != nil {
					return err
				}
				for _, lead := range leads {
					printLeadSummary(cmd, lead)
				}
				cmd.Printf("%d leads in campaign %s.\n", len(leads), args[0])
				return nil
			})
		},
	}
}

func newShowDueLeadsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "show-due-leads CAMPAIGN",
		Short: "Show the leads a worker would pick up right now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *container) error {
				leads, err := c.leads.GetDueLeads(ctx, args[0], time.Now().UTC(), limit)
				if err != nil {
					return err
				}
				for _, lead := range leads {
					printLeadSummary(cmd, lead)
				}
				cmd.Printf("%d due leads in campaign %s.\n", len(leads), args[0])
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "max leads to show")
	return cmd
}

func newShowLeadDetailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-lead-details LEAD",
		Short: "Show one lead's recipients and full progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *container) error {
				lead, err := c.leads.GetLead(ctx, args[0])
				if err != nil {
					return err
				}

				cmd.Printf("Lead: %s (campaign %s)\n", lead.ID, lead.CampaignID)
				cmd.Printf("Recipients (%d):\n", lead.Data.Total())
				for i := 0; i < lead.Data.Total(); i++ {
					recipient := lead.Data.At(i)
					cmd.Printf("  [%d] %s", i, orUnknown(recipient.Email()))
					if name := recipient.Get("name"); name != "" {
						cmd.Printf(" (%s)", name)
					}
					cmd.Println()
				}

				progress := lead.Progress
				if progress == nil {
					cmd.Println("Progress: none (never touched)")
					return nil
				}
				cmd.Printf("Progress: step %d, stopped=%t", progress.StepOrder(), progress.Stopped)
				if progress.Reason != "" {
					cmd.Printf(" (%s)", progress.Reason)
				}
				cmd.Println()
				if progress.LastSentAt != nil {
					cmd.Printf("  Last sent: %s\n", progress.LastSentAt.Format(time.RFC3339))
				}
				if progress.NextDueAt != nil {
					cmd.Printf("  Next due:  %s\n", progress.NextDueAt.Format(time.RFC3339))
				}
				for key, entry := range progress.ProcessedRecipients {
					cmd.Printf("  %s: %s at %s (template %s)\n", key, entry.Email, entry.ProcessedAt.Format(time.RFC3339), entry.TemplateID)
				}
				return nil
			})
		},
	}
}

func newCheckRuntimeStatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-runtime-states",
		Short: "Show every account's throttling state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *container) error {
				states, err := c.runtime.ListStates(ctx)
				if err != nil {
					return err
				}
				if len(states) == 0 {
					cmd.Println("No runtime states found.")
					return nil
				}

				now := time.Now().UTC()
				cmd.Printf("Found %d runtime state records:\n", len(states))
				for _, state := range states {
					email := "unknown"
					if account, err := c.accounts.GetAccount(ctx, state.EmailID); err == nil {
						email = account.Email
					}
					dailyLimit := 0
					if settings, err := c.accounts.GetCampaignSettings(ctx, state.EmailID); err == nil {
						dailyLimit = settings.DailyLimit.Int()
					} else if !errors.Is(err, domain.ErrNotFound) {
						return err
					}

					status := "AVAILABLE"
					if state.NextAvailableAt.After(now) {
						status = "WAITING"
					}
					if state.LockedUntil != nil && state.LockedUntil.After(now) {
						status = "LOCKED"
					}

					cmd.Printf("  %s (%s) on %s: %s\n", email, state.EmailID, state.DateKey, status)
					cmd.Printf("    Daily limit: %d, Sent: %d\n", dailyLimit, state.SentCount)
					cmd.Printf("    Next available: %s\n", state.NextAvailableAt.Format(time.RFC3339))
					if state.LockedUntil != nil {
						cmd.Printf("    Locked until: %s\n", state.LockedUntil.Format(time.RFC3339))
					}
				}
				return nil
			})
		},
	}
}

func printLeadSummary(cmd *cobra.Command, lead *domain.Lead) {
	email := "no email"
	if r := lead.Data.At(0); r != nil && r.Email() != "" {
		email = r.Email()
	}

	if lead.Progress == nil {
		cmd.Printf("ID: %s, %s, step 1, never touched\n", lead.ID, email)
		return
	}
	state := "active"
	if lead.Progress.Stopped {
		state = "stopped"
		if lead.Progress.Reason != "" {
			state += " (" + lead.Progress.Reason + ")"
		}
	}
	cmd.Printf("ID: %s, %s, step %d, %s\n", lead.ID, email, lead.Progress.StepOrder(), state)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
