// Package cli wires the engine and its administrative commands into a single
// binary. Every command loads configuration from the environment (or .env),
// connects to the store, runs and exits.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/coldpipe/coldpipe/config"
	"github.com/coldpipe/coldpipe/internal/domain"
	"github.com/coldpipe/coldpipe/internal/repository"
	"github.com/coldpipe/coldpipe/internal/service"
	"github.com/coldpipe/coldpipe/pkg/logger"
	"github.com/coldpipe/coldpipe/pkg/mailer"
	"github.com/coldpipe/coldpipe/pkg/renderer"
)

var verbose bool

// NewRootCmd builds the coldpipe command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "coldpipe",
		Short:         "Multi-step outbound email campaign engine",
		Version:       config.VERSION,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newInitIndexesCmd(),
		newRunDispatcherCmd(),
		newRunContinuousCmd(),
		newRunWorkerCmd(),
		newBackfillProgressCmd(),
		newRecountRuntimeCmd(),
		newListAccountsCmd(),
		newListCampaignsCmd(),
		newListLeadsCmd(),
		newShowDueLeadsCmd(),
		newShowLeadDetailsCmd(),
		newCheckRuntimeStatesCmd(),
		newFixRuntimeStatesCmd(),
		newMakeLeadDueNowCmd(),
		newResetLeadProgressCmd(),
		newUpdateLeadStatusesCmd(),
	)
	return root
}

// container holds everything a command needs: config, logger, the store
// connection and the repositories on top of it.
type container struct {
	cfg    *config.Config
	logger logger.Logger
	client *mongo.Client

	campaigns  *repository.CampaignRepository
	leads      *repository.LeadRepository
	sequences  *repository.SequenceRepository
	templates  *repository.TemplateRepository
	accounts   *repository.AccountRepository
	activities *repository.ActivityRepository
	runtime    *repository.RuntimeStateRepository

	db *mongo.Database
}

func newContainer(ctx context.Context) (*container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log := logger.NewLoggerWithLevel(level)

	client, db, err := repository.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.DBName)
	if err != nil {
		return nil, err
	}

	return &container{
		cfg:        cfg,
		logger:     log,
		client:     client,
		campaigns:  repository.NewCampaignRepository(db),
		leads:      repository.NewLeadRepository(db),
		sequences:  repository.NewSequenceRepository(db),
		templates:  repository.NewTemplateRepository(db),
		accounts:   repository.NewAccountRepository(db),
		activities: repository.NewActivityRepository(db),
		runtime:    repository.NewRuntimeStateRepository(db),
		db:         db,
	}, nil
}

func (c *container) close() {
	_ = c.client.Disconnect(context.Background())
}

// boundaryLocation resolves DAY_BOUNDARY_TZ, falling back to UTC.
func (c *container) boundaryLocation() *time.Location {
	loc, err := service.LoadLocation(c.cfg.DayBoundaryTZ)
	if err != nil {
		c.logger.WithField("timezone", c.cfg.DayBoundaryTZ).Warn("invalid day boundary timezone, using UTC")
		return time.UTC
	}
	return loc
}

func (c *container) newWorker(dryRun bool) *service.Worker {
	arbiter := service.NewAccountArbiter(
		c.runtime,
		c.logger,
		time.Duration(c.cfg.Worker.ReservationLockSeconds)*time.Second,
		c.boundaryLocation(),
	)

	var m mailer.Mailer = mailer.NewSMTPMailer(c.cfg.SMTP.StartTLS)
	if dryRun {
		m = mailer.NewConsoleMailer(c.logger)
	}

	return service.NewWorker(service.WorkerConfig{
		Leads:      c.leads,
		Campaigns:  c.campaigns,
		Sequences:  c.sequences,
		Templates:  c.templates,
		Accounts:   c.accounts,
		Activities: c.activities,
		Arbiter:    arbiter,
		Renderer:   renderer.New(),
		Mailer:     m,
		Clock:      service.NewClock(),
		Logger:     c.logger,
	})
}

func (c *container) newDispatcher() *service.Dispatcher {
	return service.NewDispatcher(c.campaigns, c.activities, c.newWorker(false), service.NewClock(), c.logger)
}

// withContainer runs fn with a connected container and tears it down after.
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *container) error) error {
	ctx := cmd.Context()
	c, err := newContainer(ctx)
	if err != nil {
		return err
	}
	defer c.close()
	return fn(ctx, c)
}

// resolveProgress fetches a lead and returns a progress document ready to
// mutate, never nil.
func resolveProgress(ctx context.Context, c *container, leadID string) (*domain.Lead, *domain.Progress, error) {
	lead, err := c.leads.GetLead(ctx, leadID)
	if err != nil {
		return nil, nil, fmt.Errorf("lead %s: %w", leadID, err)
	}
	if lead.Progress == nil {
		return lead, &domain.Progress{CurrentStepOrder: 1}, nil
	}
	progress := *lead.Progress
	return lead, &progress, nil
}
