package service

import (
	"context"
	"errors"
	"time"

	"github.com/coldpipe/coldpipe/internal/domain"
	"github.com/coldpipe/coldpipe/pkg/logger"
)

// campaignWorker is the per-campaign batch processor the dispatcher invokes.
type campaignWorker interface {
	RunOnce(ctx context.Context, campaignID string, batchSize int, dryRun bool, since *time.Time) (int, error)
}

// Dispatcher walks the campaign queue every tick, applies the global gates
// (status, schedule window, campaign daily cap) and hands each eligible
// campaign to the worker with a budget-bounded batch size.
type Dispatcher struct {
	campaigns  domain.CampaignRepository
	activities domain.ActivityRepository
	worker     campaignWorker
	clock      Clock
	logger     logger.Logger
}

func NewDispatcher(campaigns domain.CampaignRepository, activities domain.ActivityRepository, worker campaignWorker, clock Clock, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		campaigns:  campaigns,
		activities: activities,
		worker:     worker,
		clock:      clock,
		logger:     log,
	}
}

// RunOnce performs one dispatch pass. Worker failures are logged and do not
// abort the remaining campaigns.
func (d *Dispatcher) RunOnce(ctx context.Context, batchSize int) error {
	nowUTC := d.clock.Now()

	queue, err := d.campaigns.GetQueue(ctx)
	if err != nil {
		return err
	}
	if len(queue) == 0 {
		d.logger.Debug("campaign queue is empty")
		return nil
	}

	for _, entry := range queue {
		campaignID := entry.CampaignID.String()
		log := d.logger.WithField("campaign_id", campaignID)

		campaign, err := d.campaigns.GetCampaign(ctx, campaignID)
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("queued campaign not found")
			continue
		}
		if err != nil {
			log.WithField("error", err.Error()).Error("failed to load campaign")
			continue
		}
		if !campaign.IsActive() {
			log.WithField("status", campaign.Status).Debug("campaign not active")
			continue
		}

		schedule, err := d.campaigns.GetSchedule(ctx, campaignID)
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("campaign has no schedule")
			continue
		}
		if err != nil {
			log.WithField("error", err.Error()).Error("failed to load schedule")
			continue
		}
		if !InWindow(nowUTC, schedule) {
			log.WithField("timezone", schedule.Timezone).Debug("outside sending window")
			continue
		}

		options, err := d.campaigns.GetOptions(ctx, campaignID)
		if errors.Is(err, domain.ErrNotFound) {
			log.Error("campaign has no options")
			continue
		}
		if err != nil {
			log.WithField("error", err.Error()).Error("failed to load options")
			continue
		}
		dailyLimit := options.DailyEmailLimit.Int()
		if dailyLimit <= 0 {
			log.Debug("campaign has no daily limit")
			continue
		}

		dayStart := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day(), 0, 0, 0, 0, time.UTC)
		sentToday, err := d.activities.CountSentSince(ctx, campaignID, dayStart)
		if err != nil {
			log.WithField("error", err.Error()).Error("failed to count sent activities")
			continue
		}
		if sentToday >= int64(dailyLimit) {
			log.WithFields(map[string]interface{}{
				"sent_today":  sentToday,
				"daily_limit": dailyLimit,
			}).Debug("campaign daily limit reached")
			continue
		}

		effectiveBatch := batchSize
		if remaining := dailyLimit - int(sentToday); remaining < effectiveBatch {
			effectiveBatch = remaining
		}

		log.WithFields(map[string]interface{}{
			"batch_size":  effectiveBatch,
			"sent_today":  sentToday,
			"daily_limit": dailyLimit,
		}).Debug("dispatching worker")

		if _, err := d.worker.RunOnce(ctx, campaignID, effectiveBatch, false, nil); err != nil {
			log.WithField("error", err.Error()).Error("worker failed")
		}
	}
	return nil
}

// Run drives RunOnce every tick until the context is cancelled. Non-fatal
// errors are swallowed so the loop survives.
func (d *Dispatcher) Run(ctx context.Context, tick time.Duration, batchSize int) error {
	d.logger.WithField("tick_seconds", tick.Seconds()).Info("dispatcher started")

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		if err := d.RunOnce(ctx, batchSize); err != nil {
			d.logger.WithField("error", err.Error()).Error("dispatch pass failed")
		}
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopped")
			return nil
		case <-ticker.C:
		}
	}
}
