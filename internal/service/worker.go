package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coldpipe/coldpipe/internal/domain"
	"github.com/coldpipe/coldpipe/pkg/logger"
	"github.com/coldpipe/coldpipe/pkg/mailer"
	"github.com/coldpipe/coldpipe/pkg/renderer"
)

// WorkerConfig wires the worker's collaborators.
type WorkerConfig struct {
	Leads      domain.LeadRepository
	Campaigns  domain.CampaignRepository
	Sequences  domain.SequenceRepository
	Templates  domain.TemplateRepository
	Accounts   domain.AccountRepository
	Activities domain.ActivityRepository
	Arbiter    *AccountArbiter
	Renderer   *renderer.Renderer
	Mailer     mailer.Mailer
	Clock      Clock
	Logger     logger.Logger
}

// Worker processes one campaign's due leads within a single tick: picks the
// next unprocessed recipient, reserves an account, renders, sends, commits
// and advances progress. Lead progress is only mutated after a committed
// send, so a crash mid-send replays the recipient on the next tick.
type Worker struct {
	leads      domain.LeadRepository
	campaigns  domain.CampaignRepository
	sequences  domain.SequenceRepository
	templates  domain.TemplateRepository
	accounts   domain.AccountRepository
	activities domain.ActivityRepository
	arbiter    *AccountArbiter
	renderer   *renderer.Renderer
	mailer     mailer.Mailer
	rotation   *roundRobin
	clock      Clock
	logger     logger.Logger
}

func NewWorker(cfg WorkerConfig) *Worker {
	return &Worker{
		leads:      cfg.Leads,
		campaigns:  cfg.Campaigns,
		sequences:  cfg.Sequences,
		templates:  cfg.Templates,
		accounts:   cfg.Accounts,
		activities: cfg.Activities,
		arbiter:    cfg.Arbiter,
		renderer:   cfg.Renderer,
		mailer:     cfg.Mailer,
		rotation:   newRoundRobin(),
		clock:      cfg.Clock,
		logger:     cfg.Logger,
	}
}

// reservation is one granted claim on a sending account.
type reservation struct {
	account  *domain.EmailAccount
	settings *domain.AccountCampaignSettings
}

// RunOnce processes up to batchSize due leads for the campaign. With dryRun
// set, messages are rendered but not sent and no sending budget is consumed.
// since overrides the due-selection instant for replaying past ticks.
// Returns the number of leads processed.
func (w *Worker) RunOnce(ctx context.Context, campaignID string, batchSize int, dryRun bool, since *time.Time) (int, error) {
	nowUTC := w.clock.Now()
	dueAt := nowUTC
	if since != nil {
		dueAt = *since
	}

	log := w.logger.WithField("campaign_id", campaignID)

	leads, err := w.leads.GetDueLeads(ctx, campaignID, dueAt, batchSize)
	if err != nil {
		return 0, err
	}
	if len(leads) == 0 {
		log.Info("no due leads")
		return 0, nil
	}

	sequence, err := w.sequences.GetSequence(ctx, campaignID)
	if err != nil {
		log.WithField("error", err.Error()).Error("no sequence for campaign")
		return 0, err
	}

	options, err := w.campaigns.GetOptions(ctx, campaignID)
	if err != nil {
		log.WithField("error", err.Error()).Error("no options for campaign")
		return 0, err
	}
	pool := make([]string, 0, len(options.EmailAccounts))
	for _, id := range options.EmailAccounts {
		pool = append(pool, id.String())
	}
	if len(pool) == 0 {
		log.Error("campaign has no email accounts")
		return 0, nil
	}

	processed := 0
	for _, lead := range leads {
		sent, abort, err := w.processLead(ctx, log, campaignID, lead, sequence, pool, nowUTC, dryRun)
		if err != nil {
			return processed, err
		}
		if sent {
			processed++
		}
		if abort {
			break
		}
	}

	log.WithFields(map[string]interface{}{
		"processed":   processed,
		"total_leads": len(leads),
		"dry_run":     dryRun,
	}).Info("worker batch complete")
	return processed, nil
}

// processLead handles one lead. abort=true terminates the whole batch (the
// account pool is saturated); err aborts with a store-level failure.
func (w *Worker) processLead(ctx context.Context, log logger.Logger, campaignID string, lead *domain.Lead, sequence *domain.Sequence, pool []string, nowUTC time.Time, dryRun bool) (sent, abort bool, err error) {
	leadID := lead.ID.String()
	log = log.WithField("lead_id", leadID)

	stepOrder := lead.Progress.StepOrder()
	stepRef := sequence.StepByOrder(stepOrder)
	if stepRef == nil {
		// Past the last step: the sequence is complete.
		progress := cloneProgress(lead.Progress)
		progress.Stopped = true
		progress.Reason = "completed"
		if err := w.leads.UpdateProgress(ctx, leadID, progress); err != nil {
			return false, false, err
		}
		log.Info("sequence completed")
		return false, false, nil
	}

	step, err := w.sequences.GetStep(ctx, stepRef.ID.String())
	if err != nil {
		log.WithFields(map[string]interface{}{
			"step_id": stepRef.ID.String(),
			"error":   err.Error(),
		}).Error("step document not found")
		return false, false, nil
	}

	templateID := step.ActiveTemplate.String()
	if templateID == "" {
		log.WithField("step_order", stepOrder).Error("step has no active template")
		return false, false, nil
	}
	template, err := w.templates.GetTemplate(ctx, templateID)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"template_id": templateID,
			"error":       err.Error(),
		}).Error("template not found")
		return false, false, nil
	}

	recipientIndex, ok := lead.Progress.NextUnprocessed(stepOrder, lead.Data.Total())
	if !ok {
		// Every recipient of this step is done; advancement happens on the
		// send path, so just wait for the next due evaluation.
		return false, false, nil
	}
	recipient := lead.Data.At(recipientIndex)
	if recipient == nil {
		log.WithField("recipient_index", recipientIndex).Error("lead has no recipient data")
		return false, false, nil
	}

	res, err := w.reserveAccount(ctx, log, campaignID, pool, nowUTC)
	if err != nil {
		return false, false, err
	}
	if res == nil {
		log.Info("no account available, stopping batch")
		return false, true, nil
	}
	emailID := res.account.ID.String()

	general, err := w.accounts.GetGeneralSettings(ctx, emailID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		_ = w.arbiter.Rollback(ctx, emailID, nowUTC)
		return false, false, err
	}
	var senderFirst, senderLast string
	if general != nil {
		senderFirst = general.FirstName
		senderLast = general.LastName
	}

	fields := make(map[string]interface{}, len(recipient)+7)
	for key, value := range recipient {
		fields[key] = value
	}
	fields["account_signature"] = signatureOf(general)
	fields["sender_name"] = general.SenderName()
	fields["sender_first_name"] = senderFirst
	fields["sender_last_name"] = senderLast
	fields["sender_email"] = res.account.Email
	fields["campaign_id"] = campaignID
	fields["step_order"] = stepOrder

	bodySrc := template.BodySource()
	subject, html, err := w.renderer.Render(template.Subject, bodySrc, fields)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"template_id": templateID,
			"error":       err.Error(),
		}).Error("template render failed")
		if rbErr := w.arbiter.Rollback(ctx, emailID, nowUTC); rbErr != nil {
			return false, false, rbErr
		}
		return false, false, nil
	}
	if strings.TrimSpace(subject) == "" {
		log.WithField("template_id", templateID).Warn("rendered subject is empty")
	}

	// Append the signature unless the template already placed it.
	if sig := signatureOf(general); sig != "" && !strings.Contains(bodySrc, "account_signature") {
		html = renderer.AppendSignature(html, sig)
	}

	toEmail := recipient.Email()
	if toEmail == "" {
		log.Error("recipient has no email address")
		if rbErr := w.arbiter.Rollback(ctx, emailID, nowUTC); rbErr != nil {
			return false, false, rbErr
		}
		return false, false, nil
	}

	if dryRun {
		log.WithFields(map[string]interface{}{
			"email_id": emailID,
			"to":       toEmail,
			"subject":  subject,
		}).Info("dry run, not sending")
		if rbErr := w.arbiter.Rollback(ctx, emailID, nowUTC); rbErr != nil {
			return false, false, rbErr
		}
		if err := w.advanceProgress(ctx, lead, stepRef, recipientIndex, toEmail, templateID, res.settings, nowUTC); err != nil {
			return false, false, err
		}
		return true, false, nil
	}

	sendErr := w.mailer.Send(ctx, mailer.Account{
		Email:    res.account.Email,
		Host:     res.account.SMTPHost,
		Port:     res.account.SMTPPort.Int(),
		Username: res.account.SMTPUsername,
		Password: res.account.Password(),
	}, toEmail, subject, html)
	if sendErr != nil {
		log.WithFields(map[string]interface{}{
			"email_id": emailID,
			"error":    sendErr.Error(),
		}).Error("send failed")
		if rbErr := w.arbiter.Rollback(ctx, emailID, nowUTC); rbErr != nil {
			return false, false, rbErr
		}
		w.insertActivity(ctx, log, campaignID, leadID, emailID, domain.ActivityTypeError, map[string]interface{}{
			"step_order":  stepOrder,
			"template_id": templateID,
			"reason":      sendErr.Error(),
		}, nowUTC)
		return false, false, nil
	}

	if err := w.arbiter.Commit(ctx, emailID, nowUTC, res.settings.MinWaitTime.Int()); err != nil {
		return false, false, err
	}

	if err := w.advanceProgress(ctx, lead, stepRef, recipientIndex, toEmail, templateID, res.settings, nowUTC); err != nil {
		return false, false, err
	}

	w.insertActivity(ctx, log, campaignID, leadID, emailID, domain.ActivityTypeSent, map[string]interface{}{
		"step_order":  stepOrder,
		"template_id": templateID,
	}, nowUTC)

	log.WithFields(map[string]interface{}{
		"email_id":   emailID,
		"step_order": stepOrder,
		"to":         toEmail,
	}).Info("email sent")
	return true, false, nil
}

// reserveAccount walks the campaign's rotation, trying each account at most
// once. Returns nil when the whole pool is saturated.
func (w *Worker) reserveAccount(ctx context.Context, log logger.Logger, campaignID string, pool []string, nowUTC time.Time) (*reservation, error) {
	for range pool {
		emailID := w.rotation.Next(campaignID, pool)

		account, err := w.accounts.GetAccount(ctx, emailID)
		if errors.Is(err, domain.ErrNotFound) {
			log.WithField("email_id", emailID).Warn("account not found")
			continue
		}
		if err != nil {
			return nil, err
		}

		settings, err := w.accounts.GetCampaignSettings(ctx, emailID)
		if errors.Is(err, domain.ErrNotFound) {
			log.WithField("email_id", emailID).Warn("account has no campaign settings")
			continue
		}
		if err != nil {
			return nil, err
		}

		granted, err := w.arbiter.Reserve(ctx, emailID, nowUTC, settings.DailyLimit.Int(), settings.MinWaitTime.Int())
		if err != nil {
			return nil, err
		}
		if !granted {
			continue
		}

		return &reservation{account: account, settings: settings}, nil
	}
	return nil, nil
}

// advanceProgress records the processed recipient and schedules the lead's
// next evaluation: after the step's last recipient the order advances and
// the step delay applies, otherwise the account cooldown applies.
func (w *Worker) advanceProgress(ctx context.Context, lead *domain.Lead, stepRef *domain.SequenceStepRef, recipientIndex int, toEmail, templateID string, settings *domain.AccountCampaignSettings, nowUTC time.Time) error {
	stepOrder := lead.Progress.StepOrder()

	progress := cloneProgress(lead.Progress)
	if progress.ProcessedRecipients == nil {
		progress.ProcessedRecipients = make(map[string]domain.ProcessedRecipient)
	}
	progress.ProcessedRecipients[domain.RecipientKey(stepOrder, recipientIndex)] = domain.ProcessedRecipient{
		ProcessedAt: nowUTC,
		Email:       toEmail,
		TemplateID:  templateID,
	}
	progress.LastSentAt = &nowUTC

	var nextDue time.Time
	if progress.DoneInStep(stepOrder) >= lead.Data.Total() {
		progress.CurrentStepOrder = domain.FlexInt(stepOrder + 1)
		nextDue = nowUTC.Add(time.Duration(stepRef.NextMessageDay.Int()) * 24 * time.Hour)
	} else {
		progress.CurrentStepOrder = domain.FlexInt(stepOrder)
		nextDue = nowUTC.Add(time.Duration(settings.MinWaitTime.Int()) * time.Minute)
	}
	progress.NextDueAt = &nextDue

	if err := w.leads.UpdateProgress(ctx, lead.ID.String(), progress); err != nil {
		return err
	}
	lead.Progress = progress
	return nil
}

func (w *Worker) insertActivity(ctx context.Context, log logger.Logger, campaignID, leadID, emailID, activityType string, meta map[string]interface{}, nowUTC time.Time) {
	activity := &domain.Activity{
		ID:         uuid.New().String(),
		CampaignID: campaignID,
		LeadID:     leadID,
		EmailID:    emailID,
		Type:       activityType,
		Meta:       meta,
		CreatedAt:  nowUTC,
	}
	if err := w.activities.Insert(ctx, activity); err != nil {
		log.WithField("error", err.Error()).Error("failed to record activity")
	}
}

// cloneProgress copies a progress document so a failed write never leaves a
// half-mutated in-memory lead.
func cloneProgress(p *domain.Progress) *domain.Progress {
	if p == nil {
		return &domain.Progress{}
	}
	clone := *p
	if p.ProcessedRecipients != nil {
		clone.ProcessedRecipients = make(map[string]domain.ProcessedRecipient, len(p.ProcessedRecipients))
		for key, value := range p.ProcessedRecipients {
			clone.ProcessedRecipients[key] = value
		}
	}
	return &clone
}

func signatureOf(s *domain.AccountGeneralSettings) string {
	if s == nil {
		return ""
	}
	return s.Signature
}
