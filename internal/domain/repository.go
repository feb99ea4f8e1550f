package domain

import (
	"context"
	"time"
)

// CampaignRepository reads campaign CRUD data authored outside the engine.
type CampaignRepository interface {
	GetQueue(ctx context.Context) ([]*QueueEntry, error)
	GetCampaign(ctx context.Context, campaignID string) (*Campaign, error)
	ListCampaigns(ctx context.Context) ([]*Campaign, error)
	GetOptions(ctx context.Context, campaignID string) (*CampaignOptions, error)
	GetSchedule(ctx context.Context, campaignID string) (*CampaignSchedule, error)
}

// LeadRepository selects due leads and persists progress. The worker is the
// sole writer of progress.
type LeadRepository interface {
	GetDueLeads(ctx context.Context, campaignID string, nowUTC time.Time, limit int) ([]*Lead, error)
	ListLeads(ctx context.Context, campaignID string) ([]*Lead, error)
	GetLead(ctx context.Context, leadID string) (*Lead, error)
	UpdateProgress(ctx context.Context, leadID string, progress *Progress) error
	BackfillProgress(ctx context.Context, campaignID string) (int64, error)
	MarkRecipientStatuses(ctx context.Context, campaignID, status string) (int64, error)
}

// SequenceRepository resolves a campaign's sequence and step documents.
type SequenceRepository interface {
	GetSequence(ctx context.Context, campaignID string) (*Sequence, error)
	GetStep(ctx context.Context, stepID string) (*SequenceStep, error)
}

// TemplateRepository resolves template documents.
type TemplateRepository interface {
	GetTemplate(ctx context.Context, templateID string) (*Template, error)
}

// AccountRepository reads sending accounts and their settings.
type AccountRepository interface {
	GetAccount(ctx context.Context, emailID string) (*EmailAccount, error)
	ListActiveAccounts(ctx context.Context) ([]*EmailAccount, error)
	GetCampaignSettings(ctx context.Context, emailID string) (*AccountCampaignSettings, error)
	GetGeneralSettings(ctx context.Context, emailID string) (*AccountGeneralSettings, error)
}

// RuntimeStateRepository is the arbiter's store. AtomicReserve must be a
// single conditional-update-or-insert: of two concurrent calls for the same
// (account, day) at most one observes the lock it tried to install.
type RuntimeStateRepository interface {
	// AtomicReserve attempts the available -> reserved transition and
	// returns the post-image, or nil when the preconditions failed.
	AtomicReserve(ctx context.Context, emailID, dateKey string, nowUTC time.Time, dailyLimit int, lockUntil time.Time) (*RuntimeState, error)
	CommitSend(ctx context.Context, emailID, dateKey string, nextAvailableAt time.Time) error
	RollbackReservation(ctx context.Context, emailID, dateKey string) error
	GetState(ctx context.Context, emailID, dateKey string) (*RuntimeState, error)
	ListStates(ctx context.Context) ([]*RuntimeState, error)
	// Recount rebuilds sent_count from sent activities for the given day.
	Recount(ctx context.Context, emailID, dateKey string) (int, error)
	// FixStale repairs records whose next_available_at is corrupt.
	FixStale(ctx context.Context, nowUTC time.Time) (int64, error)
}

// ActivityRepository appends and counts send activities.
type ActivityRepository interface {
	Insert(ctx context.Context, activity *Activity) error
	CountSentSince(ctx context.Context, campaignID string, since time.Time) (int64, error)
}
