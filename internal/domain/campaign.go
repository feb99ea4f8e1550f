package domain

// Campaign statuses. Only active campaigns are eligible for dispatch.
const (
	CampaignStatusActive = "active"
	CampaignStatusPaused = "paused"
)

// Campaign is a named outbound program with one sequence and a pool of
// sending accounts.
type Campaign struct {
	ID     FlexID `bson:"_id"`
	Status string `bson:"status"`
	Name   string `bson:"name,omitempty"`
}

func (c *Campaign) IsActive() bool {
	return c.Status == CampaignStatusActive
}

// CampaignOptions carries the dispatch knobs entered by campaign authors.
// The email account order seeds the worker's round-robin cursor.
type CampaignOptions struct {
	CampaignID      FlexID   `bson:"campaign_id"`
	DailyEmailLimit FlexInt  `bson:"daily_email_limit"`
	EmailAccounts   []FlexID `bson:"email_accounts"`
}

// CampaignSchedule describes the sending window of a campaign. Timezone
// strings may carry a human offset suffix ("Asia/Kolkata (UTC +05:30)");
// only the token up to the first whitespace is honored.
type CampaignSchedule struct {
	CampaignID    FlexID   `bson:"campaign_id"`
	Timezone      string   `bson:"timezone"`
	ScheduledDays []string `bson:"scheduled_days,omitempty"`
	StartDate     FlexDate `bson:"start_date,omitempty"`
	EndDate       FlexDate `bson:"end_date,omitempty"`
	TimeFrom      string   `bson:"time_from,omitempty"`
	TimeTo        string   `bson:"time_to,omitempty"`
}

// QueueEntry is one row of the campaign dispatch queue.
type QueueEntry struct {
	CampaignID FlexID `bson:"campaign_id"`
}
