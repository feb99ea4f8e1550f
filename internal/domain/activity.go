package domain

import "time"

// Activity types.
const (
	ActivityTypeSent  = "sent"
	ActivityTypeError = "error"
)

// Activity is the append-only audit record of worker sends and transport
// failures. Daily counters and the recount repair derive from it.
type Activity struct {
	ID         string                 `bson:"_id"`
	CampaignID string                 `bson:"campaign_id"`
	LeadID     string                 `bson:"lead_id"`
	EmailID    string                 `bson:"email_id"`
	Type       string                 `bson:"type"`
	Meta       map[string]interface{} `bson:"meta,omitempty"`
	CreatedAt  time.Time              `bson:"created_at"`
}
