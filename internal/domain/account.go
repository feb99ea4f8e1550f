package domain

// EmailAccount is a sending identity with SMTP credentials.
type EmailAccount struct {
	ID           FlexID  `bson:"_id"`
	Email        string  `bson:"email"`
	SMTPHost     string  `bson:"smtp_host"`
	SMTPPort     FlexInt `bson:"smtp_port"`
	SMTPUsername string  `bson:"smtp_username"`
	SMTPPassword string  `bson:"smtp_password,omitempty"`
	SMTPPasscode string  `bson:"smtp_passcode,omitempty"`
	Status       string  `bson:"status,omitempty"`
}

// Password returns the SMTP credential, preferring the newer passcode field.
func (a *EmailAccount) Password() string {
	if a.SMTPPasscode != "" {
		return a.SMTPPasscode
	}
	return a.SMTPPassword
}

// AccountCampaignSettings are the per-account throttle knobs: the hard daily
// cap and the cooldown between consecutive sends.
type AccountCampaignSettings struct {
	EmailID     FlexID  `bson:"email_id"`
	DailyLimit  FlexInt `bson:"daily_limit"`
	MinWaitTime FlexInt `bson:"min_wait_time"` // minutes
}

// AccountGeneralSettings hold presentational sender data.
type AccountGeneralSettings struct {
	EmailID   FlexID `bson:"email_id"`
	Signature string `bson:"signature,omitempty"`
	FirstName string `bson:"first_name,omitempty"`
	LastName  string `bson:"last_name,omitempty"`
}

// SenderName joins the configured first and last names.
func (s *AccountGeneralSettings) SenderName() string {
	if s == nil {
		return ""
	}
	switch {
	case s.FirstName != "" && s.LastName != "":
		return s.FirstName + " " + s.LastName
	case s.FirstName != "":
		return s.FirstName
	default:
		return s.LastName
	}
}
