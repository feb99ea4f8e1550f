package domain

import "time"

// RuntimeState is the per-(account, day) throttling record the arbiter
// mutates. A reservation is held iff locked_until is in the future.
type RuntimeState struct {
	EmailID         string     `bson:"email_id"`
	DateKey         string     `bson:"date_key"` // YYYY-MM-DD in the boundary timezone
	SentCount       int        `bson:"sent_count"`
	NextAvailableAt time.Time  `bson:"next_available_at"`
	LockedUntil     *time.Time `bson:"locked_until,omitempty"`
}

// DateKeyFor derives the date_key for an instant in the given boundary
// location.
func DateKeyFor(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
