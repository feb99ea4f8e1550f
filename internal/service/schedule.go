package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/coldpipe/coldpipe/internal/domain"
)

// LoadLocation resolves an IANA timezone string. Stored zones may carry a
// human offset suffix ("Asia/Kolkata (UTC +05:30)"); only the token up to
// the first whitespace is honored.
func LoadLocation(tz string) (*time.Location, error) {
	fields := strings.Fields(tz)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty timezone")
	}
	return time.LoadLocation(fields[0])
}

// InWindow reports whether the instant falls inside the campaign's sending
// window. Malformed timezones and times fail closed.
func InWindow(nowUTC time.Time, schedule *domain.CampaignSchedule) bool {
	loc, err := LoadLocation(schedule.Timezone)
	if err != nil {
		return false
	}
	nowLocal := nowUTC.In(loc)

	if len(schedule.ScheduledDays) > 0 {
		weekday := strings.ToLower(nowLocal.Weekday().String())
		found := false
		for _, day := range schedule.ScheduledDays {
			if strings.ToLower(strings.TrimSpace(day)) == weekday {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if !schedule.StartDate.IsZero() && schedule.StartDate.After(nowLocal) {
		return false
	}
	if !schedule.EndDate.IsZero() && schedule.EndDate.Before(nowLocal) {
		return false
	}

	if schedule.TimeFrom == "" || schedule.TimeTo == "" {
		return true
	}

	from, err := parseClockTime(schedule.TimeFrom)
	if err != nil {
		return false
	}
	to, err := parseClockTime(schedule.TimeTo)
	if err != nil {
		return false
	}

	now := nowLocal.Hour()*3600 + nowLocal.Minute()*60 + nowLocal.Second()
	if from <= to {
		return from <= now && now <= to
	}
	// Window wraps midnight.
	return now >= from || now <= to
}

// parseClockTime parses a time-of-day as seconds since midnight, accepting
// 24-hour "15:04" and 12-hour "3:04 pm" forms.
func parseClockTime(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	layout := "15:04"
	if strings.HasSuffix(s, "am") || strings.HasSuffix(s, "pm") {
		layout = "3:04 pm"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour()*3600 + t.Minute()*60, nil
}
