package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldpipe/coldpipe/internal/domain"
)

func kolkataSchedule() *domain.CampaignSchedule {
	start, _ := domain.ParseFlexDate("2025-08-25")
	end, _ := domain.ParseFlexDate("2025-08-30")
	return &domain.CampaignSchedule{
		CampaignID:    "c1",
		Timezone:      "Asia/Kolkata (UTC +05:30)",
		ScheduledDays: []string{"Monday"},
		StartDate:     start,
		EndDate:       end,
		TimeFrom:      "10:00",
		TimeTo:        "16:00",
	}
}

func TestInWindowLocalTime(t *testing.T) {
	schedule := kolkataSchedule()

	// Monday 09:59 UTC is 15:29 IST, inside 10:00-16:00.
	assert.True(t, InWindow(time.Date(2025, 8, 25, 9, 59, 0, 0, time.UTC), schedule))
	// Monday 04:29 UTC is 09:59 IST, just before the window opens.
	assert.False(t, InWindow(time.Date(2025, 8, 25, 4, 29, 0, 0, time.UTC), schedule))
}

func TestInWindowWeekday(t *testing.T) {
	schedule := kolkataSchedule()

	// Tuesday IST.
	assert.False(t, InWindow(time.Date(2025, 8, 26, 9, 59, 0, 0, time.UTC), schedule))
	// Sunday IST, before the start date as well.
	assert.False(t, InWindow(time.Date(2025, 8, 24, 9, 59, 0, 0, time.UTC), schedule))
}

func TestInWindowDateRange(t *testing.T) {
	schedule := kolkataSchedule()

	// Monday Sep 1st IST, past the end date.
	assert.False(t, InWindow(time.Date(2025, 9, 1, 9, 59, 0, 0, time.UTC), schedule))
}

func TestInWindowMalformedTimezoneFailsClosed(t *testing.T) {
	schedule := &domain.CampaignSchedule{Timezone: "Not/AZone"}
	assert.False(t, InWindow(time.Now().UTC(), schedule))

	schedule.Timezone = ""
	assert.False(t, InWindow(time.Now().UTC(), schedule))
}

func TestInWindowNoTimesIsAllDay(t *testing.T) {
	schedule := &domain.CampaignSchedule{Timezone: "UTC"}
	assert.True(t, InWindow(time.Date(2025, 8, 25, 3, 0, 0, 0, time.UTC), schedule))
}

func TestInWindowWrapsMidnight(t *testing.T) {
	schedule := &domain.CampaignSchedule{
		Timezone: "UTC",
		TimeFrom: "22:00",
		TimeTo:   "02:00",
	}

	assert.True(t, InWindow(time.Date(2025, 8, 25, 23, 0, 0, 0, time.UTC), schedule))
	assert.True(t, InWindow(time.Date(2025, 8, 25, 1, 0, 0, 0, time.UTC), schedule))
	assert.False(t, InWindow(time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC), schedule))
}

func TestInWindowTwelveHourTimes(t *testing.T) {
	schedule := &domain.CampaignSchedule{
		Timezone: "UTC",
		TimeFrom: "10:00 AM",
		TimeTo:   "04:00 pm",
	}

	assert.True(t, InWindow(time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC), schedule))
	assert.False(t, InWindow(time.Date(2025, 8, 25, 17, 0, 0, 0, time.UTC), schedule))
}

func TestInWindowUnparseableTimeFailsClosed(t *testing.T) {
	schedule := &domain.CampaignSchedule{
		Timezone: "UTC",
		TimeFrom: "ten o'clock",
		TimeTo:   "16:00",
	}
	assert.False(t, InWindow(time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC), schedule))
}

func TestLoadLocationStripsAnnotation(t *testing.T) {
	loc, err := LoadLocation("Asia/Kolkata (UTC +05:30)")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())

	_, err = LoadLocation("")
	assert.Error(t, err)
}

func TestParseClockTime(t *testing.T) {
	sec, err := parseClockTime("13:30")
	require.NoError(t, err)
	assert.Equal(t, 13*3600+30*60, sec)

	sec, err = parseClockTime("01:30 PM")
	require.NoError(t, err)
	assert.Equal(t, 13*3600+30*60, sec)

	sec, err = parseClockTime("12:05 am")
	require.NoError(t, err)
	assert.Equal(t, 5*60, sec)
}
