package metering

import (
	"time"

	"github.com/vicemeter/backend/internal/domain/shared"
)

// WeekWindow is a Monday-through-Sunday billing window. StartUTC/EndUTC are
// the true UTC instants of the local week boundaries; StartStr/EndStr are
// the local calendar dates of those boundaries formatted YYYY-MM-DD.
type WeekWindow struct {
	StartUTC time.Time
	EndUTC   time.Time
	StartStr string
	EndStr   string
}

// localShift converts a timezone offset in signed minutes east of UTC into
// a duration. "Local time" in this engine is defined purely by this offset;
// there is no named-zone or DST handling.
func localShift(tzOffsetMinutes int) time.Duration {
	return time.Duration(tzOffsetMinutes) * time.Minute
}

// WeekBounds computes the Monday 00:00:00 .. Sunday 23:59:59.999 window, in
// caller-local time, containing the given week-end date. weekEndStr is a
// YYYY-MM-DD local date; when empty the window is anchored to now. A
// weekEndStr that already is a Sunday maps to itself, not the next week.
func WeekBounds(weekEndStr string, tzOffsetMinutes int, now time.Time) (WeekWindow, error) {
	shift := localShift(tzOffsetMinutes)

	// localRef carries the local calendar fields in a UTC-located value so
	// plain field arithmetic works on the local calendar.
	var localRef time.Time
	if weekEndStr == "" {
		localRef = now.UTC().Add(shift)
	} else {
		parsed, err := time.Parse(DayLayout, weekEndStr)
		if err != nil {
			return WeekWindow{}, shared.NewDomainError("VALIDATION_ERROR", "Invalid week end date, expected YYYY-MM-DD")
		}
		// The supplied date string is anchored to local midnight before the
		// roll-forward, which is what keeps an already-Sunday date on itself.
		localRef = parsed
	}

	localMidnight := time.Date(localRef.Year(), localRef.Month(), localRef.Day(), 0, 0, 0, 0, time.UTC)
	daysToSunday := (7 - int(localMidnight.Weekday())) % 7
	sundayLocal := localMidnight.AddDate(0, 0, daysToSunday)
	mondayLocal := sundayLocal.AddDate(0, 0, -6)
	endLocal := sundayLocal.Add(24*time.Hour - time.Millisecond)

	return WeekWindow{
		StartUTC: mondayLocal.Add(-shift),
		EndUTC:   endLocal.Add(-shift),
		StartStr: mondayLocal.Format(DayLayout),
		EndStr:   sundayLocal.Format(DayLayout),
	}, nil
}

// IsDayInRange reports whether a bucket day key falls inside the window.
// The day string is taken as that calendar day's local midnight, converted
// to UTC, and compared against the inclusive bounds.
func IsDayInRange(dayStr string, startUTC, endUTC time.Time, tzOffsetMinutes int) bool {
	parsed, err := time.Parse(DayLayout, dayStr)
	if err != nil {
		return false
	}
	instant := parsed.Add(-localShift(tzOffsetMinutes))
	return !instant.Before(startUTC) && !instant.After(endUTC)
}
