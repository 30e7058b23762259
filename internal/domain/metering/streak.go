package metering

import "time"

// streakHorizonDays bounds how far back streak derivation scans
const streakHorizonDays = 365

// StreakReport summarizes consecutive clean-day runs for the dashboard.
// A clean day has a stored bucket and zero billable cents after grace.
// A day with no stored bucket is unknown and breaks a streak: absence of
// data is never credited as good behavior.
type StreakReport struct {
	CurrentStreakDays int    `json:"current_streak_days"`
	LastStreak        int    `json:"last_streak"`
	LastBreakDay      string `json:"last_break_day,omitempty"`
}

// billableCents returns the grace-adjusted cents a bucket would bill
func billableCents(bucket *UsageBucket, rules Rules) int64 {
	var total int64
	for _, category := range Categories {
		if !rules.CategoriesOn[category] {
			continue
		}
		minutes := bucket.MinutesFor(category) - rules.Grace[category]
		if minutes > 0 {
			total += int64(minutes) * rules.CentsPerMinute[category]
		}
	}
	return total
}

// ComputeStreaks derives the current clean-day streak ending today, the most
// recent prior run, and the day that broke that run. buckets is keyed by the
// UTC day key; today is the UTC day key of the current instant.
func ComputeStreaks(buckets map[string]*UsageBucket, rules Rules, today string) StreakReport {
	day, err := time.Parse(DayLayout, today)
	if err != nil {
		return StreakReport{}
	}

	clean := func(key string) bool {
		bucket, ok := buckets[key]
		return ok && billableCents(bucket, rules) == 0
	}

	report := StreakReport{}
	offset := 0

	// Current run: consecutive clean days up to and including today.
	for offset < streakHorizonDays {
		key := day.AddDate(0, 0, -offset).Format(DayLayout)
		if !clean(key) {
			break
		}
		report.CurrentStreakDays++
		offset++
	}

	// Skip the breaking block, remembering its chronologically-first day:
	// that is the first non-clean day after the prior run.
	for offset < streakHorizonDays {
		key := day.AddDate(0, 0, -offset).Format(DayLayout)
		if clean(key) {
			break
		}
		report.LastBreakDay = key
		offset++
	}

	// Prior run.
	for offset < streakHorizonDays {
		key := day.AddDate(0, 0, -offset).Format(DayLayout)
		if !clean(key) {
			break
		}
		report.LastStreak++
		offset++
	}

	if report.LastStreak == 0 {
		report.LastBreakDay = ""
	}
	return report
}
