package billing

import (
	"github.com/vicemeter/backend/internal/domain/metering"
)

// CategoryLine is one category's contribution to a weekly statement
type CategoryLine struct {
	Minutes        int   `json:"minutes"`
	CentsPerMinute int64 `json:"cents_per_minute"`
	Cents          int64 `json:"cents"`
}

// WeeklyStatement is the grace-adjusted billable aggregate for one user and
// one week window. It is a pure read over a counter-store snapshot:
// building it mutates nothing and is deterministic for fixed inputs.
type WeeklyStatement struct {
	UserID      string
	Window      metering.WeekWindow
	PerCategory map[metering.Category]*CategoryLine
	TotalCents  int64
}

// BuildWeeklyStatement aggregates a user's buckets inside the window.
// Grace is applied per calendar day, not pooled weekly: each day's minutes
// are reduced by that day's grace before summing. Only whole minutes are
// billable; leftover seconds never contribute.
func BuildWeeklyStatement(userID string, buckets []*metering.UsageBucket, rules metering.Rules, window metering.WeekWindow, tzOffsetMinutes int) *WeeklyStatement {
	statement := &WeeklyStatement{
		UserID:      userID,
		Window:      window,
		PerCategory: make(map[metering.Category]*CategoryLine, len(metering.Categories)),
	}
	for _, category := range metering.Categories {
		if !rules.CategoriesOn[category] {
			continue
		}
		statement.PerCategory[category] = &CategoryLine{
			CentsPerMinute: rules.CentsPerMinute[category],
		}
	}

	for _, bucket := range buckets {
		if !metering.IsDayInRange(bucket.Day, window.StartUTC, window.EndUTC, tzOffsetMinutes) {
			continue
		}
		for category, line := range statement.PerCategory {
			billable := bucket.MinutesFor(category) - rules.Grace[category]
			if billable > 0 {
				line.Minutes += billable
			}
		}
	}

	for _, line := range statement.PerCategory {
		line.Cents = int64(line.Minutes) * line.CentsPerMinute
		statement.TotalCents += line.Cents
	}
	return statement
}
