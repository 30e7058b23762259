package metering

import (
	"time"

	"github.com/vicemeter/backend/internal/domain/shared"
)

// DayLayout is the calendar-day key format used throughout the engine
const DayLayout = "2006-01-02"

// CategoryUsage accumulates time for one category within one bucket.
// Minutes only ever increase within a day; LeftoverSeconds is always < 60.
type CategoryUsage struct {
	Minutes         int `json:"minutes"`
	LeftoverSeconds int `json:"leftover_seconds"`
}

// DomainUsage accumulates raw seconds for one domain within one bucket
type DomainUsage struct {
	Seconds  int      `json:"seconds"`
	Category Category `json:"category"`
}

// UsageBucket is the per-(user, UTC calendar day) system of record for
// how much flagged usage happened. Buckets are created lazily on the first
// usage of a day and are never deleted; they are mutated only by AddSeconds.
type UsageBucket struct {
	UserID     string
	Day        string // UTC calendar day, YYYY-MM-DD
	UpdatedAt  time.Time
	ByCategory map[Category]*CategoryUsage
	ByDomain   map[string]*DomainUsage
}

// NewUsageBucket creates an empty bucket for a (user, day) pair
func NewUsageBucket(userID, day string) *UsageBucket {
	return &UsageBucket{
		UserID:     userID,
		Day:        day,
		ByCategory: make(map[Category]*CategoryUsage),
		ByDomain:   make(map[string]*DomainUsage),
	}
}

// DayKeyUTC returns the UTC calendar-day key for a timestamp. Bucket keys
// use the UTC day convention consistently, both at write and at read time.
func DayKeyUTC(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// AddSeconds accumulates seconds of usage for a domain and category.
// The seconds-to-minutes carry is exact integer arithmetic: 61 one-second
// ticks accrue exactly 1 minute and 1 leftover second, never 1.0166 minutes.
// Returns shared.ErrInvariantViolation if the carry would leave leftover
// seconds >= 60; that indicates a defect, not a recoverable condition.
func (b *UsageBucket) AddSeconds(domain string, category Category, seconds int, at time.Time) error {
	if domain == "" || !category.IsValid() || seconds <= 0 {
		// Callers are expected to pre-filter; tolerate anyway.
		return nil
	}

	du := b.ByDomain[domain]
	if du == nil {
		du = &DomainUsage{Category: category}
		b.ByDomain[domain] = du
	}
	du.Seconds += seconds

	cu := b.ByCategory[category]
	if cu == nil {
		cu = &CategoryUsage{}
		b.ByCategory[category] = cu
	}
	total := cu.LeftoverSeconds + seconds
	cu.Minutes += total / 60
	cu.LeftoverSeconds = total % 60
	if cu.LeftoverSeconds >= 60 || cu.LeftoverSeconds < 0 {
		return shared.ErrInvariantViolation
	}

	b.UpdatedAt = at
	return nil
}

// MinutesFor returns the whole minutes accrued for a category. Partial
// leftover seconds are never billable.
func (b *UsageBucket) MinutesFor(category Category) int {
	if cu := b.ByCategory[category]; cu != nil {
		return cu.Minutes
	}
	return 0
}

// Clone returns a deep copy of the bucket so readers can aggregate a
// self-consistent snapshot while writers keep mutating the original.
func (b *UsageBucket) Clone() *UsageBucket {
	clone := &UsageBucket{
		UserID:     b.UserID,
		Day:        b.Day,
		UpdatedAt:  b.UpdatedAt,
		ByCategory: make(map[Category]*CategoryUsage, len(b.ByCategory)),
		ByDomain:   make(map[string]*DomainUsage, len(b.ByDomain)),
	}
	for category, cu := range b.ByCategory {
		cuCopy := *cu
		clone.ByCategory[category] = &cuCopy
	}
	for domain, du := range b.ByDomain {
		duCopy := *du
		clone.ByDomain[domain] = &duCopy
	}
	return clone
}
