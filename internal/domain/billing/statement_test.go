package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vicemeter/backend/internal/domain/metering"
)

func weekOf(t *testing.T, weekEnd string, tzOffsetMinutes int) metering.WeekWindow {
	t.Helper()
	window, err := metering.WeekBounds(weekEnd, tzOffsetMinutes, time.Time{})
	require.NoError(t, err)
	return window
}

func dayBucket(t *testing.T, userID, day string, category metering.Category, minutes int) *metering.UsageBucket {
	t.Helper()
	b := metering.NewUsageBucket(userID, day)
	if minutes > 0 {
		require.NoError(t, b.AddSeconds("seed.example", category, minutes*60, time.Now().UTC()))
	}
	return b
}

func TestBuildWeeklyStatement_GraceAppliedPerDay(t *testing.T) {
	window := weekOf(t, "2025-06-15", 0)
	rules := metering.ResolveRules(nil) // porn: 1 min grace, 5 cents/min

	buckets := []*metering.UsageBucket{
		dayBucket(t, "u", "2025-06-09", metering.CategoryPorn, 40),
		dayBucket(t, "u", "2025-06-10", metering.CategoryPorn, 30),
		dayBucket(t, "u", "2025-06-11", metering.CategoryPorn, 50),
	}

	statement := BuildWeeklyStatement("u", buckets, rules, window, 0)

	// Grace is per day: (40-1)+(30-1)+(50-1) = 117 minutes, not 120-1.
	line := statement.PerCategory[metering.CategoryPorn]
	require.NotNil(t, line)
	assert.Equal(t, 117, line.Minutes)
	assert.Equal(t, int64(5), line.CentsPerMinute)
	assert.Equal(t, int64(585), line.Cents)
	assert.Equal(t, int64(585), statement.TotalCents)
}

func TestBuildWeeklyStatement_GraceNeverGoesNegative(t *testing.T) {
	window := weekOf(t, "2025-06-15", 0)
	rules := metering.ResolveRules(&metering.ConsentSnapshot{
		UserID: "u",
		Grace:  metering.GraceSchedule{metering.CategoryPorn: 3},
	})

	t.Run("usage within grace bills nothing", func(t *testing.T) {
		buckets := []*metering.UsageBucket{
			dayBucket(t, "u", "2025-06-09", metering.CategoryPorn, 3),
		}
		statement := BuildWeeklyStatement("u", buckets, rules, window, 0)
		assert.Equal(t, int64(0), statement.TotalCents)
	})

	t.Run("one minute over bills one minute", func(t *testing.T) {
		buckets := []*metering.UsageBucket{
			dayBucket(t, "u", "2025-06-09", metering.CategoryPorn, 4),
		}
		statement := BuildWeeklyStatement("u", buckets, rules, window, 0)
		assert.Equal(t, 1, statement.PerCategory[metering.CategoryPorn].Minutes)
		assert.Equal(t, int64(5), statement.TotalCents)
	})

	t.Run("a short day does not offset a long day", func(t *testing.T) {
		buckets := []*metering.UsageBucket{
			dayBucket(t, "u", "2025-06-09", metering.CategoryPorn, 1), // 2 under grace
			dayBucket(t, "u", "2025-06-10", metering.CategoryPorn, 5), // 2 over grace
		}
		statement := BuildWeeklyStatement("u", buckets, rules, window, 0)
		assert.Equal(t, 2, statement.PerCategory[metering.CategoryPorn].Minutes)
	})
}

func TestBuildWeeklyStatement_OutOfWindowBucketsIgnored(t *testing.T) {
	window := weekOf(t, "2025-06-15", 0)
	rules := metering.ResolveRules(nil)

	buckets := []*metering.UsageBucket{
		dayBucket(t, "u", "2025-06-08", metering.CategoryGambling, 10), // previous Sunday
		dayBucket(t, "u", "2025-06-09", metering.CategoryGambling, 10),
		dayBucket(t, "u", "2025-06-16", metering.CategoryGambling, 10), // next Monday
	}

	statement := BuildWeeklyStatement("u", buckets, rules, window, 0)

	assert.Equal(t, 10, statement.PerCategory[metering.CategoryGambling].Minutes)
	assert.Equal(t, int64(500), statement.TotalCents)
}

func TestBuildWeeklyStatement_DisabledCategoryExcluded(t *testing.T) {
	window := weekOf(t, "2025-06-15", 0)
	rules := metering.ResolveRules(&metering.ConsentSnapshot{
		UserID:       "u",
		CategoriesOn: map[metering.Category]bool{metering.CategoryGambling: false},
	})

	buckets := []*metering.UsageBucket{
		dayBucket(t, "u", "2025-06-09", metering.CategoryGambling, 60),
		dayBucket(t, "u", "2025-06-10", metering.CategoryPorn, 10),
	}

	statement := BuildWeeklyStatement("u", buckets, rules, window, 0)

	assert.NotContains(t, statement.PerCategory, metering.CategoryGambling)
	assert.Equal(t, int64(45), statement.TotalCents) // (10-1) * 5c
}

func TestBuildWeeklyStatement_MultipleCategories(t *testing.T) {
	window := weekOf(t, "2025-06-15", 0)
	rules := metering.ResolveRules(nil)

	pornDay := dayBucket(t, "u", "2025-06-09", metering.CategoryPorn, 11)
	require.NoError(t, pornDay.AddSeconds("bet.example", metering.CategoryGambling, 2*60, time.Now().UTC()))

	statement := BuildWeeklyStatement("u", []*metering.UsageBucket{pornDay}, rules, window, 0)

	assert.Equal(t, int64(50), statement.PerCategory[metering.CategoryPorn].Cents)      // (11-1)*5
	assert.Equal(t, int64(100), statement.PerCategory[metering.CategoryGambling].Cents) // 2*50
	assert.Equal(t, int64(150), statement.TotalCents)
}

func TestBuildWeeklyStatement_EmptyWeek(t *testing.T) {
	window := weekOf(t, "2025-06-15", 0)
	rules := metering.ResolveRules(nil)

	statement := BuildWeeklyStatement("u", nil, rules, window, 0)

	assert.Equal(t, int64(0), statement.TotalCents)
	for _, line := range statement.PerCategory {
		assert.Equal(t, 0, line.Minutes)
	}
}
