package services

import (
	"context"
	"testing"
	"time"

	"github.com/eduhub/marketplace-api/model"
	"github.com/eduhub/marketplace-api/utils/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func TestTimeRangeDays(t *testing.T) {
	tests := map[string]int{"7d": 7, "30d": 30, "90d": 90, "1y": 365}
	for in, want := range tests {
		days, ok := TimeRangeDays(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, days, in)
	}

	_, ok := TimeRangeDays("2w")
	assert.False(t, ok)
}

func TestDailySeriesZeroFills(t *testing.T) {
	now := mustTime(t, "2024-05-10T18:00:00Z")
	stamps := []time.Time{
		mustTime(t, "2024-05-10T01:00:00Z"),
		mustTime(t, "2024-05-10T23:59:00Z"),
		mustTime(t, "2024-05-08T12:00:00Z"),
		// Outside the window
		mustTime(t, "2024-05-01T12:00:00Z"),
	}

	series := dailySeries(stamps, now, 3)
	require.Len(t, series, 3)
	assert.Equal(t, TimeSeriesPoint{Date: "2024-05-08", Count: 1}, series[0])
	assert.Equal(t, TimeSeriesPoint{Date: "2024-05-09", Count: 0}, series[1])
	assert.Equal(t, TimeSeriesPoint{Date: "2024-05-10", Count: 2}, series[2])

	assert.Len(t, dailySeries(nil, now, 30), 30)
}

func TestDashboardAndPlatformAnalytics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sessions := auth.NewMemorySessionStore()
	analytics := NewAnalyticsService(env.db, sessions, env.enrollments)

	teacher := env.user(t, "t@example.com", model.RoleTeacher)
	s1 := env.user(t, "s1@example.com", model.RoleStudent)
	s2 := env.user(t, "s2@example.com", model.RoleStudent)
	paid := env.course(t, teacher, "Paid", 20, model.CourseStatusPublished)
	free := env.course(t, teacher, "Free", 0, model.CourseStatusPublished)
	env.course(t, teacher, "Draft", 50, model.CourseStatusDraft)

	for _, s := range []Actor{s1, s2} {
		_, err := env.enrollments.Enroll(ctx, s.ID, paid.ID, EnrollOptions{})
		require.NoError(t, err)
	}
	_, err := env.enrollments.Enroll(ctx, s1.ID, free.ID, EnrollOptions{})
	require.NoError(t, err)

	now := time.Now().UTC()
	stats, err := analytics.GetDashboardStats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalUsers)
	assert.Equal(t, int64(3), stats.TotalCourses)
	assert.Equal(t, int64(3), stats.TotalEnrollments)
	assert.Equal(t, 40.0, stats.TotalRevenue)
	assert.Equal(t, 40.0, stats.RevenueThisMonth)
	assert.Equal(t, int64(2), stats.CoursesPublishedThisMonth)
	assert.Equal(t, int64(3), stats.EnrollmentsThisMonth)

	result, err := analytics.GetPlatformAnalytics(ctx, "bogus", now)
	require.NoError(t, err)
	assert.Equal(t, "30d", result.TimeRange)
	require.Len(t, result.EnrollmentGrowth, 30)
	assert.Equal(t, int64(3), result.EnrollmentGrowth[29].Count)
	require.NotEmpty(t, result.TopCourses)
	assert.Equal(t, "Paid", result.TopCourses[0].Title)
	assert.Equal(t, int64(2), result.TopCourses[0].EnrollmentCount)
	require.NotEmpty(t, result.TopTeachers)
	assert.Equal(t, 40.0, result.TopTeachers[0].Revenue)
	assert.Len(t, result.RecentActivity, 3)

	realtime, err := analytics.GetRealtimeStats(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, realtime.ActiveSessions)
	assert.Equal(t, int64(3), realtime.EnrollmentsLastHour)
	assert.Equal(t, int64(3), realtime.NewUsersToday)
}
