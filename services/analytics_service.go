package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eduhub/marketplace-api/model"
	"gorm.io/gorm"
)

// SessionCounter reports how many sessions are live
type SessionCounter interface {
	Count(ctx context.Context) (int64, error)
}

// AnalyticsService handles analytics and reporting
type AnalyticsService struct {
	db          *gorm.DB
	sessions    SessionCounter
	enrollments *EnrollmentService
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(db *gorm.DB, sessions SessionCounter, enrollments *EnrollmentService) *AnalyticsService {
	return &AnalyticsService{
		db:          db,
		sessions:    sessions,
		enrollments: enrollments,
	}
}

// TeacherStats is the teacher dashboard summary
type TeacherStats struct {
	TotalCourses  int64   `json:"totalCourses"`
	TotalStudents int64   `json:"totalStudents"`
	TotalRevenue  float64 `json:"totalRevenue"`
	AvgRating     float64 `json:"avgRating"`
}

// DashboardStats represents overall platform statistics
type DashboardStats struct {
	TotalUsers                int64   `json:"totalUsers"`
	TotalCourses              int64   `json:"totalCourses"`
	TotalEnrollments          int64   `json:"totalEnrollments"`
	TotalRevenue              float64 `json:"totalRevenue"`
	ActiveUsers               int64   `json:"activeUsers"`
	NewUsersThisMonth         int64   `json:"newUsersThisMonth"`
	CoursesPublishedThisMonth int64   `json:"coursesPublishedThisMonth"`
	EnrollmentsThisMonth      int64   `json:"enrollmentsThisMonth"`
	RevenueThisMonth          float64 `json:"revenueThisMonth"`
}

// TimeSeriesPoint represents a daily count
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// TopCategory ranks a category by enrollments
type TopCategory struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	CourseCount     int64  `json:"courseCount"`
	EnrollmentCount int64  `json:"enrollmentCount"`
}

// TopCourse ranks a course by enrollments
type TopCourse struct {
	ID              uint     `json:"id"`
	Title           string   `json:"title"`
	TeacherName     string   `json:"teacherName"`
	EnrollmentCount int64    `json:"enrollmentCount"`
	Revenue         float64  `json:"revenue"`
	AvgRating       *float64 `json:"avgRating"`
}

// TopTeacher ranks a teacher by revenue
type TopTeacher struct {
	ID           uint    `json:"id"`
	Name         string  `json:"name"`
	CourseCount  int64   `json:"courseCount"`
	StudentCount int64   `json:"studentCount"`
	Revenue      float64 `json:"revenue"`
}

// PlatformAnalytics is the admin analytics page for one time range
type PlatformAnalytics struct {
	TimeRange        string                   `json:"timeRange"`
	UserGrowth       []TimeSeriesPoint        `json:"userGrowth"`
	CourseGrowth     []TimeSeriesPoint        `json:"courseGrowth"`
	EnrollmentGrowth []TimeSeriesPoint        `json:"enrollmentGrowth"`
	TopCategories    []TopCategory            `json:"topCategories"`
	TopCourses       []TopCourse              `json:"topCourses"`
	TopTeachers      []TopTeacher             `json:"topTeachers"`
	RecentActivity   []model.ActivityFeedItem `json:"recentActivity"`
}

// RealtimeStats is the live counter panel
type RealtimeStats struct {
	ActiveSessions      int64     `json:"activeSessions"`
	EnrollmentsLastHour int64     `json:"enrollmentsLastHour"`
	NewUsersToday       int64     `json:"newUsersToday"`
	Timestamp           time.Time `json:"timestamp"`
}

// TimeRangeDays maps a timeRange query value to a number of days
func TimeRangeDays(timeRange string) (int, bool) {
	switch timeRange {
	case "7d":
		return 7, true
	case "30d":
		return 30, true
	case "90d":
		return 90, true
	case "1y":
		return 365, true
	}
	return 0, false
}

// GetTeacherStats summarises a teacher's courses. The average rating is 0
// when no enrollment carries a rating.
func (s *AnalyticsService) GetTeacherStats(ctx context.Context, teacherID uint) (*TeacherStats, error) {
	stats := &TeacherStats{}

	if err := s.db.WithContext(ctx).Model(&model.Course{}).
		Where("teacher_id = ?", teacherID).
		Count(&stats.TotalCourses).Error; err != nil {
		return nil, fmt.Errorf("failed to count courses: %w", err)
	}

	var row struct {
		TotalStudents int64
		TotalRevenue  float64
		AvgRating     *float64
	}
	if err := s.db.WithContext(ctx).Table("enrollments").
		Select("COUNT(DISTINCT enrollments.student_id) AS total_students, "+
			"COALESCE(SUM(courses.price), 0) AS total_revenue, "+
			"AVG(CAST(enrollments.rating AS FLOAT)) AS avg_rating").
		Joins("JOIN courses ON courses.id = enrollments.course_id").
		Where("courses.teacher_id = ?", teacherID).
		Scan(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate enrollments: %w", err)
	}

	stats.TotalStudents = row.TotalStudents
	stats.TotalRevenue = roundMoney(row.TotalRevenue)
	if row.AvgRating != nil {
		stats.AvgRating = *row.AvgRating
	}
	return stats, nil
}

// revenueSince sums course prices over enrollments made at or after since.
// A zero since covers all time.
func (s *AnalyticsService) revenueSince(ctx context.Context, since time.Time) (float64, error) {
	var total float64
	query := s.db.WithContext(ctx).Table("enrollments").
		Select("COALESCE(SUM(courses.price), 0)").
		Joins("JOIN courses ON courses.id = enrollments.course_id")
	if !since.IsZero() {
		query = query.Where("enrollments.enrolled_at >= ?", since)
	}
	if err := query.Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return roundMoney(total), nil
}

// GetDashboardStats retrieves platform totals and this month's deltas
func (s *AnalyticsService) GetDashboardStats(ctx context.Context, now time.Time) (*DashboardStats, error) {
	stats := &DashboardStats{}
	monthStart := MonthStart(now)
	db := s.db.WithContext(ctx)

	counts := []struct {
		model interface{}
		where string
		args  []interface{}
		dest  *int64
		what  string
	}{
		{&model.User{}, "", nil, &stats.TotalUsers, "users"},
		{&model.Course{}, "", nil, &stats.TotalCourses, "courses"},
		{&model.Enrollment{}, "", nil, &stats.TotalEnrollments, "enrollments"},
		{&model.User{}, "is_active = ?", []interface{}{true}, &stats.ActiveUsers, "active users"},
		{&model.User{}, "created_at >= ?", []interface{}{monthStart}, &stats.NewUsersThisMonth, "new users"},
		{&model.Course{}, "status = ? AND created_at >= ?", []interface{}{model.CourseStatusPublished, monthStart}, &stats.CoursesPublishedThisMonth, "published courses"},
		{&model.Enrollment{}, "enrolled_at >= ?", []interface{}{monthStart}, &stats.EnrollmentsThisMonth, "new enrollments"},
	}
	for _, c := range counts {
		query := db.Model(c.model)
		if c.where != "" {
			query = query.Where(c.where, c.args...)
		}
		if err := query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.what, err)
		}
	}

	var err error
	if stats.TotalRevenue, err = s.revenueSince(ctx, time.Time{}); err != nil {
		return nil, err
	}
	if stats.RevenueThisMonth, err = s.revenueSince(ctx, monthStart); err != nil {
		return nil, err
	}
	return stats, nil
}

// dailySeries buckets timestamps into zero-filled UTC days ending today
func dailySeries(stamps []time.Time, now time.Time, days int) []TimeSeriesPoint {
	today := now.UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(days - 1))

	counts := make(map[string]int64, days)
	for _, ts := range stamps {
		counts[ts.UTC().Format(time.DateOnly)]++
	}

	series := make([]TimeSeriesPoint, 0, days)
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format(time.DateOnly)
		series = append(series, TimeSeriesPoint{Date: key, Count: counts[key]})
	}
	return series
}

func (s *AnalyticsService) series(ctx context.Context, value interface{}, column string, now time.Time, days int) ([]TimeSeriesPoint, error) {
	start := now.UTC().Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))
	var stamps []time.Time
	if err := s.db.WithContext(ctx).Model(value).
		Where(column+" >= ?", start).
		Pluck(column, &stamps).Error; err != nil {
		return nil, err
	}
	return dailySeries(stamps, now, days), nil
}

// GetPlatformAnalytics builds growth series and leaderboards for the range
func (s *AnalyticsService) GetPlatformAnalytics(ctx context.Context, timeRange string, now time.Time) (*PlatformAnalytics, error) {
	days, ok := TimeRangeDays(timeRange)
	if !ok {
		timeRange, days = "30d", 30
	}

	result := &PlatformAnalytics{TimeRange: timeRange}
	var err error

	if result.UserGrowth, err = s.series(ctx, &model.User{}, "created_at", now, days); err != nil {
		return nil, fmt.Errorf("failed to build user growth: %w", err)
	}
	if result.CourseGrowth, err = s.series(ctx, &model.Course{}, "created_at", now, days); err != nil {
		return nil, fmt.Errorf("failed to build course growth: %w", err)
	}
	if result.EnrollmentGrowth, err = s.series(ctx, &model.Enrollment{}, "enrolled_at", now, days); err != nil {
		return nil, fmt.Errorf("failed to build enrollment growth: %w", err)
	}

	if result.TopCategories, err = s.topCategories(ctx, 5); err != nil {
		return nil, err
	}
	if result.TopCourses, err = s.topCourses(ctx, 5); err != nil {
		return nil, err
	}
	if result.TopTeachers, err = s.topTeachers(ctx, 5); err != nil {
		return nil, err
	}
	if result.RecentActivity, err = s.enrollments.RecentActivity(ctx, 10); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *AnalyticsService) topCategories(ctx context.Context, limit int) ([]TopCategory, error) {
	categories := []TopCategory{}
	if err := s.db.WithContext(ctx).Table("categories").
		Select("categories.id, categories.name, " +
			"COUNT(DISTINCT courses.id) AS course_count, COUNT(enrollments.id) AS enrollment_count").
		Joins("LEFT JOIN courses ON courses.category_id = categories.id").
		Joins("LEFT JOIN enrollments ON enrollments.course_id = courses.id").
		Group("categories.id, categories.name").
		Order("enrollment_count DESC, course_count DESC, categories.name ASC").
		Limit(limit).
		Scan(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to rank categories: %w", err)
	}
	return categories, nil
}

func joinName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}

func (s *AnalyticsService) topCourses(ctx context.Context, limit int) ([]TopCourse, error) {
	var rows []struct {
		ID              uint
		Title           string
		Price           float64
		FirstName       string
		LastName        string
		EnrollmentCount int64
		AvgRating       *float64
	}
	if err := s.db.WithContext(ctx).Table("courses").
		Select("courses.id, courses.title, courses.price, users.first_name, users.last_name, " +
			"COUNT(enrollments.id) AS enrollment_count, AVG(CAST(enrollments.rating AS FLOAT)) AS avg_rating").
		Joins("JOIN users ON users.id = courses.teacher_id").
		Joins("LEFT JOIN enrollments ON enrollments.course_id = courses.id").
		Group("courses.id, courses.title, courses.price, users.first_name, users.last_name").
		Order("enrollment_count DESC, courses.id DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to rank courses: %w", err)
	}

	courses := make([]TopCourse, len(rows))
	for i, r := range rows {
		courses[i] = TopCourse{
			ID:              r.ID,
			Title:           r.Title,
			TeacherName:     joinName(r.FirstName, r.LastName),
			EnrollmentCount: r.EnrollmentCount,
			Revenue:         roundMoney(r.Price * float64(r.EnrollmentCount)),
			AvgRating:       r.AvgRating,
		}
	}
	return courses, nil
}

func (s *AnalyticsService) topTeachers(ctx context.Context, limit int) ([]TopTeacher, error) {
	var rows []struct {
		ID           uint
		FirstName    string
		LastName     string
		CourseCount  int64
		StudentCount int64
		Revenue      float64
	}
	if err := s.db.WithContext(ctx).Table("users").
		Select("users.id, users.first_name, users.last_name, " +
			"COUNT(DISTINCT courses.id) AS course_count, " +
			"COUNT(DISTINCT enrollments.student_id) AS student_count, " +
			"COALESCE(SUM(CASE WHEN enrollments.id IS NOT NULL THEN courses.price ELSE 0 END), 0) AS revenue").
		Joins("JOIN courses ON courses.teacher_id = users.id").
		Joins("LEFT JOIN enrollments ON enrollments.course_id = courses.id").
		Group("users.id, users.first_name, users.last_name").
		Order("revenue DESC, student_count DESC, users.id ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to rank teachers: %w", err)
	}

	teachers := make([]TopTeacher, len(rows))
	for i, r := range rows {
		teachers[i] = TopTeacher{
			ID:           r.ID,
			Name:         joinName(r.FirstName, r.LastName),
			CourseCount:  r.CourseCount,
			StudentCount: r.StudentCount,
			Revenue:      roundMoney(r.Revenue),
		}
	}
	return teachers, nil
}

// GetRealtimeStats returns live session and recent activity counters
func (s *AnalyticsService) GetRealtimeStats(ctx context.Context, now time.Time) (*RealtimeStats, error) {
	now = now.UTC()
	stats := &RealtimeStats{Timestamp: now}

	active, err := s.sessions.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	stats.ActiveSessions = active

	if err := s.db.WithContext(ctx).Model(&model.Enrollment{}).
		Where("enrolled_at >= ?", now.Add(-time.Hour)).
		Count(&stats.EnrollmentsLastHour).Error; err != nil {
		return nil, fmt.Errorf("failed to count recent enrollments: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("created_at >= ?", now.Truncate(24*time.Hour)).
		Count(&stats.NewUsersToday).Error; err != nil {
		return nil, fmt.Errorf("failed to count new users: %w", err)
	}
	return stats, nil
}
