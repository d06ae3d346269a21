package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/eduhub/marketplace-api/model"
	"github.com/eduhub/marketplace-api/services/storage"
	"github.com/eduhub/marketplace-api/utils/logger"
	"gorm.io/gorm"
)

// RecommendedLimit is the size of the recommended courses list
const RecommendedLimit = 6

// CourseService owns course authoring, the public catalogue and the
// read-time aggregates attached to every course listing
type CourseService struct {
	db            *gorm.DB
	files         storage.FileStore
	logs          *SystemLogService
	notifications *NotificationService
	log           *logger.Logger
}

// NewCourseService creates a new course service
func NewCourseService(db *gorm.DB, files storage.FileStore, logs *SystemLogService, notifications *NotificationService, log *logger.Logger) *CourseService {
	return &CourseService{
		db:            db,
		files:         files,
		logs:          logs,
		notifications: notifications,
		log:           log,
	}
}

// CreateCourseInput is the data for a new course
type CreateCourseInput struct {
	Title           string
	Description     string
	Price           float64
	CategoryID      *uint
	ThumbnailURL    *string
	Status          model.CourseStatus
	DifficultyLevel model.DifficultyLevel
}

// UpdateCourseInput is a partial course update. Nil fields are left unchanged.
// ClearCategory detaches the course from its category and wins over CategoryID.
type UpdateCourseInput struct {
	Title           *string
	Description     *string
	Price           *float64
	CategoryID      *uint
	ClearCategory   bool
	ThumbnailURL    *string
	Status          *model.CourseStatus
	DifficultyLevel *model.DifficultyLevel
}

// CatalogFilter narrows the public course catalogue
type CatalogFilter struct {
	Search     string
	CategoryID *uint
	PriceMin   *float64
	PriceMax   *float64
	Difficulty string
}

// AdminCourseListOptions filters the admin course listing
type AdminCourseListOptions struct {
	Search     string
	Status     string
	CategoryID *uint
	Page       int
	Limit      int
}

// CourseStats counts courses by status for the admin console
type CourseStats struct {
	Total        int64 `json:"total"`
	Published    int64 `json:"published"`
	Draft        int64 `json:"draft"`
	Archived     int64 `json:"archived"`
	NewThisMonth int64 `json:"newThisMonth"`
}

type courseAggregate struct {
	CourseID        uint
	EnrollmentCount int64
	AvgRating       *float64
}

// ParsePriceRange parses "min-max" or "min-+" into optional bounds
func ParsePriceRange(value string) (*float64, *float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil, nil
	}

	minPart, maxPart, found := strings.Cut(value, "-")
	if !found {
		return nil, nil, ErrInvalidPriceRange
	}

	var lower, upper *float64
	if minPart != "" {
		v, err := strconv.ParseFloat(minPart, 64)
		if err != nil || v < 0 {
			return nil, nil, ErrInvalidPriceRange
		}
		lower = &v
	}
	if maxPart != "" && maxPart != "+" {
		v, err := strconv.ParseFloat(maxPart, 64)
		if err != nil || v < 0 {
			return nil, nil, ErrInvalidPriceRange
		}
		upper = &v
	}
	if lower != nil && upper != nil && *lower > *upper {
		return nil, nil, ErrInvalidPriceRange
	}
	return lower, upper, nil
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// withRelations preloads what every detailed course response carries
func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Teacher").
		Preload("Category").
		Preload("Materials", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC, id ASC")
		})
}

// aggregates computes enrollment count and mean rating for each course in
// one grouped query. Courses without enrollments are absent from the map.
func (s *CourseService) aggregates(ctx context.Context, ids []uint) (map[uint]courseAggregate, error) {
	result := make(map[uint]courseAggregate, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var rows []courseAggregate
	if err := s.db.WithContext(ctx).Model(&model.Enrollment{}).
		Select("course_id, COUNT(id) AS enrollment_count, AVG(CAST(rating AS FLOAT)) AS avg_rating").
		Where("course_id IN ?", ids).
		Group("course_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate enrollments: %w", err)
	}

	for _, row := range rows {
		result[row.CourseID] = row
	}
	return result, nil
}

// withDetails attaches owner, category, materials and aggregates.
// Courses must have been loaded with withRelations.
func (s *CourseService) withDetails(ctx context.Context, courses []model.Course) ([]model.CourseWithDetails, error) {
	ids := make([]uint, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}

	aggs, err := s.aggregates(ctx, ids)
	if err != nil {
		return nil, err
	}

	details := make([]model.CourseWithDetails, len(courses))
	for i, c := range courses {
		d := model.CourseWithDetails{
			Course:    c,
			Category:  c.Category,
			Materials: c.Materials,
		}
		if d.Materials == nil {
			d.Materials = []model.CourseMaterial{}
		}
		if c.Teacher != nil {
			summary := c.Teacher.ToSummary()
			d.Teacher = &summary
		}
		if agg, ok := aggs[c.ID]; ok {
			d.EnrollmentCount = agg.EnrollmentCount
			d.AvgRating = agg.AvgRating
		}
		d.Revenue = roundMoney(c.Price * float64(d.EnrollmentCount))
		details[i] = d
	}
	return details, nil
}

// annotateForViewer adds the viewer's enrollment state to each course
func (s *CourseService) annotateForViewer(ctx context.Context, details []model.CourseWithDetails, viewerID uint) error {
	if viewerID == 0 || len(details) == 0 {
		return nil
	}

	ids := make([]uint, len(details))
	for i, d := range details {
		ids[i] = d.ID
	}

	var enrollments []model.Enrollment
	if err := s.db.WithContext(ctx).
		Where("student_id = ? AND course_id IN ?", viewerID, ids).
		Find(&enrollments).Error; err != nil {
		return fmt.Errorf("failed to fetch viewer enrollments: %w", err)
	}

	byCourse := make(map[uint]model.Enrollment, len(enrollments))
	for _, e := range enrollments {
		byCourse[e.CourseID] = e
	}

	for i := range details {
		e, ok := byCourse[details[i].ID]
		enrolled := ok
		details[i].IsEnrolled = &enrolled
		if !ok {
			continue
		}
		progress := e.Progress
		enrollmentID := e.ID
		details[i].UserProgress = &progress
		details[i].CompletedAt = e.CompletedAt
		details[i].EnrollmentID = &enrollmentID
	}
	return nil
}

func (s *CourseService) getCourse(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	if err := s.db.WithContext(ctx).First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to fetch course: %w", err)
	}
	return &course, nil
}

// Authorize loads a course and checks the actor may change it
func (s *CourseService) Authorize(ctx context.Context, id uint, actor Actor) (*model.Course, error) {
	course, err := s.getCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeCourse(course, actor); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) detail(ctx context.Context, id uint) (*model.CourseWithDetails, error) {
	var course model.Course
	if err := withRelations(s.db.WithContext(ctx)).First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to fetch course: %w", err)
	}
	details, err := s.withDetails(ctx, []model.Course{course})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// ListByTeacher returns the teacher's own courses, newest first
func (s *CourseService) ListByTeacher(ctx context.Context, teacherID uint) ([]model.CourseWithDetails, error) {
	var courses []model.Course
	if err := withRelations(s.db.WithContext(ctx)).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC, id DESC").
		Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch courses: %w", err)
	}
	return s.withDetails(ctx, courses)
}

// GetForOwner returns a course to its owning teacher or an admin
func (s *CourseService) GetForOwner(ctx context.Context, id uint, actor Actor) (*model.CourseWithDetails, error) {
	if _, err := s.Authorize(ctx, id, actor); err != nil {
		return nil, err
	}
	return s.detail(ctx, id)
}

func (s *CourseService) ensureCategory(ctx context.Context, id *uint) error {
	if id == nil {
		return nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Category{}).Where("id = ?", *id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check category: %w", err)
	}
	if count == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// Create adds a course owned by the actor
func (s *CourseService) Create(ctx context.Context, actor Actor, input CreateCourseInput, meta RequestMeta) (*model.CourseWithDetails, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrCourseTitleRequired
	}
	if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	course := &model.Course{
		Title:           title,
		Description:     strings.TrimSpace(input.Description),
		Price:           roundMoney(input.Price),
		CategoryID:      input.CategoryID,
		ThumbnailURL:    input.ThumbnailURL,
		TeacherID:       actor.ID,
		Status:          input.Status,
		DifficultyLevel: input.DifficultyLevel,
	}
	if course.Status == "" {
		course.Status = model.CourseStatusDraft
	}
	if course.DifficultyLevel == "" {
		course.DifficultyLevel = model.DifficultyBeginner
	}

	if err := s.db.WithContext(ctx).Create(course).Error; err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	s.notifications.CourseCreated(ctx, course)
	if course.Status == model.CourseStatusPublished {
		s.notifications.CoursePublished(ctx, course)
	}

	actorID := actor.ID
	courseID := course.ID
	s.logs.Note(ctx, LogEntry{
		Action:      "course_created",
		Description: fmt.Sprintf("Course %q created", course.Title),
		UserID:      &actorID,
		EntityType:  "course",
		EntityID:    &courseID,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		Severity:    model.SeverityLow,
	})

	return s.detail(ctx, course.ID)
}

// Update applies a partial update. The owning teacher never changes.
func (s *CourseService) Update(ctx context.Context, actor Actor, id uint, input UpdateCourseInput, meta RequestMeta) (*model.CourseWithDetails, error) {
	var title string
	if input.Title != nil {
		if title = strings.TrimSpace(*input.Title); title == "" {
			return nil, ErrCourseTitleRequired
		}
	}
	course, err := s.Authorize(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if input.ClearCategory {
		input.CategoryID = nil
	}
	if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	previousStatus := course.Status
	updates := map[string]interface{}{}
	if input.Title != nil {
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		updates["price"] = roundMoney(*input.Price)
	}
	switch {
	case input.ClearCategory:
		updates["category_id"] = nil
	case input.CategoryID != nil:
		updates["category_id"] = *input.CategoryID
	}
	if input.ThumbnailURL != nil {
		updates["thumbnail_url"] = nullableString(*input.ThumbnailURL)
	}
	if input.Status != nil {
		updates["status"] = *input.Status
	}
	if input.DifficultyLevel != nil {
		updates["difficulty_level"] = *input.DifficultyLevel
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(course).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update course: %w", err)
		}
	}

	if input.Status != nil && *input.Status == model.CourseStatusPublished && previousStatus != model.CourseStatusPublished {
		if input.Title != nil {
			course.Title = title
		}
		s.notifications.CoursePublished(ctx, course)
	}

	actorID := actor.ID
	s.logs.Note(ctx, LogEntry{
		Action:      "course_updated",
		Description: fmt.Sprintf("Course %d updated", id),
		UserID:      &actorID,
		EntityType:  "course",
		EntityID:    &id,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		Severity:    model.SeverityLow,
		Metadata:    updates,
	})

	return s.detail(ctx, id)
}

// Delete removes a course with its materials, enrollments, payments and
// activity in one transaction, then removes stored files best-effort
func (s *CourseService) Delete(ctx context.Context, actor Actor, id uint, meta RequestMeta) error {
	course, err := s.Authorize(ctx, id, actor)
	if err != nil {
		return err
	}

	var keys []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.CourseMaterial{}).
			Where("course_id = ? AND storage_key <> ''", id).
			Pluck("storage_key", &keys).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.StudentActivity{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.CoursePayment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.Enrollment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.CourseMaterial{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Course{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}

	for _, key := range keys {
		if err := s.files.Delete(ctx, key); err != nil {
			s.log.Warn("failed to remove material file", "key", key, "courseId", id, "error", err)
		}
	}

	actorID := actor.ID
	s.logs.Note(ctx, LogEntry{
		Action:      "course_deleted",
		Description: fmt.Sprintf("Course %q deleted", course.Title),
		UserID:      &actorID,
		EntityType:  "course",
		EntityID:    &id,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		Severity:    model.SeverityMedium,
		Metadata:    map[string]interface{}{"teacherId": course.TeacherID, "filesRemoved": len(keys)},
	})
	return nil
}

// ListPublished returns the public catalogue, newest first.
// A non-zero viewerID adds the viewer's enrollment state.
func (s *CourseService) ListPublished(ctx context.Context, filter CatalogFilter, viewerID uint) ([]model.CourseWithDetails, error) {
	query := withRelations(s.db.WithContext(ctx)).Where("status = ?", model.CourseStatusPublished)

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := containsPattern(search)
		query = query.Where("LOWER(title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!'", pattern, pattern)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.PriceMin != nil {
		query = query.Where("price >= ?", *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		query = query.Where("price <= ?", *filter.PriceMax)
	}
	if filter.Difficulty != "" && filter.Difficulty != "all" {
		query = query.Where("difficulty_level = ?", filter.Difficulty)
	}

	var courses []model.Course
	if err := query.Order("created_at DESC, id DESC").Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch courses: %w", err)
	}

	details, err := s.withDetails(ctx, courses)
	if err != nil {
		return nil, err
	}
	if err := s.annotateForViewer(ctx, details, viewerID); err != nil {
		return nil, err
	}
	return details, nil
}

// Recommended returns the best rated published courses. Unrated courses
// sort last, ties break on enrollment count.
func (s *CourseService) Recommended(ctx context.Context, viewerID uint) ([]model.CourseWithDetails, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Table("courses").
		Select("courses.id").
		Joins("LEFT JOIN enrollments ON enrollments.course_id = courses.id").
		Where("courses.status = ?", model.CourseStatusPublished).
		Group("courses.id").
		Order("(AVG(enrollments.rating) IS NULL) ASC").
		Order("AVG(CAST(enrollments.rating AS FLOAT)) DESC").
		Order("COUNT(enrollments.id) DESC").
		Order("courses.id DESC").
		Limit(RecommendedLimit).
		Pluck("courses.id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to rank courses: %w", err)
	}
	if len(ids) == 0 {
		return []model.CourseWithDetails{}, nil
	}

	var courses []model.Course
	if err := withRelations(s.db.WithContext(ctx)).Where("id IN ?", ids).Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch courses: %w", err)
	}

	byID := make(map[uint]model.Course, len(courses))
	for _, c := range courses {
		byID[c.ID] = c
	}
	ordered := make([]model.Course, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}

	details, err := s.withDetails(ctx, ordered)
	if err != nil {
		return nil, err
	}
	if err := s.annotateForViewer(ctx, details, viewerID); err != nil {
		return nil, err
	}
	return details, nil
}

// GetForStudent returns a course page. Unpublished courses are hidden from
// everyone but their owner and admins.
func (s *CourseService) GetForStudent(ctx context.Context, id uint, viewer *Actor) (*model.CourseWithDetails, error) {
	detail, err := s.detail(ctx, id)
	if err != nil {
		return nil, err
	}

	if detail.Status != model.CourseStatusPublished {
		if viewer == nil || authorizeCourse(&detail.Course, *viewer) != nil {
			return nil, ErrCourseNotFound
		}
	}

	if viewer != nil {
		details := []model.CourseWithDetails{*detail}
		if err := s.annotateForViewer(ctx, details, viewer.ID); err != nil {
			return nil, err
		}
		detail = &details[0]
	}
	return detail, nil
}

// AdminList returns a page of all courses with aggregates
func (s *CourseService) AdminList(ctx context.Context, opts AdminCourseListOptions) ([]model.CourseWithDetails, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.Course{})

	if search := strings.TrimSpace(opts.Search); search != "" {
		pattern := containsPattern(search)
		query = query.Where("LOWER(title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!'", pattern, pattern)
	}
	if opts.Status != "" && opts.Status != "all" {
		query = query.Where("status = ?", opts.Status)
	}
	if opts.CategoryID != nil {
		query = query.Where("category_id = ?", *opts.CategoryID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}

	var courses []model.Course
	if err := withRelations(query).
		Order("created_at DESC, id DESC").
		Limit(opts.Limit).
		Offset((opts.Page - 1) * opts.Limit).
		Find(&courses).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch courses: %w", err)
	}

	details, err := s.withDetails(ctx, courses)
	if err != nil {
		return nil, 0, err
	}
	return details, total, nil
}

// Stats counts courses by status
func (s *CourseService) Stats(ctx context.Context, now time.Time) (*CourseStats, error) {
	db := s.db.WithContext(ctx).Model(&model.Course{})
	stats := &CourseStats{}

	type statusRow struct {
		Status model.CourseStatus
		Total  int64
	}
	var rows []statusRow
	if err := db.Session(&gorm.Session{}).Select("status, COUNT(id) AS total").Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count courses: %w", err)
	}
	for _, r := range rows {
		stats.Total += r.Total
		switch r.Status {
		case model.CourseStatusPublished:
			stats.Published = r.Total
		case model.CourseStatusDraft:
			stats.Draft = r.Total
		case model.CourseStatusArchived:
			stats.Archived = r.Total
		}
	}

	if err := db.Session(&gorm.Session{}).Where("created_at >= ?", MonthStart(now)).Count(&stats.NewThisMonth).Error; err != nil {
		return nil, fmt.Errorf("failed to count new courses: %w", err)
	}
	return stats, nil
}
