package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eduhub/marketplace-api/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EnrollmentService handles enrollment, progress, reviews and the activity feed
type EnrollmentService struct {
	db            *gorm.DB
	courses       *CourseService
	notifications *NotificationService
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(db *gorm.DB, courses *CourseService, notifications *NotificationService) *EnrollmentService {
	return &EnrollmentService{
		db:            db,
		courses:       courses,
		notifications: notifications,
	}
}

// EnrollOptions carries the optional side data of an enrollment
type EnrollOptions struct {
	// Metadata is stored on the enrolled activity
	Metadata map[string]interface{}
	// Payment, when set, is recorded against the new enrollment
	Payment *model.CoursePayment
}

// EnrollmentDetail is an enrollment with the people and course it links
type EnrollmentDetail struct {
	model.Enrollment
	Student     *model.UserSummary `json:"student,omitempty"`
	CourseTitle string             `json:"courseTitle,omitempty"`
}

// EnrolledCourse is a course as seen by one of its students
type EnrolledCourse struct {
	model.CourseWithDetails
	Progress   int       `json:"progress"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

// CourseReview is a rated enrollment shown on a course page
type CourseReview struct {
	EnrollmentID uint       `json:"enrollmentId"`
	CourseID     uint       `json:"courseId"`
	StudentID    uint       `json:"studentId"`
	StudentName  string     `json:"studentName"`
	Rating       int        `json:"rating"`
	Review       *string    `json:"review"`
	ReviewedAt   *time.Time `json:"reviewedAt"`
}

// ActivityInput is a self-reported student activity
type ActivityInput struct {
	CourseID     uint
	MaterialID   *uint
	ActivityType model.ActivityType
	Metadata     map[string]interface{}
}

func encodeMetadata(metadata map[string]interface{}) (datatypes.JSON, error) {
	if metadata == nil {
		return nil, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return datatypes.JSON(raw), nil
}

// Enroll creates the (student, course) enrollment. The existence check and
// the insert share a transaction and the unique index rejects a lost race.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, courseID uint, opts EnrollOptions) (*model.Enrollment, error) {
	metadata, err := encodeMetadata(opts.Metadata)
	if err != nil {
		return nil, err
	}

	var (
		enrollment model.Enrollment
		course     model.Course
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&course, courseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCourseNotFound
			}
			return err
		}
		if course.Status != model.CourseStatusPublished {
			return ErrCourseNotPublished
		}

		var existing int64
		if err := tx.Model(&model.Enrollment{}).
			Where("course_id = ? AND student_id = ?", courseID, studentID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyEnrolled
		}

		enrollment = model.Enrollment{
			CourseID:   courseID,
			StudentID:  studentID,
			EnrolledAt: time.Now().UTC(),
			Progress:   0,
		}
		if err := tx.Create(&enrollment).Error; err != nil {
			return err
		}

		activity := model.StudentActivity{
			StudentID:    studentID,
			CourseID:     courseID,
			ActivityType: model.ActivityEnrolled,
			Metadata:     metadata,
		}
		if err := tx.Create(&activity).Error; err != nil {
			return err
		}

		if opts.Payment != nil {
			payment := *opts.Payment
			payment.StudentID = studentID
			payment.CourseID = courseID
			payment.EnrollmentID = &enrollment.ID
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrAlreadyEnrolled
		case errors.Is(err, ErrCourseNotFound), errors.Is(err, ErrCourseNotPublished), errors.Is(err, ErrAlreadyEnrolled):
			return nil, err
		}
		return nil, fmt.Errorf("failed to enroll: %w", err)
	}

	s.notifications.EnrollmentCreated(ctx, &course, &enrollment)

	return &enrollment, nil
}

func (s *EnrollmentService) ownEnrollment(ctx context.Context, tx *gorm.DB, enrollmentID, studentID uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	if err := tx.WithContext(ctx).First(&enrollment, enrollmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to fetch enrollment: %w", err)
	}
	if enrollment.StudentID != studentID {
		return nil, ErrNotEnrollmentOwner
	}
	return &enrollment, nil
}

// UpdateProgress stores the reported progress and recomputes the completion
// timestamp. Moving into 100 appends a completed activity.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, studentID, enrollmentID uint, progress int) (*model.Enrollment, error) {
	var enrollment *model.Enrollment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		enrollment, err = s.ownEnrollment(ctx, tx, enrollmentID, studentID)
		if err != nil {
			return err
		}

		wasComplete := enrollment.Progress == 100
		enrollment.SetProgress(progress, time.Now().UTC())

		if err := tx.Model(enrollment).
			Select("progress", "completed_at").
			Updates(map[string]interface{}{
				"progress":     enrollment.Progress,
				"completed_at": enrollment.CompletedAt,
			}).Error; err != nil {
			return err
		}

		if progress == 100 && !wasComplete {
			return tx.Create(&model.StudentActivity{
				StudentID:    studentID,
				CourseID:     enrollment.CourseID,
				ActivityType: model.ActivityCompleted,
			}).Error
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEnrollmentNotFound) || errors.Is(err, ErrNotEnrollmentOwner) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}
	return enrollment, nil
}

// Review stores a rating and optional review text on the caller's enrollment
func (s *EnrollmentService) Review(ctx context.Context, studentID, enrollmentID uint, rating int, review *string) (*model.Enrollment, error) {
	var enrollment *model.Enrollment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		enrollment, err = s.ownEnrollment(ctx, tx, enrollmentID, studentID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		enrollment.Rating = &rating
		enrollment.Review = review
		enrollment.ReviewedAt = &now

		if err := tx.Model(enrollment).
			Select("rating", "review", "reviewed_at").
			Updates(map[string]interface{}{
				"rating":      rating,
				"review":      review,
				"reviewed_at": now,
			}).Error; err != nil {
			return err
		}

		metadata, err := encodeMetadata(map[string]interface{}{"rating": rating})
		if err != nil {
			return err
		}
		return tx.Create(&model.StudentActivity{
			StudentID:    studentID,
			CourseID:     enrollment.CourseID,
			ActivityType: model.ActivityReviewed,
			Metadata:     metadata,
		}).Error
	})
	if err != nil {
		if errors.Is(err, ErrEnrollmentNotFound) || errors.Is(err, ErrNotEnrollmentOwner) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save review: %w", err)
	}
	return enrollment, nil
}

// EnrolledCourses returns the student's courses, most recent enrollment first
func (s *EnrollmentService) EnrolledCourses(ctx context.Context, studentID uint) ([]EnrolledCourse, error) {
	var enrollments []model.Enrollment
	if err := s.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("enrolled_at DESC, id DESC").
		Find(&enrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch enrollments: %w", err)
	}
	if len(enrollments) == 0 {
		return []EnrolledCourse{}, nil
	}

	ids := make([]uint, len(enrollments))
	for i, e := range enrollments {
		ids[i] = e.CourseID
	}

	var courses []model.Course
	if err := withRelations(s.db.WithContext(ctx)).Where("id IN ?", ids).Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch courses: %w", err)
	}
	details, err := s.courses.withDetails(ctx, courses)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]model.CourseWithDetails, len(details))
	for _, d := range details {
		byID[d.ID] = d
	}

	result := make([]EnrolledCourse, 0, len(enrollments))
	for _, e := range enrollments {
		d, ok := byID[e.CourseID]
		if !ok {
			continue
		}
		enrolled := true
		progress := e.Progress
		enrollmentID := e.ID
		d.IsEnrolled = &enrolled
		d.UserProgress = &progress
		d.CompletedAt = e.CompletedAt
		d.EnrollmentID = &enrollmentID
		result = append(result, EnrolledCourse{
			CourseWithDetails: d,
			Progress:          e.Progress,
			EnrolledAt:        e.EnrolledAt,
		})
	}
	return result, nil
}

func toDetails(enrollments []model.Enrollment) []EnrollmentDetail {
	result := make([]EnrollmentDetail, len(enrollments))
	for i, e := range enrollments {
		d := EnrollmentDetail{Enrollment: e}
		if e.Student != nil {
			summary := e.Student.ToSummary()
			d.Student = &summary
		}
		if e.Course != nil {
			d.CourseTitle = e.Course.Title
		}
		result[i] = d
	}
	return result
}

// CourseEnrollments lists a course's enrollments for its owner or an admin
func (s *EnrollmentService) CourseEnrollments(ctx context.Context, actor Actor, courseID uint) ([]EnrollmentDetail, error) {
	if _, err := s.courses.Authorize(ctx, courseID, actor); err != nil {
		return nil, err
	}

	var enrollments []model.Enrollment
	if err := s.db.WithContext(ctx).
		Preload("Student").
		Where("course_id = ?", courseID).
		Order("enrolled_at DESC, id DESC").
		Find(&enrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch enrollments: %w", err)
	}
	return toDetails(enrollments), nil
}

// TeacherEnrollments lists enrollments across every course the teacher owns
func (s *EnrollmentService) TeacherEnrollments(ctx context.Context, teacherID uint) ([]EnrollmentDetail, error) {
	var enrollments []model.Enrollment
	if err := s.db.WithContext(ctx).
		Preload("Student").
		Preload("Course").
		Joins("JOIN courses ON courses.id = enrollments.course_id").
		Where("courses.teacher_id = ?", teacherID).
		Order("enrollments.enrolled_at DESC, enrollments.id DESC").
		Find(&enrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch enrollments: %w", err)
	}
	return toDetails(enrollments), nil
}

// CourseReviews lists the rated enrollments of a course, newest review first
func (s *EnrollmentService) CourseReviews(ctx context.Context, courseID uint) ([]CourseReview, error) {
	var enrollments []model.Enrollment
	if err := s.db.WithContext(ctx).
		Preload("Student").
		Where("course_id = ? AND rating IS NOT NULL", courseID).
		Order("reviewed_at DESC, id DESC").
		Find(&enrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch reviews: %w", err)
	}

	reviews := make([]CourseReview, 0, len(enrollments))
	for _, e := range enrollments {
		r := CourseReview{
			EnrollmentID: e.ID,
			CourseID:     e.CourseID,
			StudentID:    e.StudentID,
			Rating:       *e.Rating,
			Review:       e.Review,
			ReviewedAt:   e.ReviewedAt,
		}
		if e.Student != nil {
			r.StudentName = e.Student.FullName()
		}
		reviews = append(reviews, r)
	}
	return reviews, nil
}

// RecordActivity appends a self-reported activity. The student must be
// enrolled in the course and a referenced material must belong to it.
func (s *EnrollmentService) RecordActivity(ctx context.Context, studentID uint, input ActivityInput) (*model.StudentActivity, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Enrollment{}).
		Where("course_id = ? AND student_id = ?", input.CourseID, studentID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if count == 0 {
		return nil, ErrNotEnrolled
	}

	if input.MaterialID != nil {
		if err := s.db.WithContext(ctx).Model(&model.CourseMaterial{}).
			Where("id = ? AND course_id = ?", *input.MaterialID, input.CourseID).
			Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check material: %w", err)
		}
		if count == 0 {
			return nil, ErrMaterialNotInCourse
		}
	}

	metadata, err := encodeMetadata(input.Metadata)
	if err != nil {
		return nil, err
	}

	activity := &model.StudentActivity{
		StudentID:    studentID,
		CourseID:     input.CourseID,
		MaterialID:   input.MaterialID,
		ActivityType: input.ActivityType,
		Metadata:     metadata,
	}
	if err := s.db.WithContext(ctx).Create(activity).Error; err != nil {
		return nil, fmt.Errorf("failed to record activity: %w", err)
	}
	return activity, nil
}

func activityFeed(db *gorm.DB) *gorm.DB {
	return db.Table("student_activity").
		Select("student_activity.*, courses.title AS course_title, " +
			"TRIM(COALESCE(users.first_name, '') || ' ' || COALESCE(users.last_name, '')) AS student_name").
		Joins("JOIN courses ON courses.id = student_activity.course_id").
		Joins("JOIN users ON users.id = student_activity.student_id")
}

// StudentActivity returns the student's own feed, newest first
func (s *EnrollmentService) StudentActivity(ctx context.Context, studentID uint, limit int) ([]model.ActivityFeedItem, error) {
	var items []model.ActivityFeedItem
	if err := activityFeed(s.db.WithContext(ctx)).
		Where("student_activity.student_id = ?", studentID).
		Order("student_activity.created_at DESC, student_activity.id DESC").
		Limit(limit).
		Scan(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch activity: %w", err)
	}
	return items, nil
}

// TeacherActivity returns recent activity on the teacher's courses
func (s *EnrollmentService) TeacherActivity(ctx context.Context, teacherID uint, limit int) ([]model.ActivityFeedItem, error) {
	var items []model.ActivityFeedItem
	if err := activityFeed(s.db.WithContext(ctx)).
		Where("courses.teacher_id = ?", teacherID).
		Order("student_activity.created_at DESC, student_activity.id DESC").
		Limit(limit).
		Scan(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch activity: %w", err)
	}
	return items, nil
}

// RecentActivity returns the latest activity across the platform
func (s *EnrollmentService) RecentActivity(ctx context.Context, limit int) ([]model.ActivityFeedItem, error) {
	var items []model.ActivityFeedItem
	if err := activityFeed(s.db.WithContext(ctx)).
		Order("student_activity.created_at DESC, student_activity.id DESC").
		Limit(limit).
		Scan(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch activity: %w", err)
	}
	return items, nil
}
