package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eduhub/marketplace-api/model"
	"github.com/eduhub/marketplace-api/utils/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultNotificationLimit = 50

// NotificationService owns the shared admin inbox. Domain services post to
// it through the event helpers; failures there never fail the caller.
type NotificationService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotificationService(db *gorm.DB, log *logger.Logger) *NotificationService {
	return &NotificationService{db: db, log: log}
}

type CreateNotificationRequest struct {
	Type     model.NotificationType
	Category model.NotificationCategory
	Title    string
	Message  string
	Metadata map[string]interface{}
}

type ListNotificationsOptions struct {
	UnreadOnly bool
	Category   string
	Limit      int
	Offset     int
}

func (s *NotificationService) inbox(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&model.AdminNotification{})
}

func unread(db *gorm.DB) *gorm.DB {
	return db.Where("read = ?", false)
}

// CreateNotification stores a notification, defaulting to an info entry in the system category
func (s *NotificationService) CreateNotification(ctx context.Context, req CreateNotificationRequest) (*model.AdminNotification, error) {
	n := &model.AdminNotification{
		Type:     req.Type,
		Category: req.Category,
		Title:    req.Title,
		Message:  req.Message,
	}
	if n.Type == "" {
		n.Type = model.NotificationTypeInfo
	}
	if n.Category == "" {
		n.Category = model.NotificationCategorySystem
	}
	if req.Metadata != nil {
		raw, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode notification metadata: %w", err)
		}
		n.Metadata = datatypes.JSON(raw)
	}

	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

func (s *NotificationService) post(ctx context.Context, req CreateNotificationRequest) {
	if _, err := s.CreateNotification(ctx, req); err != nil {
		s.log.Warn("admin notification failed", "title", req.Title, "error", err)
	}
}

// UserRegistered announces a self-registered account
func (s *NotificationService) UserRegistered(ctx context.Context, user *model.User) {
	s.post(ctx, CreateNotificationRequest{
		Category: model.NotificationCategoryUsers,
		Title:    "New user registered",
		Message:  fmt.Sprintf("%s (%s) joined the platform", user.FullName(), user.Email),
		Metadata: map[string]interface{}{"userId": user.ID},
	})
}

func (s *NotificationService) CourseCreated(ctx context.Context, course *model.Course) {
	s.post(ctx, CreateNotificationRequest{
		Category: model.NotificationCategoryCourses,
		Title:    "New course created",
		Message:  fmt.Sprintf("Course %q was created", course.Title),
		Metadata: map[string]interface{}{"courseId": course.ID, "teacherId": course.TeacherID},
	})
}

func (s *NotificationService) CoursePublished(ctx context.Context, course *model.Course) {
	s.post(ctx, CreateNotificationRequest{
		Type:     model.NotificationTypeSuccess,
		Category: model.NotificationCategoryCourses,
		Title:    "Course published",
		Message:  fmt.Sprintf("Course %q is now published", course.Title),
		Metadata: map[string]interface{}{"courseId": course.ID},
	})
}

func (s *NotificationService) EnrollmentCreated(ctx context.Context, course *model.Course, enrollment *model.Enrollment) {
	s.post(ctx, CreateNotificationRequest{
		Type:     model.NotificationTypeSuccess,
		Category: model.NotificationCategoryEnrollments,
		Title:    "New enrollment",
		Message:  fmt.Sprintf("A student enrolled in %q", course.Title),
		Metadata: map[string]interface{}{
			"courseId":     course.ID,
			"studentId":    enrollment.StudentID,
			"enrollmentId": enrollment.ID,
		},
	})
}

// GetNotifications returns one page newest first plus the filtered total
func (s *NotificationService) GetNotifications(ctx context.Context, opts ListNotificationsOptions) ([]model.AdminNotification, int64, error) {
	query := s.inbox(ctx)
	if opts.UnreadOnly {
		query = unread(query)
	}
	if opts.Category != "" {
		query = query.Where("category = ?", opts.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultNotificationLimit
	}

	var notifications []model.AdminNotification
	err := query.Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(max(opts.Offset, 0)).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, total, nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context) (int64, error) {
	var count int64
	if err := unread(s.inbox(ctx)).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func markRead(db *gorm.DB) *gorm.DB {
	return db.Updates(map[string]interface{}{"read": true, "updated_at": time.Now().UTC()})
}

// MarkAsRead is idempotent; only a missing id is an error
func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID uint) error {
	result := markRead(s.inbox(ctx).Where("id = ?", notificationID))
	if result.Error != nil {
		return fmt.Errorf("mark notification %d read: %w", notificationID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllAsRead returns how many notifications changed
func (s *NotificationService) MarkAllAsRead(ctx context.Context) (int64, error) {
	result := markRead(unread(s.inbox(ctx)))
	if result.Error != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *NotificationService) DeleteNotification(ctx context.Context, notificationID uint) error {
	result := s.db.WithContext(ctx).Delete(&model.AdminNotification{}, notificationID)
	if result.Error != nil {
		return fmt.Errorf("delete notification %d: %w", notificationID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// PruneRead deletes read notifications created before cutoff. Unread ones are kept regardless of age.
func (s *NotificationService) PruneRead(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("read = ? AND created_at < ?", true, cutoff).
		Delete(&model.AdminNotification{})
	if result.Error != nil {
		return 0, fmt.Errorf("prune notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}
