package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eduhub/marketplace-api/model"
	"github.com/eduhub/marketplace-api/utils/auth"
	"gorm.io/gorm"
)

// RequestMeta carries the caller's network identity into audit records
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

type demoAccount struct {
	password  string
	firstName string
	lastName  string
	role      model.Role
}

// Demo accounts are provisioned on their first successful login
var demoAccounts = map[string]demoAccount{
	"admin@example.com":   {password: "admin123", firstName: "Admin", lastName: "User", role: model.RoleAdmin},
	"teacher@example.com": {password: "teacher123", firstName: "Teacher", lastName: "User", role: model.RoleTeacher},
	"student@example.com": {password: "student123", firstName: "Student", lastName: "User", role: model.RoleStudent},
}

// UserService handles accounts, profiles and admin user management
type UserService struct {
	db            *gorm.DB
	logs          *SystemLogService
	notifications *NotificationService
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB, logs *SystemLogService, notifications *NotificationService) *UserService {
	return &UserService{
		db:            db,
		logs:          logs,
		notifications: notifications,
	}
}

// RegisterInput is the data for a new student account
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// ProfileUpdate holds the self-editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	FirstName       *string
	LastName        *string
	Bio             *string
	Website         *string
	ProfileImageURL *string
}

// AdminUserUpdate holds the fields an admin may change on any user
type AdminUserUpdate struct {
	Role      *model.Role
	IsActive  *bool
	FirstName *string
	LastName  *string
}

// UserListOptions filters the admin user listing
type UserListOptions struct {
	Search string
	Role   string
	Status string
	Page   int
	Limit  int
}

// UserWithCounts is a user row annotated with ownership and enrollment counts
type UserWithCounts struct {
	model.User
	CourseCount     int64 `json:"courseCount"`
	EnrollmentCount int64 `json:"enrollmentCount"`
}

// UserStats summarises the user base for the admin console
type UserStats struct {
	Total        int64 `json:"total"`
	Students     int64 `json:"students"`
	Teachers     int64 `json:"teachers"`
	Admins       int64 `json:"admins"`
	Active       int64 `json:"active"`
	NewThisMonth int64 `json:"newThisMonth"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate checks credentials and stamps the login time.
// A demo account is created on its first login with the demo password.
func (s *UserService) Authenticate(ctx context.Context, email, password string, meta RequestMeta) (*model.User, error) {
	email = normalizeEmail(email)

	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		demo, ok := demoAccounts[email]
		if !ok || demo.password != password {
			return nil, ErrInvalidCredentials
		}
		created, err := s.createDemoAccount(ctx, email, demo)
		if err != nil {
			return nil, err
		}
		user = *created
	} else if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}
	user.LastLoginAt = &now

	userID := user.ID
	s.logs.Note(ctx, LogEntry{
		Action:      "user_login",
		Description: fmt.Sprintf("User %s logged in", user.Email),
		UserID:      &userID,
		EntityType:  "user",
		EntityID:    &userID,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		Severity:    model.SeverityLow,
	})

	return &user, nil
}

func (s *UserService) createDemoAccount(ctx context.Context, email string, demo demoAccount) (*model.User, error) {
	// Demo passwords are shorter than the registration minimum
	hash, err := auth.HashPasswordUnchecked(demo.password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    demo.firstName,
		LastName:     demo.lastName,
		Role:         demo.role,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent login created it first
			var existing model.User
			if err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err != nil {
				return nil, fmt.Errorf("failed to fetch user: %w", err)
			}
			return &existing, nil
		}
		return nil, fmt.Errorf("failed to create demo account: %w", err)
	}
	return user, nil
}

// Register creates a student account
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	email := normalizeEmail(input.Email)

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         model.RoleStudent,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.notifications.UserRegistered(ctx, user)

	return user, nil
}

// GetByID loads a user
func (s *UserService) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

// UpdateProfile applies the caller's own profile edits
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, update ProfileUpdate) (*model.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if update.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*update.LastName)
	}
	if update.Bio != nil {
		updates["bio"] = nullableString(*update.Bio)
	}
	if update.Website != nil {
		updates["website"] = nullableString(*update.Website)
	}
	if update.ProfileImageURL != nil {
		updates["profile_image_url"] = strings.TrimSpace(*update.ProfileImageURL)
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.GetByID(ctx, userID)
}

// nullableString trims s and maps blank input to NULL
func nullableString(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

// ListUsers returns a page of users with their course and enrollment counts
func (s *UserService) ListUsers(ctx context.Context, opts UserListOptions) ([]UserWithCounts, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.User{})

	if opts.Search != "" {
		pattern := containsPattern(opts.Search)
		query = query.Where("LOWER(email) LIKE ? ESCAPE '!' OR LOWER(first_name) LIKE ? ESCAPE '!' OR LOWER(last_name) LIKE ? ESCAPE '!'",
			pattern, pattern, pattern)
	}
	if opts.Role != "" && opts.Role != "all" {
		query = query.Where("role = ?", opts.Role)
	}
	switch opts.Status {
	case "active":
		query = query.Where("is_active = ?", true)
	case "inactive":
		query = query.Where("is_active = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []model.User
	if err := query.Order("created_at DESC, id DESC").
		Limit(opts.Limit).
		Offset((opts.Page - 1) * opts.Limit).
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	result := make([]UserWithCounts, len(users))
	if len(users) == 0 {
		return result, total, nil
	}

	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}

	type countRow struct {
		OwnerID uint
		Total   int64
	}
	var courseCounts, enrollmentCounts []countRow
	if err := s.db.WithContext(ctx).Model(&model.Course{}).
		Select("teacher_id AS owner_id, COUNT(id) AS total").
		Where("teacher_id IN ?", ids).
		Group("teacher_id").
		Scan(&courseCounts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&model.Enrollment{}).
		Select("student_id AS owner_id, COUNT(id) AS total").
		Where("student_id IN ?", ids).
		Group("student_id").
		Scan(&enrollmentCounts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count enrollments: %w", err)
	}

	courses := make(map[uint]int64, len(courseCounts))
	for _, row := range courseCounts {
		courses[row.OwnerID] = row.Total
	}
	enrollments := make(map[uint]int64, len(enrollmentCounts))
	for _, row := range enrollmentCounts {
		enrollments[row.OwnerID] = row.Total
	}

	for i, u := range users {
		result[i] = UserWithCounts{
			User:            u,
			CourseCount:     courses[u.ID],
			EnrollmentCount: enrollments[u.ID],
		}
	}
	return result, total, nil
}

// Stats counts users by role and activity
func (s *UserService) Stats(ctx context.Context, now time.Time) (*UserStats, error) {
	db := s.db.WithContext(ctx).Model(&model.User{})
	stats := &UserStats{}

	if err := db.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	type roleRow struct {
		Role  model.Role
		Total int64
	}
	var roles []roleRow
	if err := db.Session(&gorm.Session{}).Select("role, COUNT(id) AS total").Group("role").Scan(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to count roles: %w", err)
	}
	for _, r := range roles {
		switch r.Role {
		case model.RoleStudent:
			stats.Students = r.Total
		case model.RoleTeacher:
			stats.Teachers = r.Total
		case model.RoleAdmin:
			stats.Admins = r.Total
		}
	}

	if err := db.Session(&gorm.Session{}).Where("is_active = ?", true).Count(&stats.Active).Error; err != nil {
		return nil, fmt.Errorf("failed to count active users: %w", err)
	}
	if err := db.Session(&gorm.Session{}).Where("created_at >= ?", MonthStart(now)).Count(&stats.NewThisMonth).Error; err != nil {
		return nil, fmt.Errorf("failed to count new users: %w", err)
	}

	return stats, nil
}

// Recent returns the newest accounts
func (s *UserService) Recent(ctx context.Context, limit int) ([]model.User, error) {
	if limit <= 0 || limit > 50 {
		limit = 5
	}
	var users []model.User
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch recent users: %w", err)
	}
	return users, nil
}

// AdminUpdate applies an admin's change to a user. It reports whether the
// user was deactivated so the caller can revoke their sessions.
func (s *UserService) AdminUpdate(ctx context.Context, actor Actor, targetID uint, update AdminUserUpdate, meta RequestMeta) (*model.User, bool, error) {
	if update.Role != nil && !update.Role.Valid() {
		return nil, false, ErrInvalidRole
	}

	user, err := s.GetByID(ctx, targetID)
	if err != nil {
		return nil, false, err
	}

	if targetID == actor.ID {
		if update.Role != nil && *update.Role != model.RoleAdmin {
			return nil, false, ErrSelfModification
		}
		if update.IsActive != nil && !*update.IsActive {
			return nil, false, ErrSelfModification
		}
	}

	previousRole := user.Role
	deactivated := update.IsActive != nil && !*update.IsActive && user.IsActive

	updates := map[string]interface{}{}
	if update.Role != nil {
		updates["role"] = *update.Role
	}
	if update.IsActive != nil {
		updates["is_active"] = *update.IsActive
	}
	if update.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*update.LastName)
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			return nil, false, fmt.Errorf("failed to update user: %w", err)
		}
	}

	actorID := actor.ID
	if update.Role != nil && *update.Role != previousRole {
		s.logs.Note(ctx, LogEntry{
			Action:      "user_role_changed",
			Description: fmt.Sprintf("Role of %s changed from %s to %s", user.Email, previousRole, *update.Role),
			UserID:      &actorID,
			EntityType:  "user",
			EntityID:    &targetID,
			IPAddress:   meta.IPAddress,
			UserAgent:   meta.UserAgent,
			Severity:    model.SeverityHigh,
			Metadata:    map[string]interface{}{"from": previousRole, "to": *update.Role},
		})
	}
	if deactivated {
		s.logs.Note(ctx, LogEntry{
			Action:      "user_deactivated",
			Description: fmt.Sprintf("User %s was deactivated", user.Email),
			UserID:      &actorID,
			EntityType:  "user",
			EntityID:    &targetID,
			IPAddress:   meta.IPAddress,
			UserAgent:   meta.UserAgent,
			Severity:    model.SeverityMedium,
		})
	}

	updated, err := s.GetByID(ctx, targetID)
	if err != nil {
		return nil, false, err
	}
	return updated, deactivated, nil
}

// MonthStart returns the first instant of now's UTC month
func MonthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
