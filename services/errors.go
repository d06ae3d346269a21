package services

import (
	"errors"

	"github.com/eduhub/marketplace-api/model"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUserInactive          = errors.New("user account is deactivated")
	ErrEmailTaken            = errors.New("email is already registered")
	ErrInvalidRole           = errors.New("invalid role")
	ErrSelfModification      = errors.New("admins cannot demote or deactivate themselves")
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCategoryExists        = errors.New("category already exists")
	ErrCourseNotFound        = errors.New("course not found")
	ErrCourseTitleRequired   = errors.New("course title is required")
	ErrNotCourseOwner        = errors.New("you do not own this course")
	ErrCourseNotPublished    = errors.New("course is not published")
	ErrAlreadyEnrolled       = errors.New("already enrolled in this course")
	ErrEnrollmentNotFound    = errors.New("enrollment not found")
	ErrNotEnrollmentOwner    = errors.New("enrollment belongs to another student")
	ErrNotEnrolled           = errors.New("not enrolled in this course")
	ErrMaterialNotFound      = errors.New("material not found")
	ErrMaterialNotInCourse   = errors.New("material does not belong to this course")
	ErrMaterialTitleRequired = errors.New("material title is required")
	ErrInvalidFileType       = errors.New("invalid file type")
	ErrFileTooLarge          = errors.New("file too large")
	ErrNotificationNotFound  = errors.New("notification not found")
	ErrSettingNotFound       = errors.New("setting not found")
	ErrInvalidSettingValue   = errors.New("invalid setting value")
	ErrFeatureFlagNotFound   = errors.New("feature flag not found")
	ErrInvalidPriceRange     = errors.New("invalid price range")
	ErrInvalidCategoryFilter = errors.New("invalid category filter")
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	ID   uint
	Role model.Role
}

// IsAdmin reports whether the actor bypasses ownership checks
func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// authorizeCourse enforces that only the owning teacher or an admin touches a course
func authorizeCourse(course *model.Course, actor Actor) error {
	if actor.IsAdmin() || course.TeacherID == actor.ID {
		return nil
	}
	return ErrNotCourseOwner
}
