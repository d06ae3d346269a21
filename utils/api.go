package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/eduhub/marketplace-api/database"
	"github.com/eduhub/marketplace-api/services"
	"github.com/eduhub/marketplace-api/utils/middleware"
	"github.com/eduhub/marketplace-api/utils/response"
	fiber "github.com/gofiber/fiber/v2"
)

var errInvalidID = errors.New("invalid id")

// MakeHTTPHandleFunc adapts a store-aware handler to a fiber handler
func MakeHTTPHandleFunc(handler func(c *fiber.Ctx, store database.Storage) error, store database.Storage) func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		return handler(c, store)
	}
}

// ParseIDParam reads a positive integer route parameter
func ParseIDParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return uint(id), nil
}

// PageParams reads page and limit query values with bounds
func PageParams(c *fiber.Ctx, defaultLimit, maxLimit int) (int, int) {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}
	return page, limit
}

// OptionalUintQuery parses a numeric query value, returning nil when absent
// or "all" and an error when it is not a positive integer
func OptionalUintQuery(c *fiber.Ctx, name string) (*uint, error) {
	raw := c.Query(name)
	if raw == "" || raw == "all" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || v == 0 {
		return nil, errInvalidID
	}
	id := uint(v)
	return &id, nil
}

// IsExplicitNull reports whether a JSON request body sets field to null.
// Pointer fields cannot tell a missing key from null after BodyParser.
func IsExplicitNull(c *fiber.Ctx, field string) bool {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		return false
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return false
	}
	value, ok := raw[field]
	return ok && string(bytes.TrimSpace(value)) == "null"
}

// ActorFromCtx builds the service actor from the authenticated session
func ActorFromCtx(c *fiber.Ctx) (services.Actor, bool) {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return services.Actor{}, false
	}
	return services.Actor{ID: user.ID, Role: user.Role}, true
}

// MetaFromCtx captures the caller's IP and user agent for audit records
func MetaFromCtx(c *fiber.Ctx) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}

// HandleServiceError maps service sentinel errors onto the response envelope.
// Unknown errors are wrapped and left to the app error handler, which logs
// them and answers 500.
func HandleServiceError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrCourseNotFound):
		return response.NotFound(c, "Course not found")
	case errors.Is(err, services.ErrCourseTitleRequired):
		return response.ValidationError(c, map[string]string{"title": "title is required"})
	case errors.Is(err, services.ErrNotCourseOwner):
		return response.Forbidden(c, "You do not own this course")
	case errors.Is(err, services.ErrCategoryNotFound):
		return response.BadRequest(c, "Category not found")
	case errors.Is(err, services.ErrCategoryExists):
		return response.BadRequest(c, "Category already exists")
	case errors.Is(err, services.ErrCourseNotPublished):
		return response.BadRequest(c, "Course is not available for enrollment")
	case errors.Is(err, services.ErrAlreadyEnrolled):
		return response.BadRequest(c, "Already enrolled in this course")
	case errors.Is(err, services.ErrEnrollmentNotFound):
		return response.NotFound(c, "Enrollment not found")
	case errors.Is(err, services.ErrNotEnrollmentOwner):
		return response.Forbidden(c, "This enrollment belongs to another student")
	case errors.Is(err, services.ErrNotEnrolled):
		return response.Forbidden(c, "You are not enrolled in this course")
	case errors.Is(err, services.ErrMaterialNotInCourse):
		return response.BadRequest(c, "Material does not belong to this course")
	case errors.Is(err, services.ErrMaterialTitleRequired):
		return response.ValidationError(c, map[string]string{"title": "title is required"})
	case errors.Is(err, services.ErrMaterialNotFound):
		return response.NotFound(c, "Material not found")
	case errors.Is(err, services.ErrInvalidFileType):
		return response.BadRequest(c, "Invalid file type")
	case errors.Is(err, services.ErrFileTooLarge):
		return response.PayloadTooLarge(c, "File too large")
	case errors.Is(err, services.ErrUserNotFound):
		return response.NotFound(c, "User not found")
	case errors.Is(err, services.ErrInvalidRole):
		return response.BadRequest(c, "Invalid role")
	case errors.Is(err, services.ErrSelfModification):
		return response.BadRequest(c, "You cannot demote or deactivate your own account")
	case errors.Is(err, services.ErrEmailTaken):
		return response.BadRequest(c, "Email is already registered")
	case errors.Is(err, services.ErrNotificationNotFound):
		return response.NotFound(c, "Notification not found")
	case errors.Is(err, services.ErrSettingNotFound):
		return response.NotFound(c, "Setting not found")
	case errors.Is(err, services.ErrInvalidSettingValue):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrFeatureFlagNotFound):
		return response.NotFound(c, "Feature flag not found")
	case errors.Is(err, services.ErrInvalidPriceRange):
		return response.BadRequest(c, "Invalid price range")
	case errors.Is(err, services.ErrInvalidCategoryFilter):
		return response.BadRequest(c, "Invalid category")
	}
	return fmt.Errorf("%s: %w", fallback, err)
}
