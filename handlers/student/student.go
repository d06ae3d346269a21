package student

import (
	"strconv"
	"strings"

	"github.com/eduhub/marketplace-api/model"
	"github.com/eduhub/marketplace-api/services"
	"github.com/eduhub/marketplace-api/utils"
	"github.com/eduhub/marketplace-api/utils/response"
	"github.com/eduhub/marketplace-api/utils/validation"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

// StudentHandler handles the catalogue and student learning endpoints
type StudentHandler struct {
	courses     *services.CourseService
	enrollments *services.EnrollmentService
	payments    *services.PaymentService
	validator   *validation.Validator
}

// NewStudentHandler creates a new student handler
func NewStudentHandler(courses *services.CourseService, enrollments *services.EnrollmentService, payments *services.PaymentService) *StudentHandler {
	return &StudentHandler{
		courses:     courses,
		enrollments: enrollments,
		payments:    payments,
		validator:   validation.NewValidator(),
	}
}

// SimulatePaymentRequest represents the request body for a simulated checkout
type SimulatePaymentRequest struct {
	CourseID uint `json:"courseId" validate:"required,min=1"`
}

// ProgressRequest represents the request body for a progress update
type ProgressRequest struct {
	Progress *int `json:"progress" validate:"required,min=0,max=100"`
}

// ReviewRequest represents the request body for rating a course
type ReviewRequest struct {
	Rating int     `json:"rating" validate:"required,min=1,max=5"`
	Review *string `json:"review" validate:"omitempty,max=5000"`
}

// ActivityRequest represents a self-reported learning activity
type ActivityRequest struct {
	CourseID     uint                   `json:"courseId" validate:"required,min=1"`
	MaterialID   *uint                  `json:"materialId" validate:"omitempty,min=1"`
	ActivityType string                 `json:"activityType" validate:"required,oneof=assignment_submitted quiz_completed"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// viewerID is the caller's user id, or 0 for anonymous requests
func viewerID(c *fiber.Ctx) uint {
	if actor, ok := utils.ActorFromCtx(c); ok {
		return actor.ID
	}
	return 0
}

func parseFloatQuery(c *fiber.Ctx, name string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, services.ErrInvalidPriceRange
	}
	return &v, nil
}

// catalogFilter reads the catalogue query parameters
func catalogFilter(c *fiber.Ctx) (services.CatalogFilter, error) {
	categoryID, err := utils.OptionalUintQuery(c, "category")
	if err != nil {
		return services.CatalogFilter{}, services.ErrInvalidCategoryFilter
	}
	filter := services.CatalogFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		CategoryID: categoryID,
		Difficulty: c.Query("difficulty"),
	}
	if filter.Difficulty == "all" {
		filter.Difficulty = ""
	}

	if price := c.Query("price"); price != "" && price != "all" {
		min, max, err := services.ParsePriceRange(price)
		if err != nil {
			return filter, err
		}
		filter.PriceMin, filter.PriceMax = min, max
	}

	// Explicit bounds override the packed range
	min, err := parseFloatQuery(c, "priceMin")
	if err != nil {
		return filter, err
	}
	if min != nil {
		filter.PriceMin = min
	}
	max, err := parseFloatQuery(c, "priceMax")
	if err != nil {
		return filter, err
	}
	if max != nil {
		filter.PriceMax = max
	}
	return filter, nil
}

// ListCourses handles GET /api/student/courses
func (h *StudentHandler) ListCourses(c *fiber.Ctx) error {
	filter, err := catalogFilter(c)
	if err != nil {
		return utils.HandleServiceError(c, err, "Invalid filter")
	}

	courses, err := h.courses.ListPublished(c.UserContext(), filter, viewerID(c))
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch courses")
	}

	return response.Success(c, courses)
}

// RecommendedCourses handles GET /api/student/recommended-courses
func (h *StudentHandler) RecommendedCourses(c *fiber.Ctx) error {
	courses, err := h.courses.Recommended(c.UserContext(), viewerID(c))
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch recommended courses")
	}
	return response.Success(c, courses)
}

// GetCourse handles GET /api/student/course/:id
func (h *StudentHandler) GetCourse(c *fiber.Ctx) error {
	id, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var viewer *services.Actor
	if actor, ok := utils.ActorFromCtx(c); ok {
		viewer = &actor
	}

	course, err := h.courses.GetForStudent(c.UserContext(), id, viewer)
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch course")
	}

	return response.Success(c, course)
}

// CourseReviews handles GET /api/course/:id/reviews
func (h *StudentHandler) CourseReviews(c *fiber.Ctx) error {
	id, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	reviews, err := h.enrollments.CourseReviews(c.UserContext(), id)
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch reviews")
	}

	return response.Success(c, reviews)
}

// EnrolledCourses handles GET /api/student/enrolled-courses
func (h *StudentHandler) EnrolledCourses(c *fiber.Ctx) error {
	actor, ok := utils.ActorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	courses, err := h.enrollments.EnrolledCourses(c.UserContext(), actor.ID)
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch enrolled courses")
	}

	return response.Success(c, courses)
}

// Enroll handles POST /api/student/enroll/:courseId
func (h *StudentHandler) Enroll(c *fiber.Ctx) error {
	actor, ok := utils.ActorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}
	courseID, err := utils.ParseIDParam(c, "courseId")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	enrollment, err := h.enrollments.Enroll(c.UserContext(), actor.ID, courseID, services.EnrollOptions{})
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to enroll")
	}

	return response.Created(c, enrollment)
}

// SimulatePayment handles POST /api/student/simulate-payment
func (h *StudentHandler) SimulatePayment(c *fiber.Ctx) error {
	actor, ok := utils.ActorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var req SimulatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := h.validator.Validate(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	enrollment, err := h.payments.SimulatePayment(c.UserContext(), actor.ID, req.CourseID)
	if err != nil {
		return utils.HandleServiceError(c, err, "Payment failed")
	}

	return response.Success(c, fiber.Map{
		"success":      true,
		"enrollmentId": enrollment.ID,
		"message":      "Payment successful! You are now enrolled.",
	})
}

// UpdateProgress handles PUT /api/student/progress/:enrollmentId
func (h *StudentHandler) UpdateProgress(c *fiber.Ctx) error {
	actor, ok := utils.ActorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}
	enrollmentID, err := utils.ParseIDParam(c, "enrollmentId")
	if err != nil {
		return response.BadRequest(c, "Invalid enrollment ID")
	}

	var req ProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := h.validator.Validate(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	enrollment, err := h.enrollments.UpdateProgress(c.UserContext(), actor.ID, enrollmentID, *req.Progress)
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to update progress")
	}

	return response.SuccessWithMessage(c, "Progress updated successfully", enrollment)
}

// Review handles POST /api/student/review/:enrollmentId
func (h *StudentHandler) Review(c *fiber.Ctx) error {
	actor, ok := utils.ActorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}
	enrollmentID, err := utils.ParseIDParam(c, "enrollmentId")
	if err != nil {
		return response.BadRequest(c, "Invalid enrollment ID")
	}

	var req ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := h.validator.Validate(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	enrollment, err := h.enrollments.Review(c.UserContext(), actor.ID, enrollmentID, req.Rating, validation.SanitizeOptional(req.Review))
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to submit review")
	}

	return response.SuccessWithMessage(c, "Review submitted successfully", enrollment)
}

// ListActivity handles GET /api/student/activity
func (h *StudentHandler) ListActivity(c *fiber.Ctx) error {
	actor, ok := utils.ActorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultActivityLimit)))
	if limit < 1 || limit > maxActivityLimit {
		limit = defaultActivityLimit
	}

	activity, err := h.enrollments.StudentActivity(c.UserContext(), actor.ID, limit)
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch activity")
	}

	return response.Success(c, activity)
}

// RecordActivity handles POST /api/student/activity
func (h *StudentHandler) RecordActivity(c *fiber.Ctx) error {
	actor, ok := utils.ActorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var req ActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := h.validator.Validate(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	activity, err := h.enrollments.RecordActivity(c.UserContext(), actor.ID, services.ActivityInput{
		CourseID:     req.CourseID,
		MaterialID:   req.MaterialID,
		ActivityType: model.ActivityType(req.ActivityType),
		Metadata:     req.Metadata,
	})
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to record activity")
	}

	return response.Created(c, activity)
}
