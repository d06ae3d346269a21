package course

import (
	"github.com/eduhub/marketplace-api/model"
	"github.com/eduhub/marketplace-api/services"
	"github.com/eduhub/marketplace-api/utils"
	"github.com/eduhub/marketplace-api/utils/response"
	"github.com/eduhub/marketplace-api/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// CourseHandler handles teacher-side course requests
type CourseHandler struct {
	courses     *services.CourseService
	enrollments *services.EnrollmentService
	validator   *validation.Validator
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(courses *services.CourseService, enrollments *services.EnrollmentService) *CourseHandler {
	return &CourseHandler{
		courses:     courses,
		enrollments: enrollments,
		validator:   validation.NewValidator(),
	}
}

// CreateCourseRequest represents the request body for creating a course
type CreateCourseRequest struct {
	Title           string  `json:"title" validate:"required,min=1,max=255"`
	Description     string  `json:"description" validate:"omitempty,max=10000"`
	Price           float64 `json:"price" validate:"gte=0,lte=99999999"`
	CategoryID      *uint   `json:"categoryId" validate:"omitempty,min=1"`
	ThumbnailURL    *string `json:"thumbnailUrl" validate:"omitempty,max=500"`
	Status          string  `json:"status" validate:"omitempty,oneof=draft published archived"`
	DifficultyLevel string  `json:"difficultyLevel" validate:"omitempty,oneof=beginner intermediate advanced"`
}

// UpdateCourseRequest represents the request body for updating a course
type UpdateCourseRequest struct {
	Title           *string  `json:"title" validate:"omitempty,min=1,max=255"`
	Description     *string  `json:"description" validate:"omitempty,max=10000"`
	Price           *float64 `json:"price" validate:"omitempty,gte=0,lte=99999999"`
	CategoryID      *uint    `json:"categoryId" validate:"omitempty,min=1"`
	ThumbnailURL    *string  `json:"thumbnailUrl" validate:"omitempty,max=500"`
	Status          *string  `json:"status" validate:"omitempty,oneof=draft published archived"`
	DifficultyLevel *string  `json:"difficultyLevel" validate:"omitempty,oneof=beginner intermediate advanced"`
}

// ToInput converts the request into a service update
func (r UpdateCourseRequest) ToInput() services.UpdateCourseInput {
	input := services.UpdateCourseInput{
		Title:        r.Title,
		Description:  r.Description,
		Price:        r.Price,
		CategoryID:   r.CategoryID,
		ThumbnailURL: r.ThumbnailURL,
	}
	if r.Status != nil {
		status := model.CourseStatus(*r.Status)
		input.Status = &status
	}
	if r.DifficultyLevel != nil {
		level := model.DifficultyLevel(*r.DifficultyLevel)
		input.DifficultyLevel = &level
	}
	return input
}

// ListCourses handles GET /api/courses
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	actor, ok := utils.ActorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	courses, err := h.courses.ListByTeacher(c.UserContext(), actor.ID)
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch courses")
	}

	return response.Success(c, courses)
}

// GetCourse handles GET /api/courses/:id
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	actor, ok := utils.ActorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}
	id, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	course, err := h.courses.GetForOwner(c.UserContext(), id, actor)
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch course")
	}

	return response.Success(c, course)
}

// CreateCourse handles POST /api/courses
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	actor, ok := utils.ActorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	// Parse request body
	var req CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	// Validate request
	if errs := h.validator.Validate(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	course, err := h.courses.Create(c.UserContext(), actor, services.CreateCourseInput{
		Title:           validation.SanitizeString(req.Title),
		Description:     validation.SanitizeString(req.Description),
		Price:           req.Price,
		CategoryID:      req.CategoryID,
		ThumbnailURL:    validation.SanitizeOptional(req.ThumbnailURL),
		Status:          model.CourseStatus(req.Status),
		DifficultyLevel: model.DifficultyLevel(req.DifficultyLevel),
	}, utils.MetaFromCtx(c))
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to create course")
	}

	return response.Created(c, course)
}

// UpdateCourse handles PUT and PATCH /api/courses/:id
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	actor, ok := utils.ActorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}
	id, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req UpdateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := h.validator.Validate(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	input := req.ToInput()
	input.ClearCategory = utils.IsExplicitNull(c, "categoryId")

	course, err := h.courses.Update(c.UserContext(), actor, id, input, utils.MetaFromCtx(c))
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to update course")
	}

	return response.SuccessWithMessage(c, "Course updated successfully", course)
}

// DeleteCourse handles DELETE /api/courses/:id
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	actor, ok := utils.ActorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}
	id, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	if err := h.courses.Delete(c.UserContext(), actor, id, utils.MetaFromCtx(c)); err != nil {
		return utils.HandleServiceError(c, err, "Failed to delete course")
	}

	return response.SuccessWithMessage(c, "Course deleted successfully", fiber.Map{"id": id})
}

// ListCourseEnrollments handles GET /api/courses/:id/enrollments
func (h *CourseHandler) ListCourseEnrollments(c *fiber.Ctx) error {
	actor, ok := utils.ActorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}
	id, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	enrollments, err := h.enrollments.CourseEnrollments(c.UserContext(), actor, id)
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch enrollments")
	}

	return response.Success(c, enrollments)
}

// ListTeacherEnrollments handles GET /api/enrollments
func (h *CourseHandler) ListTeacherEnrollments(c *fiber.Ctx) error {
	actor, ok := utils.ActorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	enrollments, err := h.enrollments.TeacherEnrollments(c.UserContext(), actor.ID)
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch enrollments")
	}

	return response.Success(c, enrollments)
}
