package admin

import (
	"github.com/eduhub/marketplace-api/model"
	"github.com/eduhub/marketplace-api/services"
	"github.com/eduhub/marketplace-api/utils"
	"github.com/eduhub/marketplace-api/utils/response"
	"github.com/eduhub/marketplace-api/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// UpdateCourseRequest represents the request body for an admin course update
type UpdateCourseRequest struct {
	Title           *string  `json:"title" validate:"omitempty,min=1,max=255"`
	Price           *float64 `json:"price" validate:"omitempty,gte=0,lte=99999999"`
	CategoryID      *uint    `json:"categoryId" validate:"omitempty,min=1"`
	Status          *string  `json:"status" validate:"omitempty,oneof=draft published archived"`
	DifficultyLevel *string  `json:"difficultyLevel" validate:"omitempty,oneof=beginner intermediate advanced"`
}

// ListCourses handles GET /api/admin/courses
func (h *AdminHandler) ListCourses(c *fiber.Ctx) error {
	page, limit := utils.PageParams(c, 20, 100)
	categoryID, err := utils.OptionalUintQuery(c, "category")
	if err != nil {
		return response.BadRequest(c, "Invalid category")
	}

	courses, total, err := h.courses.AdminList(c.UserContext(), services.AdminCourseListOptions{
		Search:     c.Query("search"),
		Status:     c.Query("status"),
		CategoryID: categoryID,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch courses")
	}

	return response.Paginated(c, courses, response.CalculatePagination(page, limit, total))
}

// GetCourseStats handles GET /api/admin/courses/stats
func (h *AdminHandler) GetCourseStats(c *fiber.Ctx) error {
	stats, err := h.courses.Stats(c.UserContext(), h.now())
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch course stats")
	}
	return response.Success(c, stats)
}

// UpdateCourse handles PATCH /api/admin/courses/:id
func (h *AdminHandler) UpdateCourse(c *fiber.Ctx) error {
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

	input := services.UpdateCourseInput{
		Title:         validation.SanitizeOptional(req.Title),
		Price:         req.Price,
		CategoryID:    req.CategoryID,
		ClearCategory: utils.IsExplicitNull(c, "categoryId"),
	}
	if req.Status != nil {
		status := model.CourseStatus(*req.Status)
		input.Status = &status
	}
	if req.DifficultyLevel != nil {
		level := model.DifficultyLevel(*req.DifficultyLevel)
		input.DifficultyLevel = &level
	}

	course, err := h.courses.Update(c.UserContext(), actor, id, input, utils.MetaFromCtx(c))
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to update course")
	}

	return response.SuccessWithMessage(c, "Course updated successfully", course)
}
