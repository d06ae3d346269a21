package course

import (
	"github.com/eduhub/marketplace-api/services"
	"github.com/eduhub/marketplace-api/utils"
	"github.com/eduhub/marketplace-api/utils/response"
	"github.com/eduhub/marketplace-api/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// CategoryHandler handles category requests
type CategoryHandler struct {
	categories *services.CategoryService
	validator  *validation.Validator
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categories *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		categories: categories,
		validator:  validation.NewValidator(),
	}
}

// CreateCategoryRequest represents the request body for creating a category
type CreateCategoryRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// ListCategories handles GET /api/categories
func (h *CategoryHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.categories.List(c.UserContext())
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch categories")
	}
	return response.Success(c, categories)
}

// CreateCategory handles POST /api/categories
func (h *CategoryHandler) CreateCategory(c *fiber.Ctx) error {
	var req CreateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := h.validator.Validate(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	category, err := h.categories.Create(c.UserContext(), validation.SanitizeString(req.Name), validation.SanitizeOptional(req.Description))
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to create category")
	}

	return response.Created(c, category)
}
