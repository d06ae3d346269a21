package admin

import (
	"strconv"

	"github.com/eduhub/marketplace-api/model"
	"github.com/eduhub/marketplace-api/services"
	"github.com/eduhub/marketplace-api/utils"
	"github.com/eduhub/marketplace-api/utils/response"
	"github.com/eduhub/marketplace-api/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// UpdateUserRequest represents the request body for an admin user update
type UpdateUserRequest struct {
	Role      *string `json:"role"`
	IsActive  *bool   `json:"isActive"`
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
}

// ListUsers handles GET /api/admin/users
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	page, limit := utils.PageParams(c, 20, 100)

	users, total, err := h.users.ListUsers(c.UserContext(), services.UserListOptions{
		Search: c.Query("search"),
		Role:   c.Query("role"),
		Status: c.Query("status"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch users")
	}

	return response.Paginated(c, users, response.CalculatePagination(page, limit, total))
}

// GetUserStats handles GET /api/admin/users/stats
func (h *AdminHandler) GetUserStats(c *fiber.Ctx) error {
	stats, err := h.users.Stats(c.UserContext(), h.now())
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch user stats")
	}
	return response.Success(c, stats)
}

// GetRecentUsers handles GET /api/admin/users/recent
func (h *AdminHandler) GetRecentUsers(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "5"))
	if limit < 1 || limit > 50 {
		limit = 5
	}

	users, err := h.users.Recent(c.UserContext(), limit)
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch recent users")
	}
	return response.Success(c, users)
}

// UpdateUser handles PATCH /api/admin/users/:id
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	actor, ok := utils.ActorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}
	id, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := h.validator.Validate(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	update := services.AdminUserUpdate{
		IsActive:  req.IsActive,
		FirstName: validation.SanitizeOptional(req.FirstName),
		LastName:  validation.SanitizeOptional(req.LastName),
	}
	if req.Role != nil {
		role := model.Role(*req.Role)
		update.Role = &role
	}

	user, deactivated, err := h.users.AdminUpdate(c.UserContext(), actor, id, update, utils.MetaFromCtx(c))
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to update user")
	}

	if deactivated {
		// Drop live sessions so the account is locked out immediately
		if err := h.sessions.DestroyUserSessions(c.UserContext(), user.ID); err != nil {
			return utils.HandleServiceError(c, err, "Failed to revoke user sessions")
		}
	}

	return response.SuccessWithMessage(c, "User updated successfully", user)
}
