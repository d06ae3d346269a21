package auth

import (
	"fmt"

	"github.com/eduhub/marketplace-api/services"
	"github.com/eduhub/marketplace-api/utils/middleware"
	"github.com/eduhub/marketplace-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// UpdateProfileRequest represents a profile update request
type UpdateProfileRequest struct {
	FirstName       *string `json:"firstName" validate:"omitempty,max=100"`
	LastName        *string `json:"lastName" validate:"omitempty,max=100"`
	Bio             *string `json:"bio" validate:"omitempty,max=2000"`
	Website         *string `json:"website" validate:"omitempty,max=255"`
	ProfileImageURL *string `json:"profileImageUrl" validate:"omitempty,max=500"`
}

// CurrentUser handles GET /api/auth/user
func (h *AuthHandler) CurrentUser(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "Authentication required")
	}
	return response.Success(c, user.ToSummary())
}

// UpdateProfile handles PUT /api/auth/profile
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := h.validator.Validate(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	user, err := h.users.UpdateProfile(c.UserContext(), userID, services.ProfileUpdate{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Bio:             req.Bio,
		Website:         req.Website,
		ProfileImageURL: req.ProfileImageURL,
	})
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	return response.SuccessWithMessage(c, "Profile updated successfully", user)
}
