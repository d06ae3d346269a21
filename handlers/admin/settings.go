package admin

import (
	"github.com/eduhub/marketplace-api/services"
	"github.com/eduhub/marketplace-api/utils"
	"github.com/eduhub/marketplace-api/utils/response"
	"github.com/eduhub/marketplace-api/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// UpdateSettingRequest represents the request body for updating a setting
type UpdateSettingRequest struct {
	Value       *string `json:"value" validate:"required"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// UpdateFeatureFlagRequest represents the request body for updating a feature flag
type UpdateFeatureFlagRequest struct {
	Name              *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description       *string `json:"description" validate:"omitempty,max=500"`
	IsEnabled         *bool   `json:"isEnabled"`
	RolloutPercentage *int    `json:"rolloutPercentage" validate:"omitempty,min=0,max=100"`
}

// ListSettings handles GET /api/admin/settings
func (h *AdminHandler) ListSettings(c *fiber.Ctx) error {
	settings, err := h.settings.List(c.UserContext())
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch settings")
	}
	return response.Success(c, settings)
}

// GetSetting handles GET /api/admin/settings/:key
func (h *AdminHandler) GetSetting(c *fiber.Ctx) error {
	setting, err := h.settings.Get(c.UserContext(), c.Params("key"))
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch setting")
	}
	return response.Success(c, setting)
}

// UpdateSetting handles PUT /api/admin/settings/:key
func (h *AdminHandler) UpdateSetting(c *fiber.Ctx) error {
	var req UpdateSettingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := h.validator.Validate(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	setting, err := h.settings.Update(c.UserContext(), c.Params("key"), *req.Value, validation.SanitizeOptional(req.Description))
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to update setting")
	}

	return response.SuccessWithMessage(c, "Setting updated successfully", setting)
}

// ListFeatureFlags handles GET /api/admin/feature-flags
func (h *AdminHandler) ListFeatureFlags(c *fiber.Ctx) error {
	flags, err := h.settings.ListFeatureFlags(c.UserContext())
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch feature flags")
	}
	return response.Success(c, flags)
}

// UpdateFeatureFlag handles PATCH /api/admin/feature-flags/:id
func (h *AdminHandler) UpdateFeatureFlag(c *fiber.Ctx) error {
	id, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid feature flag ID")
	}

	var req UpdateFeatureFlagRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := h.validator.Validate(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	flag, err := h.settings.UpdateFeatureFlag(c.UserContext(), id, services.FeatureFlagUpdate{
		Name:              validation.SanitizeOptional(req.Name),
		Description:       validation.SanitizeOptional(req.Description),
		IsEnabled:         req.IsEnabled,
		RolloutPercentage: req.RolloutPercentage,
	})
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to update feature flag")
	}

	return response.SuccessWithMessage(c, "Feature flag updated successfully", flag)
}

// PublicSettings handles GET /api/settings/public
func (h *AdminHandler) PublicSettings(c *fiber.Ctx) error {
	settings, err := h.settings.Public(c.UserContext())
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch settings")
	}
	return response.Success(c, settings)
}
