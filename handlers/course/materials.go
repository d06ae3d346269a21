package course

import (
	"strconv"

	"github.com/eduhub/marketplace-api/model"
	"github.com/eduhub/marketplace-api/services"
	"github.com/eduhub/marketplace-api/utils"
	"github.com/eduhub/marketplace-api/utils/response"
	"github.com/eduhub/marketplace-api/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// materialField is the multipart field carrying an uploaded material
const materialField = "file"

// MaterialHandler handles course material requests
type MaterialHandler struct {
	materials *services.MaterialService
	validator *validation.Validator
}

// NewMaterialHandler creates a new material handler
func NewMaterialHandler(materials *services.MaterialService) *MaterialHandler {
	return &MaterialHandler{
		materials: materials,
		validator: validation.NewValidator(),
	}
}

// UpdateMaterialRequest represents the request body for updating a material
type UpdateMaterialRequest struct {
	Title      *string `json:"title" validate:"omitempty,min=1,max=255"`
	Type       *string `json:"type" validate:"omitempty,oneof=video pdf quiz assignment"`
	OrderIndex *int    `json:"orderIndex" validate:"omitempty,min=0"`
}

// ListMaterials handles GET /api/courses/:id/materials
func (h *MaterialHandler) ListMaterials(c *fiber.Ctx) error {
	actor, ok := utils.ActorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}
	courseID, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	materials, err := h.materials.List(c.UserContext(), actor, courseID)
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch materials")
	}

	return response.Success(c, materials)
}

// UploadMaterial handles POST /api/courses/:id/materials
func (h *MaterialHandler) UploadMaterial(c *fiber.Ctx) error {
	actor, ok := utils.ActorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}
	courseID, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return response.BadRequest(c, "Multipart form data is required")
	}
	files := form.File[materialField]
	if len(files) == 0 {
		return response.BadRequest(c, "No file uploaded")
	}
	if len(files) > 1 {
		return response.BadRequest(c, "Only one file may be uploaded per request")
	}

	orderIndex := 0
	if raw := c.FormValue("orderIndex"); raw != "" {
		orderIndex, err = strconv.Atoi(raw)
		if err != nil || orderIndex < 0 {
			return response.BadRequest(c, "orderIndex must be a non-negative integer")
		}
	}

	material, err := h.materials.Upload(c.UserContext(), actor, services.UploadMaterialInput{
		CourseID:   courseID,
		Field:      materialField,
		Title:      validation.SanitizeString(c.FormValue("title")),
		Type:       model.MaterialType(c.FormValue("type")),
		OrderIndex: orderIndex,
		File:       files[0],
	})
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to upload material")
	}

	return response.Created(c, material)
}

// UpdateMaterial handles PUT /api/materials/:id
func (h *MaterialHandler) UpdateMaterial(c *fiber.Ctx) error {
	actor, ok := utils.ActorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}
	id, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid material ID")
	}

	var req UpdateMaterialRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := h.validator.Validate(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	input := services.UpdateMaterialInput{
		Title:      validation.SanitizeOptional(req.Title),
		OrderIndex: req.OrderIndex,
	}
	if req.Type != nil {
		t := model.MaterialType(*req.Type)
		input.Type = &t
	}

	material, err := h.materials.Update(c.UserContext(), actor, id, input)
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to update material")
	}

	return response.SuccessWithMessage(c, "Material updated successfully", material)
}

// DeleteMaterial handles DELETE /api/materials/:id
func (h *MaterialHandler) DeleteMaterial(c *fiber.Ctx) error {
	actor, ok := utils.ActorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}
	id, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid material ID")
	}

	if err := h.materials.Delete(c.UserContext(), actor, id); err != nil {
		return utils.HandleServiceError(c, err, "Failed to delete material")
	}

	return response.SuccessWithMessage(c, "Material deleted successfully", fiber.Map{"id": id})
}

// UploadThumbnail handles POST /api/upload/thumbnail
func (h *MaterialHandler) UploadThumbnail(c *fiber.Ctx) error {
	header, err := c.FormFile("thumbnail")
	if err != nil {
		return response.BadRequest(c, "No file uploaded")
	}

	url, err := h.materials.UploadThumbnail(c.UserContext(), header)
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to upload thumbnail")
	}

	return response.Created(c, fiber.Map{"thumbnailUrl": url})
}
