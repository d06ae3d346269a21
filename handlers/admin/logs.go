package admin

import (
	"strconv"

	"github.com/eduhub/marketplace-api/services"
	"github.com/eduhub/marketplace-api/utils"
	"github.com/eduhub/marketplace-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// ListLogs handles GET /api/admin/logs
func (h *AdminHandler) ListLogs(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	logs, total, err := h.logs.List(c.UserContext(), services.ListLogsOptions{
		Search:   c.Query("search"),
		Severity: c.Query("severity"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch system logs")
	}

	return response.Success(c, fiber.Map{
		"total": total,
		"logs":  logs,
	})
}

// ClearLogs handles DELETE /api/admin/logs
func (h *AdminHandler) ClearLogs(c *fiber.Ctx) error {
	removed, err := h.logs.Clear(c.UserContext())
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to clear system logs")
	}
	return response.SuccessWithMessage(c, "System logs cleared", fiber.Map{"deleted": removed})
}
