package notification

import (
	"strconv"

	"github.com/eduhub/marketplace-api/services"
	"github.com/eduhub/marketplace-api/utils"
	"github.com/eduhub/marketplace-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// NotificationHandler handles admin notification endpoints
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// GetNotifications handles GET /api/admin/notifications
func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	// Parse query parameters
	unreadOnly := c.Query("unreadOnly") == "true"
	category := c.Query("category")
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	if limit < 1 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	notifications, total, err := h.notificationService.GetNotifications(c.UserContext(), services.ListNotificationsOptions{
		UnreadOnly: unreadOnly,
		Category:   category,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch notifications")
	}

	unreadCount, err := h.notificationService.GetUnreadCount(c.UserContext())
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to count notifications")
	}

	return response.Success(c, fiber.Map{
		"notifications": notifications,
		"total":         total,
		"unreadCount":   unreadCount,
	})
}

// GetUnreadCount handles GET /api/admin/notifications/unread-count
func (h *NotificationHandler) GetUnreadCount(c *fiber.Ctx) error {
	count, err := h.notificationService.GetUnreadCount(c.UserContext())
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to count notifications")
	}
	return response.Success(c, fiber.Map{"count": count})
}

// MarkAsRead handles PATCH /api/admin/notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	id, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid notification ID")
	}

	if err := h.notificationService.MarkAsRead(c.UserContext(), id); err != nil {
		return utils.HandleServiceError(c, err, "Failed to mark notification as read")
	}

	return response.SuccessWithMessage(c, "Notification marked as read", fiber.Map{"id": id})
}

// MarkAllAsRead handles POST /api/admin/notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	count, err := h.notificationService.MarkAllAsRead(c.UserContext())
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to mark notifications as read")
	}
	return response.SuccessWithMessage(c, "All notifications marked as read", fiber.Map{"updated": count})
}

// DeleteNotification handles DELETE /api/admin/notifications/:id
func (h *NotificationHandler) DeleteNotification(c *fiber.Ctx) error {
	id, err := utils.ParseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid notification ID")
	}

	if err := h.notificationService.DeleteNotification(c.UserContext(), id); err != nil {
		return utils.HandleServiceError(c, err, "Failed to delete notification")
	}

	return response.SuccessWithMessage(c, "Notification deleted", fiber.Map{"id": id})
}
