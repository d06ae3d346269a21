package admin

import (
	"context"
	"time"

	"github.com/eduhub/marketplace-api/utils"
	"github.com/eduhub/marketplace-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// GetStats handles GET /api/admin/stats
func (h *AdminHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.analytics.GetDashboardStats(c.UserContext(), h.now())
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch dashboard stats")
	}
	return response.Success(c, stats)
}

// GetAnalytics handles GET /api/admin/analytics
func (h *AdminHandler) GetAnalytics(c *fiber.Ctx) error {
	analytics, err := h.analytics.GetPlatformAnalytics(c.UserContext(), c.Query("timeRange", "30d"), h.now())
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch analytics")
	}
	return response.Success(c, analytics)
}

// GetRealtimeStats handles GET /api/admin/realtime-stats
func (h *AdminHandler) GetRealtimeStats(c *fiber.Ctx) error {
	stats, err := h.analytics.GetRealtimeStats(c.UserContext(), h.now())
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch realtime stats")
	}
	return response.Success(c, stats)
}

type componentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func statusOf(err error) componentStatus {
	if err != nil {
		return componentStatus{Status: "unhealthy", Error: err.Error()}
	}
	return componentStatus{Status: "healthy"}
}

// GetSystemStatus handles GET /api/admin/system-status
func (h *AdminHandler) GetSystemStatus(c *fiber.Ctx) error {
	database := statusOf(h.store.HealthCheck())

	redis := componentStatus{Status: "disabled"}
	if h.cache != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		redis = statusOf(h.cache.Ping(ctx))
		cancel()
	}

	overall := "healthy"
	if database.Status != "healthy" || redis.Status == "unhealthy" {
		overall = "degraded"
	}

	return response.Success(c, fiber.Map{
		"status":        overall,
		"database":      database,
		"redis":         redis,
		"storage":       h.files.Driver(),
		"sessionStore":  h.sessions.Store().Name(),
		"uptimeSeconds": int64(h.now().Sub(h.startedAt).Seconds()),
		"startedAt":     h.startedAt,
		"timestamp":     h.now(),
	})
}
