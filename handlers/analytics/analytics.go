package analytics

import (
	"strconv"

	"github.com/eduhub/marketplace-api/services"
	"github.com/eduhub/marketplace-api/utils"
	"github.com/eduhub/marketplace-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultActivityLimit = 10
	maxActivityLimit     = 100
)

// AnalyticsHandler handles teacher dashboard requests
type AnalyticsHandler struct {
	analyticsService  *services.AnalyticsService
	enrollmentService *services.EnrollmentService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsService *services.AnalyticsService, enrollmentService *services.EnrollmentService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService:  analyticsService,
		enrollmentService: enrollmentService,
	}
}

// GetTeacherStats handles GET /api/analytics/stats
func (h *AnalyticsHandler) GetTeacherStats(c *fiber.Ctx) error {
	actor, ok := utils.ActorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	stats, err := h.analyticsService.GetTeacherStats(c.UserContext(), actor.ID)
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch teacher stats")
	}

	return response.Success(c, stats)
}

// GetTeacherActivity handles GET /api/activity
func (h *AnalyticsHandler) GetTeacherActivity(c *fiber.Ctx) error {
	actor, ok := utils.ActorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultActivityLimit)))
	if limit < 1 || limit > maxActivityLimit {
		limit = defaultActivityLimit
	}

	activity, err := h.enrollmentService.TeacherActivity(c.UserContext(), actor.ID, limit)
	if err != nil {
		return utils.HandleServiceError(c, err, "Failed to fetch activity")
	}

	return response.Success(c, activity)
}
