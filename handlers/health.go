package handlers

import (
	"github.com/eduhub/marketplace-api/database"
	"github.com/gofiber/fiber/v2"
)

// HandleCheckHealth answers GET /ping with a database round trip
func HandleCheckHealth(c *fiber.Ctx, store database.Storage) error {
	if err := store.HealthCheck(); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "unavailable",
			"database": "unreachable",
		})
	}
	return c.JSON(fiber.Map{"status": "ok", "database": "ok"})
}
