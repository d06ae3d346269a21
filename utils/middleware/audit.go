package middleware

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/eduhub/marketplace-api/model"
	"github.com/eduhub/marketplace-api/services"
	"github.com/eduhub/marketplace-api/utils/logger"
	"github.com/gofiber/fiber/v2"
)

var sensitiveBodyKeys = []string{"password", "token", "secret"}

// AuditLog records every successful mutating request under the group it is
// mounted on as a system log entry
func AuditLog(logs *services.SystemLogService, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := c.Method()
		if method == fiber.MethodGet || method == fiber.MethodHead || method == fiber.MethodOptions {
			return c.Next()
		}

		// Copy the body before the handler runs; fasthttp reuses the buffer
		body := append([]byte(nil), c.Body()...)

		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil || status >= fiber.StatusBadRequest {
			return err
		}

		entityType := auditEntity(c.Path())
		entry := services.LogEntry{
			Action:      auditAction(method, entityType),
			Description: fmt.Sprintf("%s %s", method, c.Path()),
			EntityType:  entityType,
			IPAddress:   c.IP(),
			UserAgent:   c.Get(fiber.HeaderUserAgent),
			Severity:    model.SeverityLow,
			Metadata: map[string]interface{}{
				"status": status,
				"body":   auditBody(body),
			},
		}
		if method == fiber.MethodDelete {
			entry.Severity = model.SeverityMedium
		}
		if userID, ok := GetUserID(c); ok {
			entry.UserID = &userID
		}
		if id, convErr := strconv.ParseUint(c.Params("id"), 10, 64); convErr == nil {
			entityID := uint(id)
			entry.EntityID = &entityID
		}

		if recErr := logs.Record(c.UserContext(), entry); recErr != nil {
			log.Warn("failed to write audit log", "path", c.Path(), "error", recErr)
		}
		return nil
	}
}

// auditEntity takes the resource segment after /api/admin/
func auditEntity(path string) string {
	rest := strings.TrimPrefix(path, "/api/admin/")
	segment, _, _ := strings.Cut(rest, "/")
	return strings.ReplaceAll(segment, "-", "_")
}

func auditAction(method, entity string) string {
	verb := map[string]string{
		fiber.MethodPost:   "create",
		fiber.MethodPut:    "update",
		fiber.MethodPatch:  "update",
		fiber.MethodDelete: "delete",
	}[method]
	if verb == "" {
		verb = strings.ToLower(method)
	}
	return fmt.Sprintf("admin_%s_%s", entity, verb)
}

// auditBody decodes a JSON body and masks credential fields
func auditBody(body []byte) interface{} {
	if len(body) == 0 {
		return nil
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil
	}
	for key := range decoded {
		lower := strings.ToLower(key)
		for _, s := range sensitiveBodyKeys {
			if strings.Contains(lower, s) {
				decoded[key] = "[REDACTED]"
			}
		}
	}
	return decoded
}
