package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eduhub/marketplace-api/database"
	"github.com/eduhub/marketplace-api/model"
	"github.com/eduhub/marketplace-api/services"
	"github.com/eduhub/marketplace-api/utils/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockoutFor(t *testing.T) {
	tests := []struct {
		attempts int64
		want     time.Duration
	}{
		{1, 0},
		{4, 0},
		{5, 2 * time.Minute},
		{9, 2 * time.Minute},
		{10, time.Hour},
		{24, time.Hour},
		{25, 24 * time.Hour},
		{100, 24 * time.Hour},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LockoutFor(tt.attempts), "attempts=%d", tt.attempts)
	}
}

func TestHasRole(t *testing.T) {
	assert.True(t, HasRole(model.RoleTeacher, model.RoleTeacher))
	assert.False(t, HasRole(model.RoleStudent, model.RoleTeacher))
	assert.False(t, HasRole(model.RoleTeacher, model.RoleAdmin))
	// Admin passes every gate
	assert.True(t, HasRole(model.RoleAdmin, model.RoleStudent))
}

func TestParseOrigins(t *testing.T) {
	assert.Equal(t, []string{"http://a.test", "https://b.test"}, parseOrigins(" http://a.test/, *,,https://b.test"))
	assert.Equal(t, []string{"http://localhost:5173"}, parseOrigins("*"))
}

func TestAuditHelpers(t *testing.T) {
	assert.Equal(t, "users", auditEntity("/api/admin/users/12"))
	assert.Equal(t, "feature_flags", auditEntity("/api/admin/feature-flags/3"))
	assert.Equal(t, "logs", auditEntity("/api/admin/logs"))

	assert.Equal(t, "admin_users_update", auditAction(fiber.MethodPatch, "users"))
	assert.Equal(t, "admin_logs_delete", auditAction(fiber.MethodDelete, "logs"))
	assert.Equal(t, "admin_notifications_create", auditAction(fiber.MethodPost, "notifications"))

	assert.Nil(t, auditBody(nil))
	assert.Nil(t, auditBody([]byte("not json")))

	body := auditBody([]byte(`{"role":"teacher","newPassword":"hunter22","apiToken":"x"}`))
	decoded, ok := body.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "teacher", decoded["role"])
	assert.Equal(t, "[REDACTED]", decoded["newPassword"])
	assert.Equal(t, "[REDACTED]", decoded["apiToken"])
}

func TestAuditLogRecordsSuccessfulMutations(t *testing.T) {
	db, err := database.OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, database.NewGORMStore(db, "sqlite").Init())
	logs := services.NewSystemLogService(db, logger.NewNop())

	app := fiber.New()
	admin := app.Group("/api/admin", AuditLog(logs, logger.NewNop()))
	admin.Get("/users", func(c *fiber.Ctx) error { return c.SendString("ok") })
	admin.Patch("/users/:id", func(c *fiber.Ctx) error { return c.SendString("ok") })
	admin.Delete("/logs", func(c *fiber.Ctx) error { return c.Status(fiber.StatusBadRequest).SendString("no") })

	for _, req := range []struct{ method, path, body string }{
		{fiber.MethodGet, "/api/admin/users", ""},
		{fiber.MethodPatch, "/api/admin/users/7", `{"isActive":false,"password":"x"}`},
		{fiber.MethodDelete, "/api/admin/logs", ""},
	} {
		r := httptest.NewRequest(req.method, req.path, strings.NewReader(req.body))
		r.Header.Set("Content-Type", "application/json")
		_, err := app.Test(r)
		require.NoError(t, err)
	}

	var entries []model.SystemLog
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, "admin_users_update", entries[0].Action)
	assert.Equal(t, "users", entries[0].EntityType)
	require.NotNil(t, entries[0].EntityID)
	assert.Equal(t, uint(7), *entries[0].EntityID)
	assert.NotContains(t, string(entries[0].Metadata), `"x"`)
}
