package admin

import (
	"time"

	"github.com/eduhub/marketplace-api/database"
	"github.com/eduhub/marketplace-api/services"
	"github.com/eduhub/marketplace-api/services/storage"
	authutil "github.com/eduhub/marketplace-api/utils/auth"
	"github.com/eduhub/marketplace-api/utils/cache"
	"github.com/eduhub/marketplace-api/utils/validation"
)

// Services groups everything the admin console reads and writes
type Services struct {
	Users     *services.UserService
	Courses   *services.CourseService
	Analytics *services.AnalyticsService
	Logs      *services.SystemLogService
	Settings  *services.SettingsService
}

// AdminHandler handles the /api/admin endpoints
type AdminHandler struct {
	users     *services.UserService
	courses   *services.CourseService
	analytics *services.AnalyticsService
	logs      *services.SystemLogService
	settings  *services.SettingsService

	sessions  *authutil.SessionManager
	store     database.Storage
	cache     *cache.RedisCache
	files     storage.FileStore
	startedAt time.Time
	now       func() time.Time
	validator *validation.Validator
}

// NewAdminHandler creates a new admin handler. redisCache may be nil when
// the server runs without Redis.
func NewAdminHandler(svc Services, sessions *authutil.SessionManager, store database.Storage, redisCache *cache.RedisCache, files storage.FileStore, startedAt time.Time) *AdminHandler {
	return &AdminHandler{
		users:     svc.Users,
		courses:   svc.Courses,
		analytics: svc.Analytics,
		logs:      svc.Logs,
		settings:  svc.Settings,
		sessions:  sessions,
		store:     store,
		cache:     redisCache,
		files:     files,
		startedAt: startedAt,
		now:       func() time.Time { return time.Now().UTC() },
		validator: validation.NewValidator(),
	}
}
