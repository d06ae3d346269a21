package router

import (
	"time"

	"github.com/eduhub/marketplace-api/database"
	"github.com/eduhub/marketplace-api/handlers"
	admin_handlers "github.com/eduhub/marketplace-api/handlers/admin"
	analytics_handlers "github.com/eduhub/marketplace-api/handlers/analytics"
	auth_handlers "github.com/eduhub/marketplace-api/handlers/auth"
	course_handlers "github.com/eduhub/marketplace-api/handlers/course"
	notification_handlers "github.com/eduhub/marketplace-api/handlers/notification"
	student_handlers "github.com/eduhub/marketplace-api/handlers/student"
	"github.com/eduhub/marketplace-api/services"
	"github.com/eduhub/marketplace-api/services/storage"
	"github.com/eduhub/marketplace-api/utils"
	"github.com/eduhub/marketplace-api/utils/auth"
	"github.com/eduhub/marketplace-api/utils/cache"
	"github.com/eduhub/marketplace-api/utils/logger"
	"github.com/eduhub/marketplace-api/utils/middleware"
	"github.com/gofiber/fiber/v2"
)

// Deps carries everything the routes need. Cache is nil when Redis is not
// configured.
type Deps struct {
	Store    database.Storage
	Sessions *auth.SessionManager
	Files    storage.FileStore
	Cache    *cache.RedisCache
	Log      *logger.Logger

	// UploadDir is served at /uploads when files are stored locally
	UploadDir         string
	MaxUploadBytes    int64
	PaymentDelay      time.Duration
	AllowedOrigins    string
	SecureCookie      bool
	RateLimitRequests int
	DisableAccessLog  bool
	StartedAt         time.Time
}

// Services builds the service graph shared by the routes and background jobs
type Services struct {
	Users         *services.UserService
	Categories    *services.CategoryService
	Courses       *services.CourseService
	Enrollments   *services.EnrollmentService
	Payments      *services.PaymentService
	Materials     *services.MaterialService
	Analytics     *services.AnalyticsService
	Notifications *services.NotificationService
	Logs          *services.SystemLogService
	Settings      *services.SettingsService
}

// NewServices wires the domain services over one database and file store
func NewServices(deps Deps) *Services {
	db := deps.Store.GetDB()

	logs := services.NewSystemLogService(db, deps.Log)
	notifications := services.NewNotificationService(db, deps.Log)
	courses := services.NewCourseService(db, deps.Files, logs, notifications, deps.Log)
	enrollments := services.NewEnrollmentService(db, courses, notifications)

	return &Services{
		Users:         services.NewUserService(db, logs, notifications),
		Categories:    services.NewCategoryService(db),
		Courses:       courses,
		Enrollments:   enrollments,
		Payments:      services.NewPaymentService(courses, enrollments, deps.PaymentDelay),
		Materials:     services.NewMaterialService(db, courses, deps.Files, deps.MaxUploadBytes, deps.Log),
		Analytics:     services.NewAnalyticsService(db, deps.Sessions.Store(), enrollments),
		Notifications: notifications,
		Logs:          logs,
		Settings:      services.NewSettingsService(db),
	}
}

func SetupRoutes(app *fiber.App, deps Deps) *Services {
	svc := NewServices(deps)

	// Initialize brute force protection
	var bruteForceProtection *middleware.BruteForceProtection
	if deps.Cache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(deps.Cache)
	}

	authMiddleware := middleware.NewAuthMiddleware(deps.Sessions, deps.Store.GetDB())

	// Handlers
	authHandler := auth_handlers.NewAuthHandler(svc.Users, deps.Sessions, bruteForceProtection, deps.SecureCookie)
	categoryHandler := course_handlers.NewCategoryHandler(svc.Categories)
	courseHandler := course_handlers.NewCourseHandler(svc.Courses, svc.Enrollments)
	materialHandler := course_handlers.NewMaterialHandler(svc.Materials)
	studentHandler := student_handlers.NewStudentHandler(svc.Courses, svc.Enrollments, svc.Payments)
	analyticsHandler := analytics_handlers.NewAnalyticsHandler(svc.Analytics, svc.Enrollments)
	notificationHandler := notification_handlers.NewNotificationHandler(svc.Notifications)
	adminHandler := admin_handlers.NewAdminHandler(admin_handlers.Services{
		Users:     svc.Users,
		Courses:   svc.Courses,
		Analytics: svc.Analytics,
		Logs:      svc.Logs,
		Settings:  svc.Settings,
	}, deps.Sessions, deps.Store, deps.Cache, deps.Files, deps.StartedAt)

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    deps.AllowedOrigins,
		RateLimitRequests: deps.RateLimitRequests,
		RateLimitWindow:   1 * time.Minute,
		DisableAccessLog:  deps.DisableAccessLog,
	})

	// Health check endpoint (public)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, deps.Store))

	// Local uploads are public
	if deps.UploadDir != "" {
		app.Static("/uploads", deps.UploadDir, fiber.Static{ByteRange: true})
	}

	api := app.Group("/api")

	// Auth routes
	if bruteForceProtection != nil {
		api.Post("/login", bruteForceProtection.CheckLockout(), authHandler.Login)
	} else {
		api.Post("/login", authHandler.Login)
	}
	api.Post("/logout", authHandler.Logout)
	api.Post("/register", authHandler.Register)
	api.Get("/auth/user", authMiddleware.Required(), authHandler.CurrentUser)
	api.Put("/auth/profile", authMiddleware.Required(), authHandler.UpdateProfile)

	// Categories
	api.Get("/categories", categoryHandler.ListCategories)
	api.Post("/categories", authMiddleware.RequireTeacher(), categoryHandler.CreateCategory)

	// Public settings
	api.Get("/settings/public", adminHandler.PublicSettings)

	// Teacher routes
	teacher := authMiddleware.RequireTeacher()
	api.Get("/courses", teacher, courseHandler.ListCourses)
	api.Post("/courses", teacher, courseHandler.CreateCourse)
	api.Get("/courses/:id", teacher, courseHandler.GetCourse)
	api.Put("/courses/:id", teacher, courseHandler.UpdateCourse)
	api.Patch("/courses/:id", teacher, courseHandler.UpdateCourse)
	api.Delete("/courses/:id", teacher, courseHandler.DeleteCourse)
	api.Get("/courses/:id/enrollments", teacher, courseHandler.ListCourseEnrollments)
	api.Get("/courses/:id/materials", teacher, materialHandler.ListMaterials)
	api.Post("/courses/:id/materials", teacher, materialHandler.UploadMaterial)
	api.Put("/materials/:id", teacher, materialHandler.UpdateMaterial)
	api.Delete("/materials/:id", teacher, materialHandler.DeleteMaterial)
	api.Post("/upload/thumbnail", teacher, materialHandler.UploadThumbnail)
	api.Get("/enrollments", teacher, courseHandler.ListTeacherEnrollments)
	api.Get("/analytics/stats", teacher, analyticsHandler.GetTeacherStats)
	api.Get("/activity", teacher, analyticsHandler.GetTeacherActivity)

	// Student routes
	optionalAuth := authMiddleware.Optional()
	studentOnly := authMiddleware.RequireStudent()
	studentGroup := api.Group("/student")
	studentGroup.Get("/courses", optionalAuth, studentHandler.ListCourses)
	studentGroup.Get("/recommended-courses", optionalAuth, studentHandler.RecommendedCourses)
	studentGroup.Get("/course/:id", optionalAuth, studentHandler.GetCourse)
	studentGroup.Get("/enrolled-courses", studentOnly, studentHandler.EnrolledCourses)
	studentGroup.Post("/enroll/:courseId", studentOnly, studentHandler.Enroll)
	studentGroup.Post("/simulate-payment", studentOnly, studentHandler.SimulatePayment)
	studentGroup.Put("/progress/:enrollmentId", studentOnly, studentHandler.UpdateProgress)
	studentGroup.Post("/review/:enrollmentId", studentOnly, studentHandler.Review)
	studentGroup.Get("/activity", studentOnly, studentHandler.ListActivity)
	studentGroup.Post("/activity", studentOnly, studentHandler.RecordActivity)
	api.Get("/course/:id/reviews", studentHandler.CourseReviews)

	// Admin routes
	adminGroup := api.Group("/admin", authMiddleware.RequireAdmin(), middleware.AuditLog(svc.Logs, deps.Log))

	adminGroup.Get("/stats", adminHandler.GetStats)
	adminGroup.Get("/analytics", adminHandler.GetAnalytics)
	adminGroup.Get("/realtime-stats", adminHandler.GetRealtimeStats)
	adminGroup.Get("/system-status", adminHandler.GetSystemStatus)

	adminGroup.Get("/users", adminHandler.ListUsers)
	adminGroup.Get("/users/stats", adminHandler.GetUserStats)
	adminGroup.Get("/users/recent", adminHandler.GetRecentUsers)
	adminGroup.Patch("/users/:id", adminHandler.UpdateUser)

	adminGroup.Get("/courses", adminHandler.ListCourses)
	adminGroup.Get("/courses/stats", adminHandler.GetCourseStats)
	adminGroup.Patch("/courses/:id", adminHandler.UpdateCourse)

	adminGroup.Get("/notifications", notificationHandler.GetNotifications)
	adminGroup.Get("/notifications/unread-count", notificationHandler.GetUnreadCount)
	adminGroup.Post("/notifications/read-all", notificationHandler.MarkAllAsRead)
	adminGroup.Patch("/notifications/:id/read", notificationHandler.MarkAsRead)
	adminGroup.Delete("/notifications/:id", notificationHandler.DeleteNotification)

	adminGroup.Get("/logs", adminHandler.ListLogs)
	adminGroup.Delete("/logs", adminHandler.ClearLogs)

	adminGroup.Get("/settings", adminHandler.ListSettings)
	adminGroup.Get("/settings/:key", adminHandler.GetSetting)
	adminGroup.Put("/settings/:key", adminHandler.UpdateSetting)

	adminGroup.Get("/feature-flags", adminHandler.ListFeatureFlags)
	adminGroup.Patch("/feature-flags/:id", adminHandler.UpdateFeatureFlag)

	return svc
}
