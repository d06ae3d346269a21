package middleware

import (
	"strings"
	"time"

	"github.com/eduhub/marketplace-api/utils/response"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// SecurityConfig configures the middleware shared by every route
type SecurityConfig struct {
	// AllowedOrigins is a comma separated list. Credentials are allowed, so "*" is not.
	AllowedOrigins    string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	DisableAccessLog  bool
}

// SetupSecurity installs request ids, access logs, panic recovery, secure
// headers, CORS and the per-IP limiter, in that order.
func SetupSecurity(app *fiber.App, config SecurityConfig) {
	app.Use(requestid.New())

	if !config.DisableAccessLog {
		app.Use(logger.New(logger.Config{
			Format:     "${time} | ${locals:requestid} | ${status} | ${latency} | ${method} ${path} | ${ip}\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
		}))
	}

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))

	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		HSTSMaxAge:         31536000,
		ReferrerPolicy:     "no-referrer",
		// course thumbnails and materials are embedded by the SPA from its own origin
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(parseOrigins(config.AllowedOrigins), ","),
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: true,
		MaxAge:           int((24 * time.Hour).Seconds()),
	}))

	if config.RateLimitRequests > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        config.RateLimitRequests,
			Expiration: config.RateLimitWindow,
			Next: func(c *fiber.Ctx) bool {
				// static uploads and health checks are not throttled
				return c.Path() == "/ping" || strings.HasPrefix(c.Path(), "/uploads/")
			},
			KeyGenerator: func(c *fiber.Ctx) string { return c.IP() },
			LimitReached: func(c *fiber.Ctx) error {
				return response.TooManyRequests(c, "Too many requests. Please try again later.")
			},
		}))
	}
}

// parseOrigins splits the configured list, dropping blanks and wildcards
func parseOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimSpace(o)
		if o == "" || o == "*" {
			continue
		}
		origins = append(origins, strings.TrimSuffix(o, "/"))
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	return origins
}
