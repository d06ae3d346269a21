package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eduhub/marketplace-api/api"
	"github.com/eduhub/marketplace-api/config"
	"github.com/eduhub/marketplace-api/database"
	"github.com/eduhub/marketplace-api/router"
	"github.com/eduhub/marketplace-api/services/cron"
	"github.com/eduhub/marketplace-api/services/storage"
	"github.com/eduhub/marketplace-api/utils/auth"
	"github.com/eduhub/marketplace-api/utils/cache"
	"github.com/eduhub/marketplace-api/utils/logger"
)

// notificationTTL is how long read admin notifications are kept
const notificationTTL = 30 * 24 * time.Hour

func newFileStore(env *config.EnviornmentVariable) (storage.FileStore, string, error) {
	switch env.STORAGE_DRIVER {
	case "spaces":
		store, err := storage.NewSpacesStore(storage.SpacesConfig{
			AccessKey: env.DO_SPACES_ACCESS_KEY,
			SecretKey: env.DO_SPACES_SECRET_KEY,
			Bucket:    env.DO_SPACES_BUCKET,
			Region:    env.DO_SPACES_REGION,
			Endpoint:  env.DO_SPACES_ENDPOINT,
			CDNURL:    env.DO_SPACES_CDN_ENDPOINT,
		})
		return store, "", err
	case "local", "":
		store, err := storage.NewLocalStore(env.UPLOAD_DIR, "/uploads")
		if err != nil {
			return nil, "", err
		}
		return store, store.Dir(), nil
	default:
		return nil, "", fmt.Errorf("unsupported STORAGE_DRIVER %q", env.STORAGE_DRIVER)
	}
}

func SetupAndRunServer() error {
	startedAt := time.Now().UTC()

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	log, err := logger.New(getEnv.GO_ENV)
	if err != nil {
		return err
	}
	defer log.Sync()

	// Initialize GORM database connection
	store, err := database.StartGORM(getEnv, log)
	if err != nil {
		log.Error("failed to connect to database", "driver", getEnv.DB_DRIVER, "error", err)
		return err
	}

	if err := store.Init(); err != nil {
		log.Error("failed to initialize database tables", "error", err)
		return err
	}

	if err := database.RunSeeds(store.GetDB(), getEnv.SEED_DEMO_DATA); err != nil {
		log.Warn("seeding failed", "error", err)
	}

	// Redis backs sessions and login throttling when configured
	var redisCache *cache.RedisCache
	var sessionStore auth.SessionStore = auth.NewMemorySessionStore()
	if getEnv.REDIS_URL != "" {
		redisCache, err = cache.NewRedisCache(getEnv.REDIS_URL)
		if err != nil {
			log.Warn("failed to connect to Redis, falling back to in-memory sessions", "error", err)
			redisCache = nil
		} else {
			sessionStore = auth.NewRedisSessionStore(redisCache)
		}
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret: getEnv.SESSION_SECRET,
		Issuer: getEnv.SESSION_ISSUER,
	})
	sessions := auth.NewSessionManager(sessionStore, jwtManager, time.Duration(getEnv.SESSION_TTL_HOURS)*time.Hour)

	files, uploadDir, err := newFileStore(getEnv)
	if err != nil {
		log.Error("failed to initialize file storage", "driver", getEnv.STORAGE_DRIVER, "error", err)
		return err
	}

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT), getEnv.MaxUploadBytes(), log)
	app := server.GetEngine()

	// Setup Routes
	svc := router.SetupRoutes(app, router.Deps{
		Store:             store,
		Sessions:          sessions,
		Files:             files,
		Cache:             redisCache,
		Log:               log,
		UploadDir:         uploadDir,
		MaxUploadBytes:    getEnv.MaxUploadBytes(),
		PaymentDelay:      time.Duration(getEnv.PAYMENT_DELAY_MS) * time.Millisecond,
		AllowedOrigins:    getEnv.ALLOWED_ORIGINS,
		SecureCookie:      getEnv.IsProduction(),
		RateLimitRequests: 300,
		StartedAt:         startedAt,
	})

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if getEnv.CRON_ENABLED {
		cronManager = cron.NewCronManager(store.GetDB(), files, svc.Logs, svc.Notifications, sessionStore, cron.Config{
			LogRetention:      time.Duration(getEnv.LOG_RETENTION_DAYS) * 24 * time.Hour,
			OrphanUploadGrace: time.Duration(getEnv.ORPHAN_UPLOAD_GRACE_HOURS) * time.Hour,
			NotificationTTL:   notificationTTL,
		}, log)
		if err := cronManager.Start(); err != nil {
			// Don't fail the app, just log the warning
			log.Warn("failed to start cron jobs", "error", err)
			cronManager = nil
		}
	}

	// Defer Closing DB, Redis and stopping cron jobs
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		if redisCache != nil {
			_ = redisCache.Close()
		}
		store.Close()
	}()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("shutting down API server")
		if err := server.Shutdown(); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	// Get the PORT & Start the Server
	return server.Run()
}
