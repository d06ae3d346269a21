package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	return nil
}

type EnviornmentVariable struct {
	GO_ENV string
	PORT   int

	// Database
	DB_DRIVER      string // postgres or sqlite
	DB_USER_NAME   string
	DB_PASSWORD    string
	DB_NAME        string
	DB_HOST        string
	DB_PORT        string
	DB_SSL_MODE    string
	DB_SQLITE_PATH string

	// Sessions
	SESSION_SECRET    string
	SESSION_ISSUER    string
	SESSION_TTL_HOURS int

	// Redis Configuration
	REDIS_URL string

	// Uploads
	UPLOAD_DIR     string
	MAX_UPLOAD_MB  int
	STORAGE_DRIVER string // local or spaces

	// DigitalOcean Spaces
	DO_SPACES_ACCESS_KEY   string
	DO_SPACES_SECRET_KEY   string
	DO_SPACES_BUCKET       string
	DO_SPACES_REGION       string
	DO_SPACES_ENDPOINT     string
	DO_SPACES_CDN_ENDPOINT string

	// Background jobs
	CRON_ENABLED              bool
	LOG_RETENTION_DAYS        int
	ORPHAN_UPLOAD_GRACE_HOURS int

	PAYMENT_DELAY_MS int
	ALLOWED_ORIGINS  string
	SEED_DEMO_DATA   bool
}

func Get() (*EnviornmentVariable, error) {
	goEnv := os.Getenv("GO_ENV")

	envVariables := &EnviornmentVariable{
		GO_ENV: goEnv,
		PORT:   intOr("PORT", 8080),
		// Database
		DB_DRIVER:      strings.ToLower(stringOr("DB_DRIVER", "postgres")),
		DB_USER_NAME:   os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:    os.Getenv("DB_PASSWORD"),
		DB_NAME:        os.Getenv("DB_NAME"),
		DB_HOST:        stringOr("DB_HOST", "localhost"),
		DB_PORT:        stringOr("DB_PORT", "5432"),
		DB_SSL_MODE:    stringOr("DB_SSL_MODE", "disable"),
		DB_SQLITE_PATH: stringOr("DB_SQLITE_PATH", "eduhub.db"),
		// Sessions
		SESSION_SECRET:    os.Getenv("SESSION_SECRET"),
		SESSION_ISSUER:    stringOr("SESSION_ISSUER", "eduhub-api"),
		SESSION_TTL_HOURS: intOr("SESSION_TTL_HOURS", 24*7),
		// Redis
		REDIS_URL: os.Getenv("REDIS_URL"),
		// Uploads
		UPLOAD_DIR:     stringOr("UPLOAD_DIR", "uploads"),
		MAX_UPLOAD_MB:  intOr("MAX_UPLOAD_MB", 100),
		STORAGE_DRIVER: strings.ToLower(stringOr("STORAGE_DRIVER", "local")),
		// DigitalOcean
		DO_SPACES_ACCESS_KEY:   os.Getenv("DO_SPACES_ACCESS_KEY"),
		DO_SPACES_SECRET_KEY:   os.Getenv("DO_SPACES_SECRET_KEY"),
		DO_SPACES_BUCKET:       os.Getenv("DO_SPACES_BUCKET"),
		DO_SPACES_REGION:       os.Getenv("DO_SPACES_REGION"),
		DO_SPACES_ENDPOINT:     os.Getenv("DO_SPACES_ENDPOINT"),
		DO_SPACES_CDN_ENDPOINT: os.Getenv("DO_SPACES_CDN_ENDPOINT"),
		// Jobs
		CRON_ENABLED:              os.Getenv("CRON_ENABLED") != "false", // Default to enabled
		LOG_RETENTION_DAYS:        intOr("LOG_RETENTION_DAYS", 90),
		ORPHAN_UPLOAD_GRACE_HOURS: intOr("ORPHAN_UPLOAD_GRACE_HOURS", 24),

		PAYMENT_DELAY_MS: intOr("PAYMENT_DELAY_MS", 2000),
		ALLOWED_ORIGINS:  stringOr("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"),
		SEED_DEMO_DATA:   boolOr("SEED_DEMO_DATA", goEnv != "production"),
	}

	if envVariables.SESSION_SECRET == "" {
		if goEnv == "production" {
			return nil, errors.New("SESSION_SECRET environment variable is not set")
		}
		envVariables.SESSION_SECRET = "eduhub-dev-secret"
	}

	return envVariables, nil
}

// IsProduction reports whether GO_ENV is production
func (e *EnviornmentVariable) IsProduction() bool {
	return e.GO_ENV == "production"
}

// MaxUploadBytes is the request body ceiling applied at the transport layer
func (e *EnviornmentVariable) MaxUploadBytes() int64 {
	return int64(e.MAX_UPLOAD_MB) * 1024 * 1024
}

func stringOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOr(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func boolOr(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
