package database

import (
	"fmt"
	"time"

	"github.com/eduhub/marketplace-api/config"
	"github.com/eduhub/marketplace-api/model"
	applog "github.com/eduhub/marketplace-api/utils/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage defines the interface that all database implementations must satisfy
type Storage interface {
	// Lifecycle methods
	Init() error
	Close() error
	HealthCheck() error

	// GORM DB access
	GetDB() *gorm.DB
}

type GORMStore struct {
	db     *gorm.DB
	driver string
	log    *applog.Logger
}

// NewGORMStore wraps an already opened connection. Lifecycle messages are discarded.
func NewGORMStore(db *gorm.DB, driver string) *GORMStore {
	return &GORMStore{db: db, driver: driver, log: applog.NewNop()}
}

// sqlLogger prints GORM's SQL trace through zap: every statement in
// development, only errors in production.
func sqlLogger(env *config.EnviornmentVariable, log *applog.Logger) logger.Interface {
	level := logger.Info
	if env.IsProduction() {
		level = logger.Error
	}
	return logger.New(log.StdLog(), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// StartGORM opens the database selected by DB_DRIVER
func StartGORM(env *config.EnviornmentVariable, log *applog.Logger) (*GORMStore, error) {
	gormLogger := sqlLogger(env, log)

	var (
		db     *gorm.DB
		err    error
		driver = env.DB_DRIVER
	)
	switch driver {
	case "sqlite":
		db, err = OpenSQLite(env.DB_SQLITE_PATH, gormLogger)
	case "postgres", "":
		driver = "postgres"
		db, err = openPostgres(env, gormLogger)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", env.DB_DRIVER)
	}
	if err != nil {
		return nil, err
	}

	log.Info("connected to database", "driver", driver)
	return &GORMStore{db: db, driver: driver, log: log}, nil
}

func openPostgres(env *config.EnviornmentVariable, gormLogger logger.Interface) (*gorm.DB, error) {
	// Build DSN (Data Source Name)
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		env.DB_HOST,
		env.DB_USER_NAME,
		env.DB_PASSWORD,
		env.DB_NAME,
		env.DB_PORT,
		env.DB_SSL_MODE,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		PrepareStmt:    true,
		TranslateError: true,
		NowFunc:        nowUTC,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// OpenSQLite opens a SQLite database file, or a private in-memory database for ":memory:".
// A single connection is used so an in-memory database is shared by every query.
func OpenSQLite(path string, gormLogger logger.Interface) (*gorm.DB, error) {
	if gormLogger == nil {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc:        nowUTC,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// Init runs the AutoMigrate to create/update tables
func (s *GORMStore) Init() error {
	err := s.db.AutoMigrate(
		// Users and catalogue
		&model.User{},
		&model.Category{},
		&model.Course{},
		&model.CourseMaterial{},

		// Enrollment and activity
		&model.Enrollment{},
		&model.StudentActivity{},
		&model.CoursePayment{},

		// Administration
		&model.AdminNotification{},
		&model.SystemLog{},
		&model.AppSetting{},
		&model.FeatureFlag{},
		&model.CronJobLog{},
	)

	if err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}

	s.log.Info("database schema migrated", "driver", s.driver)
	return nil
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	s.log.Info("closing database connection", "driver", s.driver)
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the GORM DB instance for use in services
func (s *GORMStore) GetDB() *gorm.DB {
	return s.db
}

// Driver names the SQL dialect in use
func (s *GORMStore) Driver() string {
	return s.driver
}

// HealthCheck verifies the database connection is alive
func (s *GORMStore) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
