package database

import (
	"errors"
	"fmt"
	"log"

	"github.com/eduhub/marketplace-api/model"
	"github.com/eduhub/marketplace-api/utils/auth"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// SeedAll runs the reference data seeds. Every seed is idempotent.
func (s *Seeder) SeedAll() error {
	log.Println("🌱 Starting database seeding...")

	if err := s.SeedCategories(); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}
	if err := s.SeedAppSettings(); err != nil {
		return fmt.Errorf("failed to seed app settings: %w", err)
	}
	if err := s.SeedFeatureFlags(); err != nil {
		return fmt.Errorf("failed to seed feature flags: %w", err)
	}

	log.Println("✅ Database seeding completed successfully!")
	return nil
}

var defaultCategories = []struct {
	name        string
	description string
}{
	{"Web Development", "Frontend, backend and full-stack web engineering"},
	{"Data Science", "Statistics, machine learning and data analysis"},
	{"Mobile Development", "Native and cross-platform mobile apps"},
	{"Design", "UI, UX and graphic design"},
	{"Business", "Entrepreneurship, management and finance"},
	{"Marketing", "Digital marketing, SEO and growth"},
}

// SeedCategories creates the default course categories
func (s *Seeder) SeedCategories() error {
	categories := make([]model.Category, 0, len(defaultCategories))
	for _, c := range defaultCategories {
		description := c.description
		categories = append(categories, model.Category{
			Name:        c.name,
			Slug:        slug.Make(c.name),
			Description: &description,
		})
	}

	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&categories)
	if result.Error != nil {
		return result.Error
	}
	log.Printf("✅ Seeded categories (%d new)\n", result.RowsAffected)
	return nil
}

// SeedAppSettings creates the default application settings
func (s *Seeder) SeedAppSettings() error {
	settings := []model.AppSetting{
		{Key: "platform_name", Value: "EduHub", Type: model.SettingTypeString, Description: "Name shown across the platform", IsPublic: true, Category: "general"},
		{Key: "course_approval_required", Value: "false", Type: model.SettingTypeBool, Description: "Require admin approval before a course is published", Category: "courses"},
		{Key: "max_file_size", Value: "100", Type: model.SettingTypeInt, Description: "Maximum upload size in MB", IsPublic: true, Category: "uploads"},
		{Key: "allowed_file_types", Value: `["mp4","mov","pdf","docx","pptx","jpg","png"]`, Type: model.SettingTypeJSON, Description: "File extensions accepted for course materials", IsPublic: true, Category: "uploads"},
		{Key: "session_timeout", Value: "168", Type: model.SettingTypeInt, Description: "Session lifetime in hours", Category: "security"},
		{Key: "max_login_attempts", Value: "5", Type: model.SettingTypeInt, Description: "Failed logins before a temporary lockout", Category: "security"},
		{Key: "maintenance_mode", Value: "false", Type: model.SettingTypeBool, Description: "Show the maintenance banner", IsPublic: true, Category: "general"},
		{Key: "log_level", Value: "info", Type: model.SettingTypeString, Description: "Minimum severity written to the application log", Category: "system"},
		{Key: "open_registration", Value: "true", Type: model.SettingTypeBool, Description: "Allow new users to sign up", IsPublic: true, Category: "security"},
	}

	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&settings)
	if result.Error != nil {
		return result.Error
	}
	log.Printf("✅ Seeded app settings (%d new)\n", result.RowsAffected)
	return nil
}

// SeedFeatureFlags creates the default feature flags
func (s *Seeder) SeedFeatureFlags() error {
	flags := []model.FeatureFlag{
		{Key: "course_reviews", Name: "Course reviews", Description: "Let students rate and review courses", IsEnabled: true, RolloutPercentage: 100},
		{Key: "recommendations", Name: "Recommendations", Description: "Show recommended courses on the catalogue", IsEnabled: true, RolloutPercentage: 100},
		{Key: "live_sessions", Name: "Live sessions", Description: "Scheduled live classes for enrolled students", RolloutPercentage: 0},
		{Key: "certificates", Name: "Certificates", Description: "Completion certificates for finished courses", RolloutPercentage: 25},
	}

	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&flags)
	if result.Error != nil {
		return result.Error
	}
	log.Printf("✅ Seeded feature flags (%d new)\n", result.RowsAffected)
	return nil
}

// SeedDemoData creates a demo teacher with two published courses so the
// catalogue is not empty on a fresh install
func (s *Seeder) SeedDemoData() error {
	var count int64
	if err := s.db.Model(&model.Course{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("⏭️  Courses already exist, skipping demo data...")
		return nil
	}

	var teacher model.User
	err := s.db.Where("email = ?", "teacher@example.com").First(&teacher).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hash, hashErr := auth.HashPasswordUnchecked("teacher123")
		if hashErr != nil {
			return fmt.Errorf("failed to hash password: %w", hashErr)
		}
		teacher = model.User{
			Email:        "teacher@example.com",
			PasswordHash: hash,
			FirstName:    "Teacher",
			LastName:     "User",
			Role:         model.RoleTeacher,
			IsActive:     true,
		}
		if err := s.db.Create(&teacher).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	var categories []model.Category
	if err := s.db.Order("name").Find(&categories).Error; err != nil {
		return err
	}
	categoryID := func(name string) *uint {
		for _, c := range categories {
			if c.Name == name {
				id := c.ID
				return &id
			}
		}
		return nil
	}

	courses := []model.Course{
		{
			Title:           "Modern Web Development",
			Description:     "Build and deploy full-stack web applications from scratch.",
			Price:           49.99,
			CategoryID:      categoryID("Web Development"),
			TeacherID:       teacher.ID,
			Status:          model.CourseStatusPublished,
			DifficultyLevel: model.DifficultyBeginner,
		},
		{
			Title:           "Practical Data Analysis",
			Description:     "Clean, explore and visualise real datasets.",
			Price:           0,
			CategoryID:      categoryID("Data Science"),
			TeacherID:       teacher.ID,
			Status:          model.CourseStatusPublished,
			DifficultyLevel: model.DifficultyIntermediate,
		},
	}
	if err := s.db.Create(&courses).Error; err != nil {
		return err
	}

	log.Printf("✅ Created %d demo courses\n", len(courses))
	return nil
}

// RunSeeds is a convenience function to run all seeds, plus the demo data
// when withDemo is set
func RunSeeds(db *gorm.DB, withDemo bool) error {
	seeder := NewSeeder(db)
	if err := seeder.SeedAll(); err != nil {
		return err
	}
	if withDemo {
		return seeder.SeedDemoData()
	}
	return nil
}
