package model

import (
	"time"
)

// CourseStatus is the publication state of a course.
// Any status may move to any other.
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
	CourseStatusArchived  CourseStatus = "archived"
)

// DifficultyLevel grades the intended audience of a course
type DifficultyLevel string

const (
	DifficultyBeginner     DifficultyLevel = "beginner"
	DifficultyIntermediate DifficultyLevel = "intermediate"
	DifficultyAdvanced     DifficultyLevel = "advanced"
)

// Category groups courses by subject
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Slug        string    `gorm:"type:varchar(120);uniqueIndex;not null" json:"slug"`
	Description *string   `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TableName specifies the table name for Category
func (Category) TableName() string {
	return "categories"
}

// Course is a sellable unit of teaching owned by exactly one teacher
type Course struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Title           string          `gorm:"type:varchar(255);not null" json:"title"`
	Description     string          `gorm:"type:text" json:"description"`
	Price           float64         `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	ThumbnailURL    *string         `json:"thumbnailUrl"`
	CategoryID      *uint           `gorm:"index" json:"categoryId"`
	TeacherID       uint            `gorm:"not null;index" json:"teacherId"`
	Status          CourseStatus    `gorm:"type:varchar(20);default:'draft';index" json:"status"`
	DifficultyLevel DifficultyLevel `gorm:"type:varchar(20);default:'beginner'" json:"difficultyLevel"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`

	// Relationships
	Teacher   *User            `gorm:"foreignKey:TeacherID" json:"-"`
	Category  *Category        `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"-"`
	Materials []CourseMaterial `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Course
func (Course) TableName() string {
	return "courses"
}

// CourseWithDetails is a course joined with its owner, category, materials
// and the aggregates computed at read time
type CourseWithDetails struct {
	Course
	Teacher         *UserSummary     `json:"teacher"`
	Category        *Category        `json:"category"`
	Materials       []CourseMaterial `json:"materials"`
	EnrollmentCount int64            `json:"enrollmentCount"`
	AvgRating       *float64         `json:"avgRating"`
	Revenue         float64          `json:"revenue"`

	// Populated only for an authenticated caller
	IsEnrolled   *bool      `json:"isEnrolled,omitempty"`
	UserProgress *int       `json:"userProgress,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	EnrollmentID *uint      `json:"enrollmentId,omitempty"`
}
