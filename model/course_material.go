package model

import (
	"time"
)

// MaterialType classifies a course material for display
type MaterialType string

const (
	MaterialTypeVideo      MaterialType = "video"
	MaterialTypePDF        MaterialType = "pdf"
	MaterialTypeQuiz       MaterialType = "quiz"
	MaterialTypeAssignment MaterialType = "assignment"
)

// Valid reports whether t is one of the known material types
func (t MaterialType) Valid() bool {
	switch t {
	case MaterialTypeVideo, MaterialTypePDF, MaterialTypeQuiz, MaterialTypeAssignment:
		return true
	}
	return false
}

// CourseMaterial is an uploaded file attached to a course
type CourseMaterial struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	CourseID   uint         `gorm:"not null;index" json:"courseId"`
	Title      string       `gorm:"type:varchar(255);not null" json:"title"`
	Type       MaterialType `gorm:"type:varchar(20);not null" json:"type"`
	FileURL    string       `gorm:"not null" json:"fileUrl"`
	FileSize   int64        `json:"fileSize"`
	MimeType   string       `gorm:"type:varchar(150)" json:"mimeType"`
	OrderIndex int          `gorm:"default:0" json:"orderIndex"` // Display order, not unique
	StorageKey string       `json:"-"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// TableName specifies the table name for CourseMaterial
func (CourseMaterial) TableName() string {
	return "course_materials"
}
