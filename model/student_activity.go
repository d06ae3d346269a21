package model

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityType represents the kind of student activity
type ActivityType string

const (
	ActivityEnrolled            ActivityType = "enrolled"
	ActivityCompleted           ActivityType = "completed"
	ActivityReviewed            ActivityType = "reviewed"
	ActivityAssignmentSubmitted ActivityType = "assignment_submitted"
	ActivityQuizCompleted       ActivityType = "quiz_completed"
)

// StudentActivity is an append-only feed entry
type StudentActivity struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	StudentID    uint           `gorm:"not null;index:idx_student_activity" json:"studentId"`
	CourseID     uint           `gorm:"not null;index" json:"courseId"`
	MaterialID   *uint          `gorm:"index" json:"materialId"`
	ActivityType ActivityType   `gorm:"type:varchar(50);not null" json:"activityType"`
	Metadata     datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt    time.Time      `gorm:"index" json:"createdAt"`

	// Relationships
	Student  *User           `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"-"`
	Course   *Course         `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
	Material *CourseMaterial `gorm:"foreignKey:MaterialID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for StudentActivity
func (StudentActivity) TableName() string {
	return "student_activity"
}

// ActivityFeedItem is an activity joined with the names a feed displays
type ActivityFeedItem struct {
	StudentActivity
	StudentName string `json:"studentName"`
	CourseTitle string `json:"courseTitle"`
}
