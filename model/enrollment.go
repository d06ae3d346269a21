package model

import (
	"time"
)

// Enrollment links one student to one course and tracks their progress
type Enrollment struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CourseID    uint       `gorm:"not null;uniqueIndex:idx_enrollment_course_student" json:"courseId"`
	StudentID   uint       `gorm:"not null;uniqueIndex:idx_enrollment_course_student;index" json:"studentId"`
	EnrolledAt  time.Time  `gorm:"not null" json:"enrolledAt"`
	Progress    int        `gorm:"not null;default:0" json:"progress"` // 0-100
	CompletedAt *time.Time `json:"completedAt"`                        // Set iff Progress == 100
	Rating      *int       `json:"rating"`                             // 1-5
	Review      *string    `gorm:"type:text" json:"review"`
	ReviewedAt  *time.Time `json:"reviewedAt"`

	// Relationships
	Course  *Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
	Student *User   `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Enrollment
func (Enrollment) TableName() string {
	return "enrollments"
}

// SetProgress stores progress and recomputes the completion timestamp
func (e *Enrollment) SetProgress(progress int, now time.Time) {
	e.Progress = progress
	if progress == 100 {
		e.CompletedAt = &now
	} else {
		e.CompletedAt = nil
	}
}
