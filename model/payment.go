package model

import (
	"time"
)

// PaymentStatus is the outcome of a payment attempt
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// CoursePayment records a (simulated) payment that produced an enrollment
type CoursePayment struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	StudentID     uint          `gorm:"not null;index" json:"studentId"`
	CourseID      uint          `gorm:"not null;index" json:"courseId"`
	EnrollmentID  *uint         `gorm:"index" json:"enrollmentId"`
	Amount        float64       `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency      string        `gorm:"type:varchar(10);default:'USD'" json:"currency"`
	Status        PaymentStatus `gorm:"type:varchar(20);default:'completed'" json:"status"`
	PaymentMethod string        `gorm:"type:varchar(50);default:'simulated'" json:"paymentMethod"`
	CreatedAt     time.Time     `json:"createdAt"`

	// Relationships
	Student *User   `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"-"`
	Course  *Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for CoursePayment
func (CoursePayment) TableName() string {
	return "course_payments"
}
