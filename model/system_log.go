package model

import (
	"time"

	"gorm.io/datatypes"
)

// Severity grades a system log entry. It is used for filtering only.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the known severities
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// SystemLog is the audit trail read by the admin console
type SystemLog struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Action      string         `gorm:"type:varchar(100);not null;index" json:"action"` // e.g., "user_login", "course_deleted"
	Description string         `gorm:"type:text" json:"description"`
	UserID      *uint          `gorm:"index" json:"userId"`
	EntityType  string         `gorm:"type:varchar(50)" json:"entityType"` // e.g., "course", "user"
	EntityID    *uint          `json:"entityId"`
	IPAddress   string         `gorm:"type:varchar(45)" json:"ipAddress"`
	UserAgent   string         `gorm:"type:text" json:"userAgent"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	Severity    Severity       `gorm:"type:varchar(20);default:'low';index" json:"severity"`
	CreatedAt   time.Time      `gorm:"index" json:"createdAt"`
}

// TableName specifies the table name for SystemLog
func (SystemLog) TableName() string {
	return "system_logs"
}
