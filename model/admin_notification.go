package model

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType represents the tone of a notification
type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)

// NotificationCategory groups notifications in the admin inbox
type NotificationCategory string

const (
	NotificationCategoryUsers       NotificationCategory = "users"
	NotificationCategoryCourses     NotificationCategory = "courses"
	NotificationCategoryEnrollments NotificationCategory = "enrollments"
	NotificationCategorySystem      NotificationCategory = "system"
)

// AdminNotification is an entry in the shared admin inbox
type AdminNotification struct {
	ID        uint                 `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time            `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
	Type      NotificationType     `gorm:"type:varchar(20);not null" json:"type"`
	Category  NotificationCategory `gorm:"type:varchar(30);not null;index" json:"category"`
	Title     string               `gorm:"type:varchar(255);not null" json:"title"`
	Message   string               `gorm:"type:text" json:"message"`
	Read      bool                 `gorm:"default:false;index" json:"read"`
	Metadata  datatypes.JSON       `json:"metadata,omitempty"`
}

// TableName specifies the table name for AdminNotification
func (AdminNotification) TableName() string {
	return "admin_notifications"
}
