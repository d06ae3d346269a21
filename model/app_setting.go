package model

import (
	"time"
)

// SettingType declares how a setting value is parsed
type SettingType string

const (
	SettingTypeString SettingType = "string"
	SettingTypeInt    SettingType = "int"
	SettingTypeBool   SettingType = "bool"
	SettingTypeJSON   SettingType = "json"
)

// AppSetting represents application-wide configuration settings.
// Values are stored and displayed; business logic does not consult them.
type AppSetting struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Key         string      `gorm:"uniqueIndex;not null" json:"key"`
	Value       string      `gorm:"type:text;not null" json:"value"`
	Type        SettingType `gorm:"type:varchar(20);default:'string'" json:"type"`
	Description string      `gorm:"type:text" json:"description"`
	IsPublic    bool        `gorm:"default:false" json:"isPublic"` // If true, can be accessed without auth
	Category    string      `gorm:"type:varchar(50)" json:"category"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// TableName specifies the table name for AppSetting
func (AppSetting) TableName() string {
	return "app_settings"
}

// FeatureFlag is an admin-toggled switch with a rollout percentage
type FeatureFlag struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Key               string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"key"`
	Name              string    `gorm:"type:varchar(150);not null" json:"name"`
	Description       string    `gorm:"type:text" json:"description"`
	IsEnabled         bool      `gorm:"default:false" json:"isEnabled"`
	RolloutPercentage int       `gorm:"default:0" json:"rolloutPercentage"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// TableName specifies the table name for FeatureFlag
func (FeatureFlag) TableName() string {
	return "feature_flags"
}
