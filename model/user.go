package model

import (
	"strings"
	"time"
)

// Role is the platform role of a user
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered user in the system
type User struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	Email           string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash    string     `json:"-"` // Never expose password in JSON
	FirstName       string     `gorm:"type:varchar(100)" json:"firstName"`
	LastName        string     `gorm:"type:varchar(100)" json:"lastName"`
	ProfileImageURL string     `json:"profileImageUrl"`
	Role            Role       `gorm:"type:varchar(20);default:'student';index" json:"role"`
	Bio             *string    `gorm:"type:text" json:"bio"`
	Website         *string    `json:"website"`
	IsActive        bool       `gorm:"default:true" json:"isActive"`
	LastLoginAt     *time.Time `json:"lastLoginAt"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// FullName joins first and last name, falling back to the email
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// UserSummary is the public shape of a user embedded in other responses
type UserSummary struct {
	ID              uint   `json:"id"`
	Email           string `json:"email"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Role            Role   `json:"role"`
	ProfileImageURL string `json:"profileImageUrl"`
}

// ToSummary converts the user to its public summary
func (u User) ToSummary() UserSummary {
	return UserSummary{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Role:            u.Role,
		ProfileImageURL: u.ProfileImageURL,
	}
}
