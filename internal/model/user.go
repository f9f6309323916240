package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents the user model stored in the database.
// Emails are stored lowercased; uniqueness is case-insensitive.
type User struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Email        string         `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Password     string         `json:"-" gorm:"type:varchar(255);not null"`
	IsSuperAdmin bool           `json:"-" gorm:"default:false"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}
