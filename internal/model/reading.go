package model

import (
	"time"

	"gorm.io/gorm"
)

// Reading is a meter reading. Ownership and visibility rules match Voucher.
type Reading struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      uint           `json:"user_id" gorm:"index;not null"`
	TenantID    *uint          `json:"tenant_id" gorm:"index"` // nullable for pre-migration legacy rows
	Value       float64        `json:"value" gorm:"not null"`
	ReadingDate time.Time      `json:"reading_date" gorm:"index;not null"`
	Notes       string         `json:"notes" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}
