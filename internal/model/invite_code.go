package model

import (
	"time"

	"gorm.io/gorm"
)

// InviteCode is a time- and count-limited capability token that lets a new
// user join the owning tenant.
type InviteCode struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Code        string         `json:"code" gorm:"type:varchar(64);uniqueIndex;not null"`
	TenantID    uint           `json:"tenant_id" gorm:"index;not null"`
	CreatedBy   uint           `json:"created_by" gorm:"not null"`
	MaxUses     int            `json:"max_uses" gorm:"not null;default:1"`
	CurrentUses int            `json:"current_uses" gorm:"not null;default:0"`
	ExpiresAt   time.Time      `json:"expires_at" gorm:"not null"`
	IsActive    bool           `json:"is_active" gorm:"not null;default:true"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (InviteCode) TableName() string { return "invite_codes" }

// Usable reports whether the code can still be redeemed at the given time.
func (ic *InviteCode) Usable(now time.Time) bool {
	return ic.IsActive && now.Before(ic.ExpiresAt) && ic.CurrentUses < ic.MaxUses
}
