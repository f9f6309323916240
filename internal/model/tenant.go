package model

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Tenant represents a household: the unit that owns vouchers and readings
// and whose members share them.
type Tenant struct {
	ID                 uint           `json:"id" gorm:"primaryKey"`
	Name               string         `json:"name" gorm:"type:varchar(100);not null"`
	SubscriptionStatus string         `json:"subscription_status" gorm:"type:varchar(50);not null;default:'active'"`
	MaxMembers         int            `json:"max_members" gorm:"not null;default:10"` // soft cap, not enforced
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `json:"-" gorm:"index"`
}

// TenantNameForEmail derives an auto-created tenant's name from its owner's
// email. Registration and the legacy migration share this derivation so the
// names stay deterministic.
func TenantNameForEmail(email string) string {
	local := email
	if at := strings.Index(email, "@"); at > 0 {
		local = email[:at]
	}
	return fmt.Sprintf("%s's household", local)
}
