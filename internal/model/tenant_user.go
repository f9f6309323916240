package model

import (
	"time"

	"gorm.io/gorm"
)

// TenantUser binds one user to one tenant with a role. A user holds at most
// one membership; the composite unique index additionally guarantees the
// same user can never join the same tenant twice.
type TenantUser struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	TenantID  uint           `json:"tenant_id" gorm:"uniqueIndex:idx_tenant_user;not null"`
	UserID    uint           `json:"user_id" gorm:"uniqueIndex:idx_tenant_user;index;not null"`
	Role      Role           `json:"role" gorm:"type:varchar(50);not null;default:'member'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	User   User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Tenant Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
}

func (TenantUser) TableName() string { return "tenant_users" }
