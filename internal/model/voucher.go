package model

import (
	"time"

	"gorm.io/gorm"
)

// Voucher is a prepaid electricity purchase. UserID records who entered it;
// TenantID decides who may see it. Every query path filters on TenantID.
type Voucher struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	UserID       uint           `json:"user_id" gorm:"index;not null"`
	TenantID     *uint          `json:"tenant_id" gorm:"index"` // nullable for pre-migration legacy rows
	Token        string         `json:"token" gorm:"type:varchar(100)"`
	PurchaseDate time.Time      `json:"purchase_date" gorm:"index;not null"`
	Amount       float64        `json:"amount" gorm:"not null"`
	KWH          float64        `json:"kwh" gorm:"column:kwh;not null"`
	VAT          float64        `json:"vat" gorm:"column:vat;not null;default:0"`
	Notes        string         `json:"notes" gorm:"type:text"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}
