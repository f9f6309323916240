package migration

import (
	"context"

	"gorm.io/gorm"

	"stroomtracker/internal/model"
)

// GormStore implements the migration Store on gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// EnsureSchema brings the schema to the multi-tenant shape. Column existence
// is introspected before altering; a duplicate-column error is never used as
// control flow.
func (s *GormStore) EnsureSchema(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	m := db.Migrator()

	if err := db.AutoMigrate(&model.Tenant{}, &model.TenantUser{}, &model.InviteCode{}); err != nil {
		return err
	}

	if !m.HasColumn(&model.User{}, "IsSuperAdmin") {
		if err := m.AddColumn(&model.User{}, "IsSuperAdmin"); err != nil {
			return err
		}
	}
	if !m.HasColumn(&model.Voucher{}, "TenantID") {
		if err := m.AddColumn(&model.Voucher{}, "TenantID"); err != nil {
			return err
		}
	}
	if !m.HasColumn(&model.Reading{}, "TenantID") {
		if err := m.AddColumn(&model.Reading{}, "TenantID"); err != nil {
			return err
		}
	}
	return nil
}

func (s *GormStore) UsersWithoutMembership(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.db.WithContext(ctx).
		Where("is_super_admin = ?", false).
		Where("NOT EXISTS (SELECT 1 FROM tenant_users WHERE tenant_users.user_id = users.id AND tenant_users.deleted_at IS NULL)").
		Order("id asc").
		Find(&users).Error
	return users, err
}

// MigrateUser creates the tenant and admin membership and backfills the
// user's legacy rows, all in one transaction. Rows that already carry a
// tenant id are never touched, which keeps re-runs harmless.
func (s *GormStore) MigrateUser(ctx context.Context, user model.User, tenantName string) (Result, error) {
	var res Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenant := model.Tenant{Name: tenantName}
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}
		res.TenantID = tenant.ID

		membership := model.TenantUser{
			TenantID: tenant.ID,
			UserID:   user.ID,
			Role:     model.RoleAdmin,
		}
		if err := tx.Create(&membership).Error; err != nil {
			return err
		}

		vouchers := tx.Model(&model.Voucher{}).
			Where("user_id = ? AND tenant_id IS NULL", user.ID).
			Update("tenant_id", tenant.ID)
		if vouchers.Error != nil {
			return vouchers.Error
		}
		res.VouchersBackfilled = vouchers.RowsAffected

		readings := tx.Model(&model.Reading{}).
			Where("user_id = ? AND tenant_id IS NULL", user.ID).
			Update("tenant_id", tenant.ID)
		if readings.Error != nil {
			return readings.Error
		}
		res.ReadingsBackfilled = readings.RowsAffected

		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}
