package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stroomtracker/internal/model"
)

// GormStore implements Store on a gorm-managed PostgreSQL database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateUser(ctx context.Context, user *model.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	err := s.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEmail
	}
	return err
}

func (s *GormStore) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).
		Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) UserByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateTenantWithAdmin inserts the tenant and its first membership in a
// single transaction. A user must never end up with a tenant but no
// membership, or vice versa.
func (s *GormStore) CreateTenantWithAdmin(ctx context.Context, tenant *model.Tenant, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tenant).Error; err != nil {
			return err
		}
		membership := model.TenantUser{
			TenantID: tenant.ID,
			UserID:   userID,
			Role:     model.RoleAdmin,
		}
		if err := tx.Create(&membership).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyMember
			}
			return err
		}
		return nil
	})
}

func (s *GormStore) MembershipForUser(ctx context.Context, userID uint) (*model.TenantUser, error) {
	var membership model.TenantUser
	err := s.db.WithContext(ctx).
		Preload("Tenant").
		Where("user_id = ?", userID).
		First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

func (s *GormStore) TenantByID(ctx context.Context, id uint) (*model.Tenant, error) {
	var tenant model.Tenant
	err := s.db.WithContext(ctx).First(&tenant, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (s *GormStore) MembersOfTenant(ctx context.Context, tenantID uint) ([]model.TenantUser, error) {
	var members []model.TenantUser
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("tenant_id = ?", tenantID).
		Order("created_at asc").
		Find(&members).Error
	return members, err
}

func (s *GormStore) CreateInvite(ctx context.Context, invite *model.InviteCode) error {
	return s.db.WithContext(ctx).Create(invite).Error
}

func (s *GormStore) InvitesForTenant(ctx context.Context, tenantID uint) ([]model.InviteCode, error) {
	var invites []model.InviteCode
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at desc").
		Find(&invites).Error
	return invites, err
}

// RedeemInvite performs the whole redemption inside one transaction with the
// invite row locked. The conditional increment on current_uses means two
// concurrent redeemers of the last remaining use cannot both succeed.
func (s *GormStore) RedeemInvite(ctx context.Context, code string, userID uint) (*model.TenantUser, error) {
	var membership model.TenantUser
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invite model.InviteCode
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).
			First(&invite).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInviteNotFound
		}
		if err != nil {
			return err
		}

		now := time.Now()
		switch {
		case !invite.IsActive:
			return ErrInviteInactive
		case !now.Before(invite.ExpiresAt):
			return ErrInviteExpired
		case invite.CurrentUses >= invite.MaxUses:
			return ErrInviteExhausted
		}

		var existing model.TenantUser
		err = tx.Where("user_id = ?", userID).First(&existing).Error
		if err == nil {
			return ErrAlreadyMember
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		res := tx.Model(&model.InviteCode{}).
			Where("id = ? AND current_uses < max_uses", invite.ID).
			Update("current_uses", gorm.Expr("current_uses + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInviteExhausted
		}

		membership = model.TenantUser{
			TenantID: invite.TenantID,
			UserID:   userID,
			Role:     model.RoleMember,
		}
		if err := tx.Create(&membership).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyMember
			}
			return err
		}
		return tx.First(&membership.Tenant, invite.TenantID).Error
	})
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

func (s *GormStore) CreateVoucher(ctx context.Context, voucher *model.Voucher) error {
	return s.db.WithContext(ctx).Create(voucher).Error
}

func (s *GormStore) VouchersForTenant(ctx context.Context, tenantID uint, month *time.Time) ([]model.Voucher, error) {
	q := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if month != nil {
		q = q.Where("purchase_date >= ? AND purchase_date < ?", *month, month.AddDate(0, 1, 0))
	}
	var vouchers []model.Voucher
	err := q.Order("purchase_date desc").Find(&vouchers).Error
	return vouchers, err
}

// DeleteVoucher deletes by (id, tenant_id). A row in another tenant is
// indistinguishable from a row that does not exist.
func (s *GormStore) DeleteVoucher(ctx context.Context, tenantID, voucherID uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", voucherID, tenantID).
		Delete(&model.Voucher{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateReading(ctx context.Context, reading *model.Reading) error {
	return s.db.WithContext(ctx).Create(reading).Error
}

func (s *GormStore) ReadingsForTenant(ctx context.Context, tenantID uint, month *time.Time) ([]model.Reading, error) {
	q := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if month != nil {
		q = q.Where("reading_date >= ? AND reading_date < ?", *month, month.AddDate(0, 1, 0))
	}
	var readings []model.Reading
	err := q.Order("reading_date desc").Find(&readings).Error
	return readings, err
}

func (s *GormStore) DeleteReading(ctx context.Context, tenantID, readingID uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", readingID, tenantID).
		Delete(&model.Reading{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) TenantOverviews(ctx context.Context) ([]TenantOverview, error) {
	var tenants []model.Tenant
	if err := s.db.WithContext(ctx).Order("id asc").Find(&tenants).Error; err != nil {
		return nil, err
	}

	overviews := make([]TenantOverview, 0, len(tenants))
	for _, t := range tenants {
		o := TenantOverview{
			TenantID:           t.ID,
			Name:               t.Name,
			SubscriptionStatus: t.SubscriptionStatus,
		}
		db := s.db.WithContext(ctx)
		if err := db.Model(&model.TenantUser{}).Where("tenant_id = ?", t.ID).Count(&o.MemberCount).Error; err != nil {
			return nil, err
		}
		if err := db.Model(&model.Voucher{}).Where("tenant_id = ?", t.ID).Count(&o.VoucherCount).Error; err != nil {
			return nil, err
		}
		if err := db.Model(&model.Reading{}).Where("tenant_id = ?", t.ID).Count(&o.ReadingCount).Error; err != nil {
			return nil, err
		}
		var spend *float64
		if err := db.Model(&model.Voucher{}).Where("tenant_id = ?", t.ID).
			Select("sum(amount)").Scan(&spend).Error; err != nil {
			return nil, err
		}
		if spend != nil {
			o.TotalSpend = *spend
		}
		overviews = append(overviews, o)
	}
	return overviews, nil
}
