package store

import (
	"context"
	"errors"
	"time"

	"stroomtracker/internal/model"
)

// Typed failures the handlers translate into HTTP responses. Every mutating
// operation either succeeds or returns one of these (or the underlying
// storage error); writes are never partially applied.
var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrAlreadyMember   = errors.New("user already belongs to a tenant")
	ErrInviteNotFound  = errors.New("invite code not found")
	ErrInviteInactive  = errors.New("invite code is inactive")
	ErrInviteExpired   = errors.New("invite code has expired")
	ErrInviteExhausted = errors.New("invite code has no uses remaining")
)

// TenantOverview is a cross-tenant aggregate row for super-admin reporting.
type TenantOverview struct {
	TenantID           uint    `json:"tenant_id"`
	Name               string  `json:"name"`
	SubscriptionStatus string  `json:"subscription_status"`
	MemberCount        int64   `json:"member_count"`
	VoucherCount       int64   `json:"voucher_count"`
	ReadingCount       int64   `json:"reading_count"`
	TotalSpend         float64 `json:"total_spend"`
}

// Store is the persistence boundary of the tenant-isolation core. Tenant id
// is the sole filter predicate for voucher/reading access; user ids are only
// ever recorded as row authors.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id uint) (*model.User, error)

	// Tenants and memberships. CreateTenantWithAdmin inserts the tenant and
	// its first admin membership as one atomic unit.
	CreateTenantWithAdmin(ctx context.Context, tenant *model.Tenant, userID uint) error
	MembershipForUser(ctx context.Context, userID uint) (*model.TenantUser, error)
	TenantByID(ctx context.Context, id uint) (*model.Tenant, error)
	MembersOfTenant(ctx context.Context, tenantID uint) ([]model.TenantUser, error)

	// Invites. RedeemInvite validates (exists/active, not expired, uses
	// remaining, candidate not already a member) and then inserts the
	// membership and increments current_uses as one atomic unit.
	CreateInvite(ctx context.Context, invite *model.InviteCode) error
	InvitesForTenant(ctx context.Context, tenantID uint) ([]model.InviteCode, error)
	RedeemInvite(ctx context.Context, code string, userID uint) (*model.TenantUser, error)

	// Vouchers
	CreateVoucher(ctx context.Context, voucher *model.Voucher) error
	VouchersForTenant(ctx context.Context, tenantID uint, month *time.Time) ([]model.Voucher, error)
	DeleteVoucher(ctx context.Context, tenantID, voucherID uint) error

	// Readings
	CreateReading(ctx context.Context, reading *model.Reading) error
	ReadingsForTenant(ctx context.Context, tenantID uint, month *time.Time) ([]model.Reading, error)
	DeleteReading(ctx context.Context, tenantID, readingID uint) error

	// Reporting
	TenantOverviews(ctx context.Context) ([]TenantOverview, error)
}
