// Package migration performs the one-time transformation from the legacy
// single-user schema to the multi-tenant schema: every pre-existing user
// gets a tenant and an admin membership, and their voucher/reading rows are
// backfilled with the new tenant id. The whole procedure is idempotent.
package migration

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"stroomtracker/internal/model"
)

// Result reports what one user's migration changed.
type Result struct {
	TenantID           uint
	VouchersBackfilled int64
	ReadingsBackfilled int64
}

// Summary reports what a whole run changed. A second run over migrated data
// yields the zero Summary.
type Summary struct {
	TenantsCreated     int
	VouchersBackfilled int64
	ReadingsBackfilled int64
}

// Store is the narrow persistence surface the runner needs. MigrateUser must
// apply the tenant insert, the admin membership insert, and both backfills
// as one atomic unit.
type Store interface {
	// EnsureSchema creates the tenant/membership/invite tables if absent
	// and adds the nullable tenant_id columns to the legacy tables,
	// introspecting current schema state first. Safe to run repeatedly.
	EnsureSchema(ctx context.Context) error

	// UsersWithoutMembership returns users with no tenant linkage. Users
	// carrying the super-admin marker are excluded: they intentionally hold
	// no membership.
	UsersWithoutMembership(ctx context.Context) ([]model.User, error)

	MigrateUser(ctx context.Context, user model.User, tenantName string) (Result, error)
}

// Runner drives the migration.
type Runner struct {
	store Store
	log   *zap.Logger
}

func NewRunner(s Store, log *zap.Logger) *Runner {
	return &Runner{store: s, log: log}
}

// Run migrates every unmigrated user. Any failure aborts the run with the
// error so the operator can restore the pre-migration snapshot; the per-user
// transaction in the store guarantees no user is left half-migrated.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	if err := r.store.EnsureSchema(ctx); err != nil {
		return summary, fmt.Errorf("schema preparation failed: %w", err)
	}

	users, err := r.store.UsersWithoutMembership(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list unmigrated users: %w", err)
	}
	if len(users) == 0 {
		r.log.Info("No unmigrated users found, nothing to do")
		return summary, nil
	}

	for _, user := range users {
		res, err := r.store.MigrateUser(ctx, user, model.TenantNameForEmail(user.Email))
		if err != nil {
			return summary, fmt.Errorf("migration failed for user %d: %w", user.ID, err)
		}

		r.log.Info("Migrated user",
			zap.Uint("user_id", user.ID),
			zap.String("email", user.Email),
			zap.Uint("tenant_id", res.TenantID),
			zap.Int64("vouchers_backfilled", res.VouchersBackfilled),
			zap.Int64("readings_backfilled", res.ReadingsBackfilled))

		summary.TenantsCreated++
		summary.VouchersBackfilled += res.VouchersBackfilled
		summary.ReadingsBackfilled += res.ReadingsBackfilled
	}

	return summary, nil
}
