package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleMember.Valid())
	assert.True(t, RoleSuperAdmin.Valid())
	assert.False(t, Role("owner").Valid())
	assert.False(t, Role("").Valid())
}

func TestRoleCanManageInvites(t *testing.T) {
	assert.True(t, RoleAdmin.CanManageInvites())
	assert.False(t, RoleMember.CanManageInvites())
	assert.False(t, RoleSuperAdmin.CanManageInvites())
}

func TestInviteCodeUsable(t *testing.T) {
	now := time.Now()
	base := InviteCode{
		Code:      "abcd1234",
		MaxUses:   2,
		ExpiresAt: now.Add(time.Hour),
		IsActive:  true,
	}

	assert.True(t, base.Usable(now))

	expired := base
	expired.ExpiresAt = now.Add(-time.Minute)
	assert.False(t, expired.Usable(now))

	exhausted := base
	exhausted.CurrentUses = 2
	assert.False(t, exhausted.Usable(now))

	inactive := base
	inactive.IsActive = false
	assert.False(t, inactive.Usable(now))

	// One use left is still usable.
	partial := base
	partial.CurrentUses = 1
	assert.True(t, partial.Usable(now))
}

func TestTenantNameForEmail(t *testing.T) {
	assert.Equal(t, "alice's household", TenantNameForEmail("alice@example.com"))
	assert.Equal(t, "j.doe's household", TenantNameForEmail("j.doe@mail.co.za"))
	// Degenerate inputs fall back to the whole string.
	assert.Equal(t, "noat's household", TenantNameForEmail("noat"))
	assert.Equal(t, "@host's household", TenantNameForEmail("@host"))
}
