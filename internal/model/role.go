package model

// Role is the closed set of roles a user can hold. Authorization decisions
// compare against these constants, never against ad-hoc strings.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleMember     Role = "member"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleMember, RoleSuperAdmin:
		return true
	}
	return false
}

// CanManageInvites reports whether the role may create invite codes for its
// tenant. Super admins hold no tenant, so the answer is admin only.
func (r Role) CanManageInvites() bool {
	return r == RoleAdmin
}
