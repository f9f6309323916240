package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"stroomtracker/internal/model"
	"stroomtracker/internal/store"
	"stroomtracker/pkg/logger"
	"stroomtracker/prometheus"
)

const tenantContextKey = "tenant_context"

// TenantContext is the resolved tenancy of one request. It is built once per
// request from the membership row and never mutated afterwards; handlers
// receive it as a value. A nil TenantID with role super_admin is the
// sentinel context for tenant-less super admins.
type TenantContext struct {
	TenantID           *uint      `json:"tenant_id"`
	TenantName         string     `json:"tenant_name"`
	Role               model.Role `json:"role"`
	SubscriptionStatus string     `json:"subscription_status"`
}

// IsSuperAdmin reports whether this is the tenant-less super-admin sentinel.
func (tc TenantContext) IsSuperAdmin() bool {
	return tc.TenantID == nil && tc.Role == model.RoleSuperAdmin
}

// TenantFromContext returns the resolved tenant context for the request.
func TenantFromContext(c echo.Context) (TenantContext, bool) {
	tc, ok := c.Get(tenantContextKey).(TenantContext)
	return tc, ok
}

// resolve loads the caller's single membership row and builds the tenant
// context. Users without a membership resolve to the super-admin sentinel if
// they carry the marker, and are rejected otherwise; there is no fallback to
// any default tenant.
func resolve(c echo.Context, s store.Store) (TenantContext, error) {
	userID, ok := UserIDFromContext(c)
	if !ok {
		return TenantContext{}, errors.New("user id missing from context")
	}

	membership, err := s.MembershipForUser(c.Request().Context(), userID)
	if err == nil {
		tenantID := membership.TenantID
		return TenantContext{
			TenantID:           &tenantID,
			TenantName:         membership.Tenant.Name,
			Role:               membership.Role,
			SubscriptionStatus: membership.Tenant.SubscriptionStatus,
		}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return TenantContext{}, err
	}

	user, err := s.UserByID(c.Request().Context(), userID)
	if err != nil {
		return TenantContext{}, err
	}
	if user.IsSuperAdmin {
		return TenantContext{Role: model.RoleSuperAdmin}, nil
	}

	return TenantContext{}, store.ErrNotFound
}

// RequireTenant resolves the caller's tenant context and rejects any request
// without exactly one tenant. Every voucher/reading/export/tenant endpoint
// runs behind this; the super-admin sentinel does not pass.
func RequireTenant(s store.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			tc, err := resolve(c, s)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					log.Warn("Request without tenant access rejected")
					prometheus.RecordAuthError("no_tenant_access")
					return c.JSON(http.StatusForbidden, echo.Map{"error": "no tenant access"})
				}
				log.Error("Failed to resolve tenant context", zap.Error(err))
				prometheus.RecordAuthError("db_error")
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to resolve tenant"})
			}

			if tc.TenantID == nil {
				// Super admins read cross-tenant reports only, never a
				// single tenant's data.
				log.Warn("Super admin rejected from tenant-scoped endpoint")
				prometheus.RecordAuthError("no_tenant_access")
				return c.JSON(http.StatusForbidden, echo.Map{"error": "no tenant access"})
			}

			c.Set(tenantContextKey, tc)
			return next(c)
		}
	}
}

// RequireSuperAdmin admits only the tenant-less super-admin sentinel.
func RequireSuperAdmin(s store.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			tc, err := resolve(c, s)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				log.Error("Failed to resolve tenant context", zap.Error(err))
				prometheus.RecordAuthError("db_error")
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to resolve tenant"})
			}
			if err != nil || !tc.IsSuperAdmin() {
				log.Warn("Non super admin rejected from admin endpoint")
				prometheus.RecordAuthError("not_super_admin")
				return c.JSON(http.StatusForbidden, echo.Map{"error": "super admin role required"})
			}

			c.Set(tenantContextKey, tc)
			return next(c)
		}
	}
}
