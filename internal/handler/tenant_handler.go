package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"stroomtracker/internal/middleware"
	"stroomtracker/internal/model"
	"stroomtracker/pkg/logger"
	"stroomtracker/prometheus"
)

type memberResponse struct {
	UserID   uint       `json:"user_id"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}

// GetTenant returns the caller's tenant together with its member list.
func (h *Handler) GetTenant(c echo.Context) error {
	log := logger.FromContext(c)

	tc, ok := middleware.TenantFromContext(c)
	if !ok || tc.TenantID == nil {
		prometheus.RecordAuthError("no_tenant_access")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no tenant access"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	tenant, err := h.store.TenantByID(c.Request().Context(), *tc.TenantID)
	if err != nil {
		log.Error("Failed to load tenant", zap.Error(err))
		prometheus.RecordTenantError(*tc.TenantID, "tenant_load_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load tenant"})
	}

	members, err := h.store.MembersOfTenant(c.Request().Context(), *tc.TenantID)
	if err != nil {
		log.Error("Failed to load tenant members", zap.Error(err))
		prometheus.RecordTenantError(*tc.TenantID, "member_list_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load members"})
	}

	resp := make([]memberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, memberResponse{
			UserID:   m.UserID,
			Email:    m.User.Email,
			Role:     m.Role,
			JoinedAt: m.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"tenant":  tenant,
		"members": resp,
	})
}

// AdminTenantOverview returns per-tenant aggregates across all tenants. It
// is the only endpoint that accepts the super-admin sentinel context, and it
// is read-only.
func (h *Handler) AdminTenantOverview(c echo.Context) error {
	log := logger.FromContext(c)

	tc, ok := middleware.TenantFromContext(c)
	if !ok || !tc.IsSuperAdmin() {
		prometheus.RecordAuthError("not_super_admin")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "super admin role required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	overviews, err := h.store.TenantOverviews(c.Request().Context())
	if err != nil {
		log.Error("Failed to build tenant overview", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to build overview"})
	}

	return c.JSON(http.StatusOK, echo.Map{"tenants": overviews})
}
