package handler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"stroomtracker/internal/middleware"
	"stroomtracker/internal/model"
	"stroomtracker/internal/store"
	"stroomtracker/pkg/logger"
	"stroomtracker/prometheus"
)

// generateInviteCode returns an opaque 64-bit random token, hex encoded.
func generateInviteCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// CreateInvite issues a new invite code for the caller's tenant. Admin only:
// the check runs against the resolved role, not just authentication.
func (h *Handler) CreateInvite(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInviteOperation("create")

	tc, ok := middleware.TenantFromContext(c)
	if !ok || tc.TenantID == nil {
		prometheus.RecordAuthError("no_tenant_access")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no tenant access"})
	}
	userID, _ := middleware.UserIDFromContext(c)

	if !tc.Role.CanManageInvites() {
		log.Warn("Non-admin attempted to create invite",
			zap.Uint("user_id", userID),
			zap.Uint("tenant_id", *tc.TenantID))
		prometheus.RecordTenantError(*tc.TenantID, "not_admin")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin role required"})
	}

	var req struct {
		MaxUses  int `json:"max_uses,omitempty"`
		TTLHours int `json:"ttl_hours,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	maxUses := req.MaxUses
	if maxUses <= 0 {
		maxUses = h.cfg.Invite.DefaultMaxUses
	}
	if maxUses > h.cfg.Invite.MaxUsesCap {
		maxUses = h.cfg.Invite.MaxUsesCap
	}
	ttl := h.cfg.Invite.DefaultTTL
	if req.TTLHours > 0 {
		ttl = time.Duration(req.TTLHours) * time.Hour
	}
	if ttl > h.cfg.Invite.MaxTTL {
		ttl = h.cfg.Invite.MaxTTL
	}

	code, err := generateInviteCode()
	if err != nil {
		log.Error("Failed to generate invite code", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "invite creation failed"})
	}

	invite := model.InviteCode{
		Code:      code,
		TenantID:  *tc.TenantID,
		CreatedBy: userID,
		MaxUses:   maxUses,
		ExpiresAt: time.Now().Add(ttl),
		IsActive:  true,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.store.CreateInvite(c.Request().Context(), &invite); err != nil {
		log.Error("Failed to create invite", zap.Error(err))
		prometheus.RecordTenantError(*tc.TenantID, "invite_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "invite creation failed"})
	}

	log.Info("Invite created",
		zap.Uint("tenant_id", *tc.TenantID),
		zap.Uint("created_by", userID),
		zap.Int("max_uses", invite.MaxUses))

	return c.JSON(http.StatusCreated, echo.Map{
		"code":       invite.Code,
		"expires_at": invite.ExpiresAt,
		"max_uses":   invite.MaxUses,
	})
}

// ListInvites lists the caller's tenant's invite codes. Admin only.
func (h *Handler) ListInvites(c echo.Context) error {
	log := logger.FromContext(c)

	tc, ok := middleware.TenantFromContext(c)
	if !ok || tc.TenantID == nil {
		prometheus.RecordAuthError("no_tenant_access")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no tenant access"})
	}
	if !tc.Role.CanManageInvites() {
		prometheus.RecordTenantError(*tc.TenantID, "not_admin")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin role required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	invites, err := h.store.InvitesForTenant(c.Request().Context(), *tc.TenantID)
	if err != nil {
		log.Error("Failed to list invites", zap.Error(err))
		prometheus.RecordTenantError(*tc.TenantID, "invite_list_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list invites"})
	}

	return c.JSON(http.StatusOK, invites)
}

// RedeemInvite joins the authenticated caller to the invite's tenant. The
// membership insert and the use-counter increment are one atomic unit in the
// store.
func (h *Handler) RedeemInvite(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInviteOperation("redeem")

	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		prometheus.RecordAuthError("unauthenticated")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := c.Bind(&req); err != nil || req.Code == "" {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invite code is required"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	membership, err := h.store.RedeemInvite(c.Request().Context(), req.Code, userID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInviteNotFound), errors.Is(err, store.ErrInviteInactive), errors.Is(err, store.ErrInviteExpired):
			log.Warn("Invite rejected", zap.Uint("user_id", userID), zap.String("reason", err.Error()))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired invite code"})
		case errors.Is(err, store.ErrInviteExhausted):
			log.Warn("Invite exhausted", zap.Uint("user_id", userID))
			return c.JSON(http.StatusConflict, echo.Map{"error": "invite code has no uses remaining"})
		case errors.Is(err, store.ErrAlreadyMember):
			log.Warn("Redeem by existing member", zap.Uint("user_id", userID))
			return c.JSON(http.StatusConflict, echo.Map{"error": "already a member of a tenant"})
		}
		log.Error("Failed to redeem invite", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to redeem invite"})
	}

	log.Info("Invite redeemed",
		zap.Uint("user_id", userID),
		zap.Uint("tenant_id", membership.TenantID))

	return c.JSON(http.StatusOK, echo.Map{
		"joined": true,
		"tenant": echo.Map{
			"id":   membership.TenantID,
			"name": membership.Tenant.Name,
			"role": membership.Role,
		},
	})
}
