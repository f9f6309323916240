package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"stroomtracker/internal/model"
	"stroomtracker/internal/store"
	"stroomtracker/pkg/logger"
	"stroomtracker/prometheus"
)

// Register creates a user and binds them to a tenant: either by redeeming a
// supplied invite code, or by creating a fresh tenant with the registrant as
// admin. An invalid/expired/exhausted invite does not block signup; it falls
// back to the fresh-tenant path, flagged in the response.
func (h *Handler) Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		Email              string `json:"email"`
		Password           string `json:"password"`
		InviteCode         string `json:"invite_code,omitempty"`
		RegistrationSecret string `json:"registration_secret,omitempty"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		prometheus.RecordAuthError("incomplete_registration")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	if len(req.Password) < h.cfg.Auth.MinPasswordLength {
		prometheus.RecordAuthError("weak_password")
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": fmt.Sprintf("password must be at least %d characters", h.cfg.Auth.MinPasswordLength),
		})
	}

	// Registration is gated: without an invite code the shared secret must
	// match. With an invite code, the code itself is the credential.
	if req.InviteCode == "" {
		if h.cfg.Auth.RegistrationSecret == "" || req.RegistrationSecret != h.cfg.Auth.RegistrationSecret {
			prometheus.RecordAuthError("missing_registration_credential")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "registration secret or invite code required"})
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cfg.Auth.BcryptCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		prometheus.RecordAuthError("password_hash_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	user := model.User{
		Email:    req.Email,
		Password: string(hashedPassword),
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.store.CreateUser(c.Request().Context(), &user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			log.Warn("Registration with existing email", zap.String("email", req.Email))
			prometheus.RecordAuthError("email_already_exists")
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		log.Error("Failed to create user", zap.Error(err))
		prometheus.RecordAuthError("user_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	var (
		tenant         model.Tenant
		role           model.Role
		inviteFallback bool
	)

	if req.InviteCode != "" {
		membership, err := h.store.RedeemInvite(c.Request().Context(), req.InviteCode, user.ID)
		switch {
		case err == nil:
			tenant = membership.Tenant
			role = membership.Role
			prometheus.RecordInviteOperation("redeem")
		case isInviteRejection(err):
			// Invite fallback: a bad code does not block signup, the
			// registrant gets a fresh tenant instead.
			log.Warn("invite fallback: creating new tenant",
				zap.String("email", req.Email),
				zap.String("reason", err.Error()))
			prometheus.RecordInviteOperation("fallback")
			inviteFallback = true
		default:
			log.Error("Failed to redeem invite", zap.Error(err))
			prometheus.RecordAuthError("invite_redeem_failed")
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
		}
	}

	if req.InviteCode == "" || inviteFallback {
		tenant = model.Tenant{Name: model.TenantNameForEmail(user.Email)}
		if err := h.store.CreateTenantWithAdmin(c.Request().Context(), &tenant, user.ID); err != nil {
			log.Error("Failed to create tenant for new user", zap.Error(err))
			prometheus.RecordAuthError("tenant_creation_failed")
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
		}
		role = model.RoleAdmin
	}

	token, err := h.jwt.GenerateToken(user.Email, user.ID)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	prometheus.IncreaseActiveTokens()

	log.Info("User registered",
		zap.String("email", user.Email),
		zap.Uint("tenant_id", tenant.ID),
		zap.String("role", string(role)),
		zap.Bool("invite_fallback", inviteFallback))

	resp := echo.Map{
		"token": token,
		"user": echo.Map{
			"id":    user.ID,
			"email": user.Email,
		},
		"tenant": echo.Map{
			"id":   tenant.ID,
			"name": tenant.Name,
			"role": role,
		},
	}
	if inviteFallback {
		resp["invite_fallback"] = true
	}
	return c.JSON(http.StatusCreated, resp)
}

// isInviteRejection reports whether the redeem failure is a property of the
// code itself, which triggers the fallback path at registration.
func isInviteRejection(err error) bool {
	return errors.Is(err, store.ErrInviteNotFound) ||
		errors.Is(err, store.ErrInviteInactive) ||
		errors.Is(err, store.ErrInviteExpired) ||
		errors.Is(err, store.ErrInviteExhausted)
}

func (h *Handler) Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	user, err := h.store.UserByEmail(c.Request().Context(), req.Email)
	if err != nil {
		log.Warn("Login for unknown email", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := h.jwt.GenerateToken(user.Email, user.ID)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	prometheus.IncreaseActiveTokens()

	resp := echo.Map{
		"token": token,
		"user": echo.Map{
			"id":    user.ID,
			"email": user.Email,
		},
	}

	// Tenant info is informational here; every data request re-resolves
	// membership from the store.
	membership, err := h.store.MembershipForUser(c.Request().Context(), user.ID)
	if err == nil {
		resp["tenant"] = echo.Map{
			"id":   membership.TenantID,
			"name": membership.Tenant.Name,
			"role": membership.Role,
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Error("Failed to load membership at login", zap.Error(err))
	}

	log.Info("User logged in", zap.String("email", user.Email))
	return c.JSON(http.StatusOK, resp)
}
