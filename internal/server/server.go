package server

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"stroomtracker/internal/handler"
	"stroomtracker/internal/middleware"
	"stroomtracker/internal/store"
	"stroomtracker/pkg/config"
	"stroomtracker/pkg/jwtutil"
	"stroomtracker/pkg/logger"
	"stroomtracker/prometheus"
)

// payloadValidator adapts go-playground/validator to echo's Validator.
type payloadValidator struct {
	validate *validator.Validate
}

func (v *payloadValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// New builds the fully wired echo application. Tests drive the same wiring
// with an in-memory store.
func New(cfg *config.Config, s store.Store, jwt *jwtutil.JWTUtil, log *zap.Logger) *echo.Echo {
	h := handler.New(s, jwt, cfg)

	e := echo.New()
	e.HideBanner = true
	e.Validator = &payloadValidator{validate: validator.New()}

	// Global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", h.HealthCheck)
	e.GET("/metrics", h.Metrics)

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.Auth(jwt))

	// Invite redemption only needs identity; the caller has no tenant yet.
	api.POST("/invites/redeem", h.RedeemInvite)

	// Tenant-scoped routes - the resolver runs on every request here and
	// binds it to exactly one tenant.
	tenantAPI := api.Group("")
	tenantAPI.Use(middleware.RequireTenant(s))

	tenantAPI.POST("/invites", h.CreateInvite)
	tenantAPI.GET("/invites", h.ListInvites)

	tenantAPI.GET("/tenant", h.GetTenant)

	tenantAPI.POST("/vouchers", h.CreateVoucher)
	tenantAPI.GET("/vouchers", h.ListVouchers)
	tenantAPI.DELETE("/vouchers/:id", h.DeleteVoucher)

	tenantAPI.POST("/readings", h.CreateReading)
	tenantAPI.GET("/readings", h.ListReadings)
	tenantAPI.DELETE("/readings/:id", h.DeleteReading)

	tenantAPI.GET("/transactions", h.Transactions)
	tenantAPI.GET("/dashboard", h.Dashboard)
	tenantAPI.GET("/export", h.Export)

	// Cross-tenant reporting - super admin only, read only.
	adminAPI := api.Group("/admin")
	adminAPI.Use(middleware.RequireSuperAdmin(s))
	adminAPI.GET("/tenants", h.AdminTenantOverview)

	return e
}
