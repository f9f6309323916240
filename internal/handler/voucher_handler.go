package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"stroomtracker/internal/middleware"
	"stroomtracker/internal/model"
	"stroomtracker/internal/store"
	"stroomtracker/pkg/logger"
	"stroomtracker/prometheus"
)

type createVoucherRequest struct {
	Token        string  `json:"token"`
	PurchaseDate string  `json:"purchase_date" validate:"required"`
	Amount       float64 `json:"amount" validate:"required,gt=0"`
	KWH          float64 `json:"kwh" validate:"required,gt=0"`
	VAT          float64 `json:"vat" validate:"gte=0"`
	Notes        string  `json:"notes"`
}

// CreateVoucher records a prepaid electricity purchase for the caller's
// tenant. The row carries the resolved tenant id and the caller as author.
func (h *Handler) CreateVoucher(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordDataOperation("voucher", "create")

	tc, ok := middleware.TenantFromContext(c)
	if !ok || tc.TenantID == nil {
		prometheus.RecordAuthError("no_tenant_access")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no tenant access"})
	}
	userID, _ := middleware.UserIDFromContext(c)

	var req createVoucherRequest
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		log.Warn("Voucher validation failed", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount and kwh must be positive and purchase_date is required"})
	}

	purchaseDate, err := parseDate(req.PurchaseDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid purchase_date, expected YYYY-MM-DD"})
	}

	voucher := model.Voucher{
		UserID:       userID,
		TenantID:     tc.TenantID,
		Token:        req.Token,
		PurchaseDate: purchaseDate,
		Amount:       req.Amount,
		KWH:          req.KWH,
		VAT:          req.VAT,
		Notes:        req.Notes,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.store.CreateVoucher(c.Request().Context(), &voucher); err != nil {
		log.Error("Failed to create voucher", zap.Error(err))
		prometheus.RecordTenantError(*tc.TenantID, "voucher_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "voucher creation failed"})
	}

	log.Info("Voucher created",
		zap.Uint("id", voucher.ID),
		zap.Uint("tenant_id", *tc.TenantID),
		zap.Float64("amount", voucher.Amount))

	return c.JSON(http.StatusCreated, echo.Map{"id": voucher.ID})
}

// ListVouchers lists the tenant's vouchers, newest purchase first, optionally
// narrowed to one month.
func (h *Handler) ListVouchers(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordDataOperation("voucher", "list")

	tc, ok := middleware.TenantFromContext(c)
	if !ok || tc.TenantID == nil {
		prometheus.RecordAuthError("no_tenant_access")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no tenant access"})
	}

	month, err := parseMonth(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid month, expected YYYY-MM"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	vouchers, err := h.store.VouchersForTenant(c.Request().Context(), *tc.TenantID, month)
	if err != nil {
		log.Error("Failed to list vouchers", zap.Error(err))
		prometheus.RecordTenantError(*tc.TenantID, "voucher_list_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list vouchers"})
	}

	return c.JSON(http.StatusOK, vouchers)
}

// DeleteVoucher deletes one of the tenant's vouchers. Any member may delete
// any voucher in their tenant; rows in other tenants look like missing rows.
func (h *Handler) DeleteVoucher(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordDataOperation("voucher", "delete")

	tc, ok := middleware.TenantFromContext(c)
	if !ok || tc.TenantID == nil {
		prometheus.RecordAuthError("no_tenant_access")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no tenant access"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid voucher ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.store.DeleteVoucher(c.Request().Context(), *tc.TenantID, uint(id)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "voucher not found"})
		}
		log.Error("Failed to delete voucher", zap.Error(err))
		prometheus.RecordTenantError(*tc.TenantID, "voucher_delete_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete voucher"})
	}

	log.Info("Voucher deleted", zap.Uint64("id", id), zap.Uint("tenant_id", *tc.TenantID))
	return c.JSON(http.StatusOK, echo.Map{"deleted_id": id})
}
