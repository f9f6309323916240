package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"stroomtracker/internal/middleware"
	"stroomtracker/internal/model"
	"stroomtracker/pkg/logger"
	"stroomtracker/prometheus"
)

type exportSummary struct {
	VoucherCount int     `json:"voucher_count"`
	ReadingCount int     `json:"reading_count"`
	TotalSpend   float64 `json:"total_spend"`
	TotalKWH     float64 `json:"total_kwh"`
}

func summarize(vouchers []model.Voucher, readings []model.Reading) exportSummary {
	s := exportSummary{
		VoucherCount: len(vouchers),
		ReadingCount: len(readings),
	}
	for _, v := range vouchers {
		s.TotalSpend += v.Amount
		s.TotalKWH += v.KWH
	}
	return s
}

// Export returns the full dump of the caller's tenant: tenant record, every
// voucher and reading, and a derived summary. Any member may export; data
// portability does not require the admin role.
func (h *Handler) Export(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordDataOperation("voucher", "export")

	tc, ok := middleware.TenantFromContext(c)
	if !ok || tc.TenantID == nil {
		prometheus.RecordAuthError("no_tenant_access")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no tenant access"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	tenant, err := h.store.TenantByID(c.Request().Context(), *tc.TenantID)
	if err != nil {
		log.Error("Failed to load tenant for export", zap.Error(err))
		prometheus.RecordTenantError(*tc.TenantID, "export_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "export failed"})
	}

	vouchers, err := h.store.VouchersForTenant(c.Request().Context(), *tc.TenantID, nil)
	if err != nil {
		log.Error("Failed to load vouchers for export", zap.Error(err))
		prometheus.RecordTenantError(*tc.TenantID, "export_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "export failed"})
	}

	readings, err := h.store.ReadingsForTenant(c.Request().Context(), *tc.TenantID, nil)
	if err != nil {
		log.Error("Failed to load readings for export", zap.Error(err))
		prometheus.RecordTenantError(*tc.TenantID, "export_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "export failed"})
	}

	log.Info("Tenant data exported",
		zap.Uint("tenant_id", *tc.TenantID),
		zap.Int("vouchers", len(vouchers)),
		zap.Int("readings", len(readings)))

	return c.JSON(http.StatusOK, echo.Map{
		"tenant":   tenant,
		"vouchers": vouchers,
		"readings": readings,
		"summary":  summarize(vouchers, readings),
	})
}

type transaction struct {
	Type   string    `json:"type"` // "voucher" or "reading"
	ID     uint      `json:"id"`
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount,omitempty"`
	KWH    float64   `json:"kwh,omitempty"`
	Value  float64   `json:"value,omitempty"`
	Notes  string    `json:"notes,omitempty"`
	UserID uint      `json:"user_id"`
}

// Transactions returns the merged voucher and reading history for the
// tenant, newest first, optionally narrowed to one month.
func (h *Handler) Transactions(c echo.Context) error {
	log := logger.FromContext(c)

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
		log.Error("Failed to load vouchers", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load transactions"})
	}
	readings, err := h.store.ReadingsForTenant(c.Request().Context(), *tc.TenantID, month)
	if err != nil {
		log.Error("Failed to load readings", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load transactions"})
	}

	transactions := make([]transaction, 0, len(vouchers)+len(readings))
	for _, v := range vouchers {
		transactions = append(transactions, transaction{
			Type:   "voucher",
			ID:     v.ID,
			Date:   v.PurchaseDate,
			Amount: v.Amount,
			KWH:    v.KWH,
			Notes:  v.Notes,
			UserID: v.UserID,
		})
	}
	for _, r := range readings {
		transactions = append(transactions, transaction{
			Type:   "reading",
			ID:     r.ID,
			Date:   r.ReadingDate,
			Value:  r.Value,
			Notes:  r.Notes,
			UserID: r.UserID,
		})
	}
	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].Date.After(transactions[j].Date)
	})

	return c.JSON(http.StatusOK, transactions)
}

// Dashboard returns the tenant's headline numbers: lifetime totals, the
// current month's spend and energy, and the latest meter reading.
func (h *Handler) Dashboard(c echo.Context) error {
	log := logger.FromContext(c)

	tc, ok := middleware.TenantFromContext(c)
	if !ok || tc.TenantID == nil {
		prometheus.RecordAuthError("no_tenant_access")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no tenant access"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	vouchers, err := h.store.VouchersForTenant(c.Request().Context(), *tc.TenantID, nil)
	if err != nil {
		log.Error("Failed to load vouchers for dashboard", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load dashboard"})
	}
	readings, err := h.store.ReadingsForTenant(c.Request().Context(), *tc.TenantID, nil)
	if err != nil {
		log.Error("Failed to load readings for dashboard", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load dashboard"})
	}

	summary := summarize(vouchers, readings)

	// Purchase dates parse as UTC, so the month window must be UTC too.
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	var monthSpend, monthKWH float64
	for _, v := range vouchers {
		if !v.PurchaseDate.Before(monthStart) {
			monthSpend += v.Amount
			monthKWH += v.KWH
		}
	}

	resp := echo.Map{
		"tenant_name": tc.TenantName,
		"totals":      summary,
		"month_spend": monthSpend,
		"month_kwh":   monthKWH,
	}
	if len(readings) > 0 {
		// Readings come back newest first.
		resp["latest_reading"] = readings[0]
	}

	return c.JSON(http.StatusOK, resp)
}
