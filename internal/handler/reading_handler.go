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

type createReadingRequest struct {
	Value       *float64 `json:"value" validate:"required,gte=0"`
	ReadingDate string   `json:"reading_date" validate:"required"`
	Notes       string   `json:"notes"`
}

// CreateReading records a meter reading for the caller's tenant. A zero
// reading is valid (fresh meter), so the value is a pointer to distinguish
// absent from zero.
func (h *Handler) CreateReading(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordDataOperation("reading", "create")

	tc, ok := middleware.TenantFromContext(c)
	if !ok || tc.TenantID == nil {
		prometheus.RecordAuthError("no_tenant_access")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no tenant access"})
	}
	userID, _ := middleware.UserIDFromContext(c)

	var req createReadingRequest
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		log.Warn("Reading validation failed", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "value must be non-negative and reading_date is required"})
	}

	readingDate, err := parseDate(req.ReadingDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reading_date, expected YYYY-MM-DD"})
	}

	reading := model.Reading{
		UserID:      userID,
		TenantID:    tc.TenantID,
		Value:       *req.Value,
		ReadingDate: readingDate,
		Notes:       req.Notes,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.store.CreateReading(c.Request().Context(), &reading); err != nil {
		log.Error("Failed to create reading", zap.Error(err))
		prometheus.RecordTenantError(*tc.TenantID, "reading_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reading creation failed"})
	}

	log.Info("Reading created",
		zap.Uint("id", reading.ID),
		zap.Uint("tenant_id", *tc.TenantID),
		zap.Float64("value", reading.Value))

	return c.JSON(http.StatusCreated, echo.Map{"id": reading.ID})
}

// ListReadings lists the tenant's readings, newest first, optionally
// narrowed to one month.
func (h *Handler) ListReadings(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordDataOperation("reading", "list")

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
	readings, err := h.store.ReadingsForTenant(c.Request().Context(), *tc.TenantID, month)
	if err != nil {
		log.Error("Failed to list readings", zap.Error(err))
		prometheus.RecordTenantError(*tc.TenantID, "reading_list_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list readings"})
	}

	return c.JSON(http.StatusOK, readings)
}

// DeleteReading deletes one of the tenant's readings.
func (h *Handler) DeleteReading(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordDataOperation("reading", "delete")

	tc, ok := middleware.TenantFromContext(c)
	if !ok || tc.TenantID == nil {
		prometheus.RecordAuthError("no_tenant_access")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no tenant access"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reading ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.store.DeleteReading(c.Request().Context(), *tc.TenantID, uint(id)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reading not found"})
		}
		log.Error("Failed to delete reading", zap.Error(err))
		prometheus.RecordTenantError(*tc.TenantID, "reading_delete_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete reading"})
	}

	log.Info("Reading deleted", zap.Uint64("id", id), zap.Uint("tenant_id", *tc.TenantID))
	return c.JSON(http.StatusOK, echo.Map{"deleted_id": id})
}
