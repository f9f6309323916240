package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"stroomtracker/internal/store"
	"stroomtracker/pkg/config"
	"stroomtracker/pkg/jwtutil"
	"stroomtracker/prometheus"
)

// Handler carries the request-scoped dependencies of all endpoints. There is
// no package-level database handle; everything reaches storage through the
// injected Store.
type Handler struct {
	store store.Store
	jwt   *jwtutil.JWTUtil
	cfg   *config.Config
}

func New(s store.Store, jwt *jwtutil.JWTUtil, cfg *config.Config) *Handler {
	return &Handler{store: s, jwt: jwt, cfg: cfg}
}

// HealthCheck handles the health check endpoint
func (h *Handler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "healthy",
		"service": "stroomtracker",
	})
}

// Metrics serves the Prometheus metrics endpoint
func (h *Handler) Metrics(c echo.Context) error {
	prometheus.GetPrometheusHandler().ServeHTTP(c.Response(), c.Request())
	return nil
}

// parseMonth reads an optional ?month=YYYY-MM query parameter and returns
// the first instant of that month.
func parseMonth(c echo.Context) (*time.Time, error) {
	raw := c.QueryParam("month")
	if raw == "" {
		return nil, nil
	}
	month, err := time.Parse("2006-01", raw)
	if err != nil {
		return nil, err
	}
	return &month, nil
}

// parseDate accepts dates either as plain days or full RFC3339 timestamps.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
