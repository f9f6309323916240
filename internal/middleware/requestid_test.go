package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stroomtracker/pkg/logger"
)

func TestRequestIDGenerated(t *testing.T) {
	e := echo.New()
	e.Use(RequestIDMiddleware)

	var ctxID string
	e.GET("/", func(c echo.Context) error {
		ctxID, _ = c.Get(logger.RequestIDKey).(string)
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// Generated id is on the context and echoed back in the response.
	assert.NotEmpty(t, ctxID)
	assert.Equal(t, ctxID, rec.Header().Get(logger.RequestIDKey))
}

func TestRequestIDPreserved(t *testing.T) {
	e := echo.New()
	e.Use(RequestIDMiddleware)
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(logger.RequestIDKey, "abc-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(logger.RequestIDKey))
}
