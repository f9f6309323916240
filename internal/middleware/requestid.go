package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"stroomtracker/pkg/logger"
)

// RequestIDMiddleware tags every request with an X-Request-ID, generating
// one when the caller did not send any. The id lands on the context under
// logger.RequestIDKey so log lines correlate per request.
func RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(logger.RequestIDKey)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(logger.RequestIDKey, requestID)
		c.Response().Header().Set(logger.RequestIDKey, requestID)
		return next(c)
	}
}
