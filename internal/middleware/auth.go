package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"stroomtracker/pkg/jwtutil"
	"stroomtracker/pkg/logger"
	"stroomtracker/prometheus"
)

const (
	userIDKey = "user_id"
	emailKey  = "email"
)

// Auth validates the JWT token from the Authorization header and stores the
// caller's identity on the request context. Tenancy is not read from the
// token; RequireTenant loads it from the store afterwards.
func Auth(jwt *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Error("Missing Authorization header")
				prometheus.RecordAuthError("missing_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				log.Error("Invalid Authorization header format")
				prometheus.RecordAuthError("invalid_auth_format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
			}

			claims, err := jwt.ValidateToken(parts[1])
			if err != nil {
				log.Error("Invalid JWT token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			c.Set(userIDKey, claims.UserID)
			c.Set(emailKey, claims.Email)

			return next(c)
		}
	}
}

// UserIDFromContext returns the authenticated caller's user id.
func UserIDFromContext(c echo.Context) (uint, bool) {
	id, ok := c.Get(userIDKey).(uint)
	return id, ok
}

// EmailFromContext returns the authenticated caller's email.
func EmailFromContext(c echo.Context) (string, bool) {
	email, ok := c.Get(emailKey).(string)
	return email, ok
}
