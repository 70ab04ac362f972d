package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/snapmeal/auth-service/internal/core/domain"
)

// RequireRole gates a route on the resolved identity's role. Must run after
// Auth; a missing identity is treated as unauthenticated, a role mismatch as
// forbidden.
func RequireRole(required domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(domain.Role)
			if !ok {
				return domain.ErrAuthRequired
			}
			if !role.Can(required) {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
