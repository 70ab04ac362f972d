package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/snapmeal/auth-service/internal/api/metrics"
	"github.com/snapmeal/auth-service/internal/core/domain"
	"github.com/snapmeal/auth-service/internal/core/ports"
)

// Context keys set by Auth for downstream handlers.
const (
	CtxUser   = "user"
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// Auth validates the bearer access token and injects the resolved identity
// into the request context. The full user is re-fetched from the store so that
// authorization decisions never rely on stale claims (a role change after
// issuance takes effect immediately).
func Auth(tokens ports.TokenService, users ports.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				metrics.TokenVerificationsTotal.WithLabelValues("missing").Inc()
				return domain.ErrAuthRequired
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				metrics.TokenVerificationsTotal.WithLabelValues("missing").Inc()
				return domain.ErrAuthRequired
			}

			claims, err := tokens.VerifyAccess(parts[1])
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrTokenExpired):
					metrics.TokenVerificationsTotal.WithLabelValues("expired").Inc()
				default:
					metrics.TokenVerificationsTotal.WithLabelValues("invalid").Inc()
				}
				return err
			}

			user, err := users.GetByID(c.Request().Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					metrics.TokenVerificationsTotal.WithLabelValues("unknown_subject").Inc()
					return domain.ErrUnknownSubject
				}
				return fmt.Errorf("%w: resolve identity: %v", domain.ErrStoreUnavailable, err)
			}

			metrics.TokenVerificationsTotal.WithLabelValues("ok").Inc()
			c.Set(CtxUser, user)
			c.Set(CtxUserID, user.ID)
			c.Set(CtxRole, user.Role)

			return next(c)
		}
	}
}
