package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/snapmeal/auth-service/internal/api/metrics"
	"github.com/snapmeal/auth-service/internal/core/domain"
	"github.com/snapmeal/auth-service/internal/core/ports"
)

// RateLimit gates a route group with the fixed-window limiter under the given
// endpoint class, keyed by client IP. Backend failures follow the configured
// fail mode: open admits the request, closed rejects it with 503. Either way
// the failure is logged and counted, never swallowed.
func RateLimit(limiter ports.RateLimiter, class ports.EndpointClass, failOpen bool, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			decision, err := limiter.Check(c.Request().Context(), c.RealIP(), class)
			if err != nil {
				if failOpen {
					metrics.LimiterBackendErrorsTotal.WithLabelValues("open").Inc()
					log.Error().Err(err).Str("class", string(class)).Msg("rate limiter backend failed, admitting request")
					return next(c)
				}
				metrics.LimiterBackendErrorsTotal.WithLabelValues("closed").Inc()
				log.Error().Err(err).Str("class", string(class)).Msg("rate limiter backend failed, rejecting request")
				return domain.ErrStoreUnavailable
			}

			if !decision.Allowed {
				metrics.RateLimitedTotal.WithLabelValues(string(class)).Inc()
				return &domain.RateLimitedError{RetryAfter: decision.RetryAfter}
			}
			return next(c)
		}
	}
}
