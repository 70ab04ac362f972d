package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/snapmeal/auth-service/internal/api/middleware"
	"github.com/snapmeal/auth-service/internal/core/domain"
)

// currentUser extracts the identity injected by the Auth middleware. Its
// presence proves the middleware ran; absence on a protected route means the
// route was wired without it, which is treated as unauthenticated rather than
// panicking.
func currentUser(c echo.Context) (*domain.User, error) {
	user, ok := c.Get(middleware.CtxUser).(*domain.User)
	if !ok || user == nil {
		return nil, domain.ErrAuthRequired
	}
	return user, nil
}
