package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/snapmeal/auth-service/internal/api/metrics"
	"github.com/snapmeal/auth-service/internal/core/domain"
	"github.com/snapmeal/auth-service/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a new user account and returns it with a token pair.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return domain.ValidationError("invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return domain.ValidationError(err.Error())
	}

	user, pair, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		ClientIP:  c.RealIP(),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUsernameTaken), errors.Is(err, domain.ErrEmailTaken):
			metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
		case errors.Is(err, domain.ErrValidation):
			metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		default:
			metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues("ok").Inc()
	return c.JSON(http.StatusCreated, authResponse{User: user, Tokens: &pair})
}

// Login authenticates a user and returns a token pair.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	started := time.Now()

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return domain.ValidationError("invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return domain.ValidationError(err.Error())
	}
	if req.identifier() == "" {
		return domain.ValidationError("username or email is required")
	}

	user, pair, err := h.authService.Login(c.Request().Context(), ports.LoginInput{
		Identifier: req.identifier(),
		Password:   req.Password,
		ClientIP:   c.RealIP(),
	})
	if err != nil {
		result := "error"
		if errors.Is(err, domain.ErrInvalidCredentials) {
			result = "invalid_credentials"
		}
		metrics.LoginsTotal.WithLabelValues(result).Inc()
		metrics.LoginDuration.WithLabelValues(result).Observe(time.Since(started).Seconds())
		return err
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	metrics.LoginDuration.WithLabelValues("ok").Observe(time.Since(started).Seconds())
	return c.JSON(http.StatusOK, authResponse{User: user, Tokens: &pair})
}

// Refresh exchanges a refresh token for a new token pair.
//
// @Summary      Refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return domain.ValidationError("invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return domain.ValidationError(err.Error())
	}

	pair, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken, c.RealIP())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenExpired):
			metrics.TokenRefreshesTotal.WithLabelValues("expired").Inc()
		case errors.Is(err, domain.ErrValidation):
			metrics.TokenRefreshesTotal.WithLabelValues("invalid").Inc()
		case errors.Is(err, domain.ErrStoreUnavailable):
			metrics.TokenRefreshesTotal.WithLabelValues("error").Inc()
		default:
			metrics.TokenRefreshesTotal.WithLabelValues("invalid").Inc()
		}
		return err
	}

	metrics.TokenRefreshesTotal.WithLabelValues("ok").Inc()
	return c.JSON(http.StatusOK, authResponse{Tokens: &pair})
}

// Me returns the authenticated user's profile.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: user})
}

// Logout acknowledges a client-side token discard. Tokens are self-verifying
// and not server-tracked, so nothing is invalidated here.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	h.authService.Logout(c.Request().Context(), user, c.RealIP())
	return c.JSON(http.StatusOK, map[string]string{"status": "logged out"})
}
