package ports

import (
	"context"

	"github.com/snapmeal/auth-service/internal/core/domain"
)

// RegisterInput carries the validated registration payload into the service.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	ClientIP  string
}

// LoginInput carries the login payload. Identifier may be a username or an
// email address; lookup policy is username first, email fallback.
type LoginInput struct {
	Identifier string
	Password   string
	ClientIP   string
}

// AuthService orchestrates the register/login/refresh/logout flows.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, domain.TokenPair, error)
	Login(ctx context.Context, in LoginInput) (*domain.User, domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken, clientIP string) (domain.TokenPair, error)

	// Logout is a stateless acknowledgement: tokens are self-verifying and not
	// server-tracked, so nothing is invalidated. The call exists so clients
	// have an attributable discard point and the audit trail records it.
	Logout(ctx context.Context, user *domain.User, clientIP string)
}
