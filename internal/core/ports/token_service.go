package ports

import (
	"context"
	"time"

	"github.com/snapmeal/auth-service/internal/core/domain"
)

// AccessClaims is the verified payload of an access token.
type AccessClaims struct {
	UserID    string
	Role      domain.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService issues and verifies the signed access/refresh token pair.
type TokenService interface {
	// Issue mints a fresh pair for the given user. Pure computation, no I/O.
	Issue(user *domain.User) (domain.TokenPair, error)

	// VerifyAccess checks signature and expiry of an access token. Failure
	// modes are the distinct sentinels domain.ErrTokenMalformed,
	// domain.ErrTokenSignature and domain.ErrTokenExpired.
	VerifyAccess(token string) (*AccessClaims, error)

	// Refresh verifies a refresh token, re-resolves the referenced user from
	// the credential store (catching role changes or deletion since issuance)
	// and mints a brand-new pair.
	Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, *domain.User, error)
}
