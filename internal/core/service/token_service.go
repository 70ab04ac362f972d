package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/snapmeal/auth-service/internal/core/domain"
	"github.com/snapmeal/auth-service/internal/core/ports"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenService issues and verifies HS256-signed access/refresh token pairs.
//
// Tokens are purely self-verifying: there is no server-side revocation list,
// so logout cannot invalidate a live access token and a rotated-out refresh
// token stays usable until its natural expiry. Accepted gap, not an oversight.
type TokenService struct {
	users      ports.UserRepository
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(users ports.UserRepository, secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	return &TokenService{
		users:      users,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Issue mints an access/refresh pair for the user.
func (s *TokenService) Issue(user *domain.User) (domain.TokenPair, error) {
	now := time.Now().UTC()

	access, err := s.sign(jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role.String(),
		"typ":  tokenTypeAccess,
		"iat":  now.Unix(),
		"exp":  now.Add(s.accessTTL).Unix(),
	})
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	jti, err := tokenID()
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("generate token id: %w", err)
	}
	refresh, err := s.sign(jwt.MapClaims{
		"sub": user.ID,
		"jti": jti,
		"typ": tokenTypeRefresh,
		"iat": now.Unix(),
		"exp": now.Add(s.refreshTTL).Unix(),
	})
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// VerifyAccess checks signature and expiry and returns the decoded claims.
func (s *TokenService) VerifyAccess(token string) (*ports.AccessClaims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if typ, _ := claims["typ"].(string); typ == tokenTypeRefresh {
		// A refresh token is structurally identical; never accept it as a
		// bearer credential.
		return nil, domain.ErrTokenMalformed
	}

	sub, ok := subjectClaim(claims)
	if !ok {
		return nil, domain.ErrTokenMalformed
	}
	roleStr, _ := claims["role"].(string)
	role, ok := domain.ParseRole(roleStr)
	if !ok {
		return nil, domain.ErrTokenMalformed
	}

	out := &ports.AccessClaims{UserID: sub, Role: role}
	if iat, ok := claims["iat"].(float64); ok {
		out.IssuedAt = time.Unix(int64(iat), 0).UTC()
	}
	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0).UTC()
	}
	return out, nil
}

// Refresh verifies a refresh token, re-resolves the subject from the store and
// issues a brand-new pair. Re-resolution catches role changes and deleted
// accounts since issuance.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, *domain.User, error) {
	claims, err := s.parse(refreshToken)
	if err != nil {
		return domain.TokenPair{}, nil, err
	}
	if typ, _ := claims["typ"].(string); typ != tokenTypeRefresh {
		return domain.TokenPair{}, nil, domain.ErrNotRefreshToken
	}
	sub, ok := subjectClaim(claims)
	if !ok {
		return domain.TokenPair{}, nil, domain.ErrTokenMalformed
	}

	user, err := s.users.GetByID(ctx, sub)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.TokenPair{}, nil, domain.ErrUnknownSubject
		}
		return domain.TokenPair{}, nil, fmt.Errorf("%w: resolve subject: %v", domain.ErrStoreUnavailable, err)
	}

	pair, err := s.Issue(user)
	if err != nil {
		return domain.TokenPair{}, nil, err
	}
	return pair, user, nil
}

// parse decodes and validates a token, pinning the signing algorithm to HS256
// and mapping library failures onto the domain taxonomy.
func (s *TokenService) parse(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	})
	switch {
	case err == nil && tkn.Valid:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, domain.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, domain.ErrTokenSignature
	default:
		return nil, domain.ErrTokenMalformed
	}
}

// subjectClaim returns the canonical subject identifier. The canonical claim
// is "sub"; "user_id" is a read-only compatibility shim for tokens minted by
// the pre-rewrite issuer and is never written by this service.
func subjectClaim(claims jwt.MapClaims) (string, bool) {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub, true
	}
	if legacy, ok := claims["user_id"].(string); ok && legacy != "" {
		return legacy, true
	}
	return "", false
}

func (s *TokenService) sign(claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// tokenID returns a random 128-bit identifier for refresh tokens.
func tokenID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
