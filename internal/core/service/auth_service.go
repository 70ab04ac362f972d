package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/snapmeal/auth-service/internal/core/domain"
	"github.com/snapmeal/auth-service/internal/core/ports"
)

// AuthService orchestrates register, login, refresh and logout on top of the
// credential store and the token service.
type AuthService struct {
	users  ports.UserRepository
	tokens ports.TokenService
	audit  ports.AuditRecorder
	logger zerolog.Logger
}

func NewAuthService(users ports.UserRepository, tokens ports.TokenService, audit ports.AuditRecorder, logger zerolog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, audit: audit, logger: logger}
}

// Register creates a new account and returns it with a fresh token pair.
// Username and email collisions are reported distinctly.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, domain.TokenPair, error) {
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, domain.TokenPair{}, domain.ValidationError("username, email and password are required")
	}

	if _, err := s.users.GetByUsername(ctx, in.Username); err == nil {
		return nil, domain.TokenPair{}, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.TokenPair{}, fmt.Errorf("%w: username lookup: %v", domain.ErrStoreUnavailable, err)
	}
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, domain.TokenPair{}, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.TokenPair{}, fmt.Errorf("%w: email lookup: %v", domain.ErrStoreUnavailable, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.TokenPair{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		// The repository maps duplicate-key failures itself; anything else is
		// a store outage.
		if errors.Is(err, domain.ErrUsernameTaken) || errors.Is(err, domain.ErrEmailTaken) {
			return nil, domain.TokenPair{}, err
		}
		return nil, domain.TokenPair{}, fmt.Errorf("%w: create user: %v", domain.ErrStoreUnavailable, err)
	}

	pair, err := s.tokens.Issue(created)
	if err != nil {
		return nil, domain.TokenPair{}, fmt.Errorf("%w: issue tokens: %v", domain.ErrStoreUnavailable, err)
	}

	s.logger.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("user registered")
	s.record(domain.AuthEvent{Subject: created.ID, Kind: domain.EventRegistered, ClientIP: in.ClientIP, At: now})

	return created, pair, nil
}

// Login verifies credentials and issues a token pair. The identifier is tried
// as a username first, then as an email. Unknown identifier and wrong password
// produce the identical opaque failure.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*domain.User, domain.TokenPair, error) {
	if in.Identifier == "" || in.Password == "" {
		return nil, domain.TokenPair{}, domain.ErrInvalidCredentials
	}

	user, err := s.lookup(ctx, in.Identifier)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Burn a comparable amount of time so unknown identifiers are not
			// distinguishable from wrong passwords by latency.
			_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000uGZv3cuXDC7rIglhmbqIK0f4Ew/mO5G"), []byte(in.Password))
			s.recordFailure(in)
			return nil, domain.TokenPair{}, domain.ErrInvalidCredentials
		}
		return nil, domain.TokenPair{}, fmt.Errorf("%w: user lookup: %v", domain.ErrStoreUnavailable, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		s.recordFailure(in)
		return nil, domain.TokenPair{}, domain.ErrInvalidCredentials
	}

	pair, err := s.tokens.Issue(user)
	if err != nil {
		return nil, domain.TokenPair{}, fmt.Errorf("%w: issue tokens: %v", domain.ErrStoreUnavailable, err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("login succeeded")
	s.record(domain.AuthEvent{Subject: user.ID, Kind: domain.EventLoginOK, ClientIP: in.ClientIP, At: time.Now().UTC()})

	return user, pair, nil
}

// Refresh exchanges a refresh token for a brand-new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, clientIP string) (domain.TokenPair, error) {
	if refreshToken == "" {
		return domain.TokenPair{}, domain.ValidationError("refresh token is required")
	}

	pair, user, err := s.tokens.Refresh(ctx, refreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}

	s.record(domain.AuthEvent{Subject: user.ID, Kind: domain.EventTokenRefresh, ClientIP: clientIP, At: time.Now().UTC()})
	return pair, nil
}

// Logout acknowledges a client-side token discard. No server state changes:
// tokens stay valid until expiry.
func (s *AuthService) Logout(ctx context.Context, user *domain.User, clientIP string) {
	s.record(domain.AuthEvent{Subject: user.ID, Kind: domain.EventLogout, ClientIP: clientIP, At: time.Now().UTC()})
}

// lookup applies the canonical identifier policy: username first, then email.
func (s *AuthService) lookup(ctx context.Context, identifier string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, identifier)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	return s.users.GetByEmail(ctx, identifier)
}

func (s *AuthService) record(event domain.AuthEvent) {
	if s.audit != nil {
		s.audit.Record(event)
	}
}

func (s *AuthService) recordFailure(in ports.LoginInput) {
	s.logger.Warn().Str("identifier", in.Identifier).Str("client_ip", in.ClientIP).Msg("login failed")
	s.record(domain.AuthEvent{Identifier: in.Identifier, Kind: domain.EventLoginFailed, ClientIP: in.ClientIP, At: time.Now().UTC()})
}
