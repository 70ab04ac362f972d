package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/snapmeal/auth-service/internal/core/domain"
	"github.com/snapmeal/auth-service/internal/core/ports"
)

type stubUserRepo struct {
	users  map[string]*domain.User
	nextID int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) add(u *domain.User) *domain.User {
	stored := cloneUser(u)
	if stored.ID == "" {
		r.nextID++
		stored.ID = fmt.Sprintf("user-%d", r.nextID)
	}
	r.users[stored.ID] = stored
	return cloneUser(stored)
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == user.Username {
			return nil, domain.ErrUsernameTaken
		}
	}
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	return r.add(user), nil
}

func (r *stubUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := r.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

type stubRecorder struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (r *stubRecorder) Record(event domain.AuthEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *stubRecorder) kinds() []domain.AuthEventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]domain.AuthEventKind, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func newTestAuthService(repo *stubUserRepo, rec *stubRecorder) *AuthService {
	tokens := NewTokenService(repo, "secret", time.Hour, 24*time.Hour)
	return NewAuthService(repo, tokens, rec, zerolog.Nop())
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubUserRepo()
	rec := &stubRecorder{}
	svc := newTestAuthService(repo, rec)

	user, pair, err := svc.Register(context.Background(), ports.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "longenough1",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.ID == "" {
		t.Fatalf("expected assigned id")
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("expected role user, got %s", user.Role)
	}
	if user.PasswordHash == "longenough1" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("longenough1")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected token pair, got %+v", pair)
	}

	kinds := rec.kinds()
	if len(kinds) != 1 || kinds[0] != domain.EventRegistered {
		t.Fatalf("expected registered audit event, got %v", kinds)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := newTestAuthService(newStubUserRepo(), &stubRecorder{})

	_, _, err := svc.Register(context.Background(), ports.RegisterInput{Username: "alice"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestAuthService(repo, &stubRecorder{})

	if _, _, err := svc.Register(context.Background(), ports.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "longenough1",
	}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	_, _, err := svc.Register(context.Background(), ports.RegisterInput{
		Username: "alice", Email: "other@example.com", Password: "longenough1",
	})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if len(repo.users) != 1 {
		t.Fatalf("expected single record, got %d", len(repo.users))
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestAuthService(repo, &stubRecorder{})

	if _, _, err := svc.Register(context.Background(), ports.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "longenough1",
	}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	_, _, err := svc.Register(context.Background(), ports.RegisterInput{
		Username: "bob", Email: "alice@example.com", Password: "longenough1",
	})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthService_Login_ByUsernameAndEmail(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestAuthService(repo, &stubRecorder{})

	if _, _, err := svc.Register(context.Background(), ports.RegisterInput{
		Username: "carol", Email: "carol@example.com", Password: "s3cretpass",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	for _, identifier := range []string{"carol", "carol@example.com"} {
		user, pair, err := svc.Login(context.Background(), ports.LoginInput{
			Identifier: identifier, Password: "s3cretpass",
		})
		if err != nil {
			t.Fatalf("login with %q failed: %v", identifier, err)
		}
		if user.Username != "carol" {
			t.Fatalf("unexpected user: %+v", user)
		}
		if pair.AccessToken == "" {
			t.Fatalf("expected access token")
		}
	}
}

func TestAuthService_Login_FailureNonDisclosure(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestAuthService(repo, &stubRecorder{})

	if _, _, err := svc.Register(context.Background(), ports.RegisterInput{
		Username: "dave", Email: "dave@example.com", Password: "goodpass1",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, _, wrongPass := svc.Login(context.Background(), ports.LoginInput{Identifier: "dave", Password: "badpass"})
	_, _, unknown := svc.Login(context.Background(), ports.LoginInput{Identifier: "ghost", Password: "badpass"})

	if !errors.Is(wrongPass, domain.ErrInvalidCredentials) || !errors.Is(unknown, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", wrongPass, unknown)
	}
	if wrongPass.Error() != unknown.Error() {
		t.Fatalf("failure messages differ: %q vs %q", wrongPass, unknown)
	}
}

func TestAuthService_Login_FailureAudited(t *testing.T) {
	repo := newStubUserRepo()
	rec := &stubRecorder{}
	svc := newTestAuthService(repo, rec)

	_, _, _ = svc.Login(context.Background(), ports.LoginInput{Identifier: "ghost", Password: "nope", ClientIP: "203.0.113.9"})

	kinds := rec.kinds()
	if len(kinds) != 1 || kinds[0] != domain.EventLoginFailed {
		t.Fatalf("expected login_failed audit event, got %v", kinds)
	}
}

func TestAuthService_Refresh(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestAuthService(repo, &stubRecorder{})

	_, pair, err := svc.Register(context.Background(), ports.RegisterInput{
		Username: "erin", Email: "erin@example.com", Password: "longenough1",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	newPair, err := svc.Refresh(context.Background(), pair.RefreshToken, "203.0.113.9")
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if newPair.AccessToken == "" || newPair.RefreshToken == "" {
		t.Fatalf("expected new pair, got %+v", newPair)
	}
}

func TestAuthService_Refresh_MissingToken(t *testing.T) {
	svc := newTestAuthService(newStubUserRepo(), &stubRecorder{})

	_, err := svc.Refresh(context.Background(), "", "203.0.113.9")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAuthService_Logout_Audited(t *testing.T) {
	repo := newStubUserRepo()
	rec := &stubRecorder{}
	svc := newTestAuthService(repo, rec)

	user := repo.add(&domain.User{Username: "frank", Email: "frank@example.com", Role: domain.RoleUser})
	svc.Logout(context.Background(), user, "203.0.113.9")

	kinds := rec.kinds()
	if len(kinds) != 1 || kinds[0] != domain.EventLogout {
		t.Fatalf("expected logout audit event, got %v", kinds)
	}
}
