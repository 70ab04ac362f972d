package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/snapmeal/auth-service/internal/api/handler"
	"github.com/snapmeal/auth-service/internal/api/middleware"
	"github.com/snapmeal/auth-service/internal/core/domain"
	"github.com/snapmeal/auth-service/internal/core/ports"
	"github.com/snapmeal/auth-service/internal/core/service"
	"github.com/snapmeal/auth-service/internal/infrastructure/ratelimit"
)

// memRepo is an in-memory credential store for end-to-end handler tests.
type memRepo struct {
	users  map[string]*domain.User
	nextID int
}

func newMemRepo() *memRepo {
	return &memRepo{users: make(map[string]*domain.User)}
}

func (r *memRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == user.Username {
			return nil, domain.ErrUsernameTaken
		}
		if u.Email == user.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	stored := *user
	r.nextID++
	stored.ID = fmt.Sprintf("user-%d", r.nextID)
	r.users[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *memRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := r.users[id]; ok {
		out := *u
		return &out, nil
	}
	return nil, domain.ErrUserNotFound
}

// newFlowServer wires the full auth surface against in-memory collaborators,
// mirroring the production router.
func newFlowServer(t *testing.T) (*echo.Echo, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	tokens := service.NewTokenService(repo, "flow-test-secret", 15*time.Minute, 24*time.Hour)
	authService := service.NewAuthService(repo, tokens, nil, zerolog.Nop())
	limiter := ratelimit.NewMemoryLimiter(ratelimit.StrictProfile())

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(zerolog.Nop())

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(repo)
	authMW := middleware.Auth(tokens, repo)

	limitAuth := middleware.RateLimit(limiter, ports.ClassAuth, false, zerolog.Nop())
	limitRegister := middleware.RateLimit(limiter, ports.ClassRegister, false, zerolog.Nop())
	limitGeneral := middleware.RateLimit(limiter, ports.ClassGeneral, false, zerolog.Nop())

	auth := e.Group("/api/auth")
	auth.POST("/register", authHandler.Register, limitRegister)
	auth.POST("/login", authHandler.Login, limitAuth)
	auth.POST("/refresh", authHandler.Refresh, limitAuth)
	auth.GET("/me", authHandler.Me, limitGeneral, authMW)
	auth.POST("/logout", authHandler.Logout, limitGeneral, authMW)

	users := e.Group("/api/users", limitGeneral, authMW, middleware.RequireRole(domain.RoleAdmin))
	users.GET("/:id", userHandler.GetUser)

	return e, repo
}

func doRequest(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestFlow_RegisterThenMe(t *testing.T) {
	e, _ := newFlowServer(t)

	rec := doRequest(e, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"a@x.com","password":"longenough1"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	tokens, ok := body["tokens"].(map[string]any)
	if !ok {
		t.Fatalf("missing tokens: %+v", body)
	}
	access, _ := tokens["access_token"].(string)
	if access == "" {
		t.Fatalf("missing access token")
	}

	me := doRequest(e, http.MethodGet, "/api/auth/me", "", access)
	if me.Code != http.StatusOK {
		t.Fatalf("expected 200 from /me, got %d (%s)", me.Code, me.Body.String())
	}
	meBody := decodeBody(t, me)
	user, ok := meBody["user"].(map[string]any)
	if !ok || user["username"] != "alice" {
		t.Fatalf("unexpected /me payload: %+v", meBody)
	}
	if _, leaked := user["password"]; leaked {
		t.Fatalf("password present in /me payload")
	}
}

func TestFlow_DuplicateRegistration(t *testing.T) {
	e, repo := newFlowServer(t)

	first := doRequest(e, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"a@x.com","password":"longenough1"}`, "")
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", first.Code)
	}

	second := doRequest(e, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"other@x.com","password":"longenough1"}`, "")
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (%s)", second.Code, second.Body.String())
	}
	if len(repo.users) != 1 {
		t.Fatalf("duplicate registration created a second record")
	}
}

func TestFlow_LoginRateLimited(t *testing.T) {
	e, _ := newFlowServer(t)

	rec := doRequest(e, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"a@x.com","password":"longenough1"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d", rec.Code)
	}

	// Auth class quota is 5: five failed attempts are 401s, the sixth is 429.
	for i := 0; i < 5; i++ {
		attempt := doRequest(e, http.MethodPost, "/api/auth/login",
			`{"username":"alice","password":"wrongpass"}`, "")
		if attempt.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, attempt.Code)
		}
	}

	blocked := doRequest(e, http.MethodPost, "/api/auth/login",
		`{"username":"alice","password":"wrongpass"}`, "")
	if blocked.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on 6th attempt, got %d", blocked.Code)
	}
	if blocked.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header on 429")
	}
}

func TestFlow_LoginNonDisclosure(t *testing.T) {
	e, _ := newFlowServer(t)

	rec := doRequest(e, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"a@x.com","password":"longenough1"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d", rec.Code)
	}

	wrongPass := doRequest(e, http.MethodPost, "/api/auth/login",
		`{"username":"alice","password":"wrongpass"}`, "")
	unknown := doRequest(e, http.MethodPost, "/api/auth/login",
		`{"username":"nobody","password":"wrongpass"}`, "")

	if wrongPass.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPass.Code, unknown.Code)
	}
	if wrongPass.Body.String() != unknown.Body.String() {
		t.Fatalf("failure bodies differ: %s vs %s", wrongPass.Body.String(), unknown.Body.String())
	}
}

func TestFlow_RefreshRotation(t *testing.T) {
	e, _ := newFlowServer(t)

	rec := doRequest(e, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"a@x.com","password":"longenough1"}`, "")
	body := decodeBody(t, rec)
	tokens := body["tokens"].(map[string]any)
	refresh, _ := tokens["refresh_token"].(string)

	refreshed := doRequest(e, http.MethodPost, "/api/auth/refresh",
		fmt.Sprintf(`{"refresh_token":%q}`, refresh), "")
	if refreshed.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", refreshed.Code, refreshed.Body.String())
	}

	newTokens := decodeBody(t, refreshed)["tokens"].(map[string]any)
	newAccess, _ := newTokens["access_token"].(string)
	if newAccess == "" {
		t.Fatalf("missing refreshed access token")
	}

	me := doRequest(e, http.MethodGet, "/api/auth/me", "", newAccess)
	if me.Code != http.StatusOK {
		t.Fatalf("refreshed access token rejected: %d", me.Code)
	}
}

func TestFlow_RefreshWithGarbage(t *testing.T) {
	e, _ := newFlowServer(t)

	rec := doRequest(e, http.MethodPost, "/api/auth/refresh",
		`{"refresh_token":"garbage"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestFlow_ProtectedRouteWithoutToken(t *testing.T) {
	e, _ := newFlowServer(t)

	rec := doRequest(e, http.MethodGet, "/api/auth/me", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestFlow_AdminRouteForbiddenForUsers(t *testing.T) {
	e, _ := newFlowServer(t)

	rec := doRequest(e, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"a@x.com","password":"longenough1"}`, "")
	tokens := decodeBody(t, rec)["tokens"].(map[string]any)
	access, _ := tokens["access_token"].(string)

	forbidden := doRequest(e, http.MethodGet, "/api/users/user-1", "", access)
	if forbidden.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d (%s)", forbidden.Code, forbidden.Body.String())
	}
}

func TestFlow_AdminRouteAllowsAdmins(t *testing.T) {
	e, repo := newFlowServer(t)

	rec := doRequest(e, http.MethodPost, "/api/auth/register",
		`{"username":"root","email":"root@x.com","password":"longenough1"}`, "")
	body := decodeBody(t, rec)
	user := body["user"].(map[string]any)
	id, _ := user["id"].(string)

	// Promote in the store; a fresh login picks up the admin role.
	repo.users[id].Role = domain.RoleAdmin

	login := doRequest(e, http.MethodPost, "/api/auth/login",
		`{"username":"root","password":"longenough1"}`, "")
	tokens := decodeBody(t, login)["tokens"].(map[string]any)
	access, _ := tokens["access_token"].(string)

	ok := doRequest(e, http.MethodGet, "/api/users/"+id, "", access)
	if ok.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d (%s)", ok.Code, ok.Body.String())
	}
}

func TestFlow_LogoutAcknowledged(t *testing.T) {
	e, _ := newFlowServer(t)

	rec := doRequest(e, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"a@x.com","password":"longenough1"}`, "")
	tokens := decodeBody(t, rec)["tokens"].(map[string]any)
	access, _ := tokens["access_token"].(string)

	out := doRequest(e, http.MethodPost, "/api/auth/logout", "", access)
	if out.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", out.Code)
	}

	// No server-side revocation: the access token still works after logout.
	me := doRequest(e, http.MethodGet, "/api/auth/me", "", access)
	if me.Code != http.StatusOK {
		t.Fatalf("stateless logout must not invalidate the token, got %d", me.Code)
	}
}
