package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/oauth"
	"github.com/iliyamo/auth-service/internal/password"
	"github.com/iliyamo/auth-service/internal/router"
	"github.com/iliyamo/auth-service/internal/service"
	"github.com/iliyamo/auth-service/internal/token"
)

// Minimal in-memory stores for exercising the HTTP surface end to end.

type memUsers struct {
	mu   sync.Mutex
	rows map[string]*model.User
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Username == u.Username {
			return auth.ErrDuplicateUsername
		}
		if r.Email == u.Email {
			return auth.ErrDuplicateEmail
		}
	}
	cp := *u
	m.rows[u.ID] = &cp
	return nil
}

func (m *memUsers) find(match func(*model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if match(r) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Email == email })
}
func (m *memUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Username == username })
}
func (m *memUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.ID == id })
}
func (m *memUsers) GetByProvider(_ context.Context, p, pid string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Provider == p && u.ProviderUserID == pid })
}
func (m *memUsers) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[id]; ok {
		r.LastLogin = &at
	}
	return nil
}
func (m *memUsers) BindProvider(_ context.Context, id, p, pid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[id]; ok && r.Provider == "" {
		r.Provider, r.ProviderUserID = p, pid
	}
	return nil
}

type tokenRow struct {
	userID    string
	expiresAt time.Time
	revoked   bool
}

type memTokens struct {
	mu   sync.Mutex
	rows map[string]*tokenRow
}

func (m *memTokens) Store(_ context.Context, userID, hash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[hash] = &tokenRow{userID: userID, expiresAt: exp}
	return nil
}
func (m *memTokens) Verify(_ context.Context, hash string, now time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[hash]
	if !ok {
		return "", auth.ErrTokenInvalid
	}
	if r.revoked {
		return "", auth.ErrTokenRevoked
	}
	if !r.expiresAt.After(now) {
		return "", auth.ErrTokenExpired
	}
	return r.userID, nil
}
func (m *memTokens) Rotate(_ context.Context, oldHash, userID, newHash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.rows[oldHash]
	if !ok || old.revoked {
		return auth.ErrTokenRevoked
	}
	old.revoked = true
	m.rows[newHash] = &tokenRow{userID: userID, expiresAt: exp}
	return nil
}
func (m *memTokens) Revoke(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[hash]; ok {
		r.revoked = true
	}
	return nil
}
func (m *memTokens) RevokeAll(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.userID == userID {
			r.revoked = true
		}
	}
	return nil
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	codec, err := token.NewCodec("test-secret", "HS256", 30*time.Minute)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	svc := service.New(
		&memUsers{rows: map[string]*model.User{}},
		&memTokens{rows: map[string]*tokenRow{}},
		codec,
		password.NewHasher(4),
		oauth.NewClient(nil), // no providers configured
		nil,                  // events disabled
		30*24*time.Hour,
	)
	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(svc), svc, config.RateLimitConfig{Enabled: false}, nil)
	return e
}

func doJSON(e *echo.Echo, method, path, bearer string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type bundleJSON struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

func decodeBundle(t *testing.T, rec *httptest.ResponseRecorder) bundleJSON {
	t.Helper()
	var b bundleJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode bundle: %v", err)
	}
	return b
}

func register(t *testing.T, e *echo.Echo, username, email string) bundleJSON {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/v1/auth/register", "", echo.Map{
		"username": username, "email": email, "password": "pw123456",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	return decodeBundle(t, rec)
}

func TestRegisterEndpoint(t *testing.T) {
	e := newTestServer(t)
	b := register(t, e, "alice", "alice@x.com")
	if b.AccessToken == "" || b.RefreshToken == "" || b.TokenType != "bearer" {
		t.Fatalf("bundle = %+v", b)
	}

	rec := doJSON(e, http.MethodPost, "/v1/auth/register", "", echo.Map{
		"username": "alice", "email": "other@x.com", "password": "pw",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate username status = %d", rec.Code)
	}
	rec = doJSON(e, http.MethodPost, "/v1/auth/register", "", echo.Map{
		"username": "alice2", "email": "alice@x.com", "password": "pw",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate email status = %d", rec.Code)
	}
}

// Unknown user and wrong password must be byte-identical on the wire.
func TestLoginEnumerationResistance(t *testing.T) {
	e := newTestServer(t)
	register(t, e, "alice", "alice@x.com")

	recUnknown := doJSON(e, http.MethodPost, "/v1/auth/login", "", echo.Map{
		"username": "nonexistent_user", "password": "x",
	})
	recWrongPw := doJSON(e, http.MethodPost, "/v1/auth/login", "", echo.Map{
		"username": "alice", "password": "wrong_password",
	})
	if recUnknown.Code != http.StatusUnauthorized || recWrongPw.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d, %d", recUnknown.Code, recWrongPw.Code)
	}
	if !bytes.Equal(recUnknown.Body.Bytes(), recWrongPw.Body.Bytes()) {
		t.Fatalf("bodies differ: %s vs %s", recUnknown.Body.String(), recWrongPw.Body.String())
	}
}

func TestRefreshEndpointRotation(t *testing.T) {
	e := newTestServer(t)
	b1 := register(t, e, "alice", "alice@x.com")

	rec := doJSON(e, http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": b1.RefreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body %s", rec.Code, rec.Body.String())
	}
	b2 := decodeBundle(t, rec)

	// Replaying the consumed token must fail like any invalid token.
	rec = doJSON(e, http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": b1.RefreshToken})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("replay status = %d", rec.Code)
	}

	rec = doJSON(e, http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": b2.RefreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("second rotation status = %d", rec.Code)
	}
}

func TestOAuthUnimplementedProvider(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(e, http.MethodPost, "/v1/auth/oauth/myspace", "", echo.Map{
		"code": "c", "redirect_uri": "https://app/cb",
	})
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", rec.Code)
	}
}

func TestLogoutRevokesAllSessions(t *testing.T) {
	e := newTestServer(t)
	b := register(t, e, "alice", "alice@x.com")

	// Second session for the same user.
	rec := doJSON(e, http.MethodPost, "/v1/auth/login", "", echo.Map{
		"username": "alice", "password": "pw123456",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}
	second := decodeBundle(t, rec)

	if rec := doJSON(e, http.MethodPost, "/v1/auth/logout", b.AccessToken, nil); rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d, body %s", rec.Code, rec.Body.String())
	}

	for _, raw := range []string{b.RefreshToken, second.RefreshToken} {
		rec := doJSON(e, http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": raw})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("refresh after logout status = %d", rec.Code)
		}
	}
}

func TestLogoutRequiresBearer(t *testing.T) {
	e := newTestServer(t)
	if rec := doJSON(e, http.MethodPost, "/v1/auth/logout", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec := doJSON(e, http.MethodPost, "/v1/auth/logout", "garbage", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage bearer status = %d, want 401", rec.Code)
	}
}

func TestVerifyAndProfileEndpoints(t *testing.T) {
	e := newTestServer(t)
	b := register(t, e, "alice", "alice@x.com")

	rec := doJSON(e, http.MethodGet, "/v1/auth/verify", b.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d", rec.Code)
	}
	var v struct {
		Valid   bool   `json:"valid"`
		Subject string `json:"subject"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &v)
	if !v.Valid || v.Subject != "alice" {
		t.Fatalf("verify body = %s", rec.Body.String())
	}

	rec = doJSON(e, http.MethodGet, "/v1/profile", b.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile status = %d", rec.Code)
	}
	var p struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &p)
	if p.Username != "alice" || p.Email != "alice@x.com" {
		t.Fatalf("profile body = %s", rec.Body.String())
	}

	if rec := doJSON(e, http.MethodGet, "/v1/profile", "not-a-token", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad bearer profile status = %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	e := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
