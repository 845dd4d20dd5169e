package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/service"
)

// AuthHandler exposes the token lifecycle over HTTP.
type AuthHandler struct {
	Svc *service.Service
}

func NewAuthHandler(svc *service.Service) *AuthHandler { return &AuthHandler{Svc: svc} }

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}
type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type oauthReq struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type userPart struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name,omitempty"`
	IsActive  bool       `json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}
type bundleResp struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	User         userPart `json:"user"`
}

func toUserPart(u *model.User) userPart {
	return userPart{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		LastLogin: u.LastLogin,
	}
}

func toBundleResp(b *service.Bundle) bundleResp {
	return bundleResp{
		AccessToken:  b.AccessToken,
		RefreshToken: b.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    b.ExpiresIn,
		User:         toUserPart(b.User),
	}
}

// fail maps a service error onto the stable status table. Credential and
// token failures share generic reasons on purpose; only duplicate-identity
// and provider-exchange failures are specific.
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrDuplicateUsername):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username already registered"})
	case errors.Is(err, auth.ErrDuplicateEmail):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already registered"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case auth.TokenFailure(err):
		// expired/revoked/malformed stay distinct in logs only
		c.Logger().Infof("token rejected: %v", err)
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	case errors.Is(err, auth.ErrAccountInactive):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account inactive"})
	case errors.Is(err, auth.ErrUnknownProvider):
		return c.JSON(http.StatusNotImplemented, echo.Map{"error": "provider not supported"})
	case errors.Is(err, auth.ErrProviderExchange):
		c.Logger().Warnf("oauth exchange failed: %v", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "provider exchange failed"})
	case errors.Is(err, auth.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	c.Logger().Errorf("auth: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 10*time.Second)
}

// Register creates an account and returns its first token bundle.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Svc.Register(ctx, req.Username, req.Email, req.Password, strings.TrimSpace(req.FullName))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, toBundleResp(b))
}

// Login verifies a password credential and returns a new token bundle.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toBundleResp(b))
}

// LoginOAuth exchanges an authorization code with the named provider and
// logs in (or creates) the resolved local account.
func (h *AuthHandler) LoginOAuth(c echo.Context) error {
	provider := c.Param("provider")
	var req oauthReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Code == "" || req.RedirectURI == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code/redirect_uri required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Svc.LoginOAuth(ctx, provider, req.Code, req.RedirectURI)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toBundleResp(b))
}

// Refresh rotates the presented refresh token and returns a new bundle.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toBundleResp(b))
}

// Logout runs behind JWTAuth. With no body it revokes every session the
// user owns; with a refresh_token in the body it revokes just that session.
func (h *AuthHandler) Logout(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}

	var req refreshReq
	_ = c.Bind(&req) // body is optional

	ctx, cancel := reqCtx(c)
	defer cancel()

	if raw := strings.TrimSpace(req.RefreshToken); raw != "" {
		if err := h.Svc.LogoutToken(ctx, raw); err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"logged_out": true})
	}
	if err := h.Svc.LogoutAll(ctx, u); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"logged_out": true})
}

// Verify reports the validity and subject of the presented access token.
// Reaching the handler means JWTAuth already accepted it.
func (h *AuthHandler) Verify(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": true, "subject": u.Username, "user_id": u.ID})
}

// Profile returns the authenticated user's record.
func (h *AuthHandler) Profile(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}
