// Package middleware provides reusable HTTP middleware for the auth API.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/service"
)

// userKey is the context key under which the authenticated user is stored.
const userKey = "auth_user"

// JWTAuth validates the Bearer access token on protected routes and injects
// the loaded, active user into the request context. All verification detail
// (expired, revoked, bad signature) collapses to one 401; a deactivated
// account gets 403.
func JWTAuth(svc *service.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			u, err := svc.VerifyAccess(c.Request().Context(), raw)
			if err != nil {
				if errors.Is(err, auth.ErrAccountInactive) {
					return c.JSON(http.StatusForbidden, echo.Map{"error": "account inactive"})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(userKey, u)
			return next(c)
		}
	}
}

// CurrentUser returns the user injected by JWTAuth, or nil outside a
// protected route.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(userKey).(*model.User)
	return u
}
