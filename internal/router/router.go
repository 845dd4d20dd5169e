// Package router wires HTTP routes to handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/service"
)

// RegisterRoutes registers routes that require no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the token lifecycle endpoints. Credential
// endpoints (register, login, oauth, refresh) sit behind the rate limiter;
// logout, verify and profile require a valid Bearer access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, svc *service.Service,
	rlCfg config.RateLimitConfig, rdb *redis.Client) {

	g := e.Group("/v1/auth", middleware.RateLimit(rlCfg, rdb))
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/oauth/:provider", a.LoginOAuth)
	g.POST("/refresh", a.Refresh)

	protected := e.Group("/v1/auth", middleware.JWTAuth(svc))
	protected.POST("/logout", a.Logout)
	protected.GET("/verify", a.Verify)

	profile := e.Group("/v1", middleware.JWTAuth(svc))
	profile.GET("/profile", a.Profile)
}
