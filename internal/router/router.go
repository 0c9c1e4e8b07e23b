package router // package router defines how HTTP routes are registered for the API

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/kidcheck/internal/config"
	"github.com/iliyamo/kidcheck/internal/handler"
	"github.com/iliyamo/kidcheck/internal/middleware"
	"github.com/iliyamo/kidcheck/internal/service"
	"github.com/iliyamo/kidcheck/internal/session"
)

// Deps carries everything the routes need. Redis may be nil, in which case
// rate limiting and response caching are skipped.
type Deps struct {
	Creds        *service.CredentialService
	Requests     *service.RequestService
	Analytics    *service.AnalyticsService
	Sessions     *session.Manager
	Redis        *redis.Client
	RateLimit    config.RateLimitConfig
	Cache        config.CacheConfig
	CookieSecure bool
	Version      string
	Log          *slog.Logger
}

// RegisterRoutes mounts the API under /api. The session middleware runs on
// every route; anonymous callers are turned away by RequireSession on the
// routes that need a caller.
func RegisterRoutes(e *echo.Echo, d Deps) {
	auth := handler.NewAuthHandler(d.Creds, d.Sessions, d.CookieSecure, d.Log)
	reqs := handler.NewRequestHandler(d.Requests, d.Log)
	kids := handler.NewChildHandler(d.Creds, d.Log)
	stats := handler.NewAnalyticsHandler(d.Analytics, d.Log)

	api := e.Group("/api", middleware.Session(d.Sessions, d.Log))
	api.GET("/health", handler.Health(d.Version))

	// credential endpoints are rate limited per client
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis)
	api.POST("/register", auth.Register, limit)
	api.POST("/login", auth.Login, limit)
	api.POST("/admin/login", auth.AdminLogin, limit)
	api.POST("/logout", auth.Logout)

	g := api.Group("", middleware.RequireSession())
	g.GET("/me", auth.Me)
	g.POST("/admin/password", auth.RotateAdminPassword)

	g.GET("/requests", reqs.List)
	g.POST("/requests", reqs.Create)
	g.PUT("/requests/:id", reqs.Update)
	g.DELETE("/requests/:id", reqs.Delete)

	g.GET("/children", kids.List)
	g.POST("/children", kids.Add)

	g.GET("/analytics", stats.Get, middleware.NewRedisCache(d.Cache, d.Redis))
}
