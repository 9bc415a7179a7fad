package router // route registration for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/yatrago/bus-reservation/internal/config"
	"github.com/yatrago/bus-reservation/internal/handler"
	"github.com/yatrago/bus-reservation/internal/middleware"
)

// RegisterRoutes registers routes that carry no authentication at all.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints. Token-issuing
// operations live under /v1/auth; /v1/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout works with either an access token or a refresh token in the
	// body, so it stays outside the JWT middleware.
	g.POST("/logout", a.Logout)
	e.POST("/v1/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the guest browse endpoints: trip search, trip
// details and seat maps. The read-heavy GETs sit behind the Redis response
// cache when one is configured.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cacheCfg config.CacheConfig, rdb *redis.Client) {
	cached := middleware.NewRedisCache(cacheCfg, rdb)
	e.GET("/v1/search/buses", p.SearchTrips, cached)
	e.GET("/v1/buses/:id", p.GetTrip, cached)
	e.GET("/v1/buses/:id/seatmap", p.GetSeatMap, cached)
}
