package router

import (
	"github.com/labstack/echo/v4"

	"github.com/yatrago/bus-reservation/internal/handler"
	"github.com/yatrago/bus-reservation/internal/middleware"
)

// RegisterAdmin registers the back-office endpoints under /v1/admin,
// restricted to the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	g.GET("/users", a.ListUsers)
	g.PATCH("/users/:id/active", a.SetUserActive)
	g.GET("/bookings", a.ListBookings)
}
