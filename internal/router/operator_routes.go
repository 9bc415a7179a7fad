package router

import (
	"github.com/labstack/echo/v4"

	"github.com/yatrago/bus-reservation/internal/handler"
	"github.com/yatrago/bus-reservation/internal/middleware"
)

// RegisterOperator registers trip management under /v1/operator. All routes
// require the OPERATOR role; ownership of individual buses is enforced in
// the repositories.
func RegisterOperator(e *echo.Echo, o *handler.OperatorHandler, jwtSecret string) {
	g := e.Group(
		"/v1/operator",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("OPERATOR"),
	)
	g.POST("/buses", o.CreateBus)
	g.GET("/buses", o.ListBuses)
	g.GET("/buses/:id", o.GetBus)
	g.DELETE("/buses/:id", o.DeleteBus)
	g.PUT("/buses/:id/layout", o.ReplaceLayout)
	g.GET("/buses/:id/bookings", o.ListBusBookings)
	// Stateless design preview, usable while drafting a new trip.
	g.POST("/layout/preview", o.PreviewLayout)
}
