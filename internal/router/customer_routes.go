package router

import (
	"github.com/labstack/echo/v4"

	"github.com/yatrago/bus-reservation/internal/handler"
	"github.com/yatrago/bus-reservation/internal/middleware"
)

// RegisterCustomer registers the booking endpoints under /v1. All routes
// require a valid JWT and the CUSTOMER role; booking creation additionally
// sits behind the rate limiter to blunt reservation floods.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER"),
	)
	g.POST("/bookings", h.CreateBooking, limiter)
	g.GET("/bookings", h.ListMyBookings)
	g.GET("/bookings/:id", h.GetBooking)
	g.POST("/bookings/:id/cancel", h.CancelBooking)
	g.POST("/bookings/:id/payment", h.InitiatePayment, limiter)
}
