// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-seat-inventory/internal/handler"
	"github.com/iliyamo/flight-seat-inventory/internal/middleware"
)

// Deps bundles everything RegisterRoutes needs.
type Deps struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	Flights   *handler.FlightHandler
	Bookings  *handler.BookingHandler
	JWTSecret string
	// RateLimit guards the routes that take or return seats. Nil means no
	// limiting.
	RateLimit echo.MiddlewareFunc
}

// RegisterRoutes mounts the public routes, the mock login and the
// authenticated /v1 API.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", d.Health.Health)

	e.POST("/v1/auth/mock-login", d.Auth.MockLogin)
	e.GET("/v1/flights/:id", d.Flights.GetFlight)
	e.GET("/v1/flights/:id/quote", d.Flights.Quote)

	limit := d.RateLimit
	if limit == nil {
		limit = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(d.JWTSecret))
	auth.Use(middleware.RequireRole(handler.RoleCustomer, handler.RoleAdmin))
	auth.GET("/auth/me", d.Auth.Me)

	auth.POST("/flights/:id/hold", d.Flights.HoldSeats, limit)
	auth.DELETE("/flights/holds/:holdId", d.Flights.ReleaseHold, limit)

	auth.POST("/bookings", d.Bookings.Create, limit)
	auth.GET("/bookings/user/:userId", d.Bookings.ListForUser)
	auth.GET("/bookings/:pnr", d.Bookings.Get)
	auth.GET("/bookings/:pnr/receipt", d.Bookings.Receipt)
	auth.DELETE("/bookings/:pnr", d.Bookings.Cancel, limit)
}
