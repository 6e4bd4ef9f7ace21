// Package router registers the HTTP routes of the booking service.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/handler"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/middleware"
)

// RegisterRoutes registers routes that need neither authentication nor
// rate limiting.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterBooking registers the public booking widget API under /v1.
// limiter applies to every route; cache only to the calendar, which is the
// one read heavy enough to be worth it.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, limiter, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", limiter)
	g.GET("/resources", h.Resources)
	g.GET("/resources/:id/availability", h.Availability)
	g.GET("/slots", h.Slots)
	g.GET("/calendar", h.Calendar, cache)
	g.POST("/quotes", h.Quote)
	g.POST("/reservations", h.Submit)
}

// RegisterStaff registers the reservation pipeline under /v1/staff.  All
// routes require a valid JWT with the STAFF or ADMIN role.
func RegisterStaff(e *echo.Echo, h *handler.StaffHandler, jwtSecret string) {
	g := e.Group(
		"/v1/staff",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleStaff, middleware.RoleAdmin),
	)
	g.GET("/pipeline", h.Pipeline)
	g.GET("/reservations/:id", h.Get)
	g.GET("/reservations/:id/history", h.History)
	g.POST("/reservations/:id/transitions", h.Transition)
	g.PUT("/reservations/:id/window", h.Reschedule)
}
