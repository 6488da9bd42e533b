// Package router wires the HTTP surface: which paths exist, which
// middleware guards them, and which handler serves each one.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-seating/internal/handler"
	"github.com/iliyamo/showtime-seating/internal/middleware"
)

// RegisterRoutes registers routes that need no authentication and no
// identity.  Currently only the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterCatalog registers the public browse endpoints.  Skipped
// entirely when the service runs on the in-memory backend, which
// carries no catalog.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler) {
	e.GET("/v1/theaters", h.ListTheaters)
	e.GET("/v1/theaters/:id/showtimes", h.ListShowtimes)
}

// RegisterReservation registers the customer-facing seat map and the
// reserve / release / book flow.  HolderIdentity runs first so every
// request is scoped to a holder (JWT subject or session cookie), then
// the optional rate limiter.  No role is required: guests reserve too.
func RegisterReservation(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/showtimes")
	g.Use(middleware.OptionalJWT(jwtSecret))
	g.Use(middleware.HolderIdentity())
	if limiter != nil {
		g.Use(limiter)
	}
	g.GET("/:id/seats", h.Availability)
	g.GET("/:id/live", h.Live)
	g.POST("/:id/reserve", h.Reserve)
	g.POST("/:id/release", h.Release)
	g.POST("/:id/book", h.Book)
}

// RegisterAdmin registers theater, seat and showtime management under
// /v1/admin.  Every route requires a JWT whose role claim is ADMIN.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.RequireAdmin(jwtSecret))
	g.POST("/theaters", h.CreateTheater)
	g.PUT("/theaters/:id/layout", h.SaveLayout)
	g.POST("/theaters/:id/seats/regenerate", h.RegenerateSeats)
	g.GET("/theaters/:id/seats", h.ListSeats)
	g.POST("/theaters/:id/showtimes", h.CreateShowtime)
	g.POST("/showtimes/:id/initialize", h.InitializeShowtime)
	g.POST("/showtimes/:id/block", h.Block)
	g.POST("/showtimes/:id/unblock", h.Unblock)
	g.DELETE("/showtimes/:id", h.TeardownShowtime)
}
