package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/neststay/internal/handler"
	"github.com/iliyamo/neststay/internal/middleware"
	"github.com/iliyamo/neststay/internal/model"
)

// RegisterGuest registers a guest's booking endpoints.  All routes need a
// valid JWT with the GUEST role; ownership is checked by the coordinator.
func RegisterGuest(v1 *echo.Group, h *handler.BookingHandler, jwtSecret string) {
	g := v1.Group("/bookings",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleGuest),
	)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:ref", h.Get)
	g.POST("/:ref/cancel", h.Cancel)
}
