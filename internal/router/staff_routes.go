package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/neststay/internal/handler"
	"github.com/iliyamo/neststay/internal/middleware"
	"github.com/iliyamo/neststay/internal/model"
)

// RegisterStaff registers the front-desk transitions under
// /v1/staff/bookings.  They require the STAFF role.
func RegisterStaff(v1 *echo.Group, h *handler.StaffHandler, jwtSecret string) {
	g := v1.Group("/staff/bookings",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStaff),
	)
	g.POST("/:ref/check-in", h.CheckIn)
	g.POST("/:ref/check-out", h.CheckOut)
	g.POST("/:ref/no-show", h.NoShow)
}
