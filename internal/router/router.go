// Package router registers the HTTP routes.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/neststay/internal/handler"
	"github.com/iliyamo/neststay/internal/middleware"
)

// Handlers bundles everything the routes dispatch to.
type Handlers struct {
	DB           handler.Pinger
	Auth         *handler.AuthHandler
	Availability *handler.AvailabilityHandler
	Booking      *handler.BookingHandler
	Staff        *handler.StaffHandler
}

// Middleware carries the redis-backed middleware built from config.
// Nil entries are skipped.
type Middleware struct {
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// Register wires every route onto e.
func Register(e *echo.Echo, h Handlers, mw Middleware, jwtSecret string) {
	RegisterRoutes(e, h.DB)

	v1 := e.Group("/v1", optional(mw.RateLimit)...)
	RegisterAuth(v1, h.Auth, jwtSecret)
	RegisterPublic(v1, h.Availability, mw.Cache)
	RegisterGuest(v1, h.Booking, jwtSecret)
	RegisterStaff(v1, h.Staff, jwtSecret)
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers registration and login under /v1/auth, plus
// /v1/me for any authenticated caller.
func RegisterAuth(v1 *echo.Group, a *handler.AuthHandler, jwtSecret string) {
	g := v1.Group("/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	v1.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the availability search.  Only these routes
// go through the response cache.
func RegisterPublic(v1 *echo.Group, a *handler.AvailabilityHandler, cache echo.MiddlewareFunc) {
	mws := optional(cache)
	v1.GET("/room-types/:id/availability", a.RoomType, mws...)
	v1.GET("/locations/:id/availability", a.Location, mws...)
}

func optional(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := mws[:0]
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
