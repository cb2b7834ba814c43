package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Keys under which JWTAuth and RequestLogger store request identity on
// the echo context.
const (
	CtxGuestID   = "user_id"
	CtxRole      = "role"
	CtxRequestID = "request_id"
)

// GuestID returns the authenticated guest id set by JWTAuth.
func GuestID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxGuestID).(uint64)
	return id, ok && id != 0
}

// Role returns the authenticated role set by JWTAuth.
func Role(c echo.Context) string {
	r, _ := c.Get(CtxRole).(string)
	return r
}

// identity is the caller label used in rate-limit keys and logs:
// the guest id when authenticated, otherwise "anon".
func identity(c echo.Context) string {
	if id, ok := GuestID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
