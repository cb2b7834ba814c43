package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/neststay/internal/middleware"
	"github.com/iliyamo/neststay/internal/service"
)

// BookingHandler exposes a guest's own bookings.  All methods assume
// JWTAuth and RequireRole already ran.
type BookingHandler struct {
	Coord *service.Coordinator
}

func NewBookingHandler(coord *service.Coordinator) *BookingHandler {
	if coord == nil {
		panic("nil coordinator passed to NewBookingHandler")
	}
	return &BookingHandler{Coord: coord}
}

type cancelReq struct {
	Reason string `json:"reason"`
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	guestID, ok := middleware.GuestID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req service.CreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	b, err := h.Coord.Create(ctx, guestID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// List handles GET /v1/bookings?page=&page_size=.
func (h *BookingHandler) List(c echo.Context) error {
	guestID, ok := middleware.GuestID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("page_size"))

	ctx, cancel := requestCtx(c)
	defer cancel()

	res, err := h.Coord.List(ctx, guestID, page, size)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Get handles GET /v1/bookings/:ref.
func (h *BookingHandler) Get(c echo.Context) error {
	guestID, ok := middleware.GuestID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	b, err := h.Coord.Get(ctx, strings.TrimSpace(c.Param("ref")), guestID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel handles POST /v1/bookings/:ref/cancel.  The body is optional.
func (h *BookingHandler) Cancel(c echo.Context) error {
	guestID, ok := middleware.GuestID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req cancelReq
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
		}
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	b, err := h.Coord.Cancel(ctx, strings.TrimSpace(c.Param("ref")), guestID, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}
