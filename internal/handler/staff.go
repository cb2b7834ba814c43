package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/neststay/internal/model"
	"github.com/iliyamo/neststay/internal/service"
)

// StaffHandler drives the operational transitions of a booking.
type StaffHandler struct {
	Coord *service.Coordinator
}

func NewStaffHandler(coord *service.Coordinator) *StaffHandler {
	return &StaffHandler{Coord: coord}
}

type transitionFunc func(ctx context.Context, ref string) (*model.Booking, error)

func (h *StaffHandler) run(c echo.Context, fn transitionFunc) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	b, err := fn(ctx, strings.TrimSpace(c.Param("ref")))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// CheckIn handles POST /v1/staff/bookings/:ref/check-in.
func (h *StaffHandler) CheckIn(c echo.Context) error { return h.run(c, h.Coord.CheckIn) }

// CheckOut handles POST /v1/staff/bookings/:ref/check-out.
func (h *StaffHandler) CheckOut(c echo.Context) error { return h.run(c, h.Coord.CheckOut) }

// NoShow handles POST /v1/staff/bookings/:ref/no-show.
func (h *StaffHandler) NoShow(c echo.Context) error { return h.run(c, h.Coord.MarkNoShow) }
