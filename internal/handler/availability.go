package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/neststay/internal/model"
	"github.com/iliyamo/neststay/internal/service"
)

// AvailabilityHandler serves the public availability search.  Answers
// are read without locks and may be served from cache.
type AvailabilityHandler struct {
	Svc *service.Availability
}

func NewAvailabilityHandler(svc *service.Availability) *AvailabilityHandler {
	return &AvailabilityHandler{Svc: svc}
}

type availabilityQuery struct {
	checkIn, checkOut model.Date
	numRooms          int
}

func parseAvailabilityQuery(c echo.Context) (availabilityQuery, string, error) {
	var q availabilityQuery
	var err error
	if q.checkIn, err = model.ParseDate(c.QueryParam("check_in")); err != nil {
		return q, "check_in", err
	}
	if q.checkOut, err = model.ParseDate(c.QueryParam("check_out")); err != nil {
		return q, "check_out", err
	}
	q.numRooms = 1
	if s := c.QueryParam("num_rooms"); s != "" {
		if q.numRooms, err = strconv.Atoi(s); err != nil {
			return q, "num_rooms", err
		}
	}
	return q, "", nil
}

func parseID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// RoomType handles GET /v1/room-types/:id/availability.
func (h *AvailabilityHandler) RoomType(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "id", "invalid room type id")
	}
	q, field, err := parseAvailabilityQuery(c)
	if err != nil {
		return badRequest(c, field, "must be a YYYY-MM-DD date or a number")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	available, free, err := h.Svc.CheckAvailability(ctx, id, q.checkIn, q.checkOut, q.numRooms)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"room_type_id":   id,
		"check_in":       q.checkIn,
		"check_out":      q.checkOut,
		"num_rooms":      q.numRooms,
		"available":      available,
		"min_free_units": free,
	})
}

// Location handles GET /v1/locations/:id/availability.
func (h *AvailabilityHandler) Location(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "id", "invalid location id")
	}
	q, field, err := parseAvailabilityQuery(c)
	if err != nil {
		return badRequest(c, field, "must be a YYYY-MM-DD date or a number")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	items, err := h.Svc.CheckLocationAvailability(ctx, id, q.checkIn, q.checkOut, q.numRooms)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"location_id": id,
		"check_in":    q.checkIn,
		"check_out":   q.checkOut,
		"num_rooms":   q.numRooms,
		"room_types":  items,
	})
}
