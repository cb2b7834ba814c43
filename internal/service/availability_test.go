package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/neststay/internal/model"
	"github.com/iliyamo/neststay/internal/service"
)

func TestMinFreeTreatsMissingRowsAsFree(t *testing.T) {
	r := model.DateRange{Start: date("2026-03-01"), End: date("2026-03-04")}
	rows := []model.InventoryRow{
		{Date: date("2026-03-02"), TotalUnits: 5, BookedUnits: 4},
	}
	assert.Equal(t, 1, service.MinFree(rows, r, 5))
	assert.Equal(t, 5, service.MinFree(nil, r, 5))
	assert.Equal(t, 0, service.MinFree(nil, model.DateRange{Start: r.Start, End: r.Start}, 5))
}

func TestCheckAvailabilityWorstNight(t *testing.T) {
	e := newEnv(t, 5)
	ctx := context.Background()
	rt := e.fx.RoomType.ID

	ok, free, err := e.avail.CheckAvailability(ctx, rt, date("2026-03-01"), date("2026-03-05"), 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5, free)

	_, err = e.coord.Create(ctx, e.fx.GuestID, service.CreateRequest{
		RoomTypeID: rt, CheckIn: date("2026-03-03"), CheckOut: date("2026-03-04"), NumRooms: 5, NumGuests: 5,
	})
	require.NoError(t, err)

	ok, free, err = e.avail.CheckAvailability(ctx, rt, date("2026-03-01"), date("2026-03-05"), 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, free)

	ok, free, err = e.avail.CheckAvailability(ctx, rt, date("2026-03-04"), date("2026-03-08"), 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5, free)
}

func TestCheckAvailabilityValidation(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()
	rt := e.fx.RoomType.ID

	_, _, err := e.avail.CheckAvailability(ctx, rt, date("2026-03-05"), date("2026-03-05"), 1)
	requireValidation(t, err, "check_out")
	_, _, err = e.avail.CheckAvailability(ctx, rt, date("2026-03-05"), date("2026-03-06"), 0)
	requireValidation(t, err, "num_rooms")
	_, _, err = e.avail.CheckAvailability(ctx, 9999, date("2026-03-05"), date("2026-03-06"), 1)
	require.ErrorIs(t, err, service.ErrRoomTypeNotFound)
	_, _, err = e.avail.CheckAvailability(ctx, rt, date("0001-01-02"), date("9999-12-31"), 1)
	requireValidation(t, err, "check_out")
	_, err = e.avail.CheckLocationAvailability(ctx, e.fx.LocationID, date("2026-03-01"), date("2026-03-01").AddDays(service.MaxStayNights+1), 1)
	requireValidation(t, err, "check_out")
	ok, free, err := e.avail.CheckAvailability(ctx, rt, date("2026-03-01"), date("2026-03-01").AddDays(service.MaxStayNights), 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, free)

	_, err = e.db.ExecContext(ctx, `UPDATE room_types SET is_active = 0 WHERE id = ?`, rt)
	require.NoError(t, err)
	ok, free, err = e.avail.CheckAvailability(ctx, rt, date("2026-03-05"), date("2026-03-06"), 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, free)
}

func TestCheckLocationAvailability(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()

	_, err := e.db.ExecContext(ctx, `INSERT INTO room_types (location_id, hotel_id, name, slug, base_price,
		total_inventory, max_occupancy, min_stay, max_advance_days, is_active)
		VALUES (?, ?, 'Suite', 'harbour-lisbon-suite', '180.00', 1, 3, 1, 365, 1)`, e.fx.LocationID, e.fx.HotelID)
	require.NoError(t, err)
	_, err = e.coord.Create(ctx, e.fx.GuestID, e.request("2026-03-01", "2026-03-02", 1))
	require.NoError(t, err)

	res, err := e.avail.CheckLocationAvailability(ctx, e.fx.LocationID, date("2026-03-01"), date("2026-03-03"), 2)
	require.NoError(t, err)
	require.Len(t, res, 2)

	byName := map[string]service.RoomTypeAvailability{}
	for _, r := range res {
		byName[r.RoomType.Name] = r
	}
	assert.False(t, byName["Double"].Available)
	assert.Equal(t, 1, byName["Double"].MinFreeUnits)
	assert.False(t, byName["Suite"].Available)
	assert.Equal(t, 1, byName["Suite"].MinFreeUnits)

	res, err = e.avail.CheckLocationAvailability(ctx, 9999, date("2026-03-01"), date("2026-03-03"), 1)
	require.NoError(t, err)
	assert.Empty(t, res)
}
