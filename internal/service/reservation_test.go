package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/neststay/internal/model"
	"github.com/iliyamo/neststay/internal/queue"
	"github.com/iliyamo/neststay/internal/service"
)

func TestCreateConfirmsAndSnapshotsPrice(t *testing.T) {
	e := newEnv(t, 3)
	ctx := context.Background()

	req := e.request("2026-03-01", "2026-03-04", 2)
	req.SpecialRequests = "  high floor "
	b, err := e.coord.Create(ctx, e.fx.GuestID, req)
	require.NoError(t, err)

	assert.NotEmpty(t, b.Reference)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, 3, b.NightCount)
	assert.Equal(t, e.fx.LocationID, b.LocationID)
	assert.Equal(t, e.fx.HotelID, b.HotelID)
	assert.True(t, decimal.RequireFromString("100.00").Equal(b.PricePerNight))
	assert.True(t, decimal.RequireFromString("600.00").Equal(b.TotalPrice), b.TotalPrice.String())
	require.NotNil(t, b.SpecialRequests)
	assert.Equal(t, "high floor", *b.SpecialRequests)

	assert.Equal(t, []int{2, 2, 2}, e.booked(t, "2026-03-01", "2026-03-04"))
	assert.Equal(t, []string{queue.QueueBookingConfirmed}, e.events.queues())

	// A later price change does not touch the booking.
	_, err = e.db.ExecContext(ctx, `UPDATE room_types SET base_price = '250.00' WHERE id = ?`, e.fx.RoomType.ID)
	require.NoError(t, err)
	got, err := e.coord.Get(ctx, b.Reference, e.fx.GuestID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("600.00").Equal(got.TotalPrice))
	e.requireAuditClean(t)
}

func TestConcurrentCreateNeverOversells(t *testing.T) {
	const capacity, attempts = 3, 12
	e := newEnv(t, capacity)
	ctx := context.Background()

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		ok, rejected int
		unexpected   []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.coord.Create(ctx, e.fx.GuestID, e.request("2026-03-01", "2026-03-03", 1))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, service.ErrInsufficientInventory):
				rejected++
			default:
				unexpected = append(unexpected, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, unexpected)
	assert.Equal(t, capacity, ok)
	assert.Equal(t, attempts-capacity, rejected)
	assert.Equal(t, []int{capacity, capacity}, e.booked(t, "2026-03-01", "2026-03-03"))
	e.requireAuditClean(t)
}

func TestCancelRestoresCapacity(t *testing.T) {
	e := newEnv(t, 4)
	ctx := context.Background()

	_, before, err := e.avail.CheckAvailability(ctx, e.fx.RoomType.ID, date("2026-03-10"), date("2026-03-13"), 1)
	require.NoError(t, err)

	b, err := e.coord.Create(ctx, e.fx.GuestID, e.request("2026-03-10", "2026-03-13", 3))
	require.NoError(t, err)
	_, during, err := e.avail.CheckAvailability(ctx, e.fx.RoomType.ID, date("2026-03-10"), date("2026-03-13"), 1)
	require.NoError(t, err)
	assert.Equal(t, before-3, during)

	cancelled, err := e.coord.Cancel(ctx, b.Reference, e.fx.GuestID, " plans changed ")
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "plans changed", *cancelled.CancellationReason)

	_, after, err := e.avail.CheckAvailability(ctx, e.fx.RoomType.ID, date("2026-03-10"), date("2026-03-13"), 1)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, []string{queue.QueueBookingConfirmed, queue.QueueBookingCancelled}, e.events.queues())

	stored, err := e.bookings.GetByReference(ctx, b.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, stored.Status)
	e.requireAuditClean(t)
}

func TestTwoNightScenario(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()

	first, err := e.coord.Create(ctx, e.fx.GuestID, e.request("2026-03-01", "2026-03-03", 2))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, e.booked(t, "2026-03-01", "2026-03-03"))

	_, err = e.coord.Create(ctx, e.fx.OtherGuest, e.request("2026-03-01", "2026-03-03", 1))
	require.ErrorIs(t, err, service.ErrInsufficientInventory)
	assert.Equal(t, []int{2, 2}, e.booked(t, "2026-03-01", "2026-03-03"))

	_, err = e.coord.Cancel(ctx, first.Reference, e.fx.GuestID, "")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, e.booked(t, "2026-03-01", "2026-03-03"))

	_, err = e.coord.Create(ctx, e.fx.OtherGuest, e.request("2026-03-01", "2026-03-03", 1))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, e.booked(t, "2026-03-01", "2026-03-03"))
	e.requireAuditClean(t)
}

func TestCreateBoundedByWorstNight(t *testing.T) {
	e := newEnv(t, 3)
	ctx := context.Background()

	_, err := e.coord.Create(ctx, e.fx.GuestID, e.request("2026-03-02", "2026-03-03", 2))
	require.NoError(t, err)

	_, err = e.coord.Create(ctx, e.fx.OtherGuest, e.request("2026-03-01", "2026-03-04", 2))
	require.ErrorIs(t, err, service.ErrInsufficientInventory)
	// Rolled back: rows materialized by the failed attempt are gone too.
	assert.Equal(t, []int{0, 2, 0}, e.booked(t, "2026-03-01", "2026-03-04"))

	_, err = e.coord.Create(ctx, e.fx.OtherGuest, e.request("2026-03-01", "2026-03-04", 1))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 1}, e.booked(t, "2026-03-01", "2026-03-04"))
	e.requireAuditClean(t)
}

func TestCreateValidation(t *testing.T) {
	e := newEnv(t, 3)
	ctx := context.Background()

	cases := []struct {
		name  string
		edit  func(*service.CreateRequest)
		field string
	}{
		{"zero nights", func(r *service.CreateRequest) { r.CheckOut = r.CheckIn }, "check_out"},
		{"inverted", func(r *service.CreateRequest) { r.CheckIn, r.CheckOut = r.CheckOut, r.CheckIn }, "check_out"},
		{"missing dates", func(r *service.CreateRequest) { r.CheckIn = model.Date{} }, "check_in"},
		{"no rooms", func(r *service.CreateRequest) { r.NumRooms = 0 }, "num_rooms"},
		{"no guests", func(r *service.CreateRequest) { r.NumGuests = 0 }, "num_guests"},
		{"past", func(r *service.CreateRequest) {
			r.CheckIn, r.CheckOut = date("2026-01-31"), date("2026-02-02")
		}, "check_in"},
		{"beyond horizon", func(r *service.CreateRequest) {
			r.CheckIn, r.CheckOut = date("2027-02-02"), date("2027-02-04")
		}, "check_in"},
		{"too many guests", func(r *service.CreateRequest) { r.NumGuests = 5 }, "num_guests"},
		{"stay too long", func(r *service.CreateRequest) {
			r.CheckOut = r.CheckIn.AddDays(service.MaxStayNights + 1)
		}, "check_out"},
		{"thirty years", func(r *service.CreateRequest) {
			r.CheckIn, r.CheckOut = date("2026-03-01"), date("2056-03-01")
		}, "check_out"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := e.request("2026-03-05", "2026-03-07", 2)
			tc.edit(&req)
			_, err := e.coord.Create(ctx, e.fx.GuestID, req)
			requireValidation(t, err, tc.field)
		})
	}

	// Today and the last day of the horizon are both bookable.
	_, err := e.coord.Create(ctx, e.fx.GuestID, e.request("2026-02-01", "2026-02-02", 1))
	require.NoError(t, err)
	_, err = e.coord.Create(ctx, e.fx.GuestID, e.request("2027-02-01", "2027-02-02", 1))
	require.NoError(t, err)

	_, err = e.coord.Create(ctx, e.fx.GuestID, e.request("2026-03-05", "2026-03-05", 1))
	requireValidation(t, err, "check_out")

	rows, err := e.inventory.ListLedger(ctx, ledgerAll())
	require.NoError(t, err)
	assert.Len(t, rows, 2, "validation failures must not materialize rows")
}

func TestCreateLongestStay(t *testing.T) {
	e := newEnv(t, 3)
	ctx := context.Background()

	req := e.request("2026-03-01", "2026-03-02", 1)
	req.CheckOut = req.CheckIn.AddDays(service.MaxStayNights)
	b, err := e.coord.Create(ctx, e.fx.GuestID, req)
	require.NoError(t, err)
	assert.Equal(t, service.MaxStayNights, b.NightCount)

	rows, err := e.inventory.ListLedger(ctx, ledgerAll())
	require.NoError(t, err)
	assert.Len(t, rows, service.MaxStayNights)
	e.requireAuditClean(t)
}

func TestCreateMinStayAndInactive(t *testing.T) {
	e := newEnv(t, 3)
	ctx := context.Background()

	_, err := e.db.ExecContext(ctx, `UPDATE room_types SET min_stay = 3 WHERE id = ?`, e.fx.RoomType.ID)
	require.NoError(t, err)
	_, err = e.coord.Create(ctx, e.fx.GuestID, e.request("2026-03-01", "2026-03-03", 1))
	requireValidation(t, err, "check_out")
	_, err = e.coord.Create(ctx, e.fx.GuestID, e.request("2026-03-01", "2026-03-04", 1))
	require.NoError(t, err)

	_, err = e.db.ExecContext(ctx, `UPDATE room_types SET is_active = 0 WHERE id = ?`, e.fx.RoomType.ID)
	require.NoError(t, err)
	_, err = e.coord.Create(ctx, e.fx.GuestID, e.request("2026-04-01", "2026-04-04", 1))
	requireValidation(t, err, "room_type_id")

	req := e.request("2026-04-01", "2026-04-04", 1)
	req.RoomTypeID = 9999
	_, err = e.coord.Create(ctx, e.fx.GuestID, req)
	require.ErrorIs(t, err, service.ErrRoomTypeNotFound)
}

func TestCreateLockDeadlineIsInsufficientInventory(t *testing.T) {
	e := newEnv(t, 3, service.WithLockTimeout(-1))
	ctx := context.Background()

	_, err := e.coord.Create(ctx, e.fx.GuestID, e.request("2026-03-01", "2026-03-03", 1))
	require.ErrorIs(t, err, service.ErrInsufficientInventory)
	assert.Contains(t, err.Error(), "lock wait")

	rows, err := e.inventory.ListLedger(ctx, ledgerAll())
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, e.events.queues())
}

func TestCreateSurvivesPublishFailure(t *testing.T) {
	e := newEnv(t, 3)
	e.events.err = assert.AnError

	b, err := e.coord.Create(context.Background(), e.fx.GuestID, e.request("2026-03-01", "2026-03-02", 1))
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, []int{1}, e.booked(t, "2026-03-01", "2026-03-02"))
}

func TestCancelRules(t *testing.T) {
	e := newEnv(t, 3)
	ctx := context.Background()

	b, err := e.coord.Create(ctx, e.fx.GuestID, e.request("2026-03-01", "2026-03-03", 1))
	require.NoError(t, err)

	_, err = e.coord.Cancel(ctx, "no-such-booking", e.fx.GuestID, "")
	require.ErrorIs(t, err, service.ErrNotFound)

	_, err = e.coord.Cancel(ctx, b.Reference, e.fx.OtherGuest, "")
	require.ErrorIs(t, err, service.ErrForbidden)
	assert.Equal(t, []int{1, 1}, e.booked(t, "2026-03-01", "2026-03-03"))

	_, err = e.coord.Cancel(ctx, b.Reference, e.fx.GuestID, "")
	require.NoError(t, err)
	_, err = e.coord.Cancel(ctx, b.Reference, e.fx.GuestID, "")
	require.ErrorIs(t, err, service.ErrInvalidState)
	assert.Equal(t, []int{0, 0}, e.booked(t, "2026-03-01", "2026-03-03"))

	out, err := e.coord.Create(ctx, e.fx.GuestID, e.request("2026-03-05", "2026-03-06", 1))
	require.NoError(t, err)
	_, err = e.coord.CheckIn(ctx, out.Reference)
	require.NoError(t, err)
	_, err = e.coord.Cancel(ctx, out.Reference, e.fx.GuestID, "")
	require.ErrorIs(t, err, service.ErrInvalidState)
	_, err = e.coord.CheckOut(ctx, out.Reference)
	require.NoError(t, err)
	_, err = e.coord.Cancel(ctx, out.Reference, e.fx.GuestID, "")
	require.ErrorIs(t, err, service.ErrInvalidState)
	assert.Equal(t, []int{1}, e.booked(t, "2026-03-05", "2026-03-06"), "checked-out nights stay counted")
	e.requireAuditClean(t)
}

func TestNoShowReleasesInventory(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()

	b, err := e.coord.Create(ctx, e.fx.GuestID, e.request("2026-03-01", "2026-03-03", 2))
	require.NoError(t, err)

	ns, err := e.coord.MarkNoShow(ctx, b.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.BookingNoShow, ns.Status)
	assert.Equal(t, []int{0, 0}, e.booked(t, "2026-03-01", "2026-03-03"))

	_, err = e.coord.CheckIn(ctx, b.Reference)
	require.ErrorIs(t, err, service.ErrInvalidState)
	_, err = e.coord.MarkNoShow(ctx, "missing")
	require.ErrorIs(t, err, service.ErrNotFound)
	e.requireAuditClean(t)
}

func TestCancelDetectsCorruptLedger(t *testing.T) {
	e := newEnv(t, 3)
	ctx := context.Background()

	b, err := e.coord.Create(ctx, e.fx.GuestID, e.request("2026-03-01", "2026-03-03", 2))
	require.NoError(t, err)
	_, err = e.db.ExecContext(ctx, `UPDATE inventory_rows SET booked_units = 1 WHERE date = '2026-03-02'`)
	require.NoError(t, err)

	_, err = e.coord.Cancel(ctx, b.Reference, e.fx.GuestID, "")
	require.ErrorIs(t, err, service.ErrInventoryCorruption)

	stored, err := e.bookings.GetByReference(ctx, b.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, stored.Status, "cancel must roll back")
	assert.Equal(t, []int{2, 1}, e.booked(t, "2026-03-01", "2026-03-03"))
}

func TestGetAndList(t *testing.T) {
	e := newEnv(t, 5)
	ctx := context.Background()

	var refs []string
	for _, from := range []string{"2026-03-01", "2026-04-01", "2026-05-01"} {
		r := e.request(from, date(from).AddDays(2).String(), 1)
		b, err := e.coord.Create(ctx, e.fx.GuestID, r)
		require.NoError(t, err)
		refs = append(refs, b.Reference)
	}
	_, err := e.coord.Create(ctx, e.fx.OtherGuest, e.request("2026-03-01", "2026-03-02", 1))
	require.NoError(t, err)

	_, err = e.coord.Get(ctx, refs[0], e.fx.OtherGuest)
	require.ErrorIs(t, err, service.ErrForbidden)
	_, err = e.coord.Get(ctx, "missing", e.fx.GuestID)
	require.ErrorIs(t, err, service.ErrNotFound)

	page, err := e.coord.List(ctx, e.fx.GuestID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, refs[2], page.Items[0].Reference)
	assert.Equal(t, refs[1], page.Items[1].Reference)

	page, err = e.coord.List(ctx, e.fx.GuestID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, refs[0], page.Items[0].Reference)

	page, err = e.coord.List(ctx, e.fx.GuestID, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 100, page.PageSize)

	empty, err := e.coord.List(ctx, 424242, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 20, empty.PageSize)
	assert.NotNil(t, empty.Items)
	assert.Zero(t, empty.Total)
}
