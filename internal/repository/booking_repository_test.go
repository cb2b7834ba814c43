package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/neststay/internal/database/dbtest"
	"github.com/iliyamo/neststay/internal/model"
	"github.com/iliyamo/neststay/internal/repository"
)

func newBooking(f dbtest.Fixture, guestID uint64, from, to string, rooms int) *model.Booking {
	r := stay(from, to)
	price := f.RoomType.BasePrice
	return &model.Booking{
		Reference:     uuid.NewString(),
		GuestID:       guestID,
		RoomTypeID:    f.RoomType.ID,
		LocationID:    f.LocationID,
		HotelID:       f.HotelID,
		CheckIn:       r.Start,
		CheckOut:      r.End,
		NumRooms:      rooms,
		NumGuests:     1,
		NightCount:    r.Nights(),
		PricePerNight: price,
		TotalPrice:    price.Mul(decimal.NewFromInt(int64(r.Nights() * rooms))),
		Status:        model.BookingConfirmed,
	}
}

func TestBookingCreateAndGet(t *testing.T) {
	db := dbtest.New(t)
	f := dbtest.Seed(t, db, 3)
	repo := repository.NewBookingRepo(db)
	ctx := context.Background()

	b := newBooking(f, f.GuestID, "2026-03-01", "2026-03-03", 2)
	note := "late arrival"
	b.SpecialRequests = &note
	require.NoError(t, inTx(t, db, func(ctx context.Context, tx txLike) error {
		return repo.CreateTx(ctx, tx, b)
	}))
	require.NotZero(t, b.ID)

	got, err := repo.GetByReference(ctx, b.Reference)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, "2026-03-01", got.CheckIn.String())
	assert.Equal(t, "2026-03-03", got.CheckOut.String())
	assert.Equal(t, 2, got.NightCount)
	assert.True(t, decimal.RequireFromString("400.00").Equal(got.TotalPrice), got.TotalPrice.String())
	assert.Equal(t, model.BookingConfirmed, got.Status)
	require.NotNil(t, got.SpecialRequests)
	assert.Equal(t, note, *got.SpecialRequests)
	assert.Nil(t, got.CancelledAt)

	_, err = repo.GetByReference(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = db.Exec(`UPDATE bookings SET deleted_at = ? WHERE id = ?`, time.Now().UTC(), b.ID)
	require.NoError(t, err)
	_, err = repo.GetByReference(ctx, b.Reference)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBookingRejectsUnknownStatus(t *testing.T) {
	db := dbtest.New(t)
	f := dbtest.Seed(t, db, 3)
	repo := repository.NewBookingRepo(db)
	b := newBooking(f, f.GuestID, "2026-03-01", "2026-03-02", 1)
	require.NoError(t, inTx(t, db, func(ctx context.Context, tx txLike) error { return repo.CreateTx(ctx, tx, b) }))

	_, err := db.Exec(`UPDATE bookings SET status = 'ON_HOLD' WHERE id = ?`, b.ID)
	require.NoError(t, err)
	_, err = repo.GetByReference(context.Background(), b.Reference)
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrNotFound)
	assert.Contains(t, err.Error(), "ON_HOLD")
}

func TestBookingGuardedStatusUpdate(t *testing.T) {
	db := dbtest.New(t)
	f := dbtest.Seed(t, db, 3)
	repo := repository.NewBookingRepo(db)
	b := newBooking(f, f.GuestID, "2026-03-01", "2026-03-02", 1)
	require.NoError(t, inTx(t, db, func(ctx context.Context, tx txLike) error { return repo.CreateTx(ctx, tx, b) }))

	reason := "plans changed"
	at := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	change := repository.StatusChange{
		From: model.BookingConfirmed, To: model.BookingCancelled,
		Reason: &reason, CancelledAt: &at, At: at,
	}
	require.NoError(t, inTx(t, db, func(ctx context.Context, tx txLike) error {
		return repo.UpdateStatusTx(ctx, tx, b.ID, change)
	}))
	err := inTx(t, db, func(ctx context.Context, tx txLike) error {
		return repo.UpdateStatusTx(ctx, tx, b.ID, change)
	})
	assert.ErrorIs(t, err, repository.ErrConflict)

	got, err := repo.GetByReference(context.Background(), b.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, got.Status)
	require.NotNil(t, got.CancellationReason)
	assert.Equal(t, reason, *got.CancellationReason)
	require.NotNil(t, got.CancelledAt)
	assert.True(t, at.Equal(*got.CancelledAt))
}

func TestBookingListing(t *testing.T) {
	db := dbtest.New(t)
	f := dbtest.Seed(t, db, 5)
	repo := repository.NewBookingRepo(db)
	ctx := context.Background()

	for _, b := range []*model.Booking{
		newBooking(f, f.GuestID, "2026-03-01", "2026-03-02", 1),
		newBooking(f, f.GuestID, "2026-03-10", "2026-03-12", 1),
		newBooking(f, f.GuestID, "2026-03-05", "2026-03-06", 2),
		newBooking(f, f.OtherGuest, "2026-03-05", "2026-03-07", 1),
	} {
		b := b
		require.NoError(t, inTx(t, db, func(ctx context.Context, tx txLike) error { return repo.CreateTx(ctx, tx, b) }))
	}

	n, err := repo.CountByGuest(ctx, f.GuestID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	page, err := repo.ListByGuest(ctx, f.GuestID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "2026-03-10", page[0].CheckIn.String())
	assert.Equal(t, "2026-03-05", page[1].CheckIn.String())

	page, err = repo.ListByGuest(ctx, f.GuestID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)

	holding, err := repo.ListHolding(ctx, repository.LedgerFilter{
		RoomTypeID: f.RoomType.ID,
		From:       model.MustParseDate("2026-03-06"),
		To:         model.MustParseDate("2026-03-11"),
	})
	require.NoError(t, err)
	// [03-10,03-12) and [03-05,03-07) overlap; [03-05,03-06) ends on the boundary
	assert.Len(t, holding, 2)
}
