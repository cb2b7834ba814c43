package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/neststay/internal/database"
	"github.com/iliyamo/neststay/internal/model"
)

// BookingRepo provides data access to the bookings table.  Only the
// reservation coordinator writes through it; every write takes the
// coordinator's transaction.
type BookingRepo struct {
	db *database.DB
}

func NewBookingRepo(db *database.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, reference, guest_id, room_type_id, location_id, hotel_id,
	check_in, check_out, num_rooms, num_guests, night_count, price_per_night, total_price,
	status, special_requests, cancellation_reason, cancelled_at, created_at, updated_at, deleted_at`

func scanBooking(s rowScanner) (*model.Booking, error) {
	var b model.Booking
	err := s.Scan(&b.ID, &b.Reference, &b.GuestID, &b.RoomTypeID, &b.LocationID, &b.HotelID,
		&b.CheckIn, &b.CheckOut, &b.NumRooms, &b.NumGuests, &b.NightCount, &b.PricePerNight, &b.TotalPrice,
		&b.Status, &b.SpecialRequests, &b.CancellationReason, &b.CancelledAt, &b.CreatedAt, &b.UpdatedAt, &b.DeletedAt)
	if err != nil {
		return nil, err
	}
	if !b.Status.Valid() {
		return nil, fmt.Errorf("booking %s: unknown status %q", b.Reference, b.Status)
	}
	return &b, nil
}

// CreateTx inserts b inside tx and sets its ID.  CreatedAt and UpdatedAt
// are set to now when zero.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = b.CreatedAt
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (reference, guest_id, room_type_id, location_id, hotel_id,
		   check_in, check_out, num_rooms, num_guests, night_count, price_per_night, total_price,
		   status, special_requests, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Reference, b.GuestID, b.RoomTypeID, b.LocationID, b.HotelID,
		b.CheckIn, b.CheckOut, b.NumRooms, b.NumGuests, b.NightCount,
		b.PricePerNight.StringFixed(2), b.TotalPrice.StringFixed(2),
		b.Status, b.SpecialRequests, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByReference loads a live booking by its public reference.
func (r *BookingRepo) GetByReference(ctx context.Context, ref string) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE reference = ? AND deleted_at IS NULL`, ref)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// GetByReferenceForUpdateTx loads a live booking and locks its row for the
// rest of tx, so two transitions of the same booking run one at a time.
func (r *BookingRepo) GetByReferenceForUpdateTx(ctx context.Context, tx *sql.Tx, ref string) (*model.Booking, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE reference = ? AND deleted_at IS NULL`+r.db.Dialect.ForUpdate, ref)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// StatusChange describes a guarded status update.
type StatusChange struct {
	From        model.BookingStatus
	To          model.BookingStatus
	Reason      *string    // cancellation reason, kept when nil
	CancelledAt *time.Time // kept when nil
	At          time.Time  // updated_at
}

// UpdateStatusTx moves booking id from ch.From to ch.To.  The update only
// applies while the row still holds ch.From; otherwise ErrConflict.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, ch StatusChange) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings
		 SET status = ?, cancellation_reason = COALESCE(?, cancellation_reason),
		     cancelled_at = COALESCE(?, cancelled_at), updated_at = ?
		 WHERE id = ? AND status = ? AND deleted_at IS NULL`,
		ch.To, ch.Reason, ch.CancelledAt, ch.At, id, ch.From)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// ListByGuest returns a page of the guest's bookings, latest check-in
// first.
func (r *BookingRepo) ListByGuest(ctx context.Context, guestID uint64, limit, offset int) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE guest_id = ? AND deleted_at IS NULL
		 ORDER BY check_in DESC, id DESC
		 LIMIT ? OFFSET ?`, guestID, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

// CountByGuest counts the guest's live bookings.
func (r *BookingRepo) CountByGuest(ctx context.Context, guestID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE guest_id = ? AND deleted_at IS NULL`, guestID).Scan(&n)
	return n, err
}

// ListHolding returns live bookings whose status still holds inventory
// and whose stay overlaps f.  It feeds the ledger audit.
func (r *BookingRepo) ListHolding(ctx context.Context, f LedgerFilter) ([]model.Booking, error) {
	holding := model.InventoryHoldingStatuses()
	q := `SELECT ` + bookingColumns + ` FROM bookings
	      WHERE deleted_at IS NULL AND status IN (` + placeholders(len(holding)) + `)`
	args := make([]any, 0, len(holding)+3)
	for _, s := range holding {
		args = append(args, s)
	}
	if f.RoomTypeID != 0 {
		q += ` AND room_type_id = ?`
		args = append(args, f.RoomTypeID)
	}
	if !f.From.IsZero() {
		q += ` AND check_out > ?`
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		q += ` AND check_in < ?`
		args = append(args, f.To)
	}
	q += ` ORDER BY room_type_id, check_in, id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

func scanBookings(rows *sql.Rows) ([]model.Booking, error) {
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
