package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/neststay/internal/database"
	"github.com/iliyamo/neststay/internal/model"
)

// RoomTypeRepo reads and seeds the room_types catalog table.
type RoomTypeRepo struct {
	db *database.DB
}

func NewRoomTypeRepo(db *database.DB) *RoomTypeRepo { return &RoomTypeRepo{db: db} }

const roomTypeColumns = `id, location_id, hotel_id, name, slug, base_price, total_inventory,
	max_occupancy, min_stay, max_advance_days, is_active, deleted_at`

func scanRoomType(s rowScanner) (*model.RoomType, error) {
	var rt model.RoomType
	err := s.Scan(&rt.ID, &rt.LocationID, &rt.HotelID, &rt.Name, &rt.Slug, &rt.BasePrice, &rt.TotalInventory,
		&rt.MaxOccupancy, &rt.MinStay, &rt.MaxAdvanceDays, &rt.IsActive, &rt.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// GetByID returns a room type that is not soft-deleted.  Inactive room
// types are returned; callers decide what inactive means for them.
func (r *RoomTypeRepo) GetByID(ctx context.Context, id uint64) (*model.RoomType, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+roomTypeColumns+` FROM room_types WHERE id = ? AND deleted_at IS NULL`, id)
	rt, err := scanRoomType(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rt, err
}

// ListActiveByLocation returns the bookable room types of a location.
func (r *RoomTypeRepo) ListActiveByLocation(ctx context.Context, locationID uint64) ([]model.RoomType, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+roomTypeColumns+` FROM room_types
		 WHERE location_id = ? AND is_active = 1 AND deleted_at IS NULL
		 ORDER BY id`, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RoomType
	for rows.Next() {
		rt, err := scanRoomType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rt)
	}
	return out, rows.Err()
}

// Create inserts rt and sets its ID.
func (r *RoomTypeRepo) Create(ctx context.Context, rt *model.RoomType) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO room_types (location_id, hotel_id, name, slug, base_price, total_inventory,
		   max_occupancy, min_stay, max_advance_days, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.LocationID, rt.HotelID, rt.Name, rt.Slug, rt.BasePrice.StringFixed(2), rt.TotalInventory,
		rt.MaxOccupancy, rt.MinStay, rt.MaxAdvanceDays, rt.IsActive)
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
	rt.ID = uint64(id)
	return nil
}

// SetActive toggles whether the room type can be booked.
func (r *RoomTypeRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE room_types SET is_active = ? WHERE id = ? AND deleted_at IS NULL`, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
