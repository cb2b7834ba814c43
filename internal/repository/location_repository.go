package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/neststay/internal/database"
	"github.com/iliyamo/neststay/internal/model"
)

// LocationRepo provides data access to hotels and locations.  The booking
// core only needs them for denormalized ids and seeding.
type LocationRepo struct {
	db *database.DB
}

func NewLocationRepo(db *database.DB) *LocationRepo { return &LocationRepo{db: db} }

// CreateHotel inserts h and sets its ID.
func (r *LocationRepo) CreateHotel(ctx context.Context, h *model.Hotel) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO hotels (name, slug, is_active) VALUES (?, ?, ?)`, h.Name, h.Slug, h.IsActive)
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
	h.ID = uint64(id)
	return nil
}

// CreateLocation inserts l and sets its ID.
func (r *LocationRepo) CreateLocation(ctx context.Context, l *model.Location) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO locations (hotel_id, name, slug, city, country, is_active) VALUES (?, ?, ?, ?, ?, ?)`,
		l.HotelID, l.Name, l.Slug, l.City, l.Country, l.IsActive)
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
	l.ID = uint64(id)
	return nil
}

// GetLocation returns a location that is not soft-deleted.
func (r *LocationRepo) GetLocation(ctx context.Context, id uint64) (*model.Location, error) {
	var l model.Location
	err := r.db.QueryRowContext(ctx,
		`SELECT id, hotel_id, name, slug, city, country, is_active
		 FROM locations WHERE id = ? AND deleted_at IS NULL`, id).
		Scan(&l.ID, &l.HotelID, &l.Name, &l.Slug, &l.City, &l.Country, &l.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// SlugTaken reports whether any hotel, location or room type uses slug
// in the given table.
func (r *LocationRepo) SlugTaken(ctx context.Context, table, slug string) (bool, error) {
	switch table {
	case "hotels", "locations", "room_types":
	default:
		return false, errors.New("unknown slug table " + table)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE slug = ?`, slug).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
