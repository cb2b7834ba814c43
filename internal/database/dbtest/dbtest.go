// Package dbtest opens throwaway migrated SQLite databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/neststay/internal/database"
	"github.com/iliyamo/neststay/internal/model"
)

// New returns a migrated SQLite database in t.TempDir.  It is closed when
// the test ends.
func New(t testing.TB) *database.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

// Fixture holds the rows created by Seed.
type Fixture struct {
	HotelID    uint64
	LocationID uint64
	RoomType   model.RoomType
	GuestID    uint64
	OtherGuest uint64
}

// Seed inserts a hotel, a location, one room type with totalInventory
// rooms at 100.00 per night, and two guests.
func Seed(t testing.TB, db *database.DB, totalInventory int) Fixture {
	t.Helper()
	ctx := context.Background()
	exec := func(q string, args ...any) uint64 {
		res, err := db.ExecContext(ctx, q, args...)
		require.NoError(t, err)
		id, err := res.LastInsertId()
		require.NoError(t, err)
		return uint64(id)
	}

	var f Fixture
	f.HotelID = exec(`INSERT INTO hotels (name, slug) VALUES ('Harbour Hotels', 'harbour-hotels')`)
	f.LocationID = exec(`INSERT INTO locations (hotel_id, name, slug, city, country) VALUES (?, 'Harbour Lisbon', 'harbour-lisbon', 'Lisbon', 'PT')`, f.HotelID)
	f.RoomType = model.RoomType{
		LocationID:     f.LocationID,
		HotelID:        f.HotelID,
		Name:           "Double",
		Slug:           "harbour-lisbon-double",
		BasePrice:      decimal.RequireFromString("100.00"),
		TotalInventory: totalInventory,
		MaxOccupancy:   2,
		MinStay:        1,
		MaxAdvanceDays: 365,
		IsActive:       true,
	}
	f.RoomType.ID = exec(`INSERT INTO room_types (location_id, hotel_id, name, slug, base_price, total_inventory,
		max_occupancy, min_stay, max_advance_days, is_active) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		f.LocationID, f.HotelID, f.RoomType.Name, f.RoomType.Slug, "100.00", totalInventory,
		f.RoomType.MaxOccupancy, f.RoomType.MinStay, f.RoomType.MaxAdvanceDays)
	f.GuestID = exec(`INSERT INTO guests (name, email, password_hash) VALUES ('Ana', 'ana@example.com', 'x')`)
	f.OtherGuest = exec(`INSERT INTO guests (name, email, password_hash) VALUES ('Rui', 'rui@example.com', 'x')`)
	return f
}
