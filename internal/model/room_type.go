package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoomType is a bookable category of room at a location.  The
// reservation core only reads it: TotalInventory seeds new ledger rows,
// BasePrice is snapshotted into bookings and the stay rules gate
// booking requests.
//
// Fields:
//  ID             – primary key identifier.
//  LocationID     – location offering this room type.
//  HotelID        – hotel owning the location.
//  Name           – display name.
//  Slug           – unique public slug.
//  BasePrice      – nightly price per room.
//  TotalInventory – number of physical rooms of this type.
//  MaxOccupancy   – guests allowed per room.
//  MinStay        – minimum number of nights per booking.
//  MaxAdvanceDays – how far ahead a check-in may be booked.
//  IsActive       – inactive room types cannot be booked.
type RoomType struct {
	ID             uint64          `json:"id"`               // room_types.id
	LocationID     uint64          `json:"location_id"`      // room_types.location_id
	HotelID        uint64          `json:"hotel_id"`         // room_types.hotel_id
	Name           string          `json:"name"`             // room_types.name
	Slug           string          `json:"slug"`             // room_types.slug
	BasePrice      decimal.Decimal `json:"base_price"`       // room_types.base_price
	TotalInventory int             `json:"total_inventory"`  // room_types.total_inventory
	MaxOccupancy   int             `json:"max_occupancy"`    // room_types.max_occupancy
	MinStay        int             `json:"min_stay"`         // room_types.min_stay
	MaxAdvanceDays int             `json:"max_advance_days"` // room_types.max_advance_days
	IsActive       bool            `json:"is_active"`        // room_types.is_active
	DeletedAt      *time.Time      `json:"-"`                // room_types.deleted_at (nullable)
}
