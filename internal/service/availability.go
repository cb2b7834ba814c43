package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/neststay/internal/catalog"
	"github.com/iliyamo/neststay/internal/model"
	"github.com/iliyamo/neststay/internal/repository"
)

// Catalog provides read-only room-type reference data.
type Catalog interface {
	RoomType(ctx context.Context, id uint64) (*model.RoomType, error)
	RoomTypesAtLocation(ctx context.Context, locationID uint64) ([]model.RoomType, error)
}

// Availability answers capacity questions from the ledger without
// taking locks.  Its answers may be stale by the time a booking runs and
// are never used to authorize one.
type Availability struct {
	catalog   Catalog
	inventory *repository.InventoryRepo
}

func NewAvailability(c Catalog, inventory *repository.InventoryRepo) *Availability {
	return &Availability{catalog: c, inventory: inventory}
}

// RoomTypeAvailability is one room type's answer in a location query.
type RoomTypeAvailability struct {
	RoomType     model.RoomType `json:"room_type"`
	Available    bool           `json:"available"`
	MinFreeUnits int            `json:"min_free_units"`
}

// MinFree returns the smallest free capacity over the nights of stay.
// A night without a ledger row has never been booked and counts as
// totalInventory free rooms.
func MinFree(rows []model.InventoryRow, stay model.DateRange, totalInventory int) int {
	byDate := make(map[model.Date]model.InventoryRow, len(rows))
	for _, r := range rows {
		byDate[r.Date] = r
	}
	minFree := -1
	for _, d := range stay.Dates() {
		free := totalInventory
		if r, ok := byDate[d]; ok {
			free = r.Free()
		}
		if minFree < 0 || free < minFree {
			minFree = free
		}
	}
	if minFree < 0 {
		return 0
	}
	return minFree
}

// CheckAvailability reports whether numRooms rooms of the room type are
// free on every night of [checkIn, checkOut), and the worst night's free
// count.  Inactive room types are never available.
func (a *Availability) CheckAvailability(ctx context.Context, roomTypeID uint64, checkIn, checkOut model.Date, numRooms int) (bool, int, error) {
	stay := model.DateRange{Start: checkIn, End: checkOut}
	if err := validateQuery(stay, numRooms); err != nil {
		return false, 0, err
	}
	rt, err := a.roomType(ctx, roomTypeID)
	if err != nil {
		return false, 0, err
	}
	return a.check(ctx, rt, stay, numRooms)
}

// CheckLocationAvailability runs CheckAvailability for every active room
// type offered at the location.
func (a *Availability) CheckLocationAvailability(ctx context.Context, locationID uint64, checkIn, checkOut model.Date, numRooms int) ([]RoomTypeAvailability, error) {
	stay := model.DateRange{Start: checkIn, End: checkOut}
	if err := validateQuery(stay, numRooms); err != nil {
		return nil, err
	}
	types, err := a.catalog.RoomTypesAtLocation(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("list room types: %w", err)
	}
	out := make([]RoomTypeAvailability, 0, len(types))
	for i := range types {
		ok, free, err := a.check(ctx, &types[i], stay, numRooms)
		if err != nil {
			return nil, err
		}
		out = append(out, RoomTypeAvailability{RoomType: types[i], Available: ok, MinFreeUnits: free})
	}
	return out, nil
}

func (a *Availability) check(ctx context.Context, rt *model.RoomType, stay model.DateRange, numRooms int) (bool, int, error) {
	rows, err := a.inventory.ListRange(ctx, rt.ID, stay)
	if err != nil {
		return false, 0, fmt.Errorf("read ledger: %w", err)
	}
	free := MinFree(rows, stay, rt.TotalInventory)
	return rt.IsActive && free >= numRooms, free, nil
}

func (a *Availability) roomType(ctx context.Context, id uint64) (*model.RoomType, error) {
	rt, err := a.catalog.RoomType(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, ErrRoomTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load room type: %w", err)
	}
	return rt, nil
}

// MaxStayNights caps the length of a single stay or availability query.
const MaxStayNights = 90

func validateQuery(stay model.DateRange, numRooms int) error {
	if stay.Start.IsZero() || stay.End.IsZero() {
		return invalid("check_in", "check_in and check_out are required")
	}
	if stay.Empty() {
		return invalid("check_out", "check_out must be after check_in")
	}
	if stay.Nights() > MaxStayNights {
		return invalid("check_out", fmt.Sprintf("stay is limited to %d nights", MaxStayNights))
	}
	if numRooms < 1 {
		return invalid("num_rooms", "must be at least 1")
	}
	return nil
}
