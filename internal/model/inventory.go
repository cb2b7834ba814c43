package model

// InventoryRow is the capacity counter of one room type on one night.
// Rows are materialized lazily the first time a booking touches the
// night and are never deleted.  BookedUnits stays within
// [0, TotalUnits] at every committed state.
type InventoryRow struct {
	ID          uint64 `json:"-"`            // inventory_rows.id
	RoomTypeID  uint64 `json:"room_type_id"` // inventory_rows.room_type_id
	Date        Date   `json:"date"`         // inventory_rows.date
	TotalUnits  int    `json:"total_units"`  // inventory_rows.total_units
	BookedUnits int    `json:"booked_units"` // inventory_rows.booked_units
}

// Free is the number of rooms still sellable on the row's night.
func (r InventoryRow) Free() int { return r.TotalUnits - r.BookedUnits }
