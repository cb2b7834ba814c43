package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending    BookingStatus = "PENDING"
	BookingConfirmed  BookingStatus = "CONFIRMED"
	BookingCheckedIn  BookingStatus = "CHECKED_IN"
	BookingCheckedOut BookingStatus = "CHECKED_OUT"
	BookingCancelled  BookingStatus = "CANCELLED"
	BookingNoShow     BookingStatus = "NO_SHOW"
)

// transitions lists every allowed one-way move.  Terminal states have
// no entry.
var transitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCheckedIn, BookingCancelled, BookingNoShow},
	BookingCheckedIn: {BookingCheckedOut},
}

// CanTransitionTo reports whether s may move to next.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s BookingStatus) IsTerminal() bool {
	_, ok := transitions[s]
	return !ok
}

// HoldsInventory reports whether a booking in state s still counts
// against the ledger.  Cancelled and no-show bookings released their
// rooms.
func (s BookingStatus) HoldsInventory() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCheckedIn, BookingCheckedOut:
		return true
	}
	return false
}

// Valid reports whether s is one of the known states.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCheckedIn, BookingCheckedOut, BookingCancelled, BookingNoShow:
		return true
	}
	return false
}

// InventoryHoldingStatuses lists the states counted by the ledger audit.
func InventoryHoldingStatuses() []BookingStatus {
	return []BookingStatus{BookingPending, BookingConfirmed, BookingCheckedIn, BookingCheckedOut}
}

// Booking is a guest's reservation of NumRooms units of a room type for
// the nights [CheckIn, CheckOut).  PricePerNight and TotalPrice are
// captured when the booking is created and never recomputed.
//
// Fields:
//  ID                 – primary key identifier (internal).
//  Reference          – opaque public identifier.
//  GuestID            – owner of the booking.
//  RoomTypeID         – booked room type.
//  LocationID         – denormalized location of the room type.
//  HotelID            – denormalized hotel of the location.
//  CheckIn, CheckOut  – first night and departure day.
//  NumRooms           – rooms held on every night.
//  NumGuests          – guests staying.
//  NightCount         – CheckOut − CheckIn in days.
//  PricePerNight      – room type base price at creation.
//  TotalPrice         – PricePerNight × NightCount × NumRooms.
//  Status             – lifecycle state.
//  SpecialRequests    – free text from the guest (nullable).
//  CancellationReason – reason given on cancel (nullable).
//  CancelledAt        – when the booking was cancelled (nullable).
//  DeletedAt          – soft-delete marker (nullable).
type Booking struct {
	ID                 uint64          `json:"-"`                             // bookings.id
	Reference          string          `json:"reference"`                     // bookings.reference
	GuestID            uint64          `json:"guest_id"`                      // bookings.guest_id
	RoomTypeID         uint64          `json:"room_type_id"`                  // bookings.room_type_id
	LocationID         uint64          `json:"location_id"`                   // bookings.location_id
	HotelID            uint64          `json:"hotel_id"`                      // bookings.hotel_id
	CheckIn            Date            `json:"check_in"`                      // bookings.check_in
	CheckOut           Date            `json:"check_out"`                     // bookings.check_out
	NumRooms           int             `json:"num_rooms"`                     // bookings.num_rooms
	NumGuests          int             `json:"num_guests"`                    // bookings.num_guests
	NightCount         int             `json:"night_count"`                   // bookings.night_count
	PricePerNight      decimal.Decimal `json:"price_per_night"`               // bookings.price_per_night
	TotalPrice         decimal.Decimal `json:"total_price"`                   // bookings.total_price
	Status             BookingStatus   `json:"status"`                        // bookings.status
	SpecialRequests    *string         `json:"special_requests,omitempty"`    // bookings.special_requests (nullable)
	CancellationReason *string         `json:"cancellation_reason,omitempty"` // bookings.cancellation_reason (nullable)
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`        // bookings.cancelled_at (nullable)
	CreatedAt          time.Time       `json:"created_at"`                    // bookings.created_at
	UpdatedAt          time.Time       `json:"updated_at"`                    // bookings.updated_at
	DeletedAt          *time.Time      `json:"-"`                             // bookings.deleted_at (nullable)
}

// Stay returns the booked nights as a range.
func (b Booking) Stay() DateRange { return DateRange{Start: b.CheckIn, End: b.CheckOut} }
