// Package queue defines booking events and moves them over RabbitMQ.
package queue

import (
	"time"

	"github.com/iliyamo/neststay/internal/model"
)

// Queue names.  Both are durable.
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingCancelled = "booking.cancelled"
)

// BookingEvent is published after a booking transaction commits.  It
// carries enough of the booking for downstream consumers to log or
// notify without querying the primary database.
type BookingEvent struct {
	Queue         string              `json:"-"`
	Reference     string              `json:"reference"`
	GuestID       uint64              `json:"guest_id"`
	RoomTypeID    uint64              `json:"room_type_id"`
	LocationID    uint64              `json:"location_id"`
	HotelID       uint64              `json:"hotel_id"`
	CheckIn       string              `json:"check_in"`
	CheckOut      string              `json:"check_out"`
	NumRooms      int                 `json:"num_rooms"`
	NightCount    int                 `json:"night_count"`
	PricePerNight string              `json:"price_per_night"`
	TotalPrice    string              `json:"total_price"`
	Status        model.BookingStatus `json:"status"`
	Reason        string              `json:"reason,omitempty"`
	OccurredAt    string              `json:"occurred_at"`
}

// NewBookingEvent snapshots b.  Confirmed bookings go to
// booking.confirmed; bookings that released their rooms (cancelled or
// no-show) go to booking.cancelled.
func NewBookingEvent(b *model.Booking, at time.Time) BookingEvent {
	q := QueueBookingConfirmed
	if !b.Status.HoldsInventory() {
		q = QueueBookingCancelled
	}
	ev := BookingEvent{
		Queue:         q,
		Reference:     b.Reference,
		GuestID:       b.GuestID,
		RoomTypeID:    b.RoomTypeID,
		LocationID:    b.LocationID,
		HotelID:       b.HotelID,
		CheckIn:       b.CheckIn.String(),
		CheckOut:      b.CheckOut.String(),
		NumRooms:      b.NumRooms,
		NightCount:    b.NightCount,
		PricePerNight: b.PricePerNight.StringFixed(2),
		TotalPrice:    b.TotalPrice.StringFixed(2),
		Status:        b.Status,
		OccurredAt:    at.UTC().Format(time.RFC3339),
	}
	if b.CancellationReason != nil {
		ev.Reason = *b.CancellationReason
	}
	return ev
}
