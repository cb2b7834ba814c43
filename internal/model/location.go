package model

// Hotel is a brand owning one or more locations.
type Hotel struct {
	ID       uint64 `json:"id"`        // hotels.id
	Name     string `json:"name"`      // hotels.name
	Slug     string `json:"slug"`      // hotels.slug
	IsActive bool   `json:"is_active"` // hotels.is_active
}

// Location is a physical property.  Bookings denormalize its ID and
// its hotel's ID so guest listings need no joins.
type Location struct {
	ID       uint64 `json:"id"`        // locations.id
	HotelID  uint64 `json:"hotel_id"`  // locations.hotel_id
	Name     string `json:"name"`      // locations.name
	Slug     string `json:"slug"`      // locations.slug
	City     string `json:"city"`      // locations.city
	Country  string `json:"country"`   // locations.country
	IsActive bool   `json:"is_active"` // locations.is_active
}
