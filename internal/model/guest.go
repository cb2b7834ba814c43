package model

import "time"

// Guest roles carried in the access token's role claim.
const (
	RoleGuest = "GUEST"
	RoleStaff = "STAFF"
)

// Guest is an account that can hold bookings.  Staff accounts share the
// table and differ only by Role.
type Guest struct {
	ID           uint64    // guests.id
	Name         string    // guests.name
	Email        string    // guests.email
	PasswordHash string    // guests.password_hash
	Role         string    // guests.role (GUEST, STAFF)
	IsActive     bool      // guests.is_active
	CreatedAt    time.Time // guests.created_at
	UpdatedAt    time.Time // guests.updated_at
}
