// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as the
// reservation coordinator and the handlers to distinguish failure
// scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a row does not exist or is soft-deleted.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate it into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a guarded update found the row in a state
// other than the one it expected, e.g. a booking whose status changed
// underneath the caller.
var ErrConflict = errors.New("conflict")

// ErrCapacityExceeded is returned when an increment would push
// booked_units above total_units.  Callers verify capacity under lock
// first, so seeing it means the ledger discipline was broken.
var ErrCapacityExceeded = errors.New("inventory capacity exceeded")

// ErrInventoryCorruption is returned when a decrement would drive
// booked_units below zero or the ledger rows for a booked night are
// missing.  It always indicates an accounting bug.
var ErrInventoryCorruption = errors.New("inventory corruption")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")
