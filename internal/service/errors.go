// Package service holds the booking core: the availability calculator,
// the reservation coordinator that owns every ledger mutation, and the
// ledger auditor.
package service

import (
	"errors"

	"github.com/iliyamo/neststay/internal/repository"
)

// ValidationError is a caller-correctable problem with a request.  It is
// never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

var (
	// ErrInsufficientInventory means the locked ledger rows do not have
	// room for the request, or the rows could not be locked in time.
	// The guest may retry, possibly with other dates.
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrNotFound              = errors.New("booking not found")
	ErrForbidden             = errors.New("booking belongs to another guest")
	ErrInvalidState          = errors.New("booking status does not allow this transition")
	ErrRoomTypeNotFound      = errors.New("room type not found")

	// Ledger invariant violations.  Both abort the transaction.
	ErrCapacityExceeded    = repository.ErrCapacityExceeded
	ErrInventoryCorruption = repository.ErrInventoryCorruption
)

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
