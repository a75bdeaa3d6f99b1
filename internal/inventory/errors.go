package inventory

import (
	"errors"

	"github.com/iliyamo/flight-seat-inventory/internal/repository"
)

var (
	// ErrInvalidSeatCount rejects holds for fewer than one seat.
	ErrInvalidSeatCount = errors.New("seat count must be at least 1")
	// ErrMissingHolder rejects holds without a holder identity.
	ErrMissingHolder = errors.New("holder identity is required")
	// ErrInvalidHold means the hold does not exist or is already RELEASED.
	ErrInvalidHold = errors.New("seat hold is invalid or already released")
	// ErrHoldExpired means the hold passed its expiry before it could be
	// consumed. Its seats have been credited back.
	ErrHoldExpired = errors.New("seat hold has expired")
)

// Aliases of the store errors callers of this package branch on.
var (
	ErrFlightNotFound        = repository.ErrFlightNotFound
	ErrInsufficientInventory = repository.ErrInsufficientSeats
)
