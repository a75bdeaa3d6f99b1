package booking

import "errors"

var (
	// ErrInvalidRequest wraps every input validation failure.
	ErrInvalidRequest = errors.New("invalid booking request")
	// ErrAlreadyCancelled is returned when cancelling a cancelled booking.
	ErrAlreadyCancelled = errors.New("booking already cancelled")
	// ErrPNRExhausted is returned when every reservation code drawn for a
	// booking collided with an existing one.
	ErrPNRExhausted = errors.New("could not allocate a unique reservation code")
)
