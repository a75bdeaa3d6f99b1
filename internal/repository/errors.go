// Package repository holds the persistence ports used by the inventory and
// booking packages together with their MySQL implementation. The sentinel
// errors below are shared by every store implementation so callers can
// branch on them with errors.Is regardless of the backend.
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is the parent of every "record missing" error.
var ErrNotFound = errors.New("not found")

var (
	ErrFlightNotFound  = fmt.Errorf("flight %w", ErrNotFound)
	ErrHoldNotFound    = fmt.Errorf("seat hold %w", ErrNotFound)
	ErrBookingNotFound = fmt.Errorf("booking %w", ErrNotFound)
)

// ErrInsufficientSeats is returned by a conditional debit that would take
// available_seats below zero.
var ErrInsufficientSeats = errors.New("insufficient seats available")

// ErrSeatOverflow is returned by a credit that would push available_seats
// above total_seats. It always indicates an accounting bug and aborts the
// enclosing transaction.
var ErrSeatOverflow = errors.New("seat credit exceeds flight capacity")

// ErrDuplicatePNR signals a reservation code collision on insert. The
// caller may retry with a fresh code.
var ErrDuplicatePNR = errors.New("duplicate reservation code")
