package repository

import (
	"context"
	"time"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// Tx is the set of mutations available inside one atomic unit of work.
// Every seat counter change is a delta applied conditionally, and every
// status transition is guarded on the current status, so a racing
// transaction observes "no change" rather than overwriting.
type Tx interface {
	// FlightForUpdate loads a flight with its airline and airports and
	// locks the flight row for the rest of the transaction.
	FlightForUpdate(ctx context.Context, flightID string) (*model.Flight, error)
	// DebitSeats subtracts n seats only if at least n are available.
	DebitSeats(ctx context.Context, flightID string, n int) error
	// CreditSeats adds n seats only if the result stays within capacity.
	CreditSeats(ctx context.Context, flightID string, n int) error

	InsertHold(ctx context.Context, h *model.SeatHold) error
	HoldForUpdate(ctx context.Context, holdID string) (*model.SeatHold, error)
	// MarkHoldReleased flips a HELD hold to RELEASED. It reports false when
	// the hold was no longer HELD.
	MarkHoldReleased(ctx context.Context, holdID, reason string, at time.Time) (bool, error)
	// ExpiredHolds lists up to limit HELD holds with expires_at <= now.
	ExpiredHolds(ctx context.Context, now time.Time, limit int) ([]model.SeatHold, error)
	// ExpiredHoldsForFlight lists every HELD hold on one flight with
	// expires_at <= now. A flight can carry at most total_seats live holds,
	// so the result is unbounded.
	ExpiredHoldsForFlight(ctx context.Context, flightID string, now time.Time) ([]model.SeatHold, error)

	InsertBooking(ctx context.Context, b *model.Booking) error
	BookingForUpdate(ctx context.Context, pnr string) (*model.Booking, error)
	// MarkBookingCancelled flips a CONFIRMED booking to CANCELLED. It
	// reports false when the booking was no longer CONFIRMED.
	MarkBookingCancelled(ctx context.Context, bookingID string, at time.Time) (bool, error)
}

// Store opens units of work and serves plain reads.
type Store interface {
	// WithTx runs fn in a transaction. A non-nil error from fn rolls back
	// every mutation fn made.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Flight(ctx context.Context, flightID string) (*model.Flight, error)
	Hold(ctx context.Context, holdID string) (*model.SeatHold, error)
	BookingByPNR(ctx context.Context, pnr string) (*model.Booking, error)
	// BookingsByHolder returns the holder's bookings newest first with the
	// flight populated.
	BookingsByHolder(ctx context.Context, holderID string) ([]model.Booking, error)
	Ping(ctx context.Context) error
}
