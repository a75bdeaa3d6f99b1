package model

import "time"

// Hold states. RELEASED is terminal.
const (
	HoldHeld     = "HELD"
	HoldReleased = "RELEASED"
)

// Reasons recorded when a hold leaves HELD.
const (
	ReleaseConsumed = "CONSUMED" // turned into a booking, seats stay debited
	ReleaseManual   = "RELEASED" // holder released it, seats credited
	ReleaseExpired  = "EXPIRED"  // swept or found expired, seats credited
)

// SeatHold is a time-limited reservation of SeatsLocked seats on a flight.
// The seats are debited from the flight when the hold is created.
//
// Fields:
//
//	ID            – seat_holds.id (uuid string).
//	FlightID      – flight whose inventory was debited.
//	HolderID      – identity of the holder (JWT subject).
//	SeatsLocked   – number of seats debited, at least 1.
//	Status        – HELD or RELEASED.
//	ExpiresAt     – creation instant plus the hold TTL.
//	ReleaseReason – set once the hold is RELEASED.
type SeatHold struct {
	ID            string     `json:"id"`
	FlightID      string     `json:"flight_id"`
	HolderID      string     `json:"user_id"`
	SeatsLocked   int        `json:"seats_locked"`
	Status        string     `json:"status"`
	ExpiresAt     time.Time  `json:"expires_at"`
	ReleaseReason string     `json:"release_reason,omitempty"`
	ReleasedAt    *time.Time `json:"released_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// IsHeld reports whether the hold still owns its seats.
func (h SeatHold) IsHeld() bool { return h.Status == HoldHeld }
