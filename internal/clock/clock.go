// Package clock holds the time source and the TTL arithmetic shared by
// holds, the price cache and the pricing inputs.
package clock

import (
	"math"
	"sync"
	"time"
)

// Clock returns the current instant. Production code uses Real; tests
// substitute a Fixed clock they can move forward.
type Clock interface {
	Now() time.Time
}

// Real reads the wall clock in UTC.
type Real struct{}

func (Real) Now() time.Time { return time.Now().UTC() }

// Fixed is a manually advanced clock.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixed(t time.Time) *Fixed { return &Fixed{now: t.UTC()} }

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// HoursToDeparture is the distance to departure rounded to the nearest
// whole hour (halves round up), never negative.
func HoursToDeparture(departure, now time.Time) int {
	hours := departure.Sub(now).Hours()
	rounded := int(math.Floor(hours + 0.5))
	if rounded < 0 {
		return 0
	}
	return rounded
}

// HoldExpiry returns the instant a hold created at now stops being valid.
func HoldExpiry(now time.Time, ttl time.Duration) time.Time {
	return now.Add(ttl)
}

// Expired reports whether an instant has been reached. A hold whose expiry
// equals now is already expired.
func Expired(expiresAt, now time.Time) bool {
	return !expiresAt.After(now)
}

// CacheFresh reports whether an entry calculated at calculatedAt is still
// inside its TTL window at now.
func CacheFresh(calculatedAt, now time.Time, ttl time.Duration) bool {
	return now.Sub(calculatedAt) < ttl
}
