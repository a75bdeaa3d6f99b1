// Package memory is an in-process repository.Store. Units of work are
// serialized by one mutex and applied copy-on-commit, which gives the same
// all-or-nothing behaviour as the MySQL store. It backs STORE_BACKEND=memory
// and the property tests of the inventory and booking packages.
//
// Writers queue behind the unit of work in flight, including a booking
// waiting on the pricing oracle, so under STORE_BACKEND=memory every write
// can wait up to PRICING_TIMEOUT. Reads see the last committed state and
// never wait.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
	"github.com/iliyamo/flight-seat-inventory/internal/repository"
)

type state struct {
	flights  map[string]model.Flight
	holds    map[string]model.SeatHold
	bookings map[string]model.Booking // keyed by id
	pnrs     map[string]string        // pnr -> booking id
}

func (s *state) clone() *state {
	return &state{
		flights:  maps.Clone(s.flights),
		holds:    maps.Clone(s.holds),
		bookings: maps.Clone(s.bookings),
		pnrs:     maps.Clone(s.pnrs),
	}
}

// Store keeps flights, holds and bookings in maps. A committed state is
// never mutated; commits swap in a new one. WithTx is not re-entrant:
// calling it from inside fn deadlocks.
type Store struct {
	mu sync.Mutex // serializes writers
	st atomic.Pointer[state]
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	s := &Store{}
	s.st.Store(&state{
		flights:  map[string]model.Flight{},
		holds:    map[string]model.SeatHold{},
		bookings: map[string]model.Booking{},
		pnrs:     map[string]string{},
	})
	return s
}

// PutFlight inserts or replaces a flight.
func (s *Store) PutFlight(f model.Flight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.Load().clone()
	work.flights[f.ID] = f
	s.st.Store(work)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.Load().clone()
	if err := fn(&memTx{st: work}); err != nil {
		return err
	}
	s.st.Store(work)
	return nil
}

func (s *Store) Flight(_ context.Context, id string) (*model.Flight, error) {
	f, ok := s.st.Load().flights[id]
	if !ok {
		return nil, repository.ErrFlightNotFound
	}
	return &f, nil
}

func (s *Store) Hold(_ context.Context, id string) (*model.SeatHold, error) {
	h, ok := s.st.Load().holds[id]
	if !ok {
		return nil, repository.ErrHoldNotFound
	}
	return &h, nil
}

func (s *Store) BookingByPNR(_ context.Context, pnr string) (*model.Booking, error) {
	st := s.st.Load()
	b, err := st.bookingByPNR(pnr)
	if err != nil {
		return nil, err
	}
	if f, ok := st.flights[b.FlightID]; ok {
		b.Flight = &f
	}
	return b, nil
}

func (s *Store) BookingsByHolder(_ context.Context, holderID string) ([]model.Booking, error) {
	st := s.st.Load()
	var out []model.Booking
	for _, b := range st.bookings {
		if b.HolderID != holderID {
			continue
		}
		if f, ok := st.flights[b.FlightID]; ok {
			b.Flight = &f
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (st *state) bookingByPNR(pnr string) (*model.Booking, error) {
	id, ok := st.pnrs[strings.ToUpper(strings.TrimSpace(pnr))]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	b := st.bookings[id]
	return &b, nil
}

type memTx struct {
	st *state
}

func (t *memTx) FlightForUpdate(_ context.Context, id string) (*model.Flight, error) {
	f, ok := t.st.flights[id]
	if !ok {
		return nil, repository.ErrFlightNotFound
	}
	return &f, nil
}

func (t *memTx) DebitSeats(_ context.Context, id string, n int) error {
	f, ok := t.st.flights[id]
	if !ok || f.AvailableSeats < n {
		return repository.ErrInsufficientSeats
	}
	f.AvailableSeats -= n
	t.st.flights[id] = f
	return nil
}

func (t *memTx) CreditSeats(_ context.Context, id string, n int) error {
	f, ok := t.st.flights[id]
	if !ok || f.AvailableSeats+n > f.TotalSeats {
		return fmt.Errorf("flight %s: %w", id, repository.ErrSeatOverflow)
	}
	f.AvailableSeats += n
	t.st.flights[id] = f
	return nil
}

func (t *memTx) InsertHold(_ context.Context, h *model.SeatHold) error {
	if _, exists := t.st.holds[h.ID]; exists {
		return fmt.Errorf("seat hold %s already exists", h.ID)
	}
	t.st.holds[h.ID] = *h
	return nil
}

func (t *memTx) HoldForUpdate(_ context.Context, id string) (*model.SeatHold, error) {
	h, ok := t.st.holds[id]
	if !ok {
		return nil, repository.ErrHoldNotFound
	}
	return &h, nil
}

func (t *memTx) MarkHoldReleased(_ context.Context, id, reason string, at time.Time) (bool, error) {
	h, ok := t.st.holds[id]
	if !ok || h.Status != model.HoldHeld {
		return false, nil
	}
	h.Status = model.HoldReleased
	h.ReleaseReason = reason
	h.ReleasedAt = &at
	t.st.holds[id] = h
	return true, nil
}

func (t *memTx) ExpiredHolds(_ context.Context, now time.Time, limit int) ([]model.SeatHold, error) {
	var out []model.SeatHold
	for _, h := range t.st.holds {
		if h.Status == model.HoldHeld && !h.ExpiresAt.After(now) {
			out = append(out, h)
		}
	}
	sortByExpiry(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memTx) ExpiredHoldsForFlight(_ context.Context, flightID string, now time.Time) ([]model.SeatHold, error) {
	var out []model.SeatHold
	for _, h := range t.st.holds {
		if h.FlightID == flightID && h.Status == model.HoldHeld && !h.ExpiresAt.After(now) {
			out = append(out, h)
		}
	}
	sortByExpiry(out)
	return out, nil
}

func sortByExpiry(holds []model.SeatHold) {
	sort.Slice(holds, func(i, j int) bool {
		if holds[i].ExpiresAt.Equal(holds[j].ExpiresAt) {
			return holds[i].ID < holds[j].ID
		}
		return holds[i].ExpiresAt.Before(holds[j].ExpiresAt)
	})
}

func (t *memTx) InsertBooking(_ context.Context, b *model.Booking) error {
	pnr := strings.ToUpper(b.PNR)
	if _, taken := t.st.pnrs[pnr]; taken {
		return repository.ErrDuplicatePNR
	}
	stored := *b
	stored.Flight = nil
	t.st.bookings[b.ID] = stored
	t.st.pnrs[pnr] = b.ID
	return nil
}

func (t *memTx) BookingForUpdate(_ context.Context, pnr string) (*model.Booking, error) {
	return t.st.bookingByPNR(pnr)
}

func (t *memTx) MarkBookingCancelled(_ context.Context, id string, at time.Time) (bool, error) {
	b, ok := t.st.bookings[id]
	if !ok || b.Status != model.BookingConfirmed {
		return false, nil
	}
	b.Status = model.BookingCancelled
	b.CancelledAt = &at
	b.UpdatedAt = at
	t.st.bookings[id] = b
	return true, nil
}
