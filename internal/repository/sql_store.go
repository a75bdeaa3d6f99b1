package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// SQLStore is the MySQL Store. Each unit of work runs at READ COMMITTED;
// correctness comes from the conditional updates in the repositories, the
// row locks taken by the ...ForUpdate reads are a second line of defence.
type SQLStore struct {
	db       *sql.DB
	flights  *FlightRepo
	holds    *SeatHoldRepo
	bookings *BookingRepo
	attempts int
}

// NewSQLStore wires the repositories around db.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		db:       db,
		flights:  NewFlightRepo(db),
		holds:    NewSeatHoldRepo(db),
		bookings: NewBookingRepo(db),
		attempts: 3,
	}
}

// WithTx runs fn in one transaction and retries the whole unit when InnoDB
// aborted it for a deadlock or lock wait timeout. The transaction is
// detached from ctx cancellation: once begun it runs to commit or abort.
func (s *SQLStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err = s.runTx(context.WithoutCancel(ctx), fn)
		if err == nil || !isRetryableTx(err) {
			return err
		}
		time.Sleep(time.Duration(attempt) * 20 * time.Millisecond)
	}
	return err
}

func (s *SQLStore) runTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlTx{tx: tx, s: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

func (s *SQLStore) Flight(ctx context.Context, id string) (*model.Flight, error) {
	return s.flights.GetByID(ctx, id)
}

func (s *SQLStore) Hold(ctx context.Context, id string) (*model.SeatHold, error) {
	return s.holds.GetByID(ctx, id)
}

func (s *SQLStore) BookingByPNR(ctx context.Context, pnr string) (*model.Booking, error) {
	b, err := s.bookings.GetByPNR(ctx, pnr)
	if err != nil {
		return nil, err
	}
	f, err := s.flights.GetByID(ctx, b.FlightID)
	if err != nil {
		return nil, err
	}
	b.Flight = f
	return b, nil
}

func (s *SQLStore) BookingsByHolder(ctx context.Context, holderID string) ([]model.Booking, error) {
	return s.bookings.ListByHolder(ctx, holderID)
}

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// sqlTx adapts the repositories' ...Tx methods to the Tx port.
type sqlTx struct {
	tx *sql.Tx
	s  *SQLStore
}

func (t *sqlTx) FlightForUpdate(ctx context.Context, id string) (*model.Flight, error) {
	return t.s.flights.GetForUpdateTx(ctx, t.tx, id)
}

func (t *sqlTx) DebitSeats(ctx context.Context, id string, n int) error {
	return t.s.flights.DebitSeatsTx(ctx, t.tx, id, n)
}

func (t *sqlTx) CreditSeats(ctx context.Context, id string, n int) error {
	return t.s.flights.CreditSeatsTx(ctx, t.tx, id, n)
}

func (t *sqlTx) InsertHold(ctx context.Context, h *model.SeatHold) error {
	return t.s.holds.CreateTx(ctx, t.tx, h)
}

func (t *sqlTx) HoldForUpdate(ctx context.Context, id string) (*model.SeatHold, error) {
	return t.s.holds.GetForUpdateTx(ctx, t.tx, id)
}

func (t *sqlTx) MarkHoldReleased(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	return t.s.holds.MarkReleasedTx(ctx, t.tx, id, reason, at)
}

func (t *sqlTx) ExpiredHolds(ctx context.Context, now time.Time, limit int) ([]model.SeatHold, error) {
	return t.s.holds.ExpiredTx(ctx, t.tx, now, limit)
}

func (t *sqlTx) ExpiredHoldsForFlight(ctx context.Context, flightID string, now time.Time) ([]model.SeatHold, error) {
	return t.s.holds.ExpiredForFlightTx(ctx, t.tx, flightID, now)
}

func (t *sqlTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	return t.s.bookings.CreateTx(ctx, t.tx, b)
}

func (t *sqlTx) BookingForUpdate(ctx context.Context, pnr string) (*model.Booking, error) {
	return t.s.bookings.GetByPNRForUpdateTx(ctx, t.tx, pnr)
}

func (t *sqlTx) MarkBookingCancelled(ctx context.Context, id string, at time.Time) (bool, error) {
	return t.s.bookings.MarkCancelledTx(ctx, t.tx, id, at)
}
