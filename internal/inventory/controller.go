// Package inventory is the only code that changes a flight's
// available_seats or moves a seat hold out of HELD. It keeps
// available_seats equal to total_seats minus seats in confirmed bookings
// minus seats in live holds.
package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-seat-inventory/internal/clock"
	"github.com/iliyamo/flight-seat-inventory/internal/model"
	"github.com/iliyamo/flight-seat-inventory/internal/repository"
)

const (
	DefaultHoldTTL    = 2 * time.Minute
	DefaultSweepBatch = 200
)

// Controller runs the seat hold state machine. Methods ending in Tx work
// inside a transaction owned by the caller; the others open their own.
type Controller struct {
	store repository.Store
	clock clock.Clock
	ttl   time.Duration
	batch int
	newID func() string
	log   logrus.FieldLogger
}

type Option func(*Controller)

func WithClock(c clock.Clock) Option { return func(ctl *Controller) { ctl.clock = c } }

func WithLogger(l logrus.FieldLogger) Option { return func(ctl *Controller) { ctl.log = l } }

// WithSweepBatch bounds how many expired holds one transaction releases.
func WithSweepBatch(n int) Option {
	return func(ctl *Controller) {
		if n > 0 {
			ctl.batch = n
		}
	}
}

func NewController(store repository.Store, holdTTL time.Duration, opts ...Option) *Controller {
	if holdTTL <= 0 {
		holdTTL = DefaultHoldTTL
	}
	c := &Controller{
		store: store,
		clock: clock.Real{},
		ttl:   holdTTL,
		batch: DefaultSweepBatch,
		newID: uuid.NewString,
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HoldTTL is the lifetime given to new holds.
func (c *Controller) HoldTTL() time.Duration { return c.ttl }

// Now exposes the controller's clock so collaborators share one time source.
func (c *Controller) Now() time.Time { return c.clock.Now() }

// SweepExpired releases every expired hold, one batch per transaction, and
// returns how many holds it released. Concurrent sweeps are safe: a hold
// is released by whichever transaction flips its status first.
func (c *Controller) SweepExpired(ctx context.Context) (int, error) {
	total := 0
	for {
		var released, scanned int
		err := c.store.WithTx(ctx, func(tx repository.Tx) error {
			var err error
			released, scanned, err = c.sweepBatch(ctx, tx)
			return err
		})
		if err != nil {
			return total, err
		}
		total += released
		if scanned < c.batch || released == 0 {
			break
		}
	}
	if total > 0 {
		c.log.WithField("released", total).Info("expired seat holds released")
	}
	return total, nil
}

// SweepFlight releases every expired hold on one flight in its own
// transaction.
func (c *Controller) SweepFlight(ctx context.Context, flightID string) (int, error) {
	var released int
	err := c.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		released, err = c.SweepFlightTx(ctx, tx, flightID)
		return err
	})
	return released, err
}

// SweepFlightTx releases every expired hold on flightID inside tx. Request
// paths call it before debiting so that no expired hold on the flight can
// cause an insufficient seats rejection, however large the backlog on
// other flights.
func (c *Controller) SweepFlightTx(ctx context.Context, tx repository.Tx, flightID string) (int, error) {
	now := c.clock.Now()
	holds, err := tx.ExpiredHoldsForFlight(ctx, flightID, now)
	if err != nil {
		return 0, err
	}
	return c.expireAll(ctx, tx, holds, now)
}

func (c *Controller) sweepBatch(ctx context.Context, tx repository.Tx) (released, scanned int, err error) {
	now := c.clock.Now()
	holds, err := tx.ExpiredHolds(ctx, now, c.batch)
	if err != nil {
		return 0, 0, err
	}
	released, err = c.expireAll(ctx, tx, holds, now)
	return released, len(holds), err
}

func (c *Controller) expireAll(ctx context.Context, tx repository.Tx, holds []model.SeatHold, now time.Time) (int, error) {
	released := 0
	for i := range holds {
		ok, err := c.release(ctx, tx, &holds[i], model.ReleaseExpired, now)
		if err != nil {
			return released, err
		}
		if ok {
			released++
		}
	}
	return released, nil
}

// CreateHold sweeps the flight's expired holds and then reserves seats for
// holderID in the same transaction.
func (c *Controller) CreateHold(ctx context.Context, flightID, holderID string, seats int) (*model.SeatHold, error) {
	var hold *model.SeatHold
	err := c.store.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := c.SweepFlightTx(ctx, tx, flightID); err != nil {
			return err
		}
		h, err := c.CreateHoldTx(ctx, tx, flightID, holderID, seats)
		if err != nil {
			return err
		}
		hold = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{
		"hold_id":   hold.ID,
		"flight_id": hold.FlightID,
		"seats":     hold.SeatsLocked,
	}).Debug("seat hold created")
	return hold, nil
}

// CreateHoldTx debits seats and records a HELD hold expiring after the
// hold TTL. It fails with ErrFlightNotFound or ErrInsufficientInventory.
func (c *Controller) CreateHoldTx(ctx context.Context, tx repository.Tx, flightID, holderID string, seats int) (*model.SeatHold, error) {
	if seats < 1 {
		return nil, ErrInvalidSeatCount
	}
	if holderID == "" {
		return nil, ErrMissingHolder
	}
	f, err := tx.FlightForUpdate(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if err := tx.DebitSeats(ctx, f.ID, seats); err != nil {
		return nil, err
	}
	now := c.clock.Now()
	h := &model.SeatHold{
		ID:          c.newID(),
		FlightID:    f.ID,
		HolderID:    holderID,
		SeatsLocked: seats,
		Status:      model.HoldHeld,
		ExpiresAt:   clock.HoldExpiry(now, c.ttl),
		CreatedAt:   now,
	}
	if err := tx.InsertHold(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// ConsumeHold converts a hold into purchased seats in its own transaction.
// When the hold has expired its release is committed before ErrHoldExpired
// is returned.
func (c *Controller) ConsumeHold(ctx context.Context, holdID string) (*model.SeatHold, error) {
	var (
		consumed *model.SeatHold
		expired  bool
	)
	err := c.store.WithTx(ctx, func(tx repository.Tx) error {
		h, err := c.ConsumeHoldTx(ctx, tx, holdID)
		if errors.Is(err, ErrHoldExpired) {
			expired = true
			return nil
		}
		if err != nil {
			return err
		}
		consumed = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, ErrHoldExpired
	}
	return consumed, nil
}

// ConsumeHoldTx marks a live hold RELEASED without crediting its seats;
// they now belong to the caller's booking. An expired hold is released
// with its seats credited and ErrHoldExpired is returned, so committing tx
// anyway returns the seats. Missing or already released holds give
// ErrInvalidHold.
func (c *Controller) ConsumeHoldTx(ctx context.Context, tx repository.Tx, holdID string) (*model.SeatHold, error) {
	h, err := tx.HoldForUpdate(ctx, holdID)
	if errors.Is(err, repository.ErrHoldNotFound) {
		return nil, ErrInvalidHold
	}
	if err != nil {
		return nil, err
	}
	if !h.IsHeld() {
		return nil, ErrInvalidHold
	}

	now := c.clock.Now()
	if clock.Expired(h.ExpiresAt, now) {
		if _, err := c.release(ctx, tx, h, model.ReleaseExpired, now); err != nil {
			return nil, err
		}
		return nil, ErrHoldExpired
	}

	ok, err := tx.MarkHoldReleased(ctx, h.ID, model.ReleaseConsumed, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidHold
	}
	h.Status = model.HoldReleased
	h.ReleaseReason = model.ReleaseConsumed
	h.ReleasedAt = &now
	return h, nil
}

// ReleaseHold gives a hold's seats back. It returns (nil, nil) when the
// hold does not exist or was already released.
func (c *Controller) ReleaseHold(ctx context.Context, holdID string) (*model.SeatHold, error) {
	var released *model.SeatHold
	err := c.store.WithTx(ctx, func(tx repository.Tx) error {
		h, err := c.ReleaseHoldTx(ctx, tx, holdID)
		released = h
		return err
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// ReleaseHoldTx is ReleaseHold inside the caller's transaction.
func (c *Controller) ReleaseHoldTx(ctx context.Context, tx repository.Tx, holdID string) (*model.SeatHold, error) {
	h, err := tx.HoldForUpdate(ctx, holdID)
	if errors.Is(err, repository.ErrHoldNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !h.IsHeld() {
		return nil, nil
	}
	now := c.clock.Now()
	ok, err := c.release(ctx, tx, h, model.ReleaseManual, now)
	if err != nil || !ok {
		return nil, err
	}
	return h, nil
}

// DebitTx takes n seats for a purchase made without a hold.
func (c *Controller) DebitTx(ctx context.Context, tx repository.Tx, flightID string, n int) error {
	if n < 1 {
		return ErrInvalidSeatCount
	}
	return tx.DebitSeats(ctx, flightID, n)
}

// CreditTx returns n seats of a cancelled purchase.
func (c *Controller) CreditTx(ctx context.Context, tx repository.Tx, flightID string, n int) error {
	if n < 1 {
		return ErrInvalidSeatCount
	}
	return tx.CreditSeats(ctx, flightID, n)
}

// release flips h to RELEASED and credits its seats, in that order, so a
// racing release that lost the status update never credits.
func (c *Controller) release(ctx context.Context, tx repository.Tx, h *model.SeatHold, reason string, now time.Time) (bool, error) {
	ok, err := tx.MarkHoldReleased(ctx, h.ID, reason, now)
	if err != nil || !ok {
		return false, err
	}
	if err := tx.CreditSeats(ctx, h.FlightID, h.SeatsLocked); err != nil {
		return false, err
	}
	h.Status = model.HoldReleased
	h.ReleaseReason = reason
	h.ReleasedAt = &now
	return true, nil
}
