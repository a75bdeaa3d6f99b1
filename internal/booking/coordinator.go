// Package booking creates and cancels bookings. Each operation is one
// transaction: the inventory change, the price snapshot and the booking
// record commit together or not at all.
package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-seat-inventory/internal/inventory"
	"github.com/iliyamo/flight-seat-inventory/internal/model"
	"github.com/iliyamo/flight-seat-inventory/internal/pricing"
	"github.com/iliyamo/flight-seat-inventory/internal/queue"
	"github.com/iliyamo/flight-seat-inventory/internal/repository"
)

// DefaultPNRAttempts bounds reservation code retries per booking.
const DefaultPNRAttempts = 5

// PriceResolver is the part of the pricing gateway bookings need.
type PriceResolver interface {
	DynamicPrice(ctx context.Context, f *model.Flight, opts pricing.Options) pricing.Quote
}

// EventPublisher receives booking lifecycle events after commit.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
	PublishBookingCancelled(ctx context.Context, ev queue.BookingCancelledEvent) error
}

// CreateRequest is the input of CreateBooking. HoldID is optional; without
// it seats are debited directly.
type CreateRequest struct {
	FlightID         string            `json:"flight_id"`
	HolderID         string            `json:"-"`
	Passengers       []model.Passenger `json:"passengers"`
	HoldID           string            `json:"hold_id,omitempty"`
	PaymentReference string            `json:"payment_reference,omitempty"`
}

func (r CreateRequest) validate() error {
	if strings.TrimSpace(r.FlightID) == "" {
		return fmt.Errorf("%w: flight_id is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.HolderID) == "" {
		return fmt.Errorf("%w: holder is required", ErrInvalidRequest)
	}
	if len(r.Passengers) == 0 {
		return fmt.Errorf("%w: at least one passenger is required", ErrInvalidRequest)
	}
	for i, p := range r.Passengers {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: passenger %d name is required", ErrInvalidRequest, i+1)
		}
		if p.Age < 0 {
			return fmt.Errorf("%w: passenger %d age must not be negative", ErrInvalidRequest, i+1)
		}
		switch p.Gender {
		case model.GenderMale, model.GenderFemale, model.GenderOther:
		default:
			return fmt.Errorf("%w: passenger %d gender must be M, F or O", ErrInvalidRequest, i+1)
		}
	}
	return nil
}

// Coordinator orchestrates bookings on top of the inventory controller
// and the pricing gateway.
type Coordinator struct {
	store       repository.Store
	inventory   *inventory.Controller
	prices      PriceResolver
	events      EventPublisher
	newPNR      func() string
	newID       func() string
	pnrAttempts int
	receiptBase string
	log         logrus.FieldLogger
}

type Option func(*Coordinator)

// WithEvents publishes booking events after each commit.
func WithEvents(p EventPublisher) Option { return func(c *Coordinator) { c.events = p } }

// WithPNRGenerator replaces NewPNR.
func WithPNRGenerator(fn func() string) Option { return func(c *Coordinator) { c.newPNR = fn } }

func WithPNRAttempts(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.pnrAttempts = n
		}
	}
}

// WithReceiptBaseURL prefixes the receipt link stored on each booking.
func WithReceiptBaseURL(base string) Option {
	return func(c *Coordinator) { c.receiptBase = strings.TrimRight(base, "/") }
}

func WithLogger(l logrus.FieldLogger) Option { return func(c *Coordinator) { c.log = l } }

func NewCoordinator(store repository.Store, inv *inventory.Controller, prices PriceResolver, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:       store,
		inventory:   inv,
		prices:      prices,
		newPNR:      NewPNR,
		newID:       uuid.NewString,
		pnrAttempts: DefaultPNRAttempts,
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateBooking sweeps the flight's expired holds, takes the seats (by consuming the
// hold or by a direct debit), prices them against the post-debit seat
// count and stores the booking with its price snapshot.
//
// A hold must be live, on the same flight, owned by the same holder and
// cover exactly one seat per passenger.
func (c *Coordinator) CreateBooking(ctx context.Context, req CreateRequest) (*model.Booking, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.PaymentReference == "" {
		req.PaymentReference = model.DefaultPaymentReference
	}

	var (
		created *model.Booking
		swept   int
	)
	err := c.store.WithTx(ctx, func(tx repository.Tx) error {
		n, err := c.inventory.SweepFlightTx(ctx, tx, req.FlightID)
		if err != nil {
			return err
		}
		swept = n
		f, err := tx.FlightForUpdate(ctx, req.FlightID)
		if err != nil {
			return err
		}

		seats := len(req.Passengers)
		seatsLeft := f.AvailableSeats
		if req.HoldID == "" {
			if err := c.inventory.DebitTx(ctx, tx, f.ID, seats); err != nil {
				return err
			}
			seatsLeft -= seats
		} else {
			if err := checkHold(ctx, tx, req, f.ID); err != nil {
				return err
			}
			if _, err := c.inventory.ConsumeHoldTx(ctx, tx, req.HoldID); err != nil {
				return err
			}
		}

		quote := c.prices.DynamicPrice(ctx, f, pricing.Options{ForceRefresh: true, SeatsLeft: &seatsLeft})

		now := c.inventory.Now()
		b := &model.Booking{
			ID:               c.newID(),
			FlightID:         f.ID,
			HolderID:         req.HolderID,
			Passengers:       req.Passengers,
			TotalFare:        roundFare(quote.DynamicPrice * float64(seats)),
			Currency:         f.Currency,
			Status:           model.BookingConfirmed,
			BookingTime:      now,
			PriceSnapshot:    quote.Snapshot(),
			PaymentReference: req.PaymentReference,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := c.insertWithFreshPNR(ctx, tx, b); err != nil {
			return err
		}
		f.AvailableSeats = seatsLeft
		b.Flight = f
		created = b
		return nil
	})
	if err != nil && (swept > 0 || errors.Is(err, inventory.ErrHoldExpired)) {
		// The rollback undid the release of expired holds; return their
		// seats now.
		if _, serr := c.inventory.SweepFlight(ctx, req.FlightID); serr != nil {
			c.log.WithError(serr).WithField("hold_id", req.HoldID).Warn("release of expired hold failed")
		}
	}
	if err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"pnr":       created.PNR,
		"flight_id": created.FlightID,
		"seats":     created.SeatCount(),
		"fallback":  created.PriceSnapshot.Fallback,
	}).Info("booking confirmed")
	c.publishConfirmed(ctx, created)
	return created, nil
}

func checkHold(ctx context.Context, tx repository.Tx, req CreateRequest, flightID string) error {
	h, err := tx.HoldForUpdate(ctx, req.HoldID)
	if errors.Is(err, repository.ErrHoldNotFound) {
		return inventory.ErrInvalidHold
	}
	if err != nil {
		return err
	}
	switch {
	case h.FlightID != flightID:
		return fmt.Errorf("%w: hold is for another flight", inventory.ErrInvalidHold)
	case h.HolderID != req.HolderID:
		return fmt.Errorf("%w: hold belongs to another holder", inventory.ErrInvalidHold)
	case h.SeatsLocked != len(req.Passengers):
		return fmt.Errorf("%w: hold covers %d seats, booking has %d passengers", inventory.ErrInvalidHold, h.SeatsLocked, len(req.Passengers))
	case !h.IsHeld() && h.ReleaseReason == model.ReleaseExpired:
		return inventory.ErrHoldExpired
	}
	return nil
}

func (c *Coordinator) insertWithFreshPNR(ctx context.Context, tx repository.Tx, b *model.Booking) error {
	for attempt := 1; ; attempt++ {
		b.PNR = c.newPNR()
		b.ReceiptURL = c.receiptBase + "/v1/bookings/" + b.PNR + "/receipt"
		err := tx.InsertBooking(ctx, b)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicatePNR) {
			return err
		}
		c.log.WithField("attempt", attempt).Debug("reservation code collision")
		if attempt >= c.pnrAttempts {
			return fmt.Errorf("%w: %w", ErrPNRExhausted, err)
		}
	}
}

// CancelBooking flips a confirmed booking to CANCELLED and credits one seat
// per passenger back to the flight.
func (c *Coordinator) CancelBooking(ctx context.Context, pnr string) (*model.Booking, error) {
	pnr = NormalizePNR(pnr)
	var cancelled *model.Booking
	err := c.store.WithTx(ctx, func(tx repository.Tx) error {
		b, err := tx.BookingForUpdate(ctx, pnr)
		if err != nil {
			return err
		}
		if b.Status == model.BookingCancelled {
			return ErrAlreadyCancelled
		}
		now := c.inventory.Now()
		ok, err := tx.MarkBookingCancelled(ctx, b.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyCancelled
		}
		if err := c.inventory.CreditTx(ctx, tx, b.FlightID, b.SeatCount()); err != nil {
			return err
		}
		b.Status = model.BookingCancelled
		b.CancelledAt = &now
		b.UpdatedAt = now
		cancelled = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{"pnr": cancelled.PNR, "seats": cancelled.SeatCount()}).Info("booking cancelled")
	c.publishCancelled(ctx, cancelled)
	return cancelled, nil
}

// GetBookingByPNR reads a booking with its flight populated.
func (c *Coordinator) GetBookingByPNR(ctx context.Context, pnr string) (*model.Booking, error) {
	return c.store.BookingByPNR(ctx, NormalizePNR(pnr))
}

// ListBookingsForHolder returns the holder's bookings, newest first.
func (c *Coordinator) ListBookingsForHolder(ctx context.Context, holderID string) ([]model.Booking, error) {
	return c.store.BookingsByHolder(ctx, holderID)
}

const publishTimeout = 3 * time.Second

func (c *Coordinator) publishConfirmed(ctx context.Context, b *model.Booking) {
	if c.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := c.events.PublishBookingConfirmed(ctx, queue.NewBookingConfirmed(b)); err != nil {
		c.log.WithError(err).WithField("pnr", b.PNR).Warn("publish booking.confirmed failed")
	}
}

func (c *Coordinator) publishCancelled(ctx context.Context, b *model.Booking) {
	if c.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := c.events.PublishBookingCancelled(ctx, queue.NewBookingCancelled(b)); err != nil {
		c.log.WithError(err).WithField("pnr", b.PNR).Warn("publish booking.cancelled failed")
	}
}

func roundFare(v float64) float64 { return math.Round(v*100) / 100 }
