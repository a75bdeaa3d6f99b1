// Package queue defines the booking events exchanged over the message
// broker and the consumer that records them.
package queue

import (
	"time"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// Queue names. Both are durable.
const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingCancelledQueue = "booking.cancelled"
)

// BookingConfirmedEvent is published once a booking has committed. It
// carries enough for consumers to log or notify without reading the
// database.
type BookingConfirmedEvent struct {
	BookingID     string  `json:"booking_id"`
	PNR           string  `json:"pnr"`
	UserID        string  `json:"user_id"`
	FlightID      string  `json:"flight_id"`
	FlightNumber  string  `json:"flight_number,omitempty"`
	Origin        string  `json:"origin,omitempty"`
	Destination   string  `json:"destination,omitempty"`
	DepartureTime string  `json:"departure_time,omitempty"`
	Passengers    int     `json:"passengers"`
	TotalFare     float64 `json:"total_fare"`
	Currency      string  `json:"currency"`
	Fallback      bool    `json:"fallback_price"`
	ConfirmedAt   string  `json:"confirmed_at"`
}

// BookingCancelledEvent is published once a cancellation has committed.
type BookingCancelledEvent struct {
	BookingID     string `json:"booking_id"`
	PNR           string `json:"pnr"`
	UserID        string `json:"user_id"`
	FlightID      string `json:"flight_id"`
	SeatsReleased int    `json:"seats_released"`
	CancelledAt   string `json:"cancelled_at"`
}

func NewBookingConfirmed(b *model.Booking) BookingConfirmedEvent {
	ev := BookingConfirmedEvent{
		BookingID:   b.ID,
		PNR:         b.PNR,
		UserID:      b.HolderID,
		FlightID:    b.FlightID,
		Passengers:  b.SeatCount(),
		TotalFare:   b.TotalFare,
		Currency:    b.Currency,
		Fallback:    b.PriceSnapshot.Fallback,
		ConfirmedAt: b.BookingTime.UTC().Format(time.RFC3339),
	}
	if f := b.Flight; f != nil {
		ev.FlightNumber = f.FlightNumber
		ev.DepartureTime = f.DepartureTime.UTC().Format(time.RFC3339)
		ev.Origin = f.DepartureAirport.Code
		ev.Destination = f.ArrivalAirport.Code
	}
	return ev
}

func NewBookingCancelled(b *model.Booking) BookingCancelledEvent {
	at := b.UpdatedAt
	if b.CancelledAt != nil {
		at = *b.CancelledAt
	}
	return BookingCancelledEvent{
		BookingID:     b.ID,
		PNR:           b.PNR,
		UserID:        b.HolderID,
		FlightID:      b.FlightID,
		SeatsReleased: b.SeatCount(),
		CancelledAt:   at.UTC().Format(time.RFC3339),
	}
}
