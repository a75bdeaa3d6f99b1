package model

import "time"

// Booking states. A cancelled booking is kept, never deleted.
const (
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
)

// DefaultPaymentReference marks simulated payments.
const DefaultPaymentReference = "SIMULATED"

// Passenger genders accepted on a booking.
const (
	GenderMale   = "M"
	GenderFemale = "F"
	GenderOther  = "O"
)

// Passenger is one traveller on a booking.
type Passenger struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

// PriceSnapshot freezes the pricing inputs and output at booking time.
type PriceSnapshot struct {
	BaseFare         float64 `json:"base_fare"`
	DynamicPrice     float64 `json:"dynamic_price"`
	DemandIndex      float64 `json:"demand_index"`
	SeatsLeft        int     `json:"seats_left"`
	HoursToDeparture int     `json:"hours_to_departure"`
	Fallback         bool    `json:"fallback,omitempty"`
}

// Booking is a confirmed purchase identified publicly by its PNR.
//
// Fields:
//
//	PNR              – three uppercase letters followed by three digits, unique.
//	Passengers       – at least one; the seat count of the booking.
//	TotalFare        – DynamicPrice × len(Passengers).
//	Status           – CONFIRMED or CANCELLED.
//	PriceSnapshot    – immutable pricing record.
//	PaymentReference – external payment reference (SIMULATED).
type Booking struct {
	ID               string        `json:"id"`
	PNR              string        `json:"pnr"`
	FlightID         string        `json:"flight_id"`
	Flight           *Flight       `json:"flight,omitempty"`
	HolderID         string        `json:"user_id"`
	Passengers       []Passenger   `json:"passengers"`
	TotalFare        float64       `json:"total_fare"`
	Currency         string        `json:"currency"`
	Status           string        `json:"status"`
	BookingTime      time.Time     `json:"booking_time"`
	ReceiptURL       string        `json:"receipt_url,omitempty"`
	PriceSnapshot    PriceSnapshot `json:"price_snapshot"`
	PaymentReference string        `json:"payment_reference"`
	CancelledAt      *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// SeatCount is the number of seats the booking occupies.
func (b Booking) SeatCount() int { return len(b.Passengers) }
