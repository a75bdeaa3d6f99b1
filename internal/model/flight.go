package model

import "time"

// Flight status values.
const (
	FlightScheduled = "SCHEDULED"
	FlightDelayed   = "DELAYED"
	FlightCancelled = "CANCELLED"
)

// Flight is a scheduled departure with a fixed seat capacity. Only the
// inventory controller mutates AvailableSeats; everything else is read-only
// from the point of view of the booking engine.
//
// Fields:
//
//	ID             – flights.id (uuid string).
//	FlightNumber   – public flight number, unique.
//	TotalSeats     – fixed capacity, at least 1.
//	AvailableSeats – seats neither held nor booked; 0 ≤ AvailableSeats ≤ TotalSeats.
//	BaseFare       – static per-seat fare used as the pricing fallback.
//	Currency       – ISO currency code (USD by default).
type Flight struct {
	ID               string     `json:"id"`
	FlightNumber     string     `json:"flight_number"`
	Airline          Airline    `json:"airline"`
	DepartureAirport Airport    `json:"departure_airport"`
	ArrivalAirport   Airport    `json:"arrival_airport"`
	DepartureTime    time.Time  `json:"departure_time"`
	ArrivalTime      time.Time  `json:"arrival_time"`
	BaseFare         float64    `json:"base_fare"`
	Currency         string     `json:"currency"`
	TotalSeats       int        `json:"total_seats"`
	AvailableSeats   int        `json:"available_seats"`
	FareClass        string     `json:"fare_class"`
	Status           string     `json:"status"`
	Meta             FlightMeta `json:"meta"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// FlightMeta carries display-only details.
type FlightMeta struct {
	AircraftType    string `json:"aircraft_type,omitempty"`
	Gate            string `json:"gate,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

// Airline is populated alongside a flight for display and snapshots.
type Airline struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Code    string `json:"code"`
	Country string `json:"country,omitempty"`
	LogoURL string `json:"logo_url,omitempty"`
}

// Airport is populated alongside a flight for display and snapshots.
type Airport struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Timezone string `json:"timezone,omitempty"`
}
