package memory

import (
	"time"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// SeedDemo loads a few fixed flights so the memory backend is usable
// without a database. Departures are placed relative to now.
func (s *Store) SeedDemo(now time.Time) {
	airline := model.Airline{ID: "al-sky", Name: "SkyHigh Airways", Code: "SH", Country: "US"}
	jfk := model.Airport{ID: "ap-jfk", Code: "JFK", Name: "John F. Kennedy International", City: "New York", Country: "US", Timezone: "America/New_York"}
	lax := model.Airport{ID: "ap-lax", Code: "LAX", Name: "Los Angeles International", City: "Los Angeles", Country: "US", Timezone: "America/Los_Angeles"}
	sfo := model.Airport{ID: "ap-sfo", Code: "SFO", Name: "San Francisco International", City: "San Francisco", Country: "US", Timezone: "America/Los_Angeles"}

	flights := []model.Flight{
		{ID: "fl-sh101", FlightNumber: "SH101", Airline: airline, DepartureAirport: jfk, ArrivalAirport: lax,
			DepartureTime: now.Add(72 * time.Hour), ArrivalTime: now.Add(78 * time.Hour),
			BaseFare: 199, Currency: "USD", TotalSeats: 180, AvailableSeats: 180,
			FareClass: "ECONOMY", Status: model.FlightScheduled,
			Meta: model.FlightMeta{AircraftType: "A321", Gate: "B12", DurationMinutes: 360}},
		{ID: "fl-sh202", FlightNumber: "SH202", Airline: airline, DepartureAirport: lax, ArrivalAirport: sfo,
			DepartureTime: now.Add(6 * time.Hour), ArrivalTime: now.Add(7*time.Hour + 30*time.Minute),
			BaseFare: 89, Currency: "USD", TotalSeats: 12, AvailableSeats: 12,
			FareClass: "ECONOMY", Status: model.FlightScheduled,
			Meta: model.FlightMeta{AircraftType: "E175", Gate: "A3", DurationMinutes: 90}},
	}
	for _, f := range flights {
		f.CreatedAt, f.UpdatedAt = now, now
		s.PutFlight(f)
	}
}
