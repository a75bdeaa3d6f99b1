package model

import "time"

// PriceCacheEntry is the last oracle result for a flight. There is at most
// one entry per flight; freshness is decided at read time from CalculatedAt.
type PriceCacheEntry struct {
	FlightID         string         `json:"flight_id"`
	DynamicPrice     float64        `json:"dynamic_price"`
	DemandIndex      float64        `json:"demand_index"`
	SeatsLeft        int            `json:"seats_left"`
	HoursToDeparture int            `json:"hours_to_departure"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CalculatedAt     time.Time      `json:"calculated_at"`
}
