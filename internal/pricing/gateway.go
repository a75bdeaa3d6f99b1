// Package pricing resolves the per-seat dynamic price of a flight from a
// cache or the external pricing oracle, degrading to the base fare when
// the oracle cannot answer.
package pricing

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/iliyamo/flight-seat-inventory/internal/clock"
	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// ReasonOracleUnavailable is reported in the metadata of fallback quotes.
const ReasonOracleUnavailable = "pricing_service_unavailable"

// Quote is a resolved per-seat price and the inputs it was computed from.
type Quote struct {
	FlightID         string         `json:"flight_id"`
	BaseFare         float64        `json:"base_fare"`
	DynamicPrice     float64        `json:"dynamic_price"`
	DemandIndex      float64        `json:"demand_index"`
	SeatsLeft        int            `json:"seats_left"`
	HoursToDeparture int            `json:"hours_to_departure"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	FromCache        bool           `json:"from_cache"`
	Fallback         bool           `json:"fallback"`
}

// Snapshot freezes the quote for a booking record.
func (q Quote) Snapshot() model.PriceSnapshot {
	return model.PriceSnapshot{
		BaseFare:         q.BaseFare,
		DynamicPrice:     q.DynamicPrice,
		DemandIndex:      q.DemandIndex,
		SeatsLeft:        q.SeatsLeft,
		HoursToDeparture: q.HoursToDeparture,
		Fallback:         q.Fallback,
	}
}

// Options override the inputs of a single lookup. Nil pointers mean
// "derive it": seats from the flight, hours from the clock, demand from
// the demand source.
type Options struct {
	ForceRefresh     bool
	SeatsLeft        *int
	DemandIndex      *float64
	HoursToDeparture *int
}

// Gateway owns every write to the price cache.
type Gateway struct {
	oracle Oracle
	cache  Cache
	ttl    time.Duration
	clock  clock.Clock
	demand func() float64
	log    logrus.FieldLogger
	group  singleflight.Group
}

// Option configures a Gateway.
type Option func(*Gateway)

func WithClock(c clock.Clock) Option { return func(g *Gateway) { g.clock = c } }

// WithDemandSource replaces the simulated demand signal (uniform in [0,1)).
func WithDemandSource(fn func() float64) Option { return func(g *Gateway) { g.demand = fn } }

func WithLogger(l logrus.FieldLogger) Option { return func(g *Gateway) { g.log = l } }

func NewGateway(oracle Oracle, cache Cache, ttl time.Duration, opts ...Option) *Gateway {
	g := &Gateway{
		oracle: oracle,
		cache:  cache,
		ttl:    ttl,
		clock:  clock.Real{},
		demand: rand.Float64,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.cache == nil {
		g.cache = NewMemoryCache()
	}
	return g
}

// DynamicPrice never fails. A fresh cache entry is returned as is unless
// ForceRefresh is set; otherwise the oracle is asked and a successful
// answer overwrites the cache. Oracle failures produce a base-fare quote
// marked Fallback that is not cached.
func (g *Gateway) DynamicPrice(ctx context.Context, f *model.Flight, opts Options) Quote {
	if opts.ForceRefresh {
		return g.refresh(ctx, f, opts)
	}
	// Concurrent cache misses with the same inputs share one oracle call.
	// The shared call outlives any single caller's context; the oracle
	// bounds it with its own timeout.
	shared := context.WithoutCancel(ctx)
	v, _, _ := g.group.Do(lookupKey(f.ID, opts), func() (any, error) {
		if q, ok := g.cached(shared, f); ok {
			return q, nil
		}
		return g.refresh(shared, f, opts), nil
	})
	return v.(Quote)
}

func lookupKey(flightID string, opts Options) string {
	var b strings.Builder
	b.WriteString(flightID)
	if opts.SeatsLeft != nil {
		b.WriteString("|seats=")
		b.WriteString(strconv.Itoa(*opts.SeatsLeft))
	}
	if opts.DemandIndex != nil {
		b.WriteString("|demand=")
		b.WriteString(strconv.FormatFloat(*opts.DemandIndex, 'g', -1, 64))
	}
	if opts.HoursToDeparture != nil {
		b.WriteString("|hours=")
		b.WriteString(strconv.Itoa(*opts.HoursToDeparture))
	}
	return b.String()
}

func (g *Gateway) cached(ctx context.Context, f *model.Flight) (Quote, bool) {
	e, err := g.cache.Get(ctx, f.ID)
	if err != nil {
		g.log.WithError(err).WithField("flight_id", f.ID).Warn("price cache read failed")
		return Quote{}, false
	}
	if e == nil || !clock.CacheFresh(e.CalculatedAt, g.clock.Now(), g.ttl) {
		return Quote{}, false
	}
	return Quote{
		FlightID:         f.ID,
		BaseFare:         f.BaseFare,
		DynamicPrice:     e.DynamicPrice,
		DemandIndex:      e.DemandIndex,
		SeatsLeft:        e.SeatsLeft,
		HoursToDeparture: e.HoursToDeparture,
		Metadata:         e.Metadata,
		FromCache:        true,
	}, true
}

func (g *Gateway) refresh(ctx context.Context, f *model.Flight, opts Options) Quote {
	now := g.clock.Now()
	in := OracleRequest{
		BaseFare:         f.BaseFare,
		SeatsLeft:        f.AvailableSeats,
		TotalSeats:       f.TotalSeats,
		HoursToDeparture: clock.HoursToDeparture(f.DepartureTime, now),
		FlightID:         f.ID,
	}
	if opts.SeatsLeft != nil {
		in.SeatsLeft = *opts.SeatsLeft
	}
	if opts.HoursToDeparture != nil {
		in.HoursToDeparture = *opts.HoursToDeparture
	}
	if opts.DemandIndex != nil {
		in.DemandIndex = *opts.DemandIndex
	} else {
		in.DemandIndex = g.demand()
	}

	q := Quote{
		FlightID:         f.ID,
		BaseFare:         f.BaseFare,
		DemandIndex:      in.DemandIndex,
		SeatsLeft:        in.SeatsLeft,
		HoursToDeparture: in.HoursToDeparture,
	}

	resp, err := g.oracle.Quote(ctx, in)
	if err != nil {
		g.log.WithError(err).WithField("flight_id", f.ID).Warn("pricing oracle failed, using base fare")
		q.DynamicPrice = f.BaseFare
		q.Fallback = true
		q.Metadata = map[string]any{
			"calculated_at": now.Format(time.RFC3339),
			"reason":        ReasonOracleUnavailable,
		}
		return q
	}

	q.DynamicPrice = resp.DynamicPrice
	if resp.DemandIndex != nil {
		q.DemandIndex = *resp.DemandIndex
	}
	q.Metadata = resp.Metadata

	entry := model.PriceCacheEntry{
		FlightID:         f.ID,
		DynamicPrice:     q.DynamicPrice,
		DemandIndex:      q.DemandIndex,
		SeatsLeft:        q.SeatsLeft,
		HoursToDeparture: q.HoursToDeparture,
		Metadata:         q.Metadata,
		CalculatedAt:     now,
	}
	if err := g.cache.Put(ctx, entry); err != nil {
		g.log.WithError(err).WithField("flight_id", f.ID).Warn("price cache write failed")
	}
	return q
}
