package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-seat-inventory/internal/booking"
	"github.com/iliyamo/flight-seat-inventory/internal/inventory"
	"github.com/iliyamo/flight-seat-inventory/internal/model"
	"github.com/iliyamo/flight-seat-inventory/internal/pricing"
	"github.com/iliyamo/flight-seat-inventory/internal/repository"
)

// FlightReader is the read side of the store used by flight endpoints.
type FlightReader interface {
	Flight(ctx context.Context, flightID string) (*model.Flight, error)
	Hold(ctx context.Context, holdID string) (*model.SeatHold, error)
}

// FlightHandler serves flight lookups, quotes and seat holds.
type FlightHandler struct {
	Flights   FlightReader
	Prices    booking.PriceResolver
	Inventory *inventory.Controller
	Log       logrus.FieldLogger
}

// GetFlight handles GET /v1/flights/:id.
func (h *FlightHandler) GetFlight(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	f, err := h.Flights.Flight(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, f)
}

// Quote handles GET /v1/flights/:id/quote. The price may come from cache.
func (h *FlightHandler) Quote(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	f, err := h.Flights.Flight(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	q := h.Prices.DynamicPrice(ctx, f, pricing.Options{})
	return c.JSON(http.StatusOK, echo.Map{"flight": f, "quote": q})
}

type holdReq struct {
	Seats *int `json:"seats"`
}

// HoldSeats handles POST /v1/flights/:id/hold with body {"seats": n}. An
// omitted count holds one seat.
func (h *FlightHandler) HoldSeats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body holdReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	seats := 1
	if body.Seats != nil {
		seats = *body.Seats
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	hold, err := h.Inventory.CreateHold(ctx, c.Param("id"), userID, seats)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"hold":        hold,
		"ttl_seconds": int(h.Inventory.HoldTTL().Seconds()),
	})
}

// ReleaseHold handles DELETE /v1/flights/holds/:holdId. Releasing a hold
// that is already released succeeds with released=false.
func (h *FlightHandler) ReleaseHold(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	holdID := strings.TrimSpace(c.Param("holdId"))

	ctx, cancel := requestContext(c)
	defer cancel()
	existing, err := h.Flights.Hold(ctx, holdID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if !canActFor(c, existing.HolderID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	released, err := h.Inventory.ReleaseHold(ctx, holdID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if released == nil {
		current, err := h.Flights.Hold(ctx, holdID)
		if err != nil && !errors.Is(err, repository.ErrHoldNotFound) {
			return writeError(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"released": false, "hold": current})
	}
	return c.JSON(http.StatusOK, echo.Map{"released": true, "hold": released})
}
