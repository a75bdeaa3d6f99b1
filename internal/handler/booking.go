package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-seat-inventory/internal/booking"
	"github.com/iliyamo/flight-seat-inventory/internal/model"
	"github.com/iliyamo/flight-seat-inventory/internal/receipt"
)

// BookingHandler exposes the booking coordinator. Bookings are visible to
// their holder and to admins only.
type BookingHandler struct {
	Bookings *booking.Coordinator
	Log      logrus.FieldLogger
}

// Create handles POST /v1/bookings. The holder is the token subject.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req booking.CreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.HolderID = userID

	ctx, cancel := requestContext(c)
	defer cancel()
	b, err := h.Bookings.CreateBooking(ctx, req)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// ownedBooking loads the booking named by the :pnr path parameter and
// checks that the caller may act on it. On false the response is written.
func (h *BookingHandler) ownedBooking(ctx context.Context, c echo.Context) (*model.Booking, bool, error) {
	pnr := booking.NormalizePNR(c.Param("pnr"))
	if !booking.ValidPNR(pnr) {
		return nil, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation code"})
	}
	b, err := h.Bookings.GetBookingByPNR(ctx, pnr)
	if err != nil {
		return nil, false, writeError(c, h.Log, err)
	}
	if !canActFor(c, b.HolderID) {
		return nil, false, c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return b, true, nil
}

// Get handles GET /v1/bookings/:pnr.
func (h *BookingHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	b, ok, err := h.ownedBooking(ctx, c)
	if !ok {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel handles DELETE /v1/bookings/:pnr.
func (h *BookingHandler) Cancel(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	b, ok, err := h.ownedBooking(ctx, c)
	if !ok {
		return err
	}
	cancelled, err := h.Bookings.CancelBooking(ctx, b.PNR)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, cancelled)
}

// ListForUser handles GET /v1/bookings/user/:userId.
func (h *BookingHandler) ListForUser(c echo.Context) error {
	holderID := c.Param("userId")
	if !canActFor(c, holderID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Bookings.ListBookingsForHolder(ctx, holderID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list, "count": len(list)})
}

// Receipt handles GET /v1/bookings/:pnr/receipt and returns a PDF.
func (h *BookingHandler) Receipt(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	b, ok, err := h.ownedBooking(ctx, c)
	if !ok {
		return err
	}
	doc, err := receipt.Render(b)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="receipt-`+b.PNR+`.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", doc)
}
