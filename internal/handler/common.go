package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-seat-inventory/internal/booking"
	"github.com/iliyamo/flight-seat-inventory/internal/inventory"
	"github.com/iliyamo/flight-seat-inventory/internal/middleware"
	"github.com/iliyamo/flight-seat-inventory/internal/repository"
)

// Roles carried in the token's role claim.
const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

const requestTimeout = 10 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func getUserID(c echo.Context) (string, error) {
	if s, ok := c.Get(middleware.CtxUserID).(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("invalid user_id in context")
}

// canActFor reports whether the caller is holderID or an admin.
func canActFor(c echo.Context, holderID string) bool {
	uid, err := getUserID(c)
	if err != nil {
		return false
	}
	role, _ := c.Get(middleware.CtxRole).(string)
	return uid == holderID || role == RoleAdmin
}

// errorStatus maps engine errors to an HTTP status and a client message.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrFlightNotFound):
		return http.StatusNotFound, "flight not found"
	case errors.Is(err, repository.ErrBookingNotFound):
		return http.StatusNotFound, "booking not found"
	case errors.Is(err, repository.ErrHoldNotFound):
		return http.StatusNotFound, "hold not found"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, inventory.ErrInsufficientInventory):
		return http.StatusConflict, "not enough seats available"
	case errors.Is(err, inventory.ErrHoldExpired):
		return http.StatusGone, "seat hold has expired"
	case errors.Is(err, inventory.ErrInvalidHold):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, booking.ErrAlreadyCancelled):
		return http.StatusConflict, "booking already cancelled"
	case errors.Is(err, booking.ErrInvalidRequest),
		errors.Is(err, inventory.ErrInvalidSeatCount),
		errors.Is(err, inventory.ErrMissingHolder):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	}
	return http.StatusInternalServerError, "internal error"
}

func writeError(c echo.Context, log logrus.FieldLogger, err error) error {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Path()).Error("request failed")
	}
	return c.JSON(status, echo.Map{"error": msg})
}
