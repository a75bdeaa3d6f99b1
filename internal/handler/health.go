package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-seat-inventory/internal/clock"
)

// Prober reports whether the backing store can serve requests.
type Prober interface {
	Ping(ctx context.Context) error
}

// ProbeFunc adapts a function to Prober.
type ProbeFunc func(ctx context.Context) error

func (f ProbeFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	Store   Prober
	Service string
	Clock   clock.Clock
}

// Health answers 200 when the store responds and 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status, store, code := "ok", "up", http.StatusOK
	if err := h.Store.Ping(ctx); err != nil {
		status, store, code = "degraded", "down", http.StatusServiceUnavailable
	}
	return c.JSON(code, echo.Map{
		"status":    status,
		"service":   h.Service,
		"timestamp": h.Clock.Now().Format(time.RFC3339),
		"store":     store,
	})
}
