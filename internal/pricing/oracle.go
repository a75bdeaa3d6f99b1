package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

// ErrOracleUnavailable covers every way the pricing oracle can fail. It
// never leaves this package: the gateway turns it into a fallback quote.
var ErrOracleUnavailable = errors.New("pricing oracle unavailable")

// OracleRequest is the body posted to the oracle.
type OracleRequest struct {
	BaseFare         float64 `json:"base_fare"`
	SeatsLeft        int     `json:"seats_left"`
	TotalSeats       int     `json:"total_seats"`
	HoursToDeparture int     `json:"hours_to_departure"`
	DemandIndex      float64 `json:"demand_index"`
	FlightID         string  `json:"flight_id"`
}

// OracleResponse is the oracle's answer. DemandIndex is optional; when
// absent the request's value is kept.
type OracleResponse struct {
	DynamicPrice float64        `json:"dynamic_price"`
	DemandIndex  *float64       `json:"demand_index,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Oracle computes a dynamic per-seat price.
type Oracle interface {
	Quote(ctx context.Context, req OracleRequest) (*OracleResponse, error)
}

// HTTPOracle calls POST {baseURL}/get_dynamic_price.
type HTTPOracle struct {
	endpoint string
	client   *http.Client
}

// NewHTTPOracle builds a client whose every call is bounded by timeout.
func NewHTTPOracle(baseURL string, timeout time.Duration) *HTTPOracle {
	return &HTTPOracle{
		endpoint: strings.TrimRight(baseURL, "/") + "/get_dynamic_price",
		client:   &http.Client{Timeout: timeout},
	}
}

func (o *HTTPOracle) Quote(ctx context.Context, in OracleRequest) (*OracleResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrOracleUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d", ErrOracleUnavailable, resp.StatusCode)
	}

	var out OracleResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrOracleUnavailable, err)
	}
	if out.DynamicPrice <= 0 || math.IsNaN(out.DynamicPrice) || math.IsInf(out.DynamicPrice, 0) {
		return nil, fmt.Errorf("%w: invalid dynamic_price %v", ErrOracleUnavailable, out.DynamicPrice)
	}
	return &out, nil
}
