package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// FlightRepo reads flights with their airline and airports populated and
// applies seat deltas to the flights.available_seats counter.
type FlightRepo struct {
	db *sql.DB
}

// NewFlightRepo returns a FlightRepo bound to db.
func NewFlightRepo(db *sql.DB) *FlightRepo { return &FlightRepo{db: db} }

const flightColumns = `f.id, f.flight_number, f.departure_time, f.arrival_time, f.base_fare, f.currency,
	f.total_seats, f.available_seats, f.fare_class, f.status, f.aircraft_type, f.gate, f.duration_minutes,
	f.created_at, f.updated_at,
	a.id, a.name, a.code, a.country, a.logo_url,
	d.id, d.code, d.name, d.city, d.country, d.timezone,
	r.id, r.code, r.name, r.city, r.country, r.timezone`

const flightJoins = `FROM flights f
	JOIN airlines a ON a.id = f.airline_id
	JOIN airports d ON d.id = f.departure_airport_id
	JOIN airports r ON r.id = f.arrival_airport_id`

func scanFlight(s rowScanner) (*model.Flight, error) {
	var f model.Flight
	err := s.Scan(
		&f.ID, &f.FlightNumber, &f.DepartureTime, &f.ArrivalTime, &f.BaseFare, &f.Currency,
		&f.TotalSeats, &f.AvailableSeats, &f.FareClass, &f.Status, &f.Meta.AircraftType, &f.Meta.Gate, &f.Meta.DurationMinutes,
		&f.CreatedAt, &f.UpdatedAt,
		&f.Airline.ID, &f.Airline.Name, &f.Airline.Code, &f.Airline.Country, &f.Airline.LogoURL,
		&f.DepartureAirport.ID, &f.DepartureAirport.Code, &f.DepartureAirport.Name, &f.DepartureAirport.City,
		&f.DepartureAirport.Country, &f.DepartureAirport.Timezone,
		&f.ArrivalAirport.ID, &f.ArrivalAirport.Code, &f.ArrivalAirport.Name, &f.ArrivalAirport.City,
		&f.ArrivalAirport.Country, &f.ArrivalAirport.Timezone,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetByID loads a flight outside any transaction.
func (r *FlightRepo) GetByID(ctx context.Context, id string) (*model.Flight, error) {
	return getFlight(ctx, r.db, id, false)
}

// GetForUpdateTx loads a flight and locks its row (only the flights row,
// not the joined airline and airports) until tx ends.
func (r *FlightRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.Flight, error) {
	return getFlight(ctx, tx, id, true)
}

func getFlight(ctx context.Context, q querier, id string, lock bool) (*model.Flight, error) {
	query := `SELECT ` + flightColumns + ` ` + flightJoins + ` WHERE f.id = ?`
	if lock {
		query += ` FOR UPDATE OF f`
	}
	f, err := scanFlight(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFlightNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load flight %s: %w", id, err)
	}
	return f, nil
}

// DebitSeatsTx subtracts n seats with a single conditional statement. Zero
// affected rows means fewer than n seats were available (or the flight is
// gone, which callers rule out by loading it first).
func (r *FlightRepo) DebitSeatsTx(ctx context.Context, tx *sql.Tx, id string, n int) error {
	const q = `UPDATE flights SET available_seats = available_seats - ?, updated_at = UTC_TIMESTAMP(3)
	           WHERE id = ? AND available_seats >= ?`
	res, err := tx.ExecContext(ctx, q, n, id, n)
	if err != nil {
		return fmt.Errorf("debit %d seats on flight %s: %w", n, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInsufficientSeats
	}
	return nil
}

// CreditSeatsTx adds n seats back, refusing to exceed total_seats.
func (r *FlightRepo) CreditSeatsTx(ctx context.Context, tx *sql.Tx, id string, n int) error {
	const q = `UPDATE flights SET available_seats = available_seats + ?, updated_at = UTC_TIMESTAMP(3)
	           WHERE id = ? AND available_seats + ? <= total_seats`
	res, err := tx.ExecContext(ctx, q, n, id, n)
	if err != nil {
		return fmt.Errorf("credit %d seats on flight %s: %w", n, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("flight %s: %w", id, ErrSeatOverflow)
	}
	return nil
}
