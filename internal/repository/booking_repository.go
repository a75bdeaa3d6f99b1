package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// BookingRepo persists bookings. Passengers and the price snapshot are
// stored as JSON columns because they are only ever read back whole.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `b.id, b.pnr, b.flight_id, b.user_id, b.passengers, b.total_fare, b.currency, b.status,
	b.booking_time, b.receipt_url, b.price_snapshot, b.payment_reference, b.cancelled_at, b.created_at, b.updated_at`

func scanBooking(s rowScanner, extra ...any) (*model.Booking, error) {
	var (
		b           model.Booking
		passengers  []byte
		snapshot    []byte
		cancelledAt sql.NullTime
	)
	dest := []any{
		&b.ID, &b.PNR, &b.FlightID, &b.HolderID, &passengers, &b.TotalFare, &b.Currency, &b.Status,
		&b.BookingTime, &b.ReceiptURL, &snapshot, &b.PaymentReference, &cancelledAt, &b.CreatedAt, &b.UpdatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(passengers, &b.Passengers); err != nil {
		return nil, fmt.Errorf("decode passengers of %s: %w", b.PNR, err)
	}
	if err := json.Unmarshal(snapshot, &b.PriceSnapshot); err != nil {
		return nil, fmt.Errorf("decode price snapshot of %s: %w", b.PNR, err)
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	return &b, nil
}

// CreateTx inserts a booking inside tx. A PNR collision is reported as
// ErrDuplicatePNR; MySQL rolls back only the failed statement, so the
// caller may retry the insert with a new code in the same transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	passengers, err := json.Marshal(b.Passengers)
	if err != nil {
		return fmt.Errorf("encode passengers: %w", err)
	}
	snapshot, err := json.Marshal(b.PriceSnapshot)
	if err != nil {
		return fmt.Errorf("encode price snapshot: %w", err)
	}
	const q = `INSERT INTO bookings (id, pnr, flight_id, user_id, passengers, total_fare, currency, status,
	               booking_time, receipt_url, price_snapshot, payment_reference, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, q,
		b.ID, b.PNR, b.FlightID, b.HolderID, passengers, b.TotalFare, b.Currency, b.Status,
		b.BookingTime.UTC(), b.ReceiptURL, snapshot, b.PaymentReference, b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
	)
	if isDuplicateKey(err, "pnr") {
		return ErrDuplicatePNR
	}
	if err != nil {
		return fmt.Errorf("insert booking %s: %w", b.PNR, err)
	}
	return nil
}

// GetByPNR loads a booking by its reservation code (case-insensitive).
func (r *BookingRepo) GetByPNR(ctx context.Context, pnr string) (*model.Booking, error) {
	return getBooking(ctx, r.db, pnr, false)
}

// GetByPNRForUpdateTx loads and locks a booking row.
func (r *BookingRepo) GetByPNRForUpdateTx(ctx context.Context, tx *sql.Tx, pnr string) (*model.Booking, error) {
	return getBooking(ctx, tx, pnr, true)
}

func getBooking(ctx context.Context, q querier, pnr string, lock bool) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.pnr = ?`
	if lock {
		query += ` FOR UPDATE`
	}
	b, err := scanBooking(q.QueryRowContext(ctx, query, strings.ToUpper(strings.TrimSpace(pnr))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load booking %s: %w", pnr, err)
	}
	return b, nil
}

// MarkCancelledTx flips a CONFIRMED booking to CANCELLED and reports
// whether this call made the change.
func (r *BookingRepo) MarkCancelledTx(ctx context.Context, tx *sql.Tx, id string, at time.Time) (bool, error) {
	const q = `UPDATE bookings SET status = 'CANCELLED', cancelled_at = ?, updated_at = ?
	           WHERE id = ? AND status = 'CONFIRMED'`
	res, err := tx.ExecContext(ctx, q, at.UTC(), at.UTC(), id)
	if err != nil {
		return false, fmt.Errorf("cancel booking %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListByHolder returns every booking of a holder, newest first, with the
// flight, airline and airports populated.
func (r *BookingRepo) ListByHolder(ctx context.Context, holderID string) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + `, ` + flightColumns + `
	      FROM bookings b
	      JOIN flights f ON f.id = b.flight_id
	      JOIN airlines a ON a.id = f.airline_id
	      JOIN airports d ON d.id = f.departure_airport_id
	      JOIN airports r ON r.id = f.arrival_airport_id
	      WHERE b.user_id = ?
	      ORDER BY b.created_at DESC, b.id DESC`
	rows, err := r.db.QueryContext(ctx, q, holderID)
	if err != nil {
		return nil, fmt.Errorf("list bookings for %s: %w", holderID, err)
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		var f model.Flight
		b, err := scanBooking(rows,
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
		b.Flight = &f
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
