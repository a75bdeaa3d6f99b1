package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// SeatHoldRepo provides data access to the seat_holds table. All instants
// are stored and compared in UTC; callers pass "now" explicitly so the
// database clock never decides whether a hold is expired.
type SeatHoldRepo struct {
	db *sql.DB
}

// NewSeatHoldRepo returns a new SeatHoldRepo bound to the provided database.
func NewSeatHoldRepo(db *sql.DB) *SeatHoldRepo { return &SeatHoldRepo{db: db} }

const holdColumns = `id, flight_id, user_id, seats_locked, status, expires_at, release_reason, released_at, created_at`

func scanHold(s rowScanner) (*model.SeatHold, error) {
	var (
		h          model.SeatHold
		reason     sql.NullString
		releasedAt sql.NullTime
	)
	if err := s.Scan(&h.ID, &h.FlightID, &h.HolderID, &h.SeatsLocked, &h.Status, &h.ExpiresAt, &reason, &releasedAt, &h.CreatedAt); err != nil {
		return nil, err
	}
	h.ReleaseReason = reason.String
	if releasedAt.Valid {
		t := releasedAt.Time
		h.ReleasedAt = &t
	}
	return &h, nil
}

// CreateTx inserts a HELD hold. ID, ExpiresAt and CreatedAt must be set by
// the caller.
func (r *SeatHoldRepo) CreateTx(ctx context.Context, tx *sql.Tx, h *model.SeatHold) error {
	const q = `INSERT INTO seat_holds (id, flight_id, user_id, seats_locked, status, expires_at, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q, h.ID, h.FlightID, h.HolderID, h.SeatsLocked, h.Status, h.ExpiresAt.UTC(), h.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("insert seat hold: %w", err)
	}
	return nil
}

// GetByID reads a hold without locking.
func (r *SeatHoldRepo) GetByID(ctx context.Context, id string) (*model.SeatHold, error) {
	return getHold(ctx, r.db, id, false)
}

// GetForUpdateTx reads a hold and locks its row until tx ends.
func (r *SeatHoldRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.SeatHold, error) {
	return getHold(ctx, tx, id, true)
}

func getHold(ctx context.Context, q querier, id string, lock bool) (*model.SeatHold, error) {
	query := `SELECT ` + holdColumns + ` FROM seat_holds WHERE id = ?`
	if lock {
		query += ` FOR UPDATE`
	}
	h, err := scanHold(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHoldNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load seat hold %s: %w", id, err)
	}
	return h, nil
}

// MarkReleasedTx transitions a hold from HELD to RELEASED. The status guard
// makes the transition happen at most once; a second caller gets false.
func (r *SeatHoldRepo) MarkReleasedTx(ctx context.Context, tx *sql.Tx, id, reason string, at time.Time) (bool, error) {
	const q = `UPDATE seat_holds SET status = 'RELEASED', release_reason = ?, released_at = ?
	           WHERE id = ? AND status = 'HELD'`
	res, err := tx.ExecContext(ctx, q, reason, at.UTC(), id)
	if err != nil {
		return false, fmt.Errorf("release seat hold %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ExpiredTx lists HELD holds whose expiry has been reached, oldest first.
func (r *SeatHoldRepo) ExpiredTx(ctx context.Context, tx *sql.Tx, now time.Time, limit int) ([]model.SeatHold, error) {
	const q = `SELECT ` + holdColumns + ` FROM seat_holds
	           WHERE status = 'HELD' AND expires_at <= ?
	           ORDER BY expires_at, id
	           LIMIT ?`
	rows, err := tx.QueryContext(ctx, q, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query expired holds: %w", err)
	}
	return collectHolds(rows)
}

// ExpiredForFlightTx lists every expired HELD hold on one flight.
func (r *SeatHoldRepo) ExpiredForFlightTx(ctx context.Context, tx *sql.Tx, flightID string, now time.Time) ([]model.SeatHold, error) {
	const q = `SELECT ` + holdColumns + ` FROM seat_holds
	           WHERE flight_id = ? AND status = 'HELD' AND expires_at <= ?
	           ORDER BY expires_at, id`
	rows, err := tx.QueryContext(ctx, q, flightID, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("query expired holds for flight: %w", err)
	}
	return collectHolds(rows)
}

func collectHolds(rows *sql.Rows) ([]model.SeatHold, error) {
	defer rows.Close()
	var holds []model.SeatHold
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, err
		}
		holds = append(holds, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return holds, nil
}
