package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var flightCols = []string{
	"id", "flight_number", "departure_time", "arrival_time", "base_fare", "currency",
	"total_seats", "available_seats", "fare_class", "status", "aircraft_type", "gate", "duration_minutes",
	"created_at", "updated_at",
	"a_id", "a_name", "a_code", "a_country", "a_logo",
	"d_id", "d_code", "d_name", "d_city", "d_country", "d_tz",
	"r_id", "r_code", "r_name", "r_city", "r_country", "r_tz",
}

func flightValues(id string, available int) []driver.Value {
	dep := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	return []driver.Value{
		id, "SH101", dep, dep.Add(6 * time.Hour), 199.0, "USD",
		100, available, "ECONOMY", "SCHEDULED", "A321", "B12", 360,
		dep.Add(-720 * time.Hour), dep.Add(-720 * time.Hour),
		"al1", "SkyHigh", "SH", "US", "",
		"ap1", "JFK", "Kennedy", "New York", "US", "America/New_York",
		"ap2", "LAX", "Los Angeles Intl", "Los Angeles", "US", "America/Los_Angeles",
	}
}

func newMockTx(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *sql.Tx) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)
	return db, mock, tx
}

func TestFlightRepo_GetForUpdateTx(t *testing.T) {
	db, mock, tx := newMockTx(t)
	repo := NewFlightRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE f.id = ? FOR UPDATE OF f")).
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows(flightCols).AddRow(flightValues("f1", 97)...))

	f, err := repo.GetForUpdateTx(context.Background(), tx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 97, f.AvailableSeats)
	assert.Equal(t, 100, f.TotalSeats)
	assert.Equal(t, "SH", f.Airline.Code)
	assert.Equal(t, "JFK", f.DepartureAirport.Code)
	assert.Equal(t, "LAX", f.ArrivalAirport.Code)
	assert.Equal(t, 360, f.Meta.DurationMinutes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFlightRepo_GetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE f.id = ?")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(flightCols))

	_, err = NewFlightRepo(db).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrFlightNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFlightRepo_DebitSeatsTx(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"enough seats", 1, nil},
		{"not enough seats", 0, ErrInsufficientSeats},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, tx := newMockTx(t)
			mock.ExpectExec(regexp.QuoteMeta("SET available_seats = available_seats - ?")).
				WithArgs(3, "f1", 3).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := NewFlightRepo(db).DebitSeatsTx(context.Background(), tx, "f1", 3)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestFlightRepo_CreditSeatsTxRefusesOverflow(t *testing.T) {
	db, mock, tx := newMockTx(t)
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ? AND available_seats + ? <= total_seats")).
		WithArgs(2, "f1", 2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewFlightRepo(db).CreditSeatsTx(context.Background(), tx, "f1", 2)
	assert.ErrorIs(t, err, ErrSeatOverflow)
	assert.NoError(t, mock.ExpectationsWereMet())
}
