package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

func TestRedisCache_Miss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectGet("price:f1").RedisNil()

	e, err := NewRedisCache(db, "").Get(context.Background(), "f1")
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_RoundTrip(t *testing.T) {
	db, mock := redismock.NewClientMock()
	entry := model.PriceCacheEntry{
		FlightID: "f1", DynamicPrice: 245.5, DemandIndex: 0.3, SeatsLeft: 40, HoursToDeparture: 12,
		CalculatedAt: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	raw, err := json.Marshal(entry)
	require.NoError(t, err)

	mock.ExpectSet("price:f1", raw, 0).SetVal("OK")
	mock.ExpectGet("price:f1").SetVal(string(raw))

	cache := NewRedisCache(db, "price")
	require.NoError(t, cache.Put(context.Background(), entry))
	got, err := cache.Get(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, entry, *got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_ErrorSurfaces(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectGet("price:f1").SetErr(errors.New("connection refused"))

	_, err := NewRedisCache(db, "").Get(context.Background(), "f1")
	assert.Error(t, err)
}
