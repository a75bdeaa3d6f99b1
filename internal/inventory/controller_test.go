package inventory

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-seat-inventory/internal/clock"
	"github.com/iliyamo/flight-seat-inventory/internal/model"
	"github.com/iliyamo/flight-seat-inventory/internal/repository"
	"github.com/iliyamo/flight-seat-inventory/internal/repository/memory"
)

var t0 = time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	store *memory.Store
	clk   *clock.Fixed
	ctl   *Controller
}

func newFixture(t *testing.T, seats int, opts ...Option) *fixture {
	t.Helper()
	store := memory.New()
	store.PutFlight(model.Flight{ID: "f1", TotalSeats: seats, AvailableSeats: seats, BaseFare: 100, Currency: "USD", DepartureTime: t0.Add(72 * time.Hour)})
	clk := clock.NewFixed(t0)
	logger, _ := test.NewNullLogger()
	opts = append([]Option{WithClock(clk), WithLogger(logger)}, opts...)
	return &fixture{store: store, clk: clk, ctl: NewController(store, 2*time.Minute, opts...)}
}

func (fx *fixture) available(t *testing.T) int {
	t.Helper()
	f, err := fx.store.Flight(context.Background(), "f1")
	require.NoError(t, err)
	return f.AvailableSeats
}

func TestCreateHold_DebitsSeats(t *testing.T) {
	fx := newFixture(t, 100)

	h, err := fx.ctl.CreateHold(context.Background(), "f1", "u1", 3)
	require.NoError(t, err)

	assert.Equal(t, 97, fx.available(t))
	assert.Equal(t, model.HoldHeld, h.Status)
	assert.Equal(t, 3, h.SeatsLocked)
	assert.Equal(t, t0.Add(2*time.Minute), h.ExpiresAt)
	assert.NotEmpty(t, h.ID)
}

func TestCreateHold_Failures(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()

	_, err := fx.ctl.CreateHold(ctx, "missing", "u1", 1)
	assert.ErrorIs(t, err, ErrFlightNotFound)

	_, err = fx.ctl.CreateHold(ctx, "f1", "u1", 0)
	assert.ErrorIs(t, err, ErrInvalidSeatCount)

	_, err = fx.ctl.CreateHold(ctx, "f1", "", 1)
	assert.ErrorIs(t, err, ErrMissingHolder)

	_, err = fx.ctl.CreateHold(ctx, "f1", "u1", 3)
	assert.ErrorIs(t, err, ErrInsufficientInventory)
	assert.Equal(t, 2, fx.available(t))
}

func TestCreateHold_HolderMayStackHolds(t *testing.T) {
	fx := newFixture(t, 10)
	ctx := context.Background()

	_, err := fx.ctl.CreateHold(ctx, "f1", "u1", 2)
	require.NoError(t, err)
	_, err = fx.ctl.CreateHold(ctx, "f1", "u1", 2)
	require.NoError(t, err)
	assert.Equal(t, 6, fx.available(t))
}

func TestSweep_LiveHoldIsUntouched(t *testing.T) {
	fx := newFixture(t, 100)
	ctx := context.Background()
	_, err := fx.ctl.CreateHold(ctx, "f1", "u1", 3)
	require.NoError(t, err)

	fx.clk.Advance(time.Minute)
	n, err := fx.ctl.SweepExpired(ctx)
	require.NoError(t, err)

	assert.Zero(t, n)
	assert.Equal(t, 97, fx.available(t))
}

func TestSweep_ExpiredHoldReturnsSeatsExactlyOnce(t *testing.T) {
	fx := newFixture(t, 100)
	ctx := context.Background()
	h, err := fx.ctl.CreateHold(ctx, "f1", "u1", 3)
	require.NoError(t, err)

	fx.clk.Advance(2 * time.Minute)
	n, err := fx.ctl.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 100, fx.available(t))

	n, err = fx.ctl.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 100, fx.available(t))

	stored, err := fx.store.Hold(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, model.HoldReleased, stored.Status)
	assert.Equal(t, model.ReleaseExpired, stored.ReleaseReason)
}

func TestSweep_DrainsAllBatches(t *testing.T) {
	fx := newFixture(t, 10, WithSweepBatch(2))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := fx.ctl.CreateHold(ctx, "f1", "u1", 1)
		require.NoError(t, err)
	}
	require.Equal(t, 5, fx.available(t))

	fx.clk.Advance(3 * time.Minute)
	n, err := fx.ctl.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 10, fx.available(t))
}

func TestCreateHold_ExpiredHoldsFreeSeatsFirst(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()
	_, err := fx.ctl.CreateHold(ctx, "f1", "u1", 2)
	require.NoError(t, err)

	fx.clk.Advance(2 * time.Minute)
	_, err = fx.ctl.CreateHold(ctx, "f1", "u2", 2)
	require.NoError(t, err)
	assert.Equal(t, 0, fx.available(t))
}

func TestCreateHold_BacklogOnOtherFlightsDoesNotStarveTarget(t *testing.T) {
	fx := newFixture(t, 1, WithSweepBatch(5))
	fx.store.PutFlight(model.Flight{ID: "f2", TotalSeats: 10, AvailableSeats: 10, BaseFare: 80, Currency: "USD", DepartureTime: t0.Add(72 * time.Hour)})
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, err := fx.ctl.CreateHold(ctx, "f2", "other", 1)
		require.NoError(t, err)
	}
	fx.clk.Advance(time.Second)
	_, err := fx.ctl.CreateHold(ctx, "f1", "u1", 1)
	require.NoError(t, err)
	require.Equal(t, 0, fx.available(t))

	fx.clk.Advance(5 * time.Minute)
	h, err := fx.ctl.CreateHold(ctx, "f1", "u2", 1)
	require.NoError(t, err)
	assert.Equal(t, "u2", h.HolderID)
	assert.Equal(t, 0, fx.available(t))

	f2, err := fx.store.Flight(ctx, "f2")
	require.NoError(t, err)
	assert.Equal(t, 0, f2.AvailableSeats, "other flights are left to the background sweeper")
}

func TestSweepFlight_OnlyTouchesThatFlight(t *testing.T) {
	fx := newFixture(t, 10)
	fx.store.PutFlight(model.Flight{ID: "f2", TotalSeats: 10, AvailableSeats: 10, BaseFare: 80, Currency: "USD", DepartureTime: t0.Add(72 * time.Hour)})
	ctx := context.Background()
	_, err := fx.ctl.CreateHold(ctx, "f1", "u1", 3)
	require.NoError(t, err)
	_, err = fx.ctl.CreateHold(ctx, "f1", "u2", 2)
	require.NoError(t, err)
	_, err = fx.ctl.CreateHold(ctx, "f2", "u1", 4)
	require.NoError(t, err)

	fx.clk.Advance(3 * time.Minute)
	n, err := fx.ctl.SweepFlight(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 10, fx.available(t))

	f2, err := fx.store.Flight(ctx, "f2")
	require.NoError(t, err)
	assert.Equal(t, 6, f2.AvailableSeats)
}

func TestConsumeHold(t *testing.T) {
	fx := newFixture(t, 100)
	ctx := context.Background()
	h, err := fx.ctl.CreateHold(ctx, "f1", "u1", 3)
	require.NoError(t, err)

	consumed, err := fx.ctl.ConsumeHold(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, model.HoldReleased, consumed.Status)
	assert.Equal(t, model.ReleaseConsumed, consumed.ReleaseReason)
	assert.Equal(t, 97, fx.available(t), "consumed seats stay debited")

	_, err = fx.ctl.ConsumeHold(ctx, h.ID)
	assert.ErrorIs(t, err, ErrInvalidHold)

	_, err = fx.ctl.ConsumeHold(ctx, "nope")
	assert.ErrorIs(t, err, ErrInvalidHold)
}

func TestConsumeHold_ExpiredReleasesBeforeFailing(t *testing.T) {
	fx := newFixture(t, 100)
	ctx := context.Background()
	h, err := fx.ctl.CreateHold(ctx, "f1", "u1", 3)
	require.NoError(t, err)

	fx.clk.Advance(2*time.Minute + time.Second)
	_, err = fx.ctl.ConsumeHold(ctx, h.ID)
	assert.ErrorIs(t, err, ErrHoldExpired)
	assert.Equal(t, 100, fx.available(t))

	stored, err := fx.store.Hold(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, model.HoldReleased, stored.Status)

	_, err = fx.ctl.ConsumeHold(ctx, h.ID)
	assert.ErrorIs(t, err, ErrInvalidHold)
}

func TestReleaseHold_Idempotent(t *testing.T) {
	fx := newFixture(t, 100)
	ctx := context.Background()
	h, err := fx.ctl.CreateHold(ctx, "f1", "u1", 4)
	require.NoError(t, err)

	released, err := fx.ctl.ReleaseHold(ctx, h.ID)
	require.NoError(t, err)
	require.NotNil(t, released)
	assert.Equal(t, model.ReleaseManual, released.ReleaseReason)
	assert.Equal(t, 100, fx.available(t))

	again, err := fx.ctl.ReleaseHold(ctx, h.ID)
	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Equal(t, 100, fx.available(t))

	missing, err := fx.ctl.ReleaseHold(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTxMethodsRollBackWithCaller(t *testing.T) {
	fx := newFixture(t, 10)
	ctx := context.Background()
	boom := errors.New("later step failed")

	err := fx.store.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := fx.ctl.CreateHoldTx(ctx, tx, "f1", "u1", 4); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 10, fx.available(t))
}

func TestCreateHold_ConcurrentLastSeat(t *testing.T) {
	fx := newFixture(t, 1)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	start := make(chan struct{})
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = fx.ctl.CreateHold(ctx, "f1", "u1", 1)
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientInventory):
			insufficient++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, 0, fx.available(t))
}

func TestInventoryInvariantUnderConcurrentMix(t *testing.T) {
	const total = 20
	fx := newFixture(t, total)
	ctx := context.Background()

	var (
		mu    sync.Mutex
		holds []string
		wg    sync.WaitGroup
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 50; i++ {
				switch rng.Intn(3) {
				case 0:
					if h, err := fx.ctl.CreateHold(ctx, "f1", "u", 1+rng.Intn(3)); err == nil {
						mu.Lock()
						holds = append(holds, h.ID)
						mu.Unlock()
					}
				case 1:
					mu.Lock()
					var id string
					if len(holds) > 0 {
						id = holds[rng.Intn(len(holds))]
					}
					mu.Unlock()
					if id != "" {
						_, _ = fx.ctl.ReleaseHold(ctx, id)
					}
				default:
					_, _ = fx.ctl.SweepExpired(ctx)
				}
				avail := fx.available(t)
				assert.GreaterOrEqual(t, avail, 0)
				assert.LessOrEqual(t, avail, total)
			}
		}(int64(w))
	}
	wg.Wait()

	held := 0
	for _, id := range holds {
		h, err := fx.store.Hold(ctx, id)
		require.NoError(t, err)
		if h.IsHeld() {
			held += h.SeatsLocked
		}
	}
	assert.Equal(t, total-held, fx.available(t))
}
