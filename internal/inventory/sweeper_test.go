package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_ReleasesExpiredHoldsInBackground(t *testing.T) {
	fx := newFixture(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := fx.ctl.CreateHold(ctx, "f1", "u1", 4)
	require.NoError(t, err)
	fx.clk.Advance(5 * time.Minute)

	logger, _ := test.NewNullLogger()
	done := make(chan error, 1)
	go func() { done <- NewSweeper(fx.ctl, 10*time.Millisecond, logger).Run(ctx) }()

	require.Eventually(t, func() bool { return fx.available(t) == 10 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
