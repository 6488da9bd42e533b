package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showtime-seating/internal/arbiter"
	"github.com/iliyamo/showtime-seating/internal/model"
	"github.com/iliyamo/showtime-seating/internal/repository"
	"github.com/iliyamo/showtime-seating/internal/scheduler"
)

type countingSweeper struct {
	calls atomic.Int64
	err   error
}

func (c *countingSweeper) ReleaseExpired(context.Context) (int, error) {
	c.calls.Add(1)
	return 0, c.err
}

func TestRunTicksUntilCancelled(t *testing.T) {
	sw := &countingSweeper{}
	e := scheduler.NewExpiry(sw, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sw.calls.Load() >= 3 },
		time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}

func TestSweepSwallowsErrors(t *testing.T) {
	sw := &countingSweeper{err: errors.New("db down")}
	e := scheduler.NewExpiry(sw, time.Minute)
	e.Sweep(context.Background()) // must not panic or propagate
	assert.Equal(t, int64(1), sw.calls.Load())
}

func TestSweepReleasesLapsedHold(t *testing.T) {
	store := repository.NewMemStatusStore()
	seats := []model.Seat{{ID: 1, RowLabel: "A", SeatNumber: 1, SeatType: model.SeatTypeStandard, IsActive: true}}
	require.NoError(t, store.Initialize(context.Background(), 7, seats, model.PriceTable{StandardCents: 900}))

	arb := arbiter.New(store, nil)
	_, err := arb.Reserve(context.Background(), 7, []uint64{1}, "holder-a", 15*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)

	e := scheduler.NewExpiry(arb, time.Minute)
	e.Sweep(context.Background())

	avail, err := store.Availability(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, avail, 1)
	assert.Equal(t, model.StatusAvailable, avail[0].Status.Status, "row itself is reset, not just effectively available")
	assert.Empty(t, avail[0].Status.HolderID)
}
