package arbiter_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showtime-seating/internal/arbiter"
	"github.com/iliyamo/showtime-seating/internal/model"
	"github.com/iliyamo/showtime-seating/internal/realtime"
	"github.com/iliyamo/showtime-seating/internal/repository"
	"github.com/iliyamo/showtime-seating/internal/selection"
)

// recorder collects published events for assertions.
type recorder struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recorder) Publish(ev realtime.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) byType(t string) []realtime.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []realtime.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// oneRow builds seats 1..n of row A with sequential ids and initializes
// showtime 1 at a flat standard price.
func oneRow(t *testing.T, n int) (*arbiter.Arbiter, *repository.MemStatusStore, *recorder) {
	t.Helper()
	seats := make([]model.Seat, 0, n)
	for i := 1; i <= n; i++ {
		seats = append(seats, model.Seat{
			ID:         uint64(i),
			RowLabel:   "A",
			SeatNumber: uint32(i),
			SeatType:   model.SeatTypeStandard,
			IsActive:   true,
		})
	}
	store := repository.NewMemStatusStore()
	require.NoError(t, store.Initialize(context.Background(), 1, seats, model.PriceTable{StandardCents: 1000}))
	rec := &recorder{}
	return arbiter.New(store, rec), store, rec
}

func TestReserveRaceSingleWinner(t *testing.T) {
	arb, _, _ := oneRow(t, 5)
	ctx := context.Background()

	const racers = 32
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			holder := string(rune('a' + i%26)) + string(rune('0'+i/26))
			_, errs[i] = arb.Reserve(ctx, 1, []uint64{3}, holder, time.Minute)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		ce, ok := repository.AsConflict(err)
		require.True(t, ok, "loser must get a ConflictError, got %v", err)
		assert.Equal(t, uint64(3), ce.SeatID, "conflict must name the contested seat")
	}
	assert.Equal(t, 1, winners, "exactly one racer may acquire the seat")
}

func TestReserveBatchAllOrNothing(t *testing.T) {
	arb, _, _ := oneRow(t, 5)
	ctx := context.Background()

	_, err := arb.Reserve(ctx, 1, []uint64{3}, "holder-a", time.Minute)
	require.NoError(t, err)

	// 2+3 conflicts on 3; 2 must stay untouched.
	_, err = arb.Reserve(ctx, 1, []uint64{2, 3}, "holder-b", time.Minute)
	ce, ok := repository.AsConflict(err)
	require.True(t, ok)
	assert.Equal(t, uint64(3), ce.SeatID)

	// A third holder proves seat 2 was never held: 1+2 is a contiguous
	// pair at the row edge, no gap.
	_, err = arb.Reserve(ctx, 1, []uint64{1, 2}, "holder-c", time.Minute)
	assert.NoError(t, err)
}

func TestReReserveExtendsTTL(t *testing.T) {
	arb, _, _ := oneRow(t, 5)
	ctx := context.Background()

	first, err := arb.Reserve(ctx, 1, []uint64{1}, "holder-a", time.Minute)
	require.NoError(t, err)

	second, err := arb.Reserve(ctx, 1, []uint64{1}, "holder-a", 10*time.Minute)
	require.NoError(t, err, "re-reservation by the same holder is not a conflict")
	assert.True(t, second.After(first), "TTL must be extended")
}

func TestReserveGapRule(t *testing.T) {
	arb, _, _ := oneRow(t, 5)
	ctx := context.Background()

	_, err := arb.Reserve(ctx, 1, []uint64{1, 3}, "holder-a", time.Minute)
	var v *selection.Violation
	require.ErrorAs(t, err, &v, "stranding seat 2 must be rejected")
	assert.Equal(t, "A", v.Row)
	assert.Equal(t, uint32(2), v.Number)

	// Selecting the middle seat too removes the gap.
	_, err = arb.Reserve(ctx, 1, []uint64{1, 2, 3}, "holder-a", time.Minute)
	assert.NoError(t, err)
}

func TestReserveGapAgainstTakenMiddle(t *testing.T) {
	arb, _, _ := oneRow(t, 5)
	ctx := context.Background()

	_, err := arb.Reserve(ctx, 1, []uint64{2}, "holder-a", time.Minute)
	require.NoError(t, err)
	require.NoError(t, arb.Book(ctx, 1, []uint64{2}, "holder-a", "pay-1"))

	// 1+3 no longer strands 2: it is booked.
	_, err = arb.Reserve(ctx, 1, []uint64{1, 3}, "holder-b", time.Minute)
	assert.NoError(t, err)
}

func TestBookRequiresLiveHold(t *testing.T) {
	arb, _, rec := oneRow(t, 5)
	ctx := context.Background()

	// No hold at all.
	err := arb.Book(ctx, 1, []uint64{1}, "holder-a", "pay-1")
	assert.ErrorIs(t, err, repository.ErrExpiredOrMissingReservation)

	// Held by someone else.
	_, err = arb.Reserve(ctx, 1, []uint64{1}, "holder-b", time.Minute)
	require.NoError(t, err)
	err = arb.Book(ctx, 1, []uint64{1}, "holder-a", "pay-1")
	assert.ErrorIs(t, err, repository.ErrExpiredOrMissingReservation)

	// Proper hold books; a second book is rejected (terminal state).
	require.NoError(t, arb.Book(ctx, 1, []uint64{1}, "holder-b", "pay-2"))
	err = arb.Book(ctx, 1, []uint64{1}, "holder-b", "pay-3")
	assert.ErrorIs(t, err, repository.ErrExpiredOrMissingReservation)

	booked := rec.byType(realtime.EventBooked)
	require.Len(t, booked, 1)
	assert.Equal(t, []uint64{1}, booked[0].SeatIDs)
}

func TestBookAfterExpiryRejected(t *testing.T) {
	arb, _, _ := oneRow(t, 5)
	ctx := context.Background()

	_, err := arb.Reserve(ctx, 1, []uint64{4}, "holder-a", 20*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)

	err = arb.Book(ctx, 1, []uint64{4}, "holder-a", "pay-1")
	assert.ErrorIs(t, err, repository.ErrExpiredOrMissingReservation)
}

func TestReleaseSemantics(t *testing.T) {
	arb, _, rec := oneRow(t, 5)
	ctx := context.Background()

	// Releasing an available seat is a no-op, not an error.
	released, err := arb.Release(ctx, 1, []uint64{1}, "")
	require.NoError(t, err)
	assert.Empty(t, released)

	_, err = arb.Reserve(ctx, 1, []uint64{1, 2}, "holder-a", time.Minute)
	require.NoError(t, err)

	// Holder-scoped release skips foreign holds.
	released, err = arb.Release(ctx, 1, []uint64{1, 2}, "holder-b")
	require.NoError(t, err)
	assert.Empty(t, released)

	released, err = arb.Release(ctx, 1, []uint64{1, 2}, "holder-a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{1, 2}, released)

	events := rec.byType(realtime.EventReleased)
	require.Len(t, events, 1, "no-op releases must not broadcast")
}

func TestBlockedSeatExcluded(t *testing.T) {
	arb, _, _ := oneRow(t, 5)
	ctx := context.Background()

	blocked, err := arb.Block(ctx, 1, []uint64{5})
	require.NoError(t, err)
	require.Equal(t, []uint64{5}, blocked)

	_, err = arb.Reserve(ctx, 1, []uint64{5}, "holder-a", time.Minute)
	ce, ok := repository.AsConflict(err)
	require.True(t, ok)
	assert.Equal(t, uint64(5), ce.SeatID)
	assert.Equal(t, model.StatusBlocked, ce.Status)

	unblocked, err := arb.Unblock(ctx, 1, []uint64{5})
	require.NoError(t, err)
	require.Equal(t, []uint64{5}, unblocked)

	_, err = arb.Reserve(ctx, 1, []uint64{5}, "holder-a", time.Minute)
	assert.NoError(t, err)
}

func TestExpiredHoldVisibleAndSwept(t *testing.T) {
	arb, _, rec := oneRow(t, 5)
	ctx := context.Background()

	_, err := arb.Reserve(ctx, 1, []uint64{2}, "holder-a", 20*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)

	// A direct reader sees the lapsed hold as available.
	seats, err := arb.Availability(ctx, 1)
	require.NoError(t, err)
	for _, sa := range seats {
		if sa.Seat.ID == 2 {
			assert.Equal(t, model.StatusAvailable, sa.Status.EffectiveStatus(time.Now().UTC()))
		}
	}

	// Another holder can take the seat over the lapsed hold.
	_, err = arb.Reserve(ctx, 1, []uint64{2}, "holder-b", 20*time.Millisecond)
	assert.NoError(t, err)
	time.Sleep(40 * time.Millisecond)

	// The sweep releases it and broadcasts.
	n, err := arb.ReleaseExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	events := rec.byType(realtime.EventReleased)
	require.NotEmpty(t, events)
	assert.Equal(t, []uint64{2}, events[len(events)-1].SeatIDs)
}

func TestInitializeNotIdempotent(t *testing.T) {
	arb, _, _ := oneRow(t, 3)
	err := arb.Initialize(context.Background(), 1,
		[]model.Seat{{ID: 1, RowLabel: "A", SeatNumber: 1, IsActive: true}},
		model.PriceTable{StandardCents: 1000})
	assert.ErrorIs(t, err, repository.ErrAlreadyInitialized)
}

func TestPriceSnapshotDefaults(t *testing.T) {
	prices := model.PriceTable{StandardCents: 1000}
	assert.Equal(t, uint32(1000), prices.For(model.SeatTypeStandard))
	assert.Equal(t, uint32(1500), prices.For(model.SeatTypeVIP))
	assert.Equal(t, uint32(2000), prices.For(model.SeatTypeCouple))

	explicit := model.PriceTable{StandardCents: 1000, VIPCents: 1800, CoupleCents: 2600}
	assert.Equal(t, uint32(1800), explicit.For(model.SeatTypeVIP))
	assert.Equal(t, uint32(2600), explicit.For(model.SeatTypeCouple))
}
