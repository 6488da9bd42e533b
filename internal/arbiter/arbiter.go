// Package arbiter owns the seat reservation state machine.  It validates
// selections against the gap rule, drives conditional transitions through
// the status store, and publishes the resulting deltas to the realtime
// hub.  The store enforces the single-holder invariant; the arbiter never
// decides on stale reads.
package arbiter

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/showtime-seating/internal/model"
	"github.com/iliyamo/showtime-seating/internal/realtime"
	"github.com/iliyamo/showtime-seating/internal/selection"
)

// StatusStore is the storage contract the arbiter drives.  Implementations
// must make every transition a conditional check-then-set that is atomic
// per seat, and batch operations atomic as a whole.  Satisfied by
// repository.SeatStatusRepo (MySQL) and repository.MemStatusStore.
type StatusStore interface {
	Initialize(ctx context.Context, showtimeID uint64, seats []model.Seat, prices model.PriceTable) error
	Availability(ctx context.Context, showtimeID uint64) ([]model.SeatAvailability, error)
	Reserve(ctx context.Context, showtimeID uint64, seatIDs []uint64, holderID string, expiresAt time.Time) error
	Release(ctx context.Context, showtimeID uint64, seatIDs []uint64, holderID string) ([]uint64, error)
	Book(ctx context.Context, showtimeID uint64, seatIDs []uint64, holderID, bookingRef string) error
	Block(ctx context.Context, showtimeID uint64, seatIDs []uint64) ([]uint64, error)
	Unblock(ctx context.Context, showtimeID uint64, seatIDs []uint64) ([]uint64, error)
	ReleaseExpired(ctx context.Context) ([]model.ExpiredRelease, error)
}

// Publisher receives the deltas of committed transitions.  Satisfied by
// realtime.Hub.
type Publisher interface {
	Publish(ev realtime.Event)
}

// Reservation TTL bounds.  A zero ttl falls back to DefaultTTL; anything
// above MaxTTL is clamped so a client cannot pin seats for hours.
const (
	DefaultTTL = 5 * time.Minute
	MaxTTL     = 30 * time.Minute
)

// Arbiter coordinates all reservation transitions for all showtimes.
type Arbiter struct {
	store StatusStore
	pub   Publisher
}

// New constructs an Arbiter.  pub may be nil in tests that do not observe
// events.
func New(store StatusStore, pub Publisher) *Arbiter {
	return &Arbiter{store: store, pub: pub}
}

// Initialize creates the status rows for a showtime.  Not idempotent:
// repository.ErrAlreadyInitialized surfaces when rows exist.
func (a *Arbiter) Initialize(ctx context.Context, showtimeID uint64, seats []model.Seat, prices model.PriceTable) error {
	return a.store.Initialize(ctx, showtimeID, seats, prices)
}

// Availability returns the current seat map of a showtime.
func (a *Arbiter) Availability(ctx context.Context, showtimeID uint64) ([]model.SeatAvailability, error) {
	return a.store.Availability(ctx, showtimeID)
}

// Reserve acquires a time-boxed hold on the whole batch or nothing.
// The gap rule runs here authoritatively: a selection that would strand a
// single available seat is rejected before storage is touched.  Conflicts
// surface as *repository.ConflictError naming the first offending seat.
func (a *Arbiter) Reserve(ctx context.Context, showtimeID uint64, seatIDs []uint64, holderID string, ttl time.Duration) (time.Time, error) {
	seatIDs = normalize(seatIDs)
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if ttl > MaxTTL {
		ttl = MaxTTL
	}
	now := time.Now().UTC()

	seats, err := a.store.Availability(ctx, showtimeID)
	if err != nil {
		return time.Time{}, err
	}
	if res := selection.Validate(seatIDs, seats, now); !res.Valid {
		return time.Time{}, &selection.Violation{Row: res.Row, Number: res.Number, Reason: res.Reason}
	}

	expiresAt := now.Add(ttl)
	if err := a.store.Reserve(ctx, showtimeID, seatIDs, holderID, expiresAt); err != nil {
		return time.Time{}, err
	}
	a.publish(realtime.Event{
		Type:       realtime.EventReserved,
		ShowtimeID: showtimeID,
		SeatIDs:    seatIDs,
		Status:     model.StatusReserved,
	})
	return expiresAt, nil
}

// Release returns reserved seats to available.  Already-available seats
// and seats held by someone else are skipped silently; holderID scopes the
// release when non-empty.
func (a *Arbiter) Release(ctx context.Context, showtimeID uint64, seatIDs []uint64, holderID string) ([]uint64, error) {
	released, err := a.store.Release(ctx, showtimeID, normalize(seatIDs), holderID)
	if err != nil {
		return nil, err
	}
	if len(released) > 0 {
		a.publish(realtime.Event{
			Type:       realtime.EventReleased,
			ShowtimeID: showtimeID,
			SeatIDs:    released,
			Status:     model.StatusAvailable,
		})
	}
	return released, nil
}

// Book finalizes reserved-by-holder seats under a booking reference.  The
// transition is terminal and rejects lapsed or missing holds with
// repository.ErrExpiredOrMissingReservation.
func (a *Arbiter) Book(ctx context.Context, showtimeID uint64, seatIDs []uint64, holderID, bookingRef string) error {
	seatIDs = normalize(seatIDs)
	if err := a.store.Book(ctx, showtimeID, seatIDs, holderID, bookingRef); err != nil {
		return err
	}
	a.publish(realtime.Event{
		Type:       realtime.EventBooked,
		ShowtimeID: showtimeID,
		SeatIDs:    seatIDs,
		Status:     model.StatusBooked,
	})
	return nil
}

// Block administratively withdraws seats, discarding live holds.
func (a *Arbiter) Block(ctx context.Context, showtimeID uint64, seatIDs []uint64) ([]uint64, error) {
	blocked, err := a.store.Block(ctx, showtimeID, normalize(seatIDs))
	if err != nil {
		return nil, err
	}
	if len(blocked) > 0 {
		a.publish(realtime.Event{
			Type:       realtime.EventBlocked,
			ShowtimeID: showtimeID,
			SeatIDs:    blocked,
			Status:     model.StatusBlocked,
		})
	}
	return blocked, nil
}

// Unblock returns blocked seats to available.
func (a *Arbiter) Unblock(ctx context.Context, showtimeID uint64, seatIDs []uint64) ([]uint64, error) {
	unblocked, err := a.store.Unblock(ctx, showtimeID, normalize(seatIDs))
	if err != nil {
		return nil, err
	}
	if len(unblocked) > 0 {
		a.publish(realtime.Event{
			Type:       realtime.EventUnblocked,
			ShowtimeID: showtimeID,
			SeatIDs:    unblocked,
			Status:     model.StatusAvailable,
		})
	}
	return unblocked, nil
}

// ReleaseExpired sweeps lapsed holds and broadcasts one released event per
// affected showtime.  It never raises per-seat errors to callers; losing a
// race to a just-in-time Book is a silent no-op inside the store.
func (a *Arbiter) ReleaseExpired(ctx context.Context) (int, error) {
	releases, err := a.store.ReleaseExpired(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, rel := range releases {
		total += len(rel.SeatIDs)
		a.publish(realtime.Event{
			Type:       realtime.EventReleased,
			ShowtimeID: rel.ShowtimeID,
			SeatIDs:    rel.SeatIDs,
			Status:     model.StatusAvailable,
		})
	}
	return total, nil
}

func (a *Arbiter) publish(ev realtime.Event) {
	if a.pub != nil {
		a.pub.Publish(ev)
	}
}

// normalize deduplicates and sorts seat ids.  The stable order gives the
// storage layer a consistent locking order, so two overlapping batches
// cannot deadlock each other.
func normalize(seatIDs []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(seatIDs))
	out := make([]uint64, 0, len(seatIDs))
	for _, id := range seatIDs {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
