package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/showtime-seating/internal/model"
)

// MemStatusStore is an in-memory seat status store with the same
// conditional-transition semantics as SeatStatusRepo: every check-then-set
// happens under one lock, so racing holders resolve exactly as they would
// against MySQL.  It backs the dev profile (STORE_BACKEND=memory) and the
// arbiter, scheduler and handler tests.
type MemStatusStore struct {
	mu       sync.Mutex
	seats    map[uint64][]model.Seat                 // showtime -> registered seats
	statuses map[uint64]map[uint64]*model.SeatStatus // showtime -> seat -> row
	prices   map[uint64]model.PriceTable
}

// NewMemStatusStore returns an empty store.
func NewMemStatusStore() *MemStatusStore {
	return &MemStatusStore{
		seats:    map[uint64][]model.Seat{},
		statuses: map[uint64]map[uint64]*model.SeatStatus{},
		prices:   map[uint64]model.PriceTable{},
	}
}

// Initialize creates one AVAILABLE row per active seat.  Fails with
// ErrAlreadyInitialized when the showtime already has rows.
func (m *MemStatusStore) Initialize(_ context.Context, showtimeID uint64, seats []model.Seat, prices model.PriceTable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.statuses[showtimeID]) > 0 {
		return ErrAlreadyInitialized
	}
	rows := map[uint64]*model.SeatStatus{}
	kept := make([]model.Seat, 0, len(seats))
	for _, s := range seats {
		if !s.IsActive {
			continue
		}
		kept = append(kept, s)
		rows[s.ID] = &model.SeatStatus{
			ShowtimeID: showtimeID,
			SeatID:     s.ID,
			Status:     model.StatusAvailable,
			PriceCents: prices.For(s.SeatType),
		}
	}
	if len(kept) == 0 {
		return ErrSeatNotFound
	}
	m.seats[showtimeID] = kept
	m.statuses[showtimeID] = rows
	m.prices[showtimeID] = prices
	return nil
}

// AddSeat registers a seat that appeared after initialization (a layout
// regenerate).  It gets no status row; Availability serves it virtually.
func (m *MemStatusStore) AddSeat(showtimeID uint64, seat model.Seat) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seats[showtimeID] = append(m.seats[showtimeID], seat)
}

// Availability lists every registered seat with its status row, or a
// virtual AVAILABLE at the standard price when no row exists.
func (m *MemStatusStore) Availability(_ context.Context, showtimeID uint64) ([]model.SeatAvailability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seats, ok := m.seats[showtimeID]
	if !ok {
		return nil, ErrShowtimeNotFound
	}
	result := make([]model.SeatAvailability, 0, len(seats))
	for _, s := range seats {
		sa := model.SeatAvailability{Seat: s}
		if row, ok := m.statuses[showtimeID][s.ID]; ok {
			sa.Status = *row
		} else {
			sa.Status = model.SeatStatus{
				ShowtimeID: showtimeID,
				SeatID:     s.ID,
				Status:     model.StatusAvailable,
				PriceCents: m.prices[showtimeID].StandardCents,
			}
		}
		result = append(result, sa)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].Seat, result[j].Seat
		if a.RowLabel != b.RowLabel {
			return a.RowLabel < b.RowLabel
		}
		return a.SeatNumber < b.SeatNumber
	})
	return result, nil
}

// Reserve applies the batch under the lock: every seat passes the reserve
// guard (available, lapsed, or re-reservation by the same holder) or the
// whole batch is rejected with a ConflictError naming the first offender.
func (m *MemStatusStore) Reserve(_ context.Context, showtimeID uint64, seatIDs []uint64, holderID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.statuses[showtimeID]
	if !ok {
		return ErrShowtimeNotFound
	}
	now := time.Now().UTC()

	// Check phase: nothing is mutated until every seat passes.
	for _, seatID := range seatIDs {
		row, ok := rows[seatID]
		if !ok {
			if !m.seatRegistered(showtimeID, seatID) {
				return ErrSeatNotFound
			}
			continue // virtual available, row created below
		}
		switch {
		case row.Status == model.StatusAvailable:
		case row.Lapsed(now):
		case row.Status == model.StatusReserved && row.HolderID == holderID:
		default:
			return &ConflictError{SeatID: seatID, Status: row.Status}
		}
	}
	for _, seatID := range seatIDs {
		row, ok := rows[seatID]
		if !ok {
			row = &model.SeatStatus{
				ShowtimeID: showtimeID,
				SeatID:     seatID,
				PriceCents: m.prices[showtimeID].StandardCents,
			}
			rows[seatID] = row
		}
		row.Status = model.StatusReserved
		row.HolderID = holderID
		row.ReservedAt = now
		row.ExpiresAt = expiresAt.UTC()
		row.BookingRef = ""
	}
	return nil
}

func (m *MemStatusStore) seatRegistered(showtimeID, seatID uint64) bool {
	for _, s := range m.seats[showtimeID] {
		if s.ID == seatID {
			return s.IsActive
		}
	}
	return false
}

// Release returns matching RESERVED seats to AVAILABLE; anything else is a
// silent skip.  holderID scopes the release when non-empty.
func (m *MemStatusStore) Release(_ context.Context, showtimeID uint64, seatIDs []uint64, holderID string) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	released := make([]uint64, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		row, ok := m.statuses[showtimeID][seatID]
		if !ok || row.Status != model.StatusReserved {
			continue
		}
		if holderID != "" && row.HolderID != holderID {
			continue
		}
		m.clearHold(row)
		released = append(released, seatID)
	}
	return released, nil
}

func (m *MemStatusStore) clearHold(row *model.SeatStatus) {
	row.Status = model.StatusAvailable
	row.HolderID = ""
	row.ReservedAt = time.Time{}
	row.ExpiresAt = time.Time{}
}

// Book transitions the whole batch to BOOKED or nothing, rejecting lapsed
// or foreign holds with ErrExpiredOrMissingReservation.
func (m *MemStatusStore) Book(_ context.Context, showtimeID uint64, seatIDs []uint64, holderID, bookingRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for _, seatID := range seatIDs {
		row, ok := m.statuses[showtimeID][seatID]
		if !ok || row.Status != model.StatusReserved || row.HolderID != holderID || !row.ExpiresAt.After(now) {
			return ErrExpiredOrMissingReservation
		}
	}
	for _, seatID := range seatIDs {
		row := m.statuses[showtimeID][seatID]
		row.Status = model.StatusBooked
		row.BookingRef = bookingRef
		row.ReservedAt = time.Time{}
		row.ExpiresAt = time.Time{}
	}
	return nil
}

// Block moves AVAILABLE or RESERVED seats to BLOCKED.
func (m *MemStatusStore) Block(_ context.Context, showtimeID uint64, seatIDs []uint64) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	applied := make([]uint64, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		row, ok := m.statuses[showtimeID][seatID]
		if !ok || (row.Status != model.StatusAvailable && row.Status != model.StatusReserved) {
			continue
		}
		m.clearHold(row)
		row.Status = model.StatusBlocked
		row.BookingRef = ""
		applied = append(applied, seatID)
	}
	return applied, nil
}

// Unblock returns BLOCKED seats to AVAILABLE.
func (m *MemStatusStore) Unblock(_ context.Context, showtimeID uint64, seatIDs []uint64) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	applied := make([]uint64, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		row, ok := m.statuses[showtimeID][seatID]
		if !ok || row.Status != model.StatusBlocked {
			continue
		}
		row.Status = model.StatusAvailable
		applied = append(applied, seatID)
	}
	return applied, nil
}

// ReleaseExpired sweeps lapsed holds across all showtimes.
func (m *MemStatusStore) ReleaseExpired(_ context.Context) ([]model.ExpiredRelease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	var result []model.ExpiredRelease
	for showtimeID, rows := range m.statuses {
		var seats []uint64
		for seatID, row := range rows {
			if row.Lapsed(now) {
				m.clearHold(row)
				seats = append(seats, seatID)
			}
		}
		if len(seats) > 0 {
			sort.Slice(seats, func(i, j int) bool { return seats[i] < seats[j] })
			result = append(result, model.ExpiredRelease{ShowtimeID: showtimeID, SeatIDs: seats})
		}
	}
	return result, nil
}
