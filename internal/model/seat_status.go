package model

import "time"

// Seat reservation states.  AVAILABLE is the resting state; RESERVED is a
// time-boxed hold; BOOKED is terminal; BLOCKED is administrative and
// returns only to AVAILABLE.
const (
	StatusAvailable = "AVAILABLE"
	StatusReserved  = "RESERVED"
	StatusBooked    = "BOOKED"
	StatusBlocked   = "BLOCKED"
)

// SeatStatus is the mutable reservation record for one seat within one
// showtime.  Rows are created once per showtime by the initialize call and
// mutated only through conditional transitions; at most one holder owns
// RESERVED or BOOKED for any (showtime, seat) at any instant.
//
// Fields:
//  ShowtimeID - showtime this record belongs to.
//  SeatID     - seat this record belongs to.
//  Status     - one of the state constants above.
//  HolderID   - identity owning the hold; empty unless RESERVED or BOOKED.
//  ReservedAt - when the current hold was placed (zero otherwise).
//  ExpiresAt  - when the current hold lapses (zero otherwise).
//  BookingRef - payment reference recorded at booking time.
//  PriceCents - price snapshot frozen at initialization.
type SeatStatus struct {
	ShowtimeID uint64    // seat_status.showtime_id
	SeatID     uint64    // seat_status.seat_id
	Status     string    // seat_status.status
	HolderID   string    // seat_status.holder_id (empty when free)
	ReservedAt time.Time // seat_status.reserved_at (nullable)
	ExpiresAt  time.Time // seat_status.expires_at (nullable)
	BookingRef string    // seat_status.booking_ref (empty until booked)
	PriceCents uint32    // seat_status.price_cents
}

// Lapsed reports whether a RESERVED record's hold has expired at the given
// instant.  Lapsed holds read as available everywhere; only storage
// transitions make that visible to other writers.
func (s *SeatStatus) Lapsed(now time.Time) bool {
	return s.Status == StatusReserved && !s.ExpiresAt.After(now)
}

// EffectiveStatus collapses a lapsed hold to AVAILABLE for readers.
func (s *SeatStatus) EffectiveStatus(now time.Time) string {
	if s.Lapsed(now) {
		return StatusAvailable
	}
	return s.Status
}

// ExpiredRelease groups the seats an expiry sweep returned to AVAILABLE
// for one showtime, so the broadcaster can fan out one event per topic.
type ExpiredRelease struct {
	ShowtimeID uint64
	SeatIDs    []uint64
}

// SeatAvailability joins a seat with its current status for availability
// listings and gap-rule evaluation.  Seats initialized after the showtime
// (or never initialized) surface with a virtual AVAILABLE status.
type SeatAvailability struct {
	Seat   Seat
	Status SeatStatus
}
