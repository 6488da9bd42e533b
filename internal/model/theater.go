package model

import "time"

// Theater is the venue a seat map belongs to.  The layout document is the
// template seats are generated from; it lives alongside the theater so the
// admin editor and the generator share one source of truth.
type Theater struct {
	ID        uint64     // theaters.id
	Name      string     // theaters.name
	Layout    SeatLayout // theaters.layout (JSON document)
	CreatedAt time.Time  // theaters.created_at
	UpdatedAt time.Time  // theaters.updated_at
}

// PriceTable is the per-showtime pricing consumed once at seat-status
// initialization.  StandardCents is required; VIP and couple prices fall
// back to 1.5x and 2x of standard when unset.
type PriceTable struct {
	StandardCents uint32 `json:"standard_cents"`
	VIPCents      uint32 `json:"vip_cents,omitempty"`
	CoupleCents   uint32 `json:"couple_cents,omitempty"`
}

// For resolves the snapshot price of one seat type, applying the default
// multipliers for unset VIP and couple prices.
func (p PriceTable) For(seatType string) uint32 {
	switch seatType {
	case SeatTypeVIP:
		if p.VIPCents != 0 {
			return p.VIPCents
		}
		return p.StandardCents + p.StandardCents/2
	case SeatTypeCouple:
		if p.CoupleCents != 0 {
			return p.CoupleCents
		}
		return p.StandardCents * 2
	default:
		return p.StandardCents
	}
}

// Showtime is a scheduled screening in a theater.  Its price table is read
// once when seat status rows are initialized; later edits never touch the
// frozen snapshots.
type Showtime struct {
	ID        uint64     // showtimes.id
	TheaterID uint64     // showtimes.theater_id
	Title     string     // showtimes.title
	StartsAt  time.Time  // showtimes.starts_at
	Prices    PriceTable // showtimes.price_* columns
	CreatedAt time.Time  // showtimes.created_at
	UpdatedAt time.Time  // showtimes.updated_at
}
