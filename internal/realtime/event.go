// Package realtime fans seat status deltas out to every viewer of a
// showtime.  Each showtime is one topic; subscribers receive incremental
// events after an initial availability snapshot.  Delivery is at-most-once
// and ordered only per publisher; clients must treat a freshly fetched
// snapshot as authoritative over any stale delta.
package realtime

// Event types broadcast to a showtime topic.  Selecting is a soft
// pre-commit hint; the rest mirror committed arbiter transitions.
const (
	EventSelecting = "seats-selecting"
	EventReserved  = "seats-reserved"
	EventReleased  = "seats-released"
	EventBooked    = "seats-booked"
	EventBlocked   = "seats-blocked"
	EventUnblocked = "seats-unblocked"
)

// Event is one status delta for a set of seats within a showtime.
type Event struct {
	Type       string   `json:"type"`
	ShowtimeID uint64   `json:"showtime_id"`
	SeatIDs    []uint64 `json:"seat_ids"`
	Status     string   `json:"status,omitempty"`
}
