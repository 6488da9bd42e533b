// Package queue defines message payloads exchanged over the message broker.
package queue

// SeatsBookedEvent is published when a batch of seats reaches the terminal
// booked state.  It carries enough for downstream consumers (notification,
// audit, analytics) to act without querying the primary database.
type SeatsBookedEvent struct {
	ShowtimeID  uint64   `json:"showtime_id"`
	TheaterID   uint64   `json:"theater_id"`
	Title       string   `json:"title"`
	HolderID    string   `json:"holder_id"`
	BookingRef  string   `json:"booking_ref"`
	SeatLabels  []string `json:"seats"`
	TotalCents  uint32   `json:"total_cents"`
	ConfirmedAt string   `json:"confirmed_at"`
}
