// Package repository implements persistence for seats, showtimes and the
// per-showtime seat status rows.  Every reservation transition is a
// conditional write guarded on the row's current status, so the
// single-holder invariant is a storage property rather than a call-ordering
// convention.  Sentinel errors defined here let handlers map failure
// scenarios onto HTTP responses.
package repository

import (
	"errors"
	"fmt"
)

// ErrTheaterNotFound is returned when a theater lookup yields no rows.
var ErrTheaterNotFound = errors.New("theater not found")

// ErrShowtimeNotFound is returned when a showtime lookup yields no rows.
var ErrShowtimeNotFound = errors.New("showtime not found")

// ErrSeatNotFound is returned when a requested seat does not exist or is
// inactive for the theater in question.
var ErrSeatNotFound = errors.New("seat not found")

// ErrAlreadyInitialized is returned when seat status rows already exist
// for a showtime.  Initialization is explicitly not an idempotent upsert.
var ErrAlreadyInitialized = errors.New("seat status already initialized for showtime")

// ErrExpiredOrMissingReservation is returned by Book when any requested
// seat is not currently reserved by the calling holder, including holds
// that lapsed before the booking arrived.
var ErrExpiredOrMissingReservation = errors.New("reservation expired or not held by caller")

// ConflictError aborts a batch reserve and names the first seat whose
// state forbids the transition.  The batch is guaranteed untouched.
type ConflictError struct {
	SeatID uint64
	Status string // state the seat was found in
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("seat %d unavailable (status %s)", e.SeatID, e.Status)
}

// AsConflict unwraps err into a ConflictError when possible.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
