// Package selection implements the gap rule: a selection may not strand a
// single available seat between two occupied neighbors in the same row.
// The check is stateless so it can run both client-facing (fast feedback
// over the websocket) and authoritatively inside the arbiter's reserve
// path, where a modified client cannot bypass it.
package selection

import (
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/showtime-seating/internal/model"
)

// Violation is the error form of a failed gap-rule check, used by callers
// that propagate the rejection.  It is recoverable by construction: the
// client adjusts the selection and retries.
type Violation struct {
	Row    string
	Number uint32
	Reason string
}

func (v *Violation) Error() string { return v.Reason }

// Result reports the outcome of a gap-rule check.  When invalid, Row and
// Number identify the seat the selection would strand, and Reason carries
// a client-facing message.
type Result struct {
	Valid  bool
	Row    string
	Number uint32
	Reason string
}

// Validate checks a candidate seat-id set against the current seat map.
// For every pair of selected seats in one row whose numbers differ by
// exactly two, the middle position is inspected: if that seat exists, is
// active and is currently available (neither selected nor held, booked or
// blocked), the selection is invalid.  Gaps of three or more, missing or
// inactive middle seats, and middle seats that are already taken are all
// permitted.  Only same-row pairs are considered.
func Validate(candidateIDs []uint64, seats []model.SeatAvailability, now time.Time) Result {
	selected := make(map[uint64]bool, len(candidateIDs))
	for _, id := range candidateIDs {
		selected[id] = true
	}

	// Index the seat map by row and collect the candidates per row.
	type rowSeat struct {
		id     uint64
		number uint32
		free   bool
	}
	byRow := map[string]map[uint32]rowSeat{}
	candByRow := map[string][]uint32{}
	for _, sa := range seats {
		s := sa.Seat
		if byRow[s.RowLabel] == nil {
			byRow[s.RowLabel] = map[uint32]rowSeat{}
		}
		free := s.IsActive && sa.Status.EffectiveStatus(now) == model.StatusAvailable
		byRow[s.RowLabel][s.SeatNumber] = rowSeat{id: s.ID, number: s.SeatNumber, free: free}
		if selected[s.ID] {
			candByRow[s.RowLabel] = append(candByRow[s.RowLabel], s.SeatNumber)
		}
	}

	for row, numbers := range candByRow {
		sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
		for i := 0; i+1 < len(numbers); i++ {
			if numbers[i+1]-numbers[i] != 2 {
				continue
			}
			middle, ok := byRow[row][numbers[i]+1]
			if !ok {
				continue // physically missing or disabled position
			}
			if middle.free && !selected[middle.id] {
				return Result{
					Valid:  false,
					Row:    row,
					Number: middle.number,
					Reason: fmt.Sprintf("selection would leave seat %s%d stranded", row, middle.number),
				}
			}
		}
	}
	return Result{Valid: true}
}
