// Package layout turns a declarative seat layout template into concrete
// seat entities with structural adjacency.  Generation is deterministic:
// the same template always yields the same labels, types, positions and
// adjacency graph, so a full regenerate is a safe replace.
package layout

import (
	"github.com/iliyamo/showtime-seating/internal/model"
)

// Spacing constants for presentation coordinates.  These only drive how a
// client draws the seat map.
const (
	seatWidth  = 40 // horizontal pitch between seat centers
	rowHeight  = 48 // vertical pitch between rows
	aisleWidth = 24 // extra horizontal gap after an aisle column
)

// Generate materializes the seats described by the template, ordered by
// row then seat number.  Disabled positions are never materialized and
// break adjacency on both sides.  Type precedence per position is
// couple > vip > standard.  Bounds (Rows, SeatsPerRow) are validated by
// the caller; Generate itself does not re-validate.
func Generate(l model.SeatLayout) []model.Seat {
	disabled := make(map[string]map[uint32]bool, len(l.DisabledSeats))
	for _, d := range l.DisabledSeats {
		if disabled[d.Row] == nil {
			disabled[d.Row] = map[uint32]bool{}
		}
		disabled[d.Row][d.Number] = true
	}
	vip := make(map[string]bool, len(l.VIPRows))
	for _, r := range l.VIPRows {
		vip[r] = true
	}

	seats := make([]model.Seat, 0, int(l.Rows)*int(l.SeatsPerRow))
	for rIdx := uint32(0); rIdx < l.Rows; rIdx++ {
		label := rowLabel(l.RowLabels, int(rIdx))
		row := make([]model.Seat, 0, l.SeatsPerRow)
		present := make(map[uint32]int, l.SeatsPerRow) // seat number -> index in row
		aisles := uint32(0)
		for n := uint32(1); n <= l.SeatsPerRow; n++ {
			posX := (n-1)*seatWidth + aisles*aisleWidth
			if afterAisle(l.AisleAfterColumns, n) {
				aisles++
			}
			if disabled[label][n] {
				continue
			}
			row = append(row, model.Seat{
				RowLabel:   label,
				SeatNumber: n,
				SeatType:   seatType(l, label, n, vip),
				PosX:       posX,
				PosY:       rIdx * rowHeight,
				IsActive:   true,
			})
			present[n] = len(row) - 1
		}
		// Adjacency after the row is complete: a neighbor exists iff the
		// adjacent seat number was actually generated.
		for i := range row {
			n := row[i].SeatNumber
			if n > 1 {
				if _, ok := present[n-1]; ok {
					left := n - 1
					row[i].LeftNumber = &left
				}
			}
			if _, ok := present[n+1]; ok {
				right := n + 1
				row[i].RightNumber = &right
			}
		}
		seats = append(seats, row...)
	}
	return seats
}

// rowLabel resolves the label of a row: an explicit entry from the
// template when present, otherwise A, B, C by index (AA, AB past Z,
// though the row bound keeps single letters in practice).
func rowLabel(labels []string, idx int) string {
	if idx < len(labels) && labels[idx] != "" {
		return labels[idx]
	}
	label := ""
	n := idx
	for {
		label = string(rune('A'+n%26)) + label
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return label
}

// seatType applies the template's type rules for one position.
func seatType(l model.SeatLayout, row string, n uint32, vip map[string]bool) string {
	for _, cr := range l.CoupleSeats {
		if cr.Row == row && n >= cr.StartSeat && n <= cr.EndSeat {
			return model.SeatTypeCouple
		}
	}
	if vip[row] {
		return model.SeatTypeVIP
	}
	return model.SeatTypeStandard
}

func afterAisle(cols []uint32, n uint32) bool {
	for _, c := range cols {
		if c == n {
			return true
		}
	}
	return false
}
