package layout_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showtime-seating/internal/layout"
	"github.com/iliyamo/showtime-seating/internal/model"
)

func seatKey(s model.Seat) string {
	return fmt.Sprintf("%s-%d", s.RowLabel, s.SeatNumber)
}

func findSeat(t *testing.T, seats []model.Seat, row string, n uint32) model.Seat {
	t.Helper()
	for _, s := range seats {
		if s.RowLabel == row && s.SeatNumber == n {
			return s
		}
	}
	t.Fatalf("seat %s%d not generated", row, n)
	return model.Seat{}
}

func TestGenerateDisabledSeatBreaksAdjacency(t *testing.T) {
	l := model.SeatLayout{
		Rows:          2,
		SeatsPerRow:   4,
		RowLabels:     []string{"A", "B"},
		VIPRows:       []string{"B"},
		DisabledSeats: []model.DisabledSeat{{Row: "A", Number: 2}},
	}
	seats := layout.Generate(l)
	require.Len(t, seats, 7)

	got := map[string]bool{}
	for _, s := range seats {
		got[seatKey(s)] = true
	}
	for _, want := range []string{"A-1", "A-3", "A-4", "B-1", "B-2", "B-3", "B-4"} {
		assert.True(t, got[want], "missing %s", want)
	}
	assert.False(t, got["A-2"], "disabled seat must not be materialized")

	// A1 is isolated: no left (row edge) and no right (A2 is a gap).
	a1 := findSeat(t, seats, "A", 1)
	assert.Nil(t, a1.LeftNumber)
	assert.Nil(t, a1.RightNumber)

	// A3 has no left neighbor across the gap but touches A4.
	a3 := findSeat(t, seats, "A", 3)
	assert.Nil(t, a3.LeftNumber)
	require.NotNil(t, a3.RightNumber)
	assert.Equal(t, uint32(4), *a3.RightNumber)

	for n := uint32(1); n <= 4; n++ {
		assert.Equal(t, model.SeatTypeVIP, findSeat(t, seats, "B", n).SeatType)
	}
	for _, s := range seats {
		if s.RowLabel == "A" {
			assert.Equal(t, model.SeatTypeStandard, s.SeatType)
		}
	}
}

func TestGenerateTypePrecedence(t *testing.T) {
	l := model.SeatLayout{
		Rows:        1,
		SeatsPerRow: 6,
		RowLabels:   []string{"V"},
		VIPRows:     []string{"V"},
		CoupleSeats: []model.CoupleRange{{Row: "V", StartSeat: 5, EndSeat: 6}},
	}
	seats := layout.Generate(l)
	require.Len(t, seats, 6)
	assert.Equal(t, model.SeatTypeVIP, findSeat(t, seats, "V", 4).SeatType)
	assert.Equal(t, model.SeatTypeCouple, findSeat(t, seats, "V", 5).SeatType)
	assert.Equal(t, model.SeatTypeCouple, findSeat(t, seats, "V", 6).SeatType)
}

func TestGenerateDefaultRowLabels(t *testing.T) {
	l := model.SeatLayout{Rows: 3, SeatsPerRow: 1}
	seats := layout.Generate(l)
	require.Len(t, seats, 3)
	assert.Equal(t, "A", seats[0].RowLabel)
	assert.Equal(t, "B", seats[1].RowLabel)
	assert.Equal(t, "C", seats[2].RowLabel)
}

func TestGenerateAisleShiftsPositions(t *testing.T) {
	l := model.SeatLayout{
		Rows:              1,
		SeatsPerRow:       4,
		AisleAfterColumns: []uint32{2},
	}
	seats := layout.Generate(l)
	require.Len(t, seats, 4)
	// Seats 3 and 4 sit one aisle width further right than plain pitch.
	assert.Equal(t, seats[1].PosX+40+24, seats[2].PosX)
	assert.Equal(t, seats[2].PosX+40, seats[3].PosX)
}

func TestGenerateIsDeterministic(t *testing.T) {
	l := model.SeatLayout{
		Rows:          5,
		SeatsPerRow:   10,
		VIPRows:       []string{"C"},
		CoupleSeats:   []model.CoupleRange{{Row: "E", StartSeat: 1, EndSeat: 4}},
		DisabledSeats: []model.DisabledSeat{{Row: "B", Number: 5}, {Row: "D", Number: 1}},
	}
	first := layout.Generate(l)
	second := layout.Generate(l)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i], second[i])
	}
}
