package selection_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/showtime-seating/internal/model"
	"github.com/iliyamo/showtime-seating/internal/selection"
)

// rowOfThree builds seats A1..A3 with ids 1..3 and the given status for A2.
func rowOfThree(middleStatus string, middleActive bool) []model.SeatAvailability {
	seats := make([]model.SeatAvailability, 0, 3)
	for n := uint32(1); n <= 3; n++ {
		status := model.StatusAvailable
		active := true
		if n == 2 {
			status = middleStatus
			active = middleActive
		}
		seats = append(seats, model.SeatAvailability{
			Seat:   model.Seat{ID: uint64(n), RowLabel: "A", SeatNumber: n, IsActive: active},
			Status: model.SeatStatus{SeatID: uint64(n), Status: status},
		})
	}
	return seats
}

func TestValidateStrandsAvailableMiddleSeat(t *testing.T) {
	now := time.Now()
	res := selection.Validate([]uint64{1, 3}, rowOfThree(model.StatusAvailable, true), now)
	assert.False(t, res.Valid)
	assert.Equal(t, "A", res.Row)
	assert.Equal(t, uint32(2), res.Number)
	assert.NotEmpty(t, res.Reason)
}

func TestValidateMiddleSeatTakenOrGone(t *testing.T) {
	now := time.Now()

	res := selection.Validate([]uint64{1, 3}, rowOfThree(model.StatusBooked, true), now)
	assert.True(t, res.Valid, "booked middle seat permits the pair")

	res = selection.Validate([]uint64{1, 3}, rowOfThree(model.StatusReserved, true), now)
	assert.True(t, res.Valid, "reserved middle seat permits the pair")

	res = selection.Validate([]uint64{1, 3}, rowOfThree(model.StatusAvailable, false), now)
	assert.True(t, res.Valid, "inactive middle seat permits the pair")

	// Disabled at generation time: the middle position simply does not exist.
	seats := []model.SeatAvailability{
		{Seat: model.Seat{ID: 1, RowLabel: "A", SeatNumber: 1, IsActive: true}},
		{Seat: model.Seat{ID: 3, RowLabel: "A", SeatNumber: 3, IsActive: true}},
	}
	res = selection.Validate([]uint64{1, 3}, seats, now)
	assert.True(t, res.Valid, "missing middle position permits the pair")
}

func TestValidateMiddleSeatSelectedToo(t *testing.T) {
	res := selection.Validate([]uint64{1, 2, 3}, rowOfThree(model.StatusAvailable, true), time.Now())
	assert.True(t, res.Valid, "contiguous selection has no gap")
}

func TestValidateLapsedHoldCountsAsAvailable(t *testing.T) {
	now := time.Now()
	seats := rowOfThree(model.StatusReserved, true)
	seats[1].Status.ExpiresAt = now.Add(-time.Minute)
	res := selection.Validate([]uint64{1, 3}, seats, now)
	assert.False(t, res.Valid, "a lapsed hold in the middle is effectively available")
}

func TestValidateWiderGapsAndRows(t *testing.T) {
	now := time.Now()
	seats := []model.SeatAvailability{}
	id := uint64(1)
	for _, row := range []string{"A", "B"} {
		for n := uint32(1); n <= 5; n++ {
			seats = append(seats, model.SeatAvailability{
				Seat:   model.Seat{ID: id, RowLabel: row, SeatNumber: n, IsActive: true},
				Status: model.SeatStatus{SeatID: id, Status: model.StatusAvailable},
			})
			id++
		}
	}
	// A1 + A4: gap of three seats is fine.
	res := selection.Validate([]uint64{1, 4}, seats, now)
	assert.True(t, res.Valid)

	// A1 + B3 (ids 1 and 8): different rows are never paired.
	res = selection.Validate([]uint64{1, 8}, seats, now)
	assert.True(t, res.Valid)

	// B1 + B3 (ids 6 and 8) strands B2.
	res = selection.Validate([]uint64{6, 8}, seats, now)
	assert.False(t, res.Valid)
	assert.Equal(t, "B", res.Row)
	assert.Equal(t, uint32(2), res.Number)
}
