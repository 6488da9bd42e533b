package model

import "time"

// Seat types produced by the generator.  Precedence when a seat matches
// several layout rules: COUPLE > VIP > STANDARD.
const (
	SeatTypeStandard = "STANDARD"
	SeatTypeVIP      = "VIP"
	SeatTypeCouple   = "COUPLE"
)

// Seat describes a generated physical seat within a theater.  Seats are
// created and replaced wholesale by the layout generator and never edited
// one by one.  RowLabel plus SeatNumber identify the seat's position.
//
// LeftNumber/RightNumber carry structural adjacency: the seat number of the
// immediate neighbor in the same row, or nil when the neighboring position
// does not exist (row edge or disabled seat).  Adjacency reflects physical
// continuity, not reservation state.
//
// PosX/PosY are presentation coordinates computed from spacing constants
// and aisle offsets; they carry no business meaning.
type Seat struct {
	ID          uint64    // seats.id
	TheaterID   uint64    // seats.theater_id
	RowLabel    string    // seats.row_label
	SeatNumber  uint32    // seats.seat_number
	SeatType    string    // seats.seat_type
	PosX        uint32    // seats.pos_x
	PosY        uint32    // seats.pos_y
	LeftNumber  *uint32   // seats.left_number (nullable)
	RightNumber *uint32   // seats.right_number (nullable)
	IsActive    bool      // seats.is_active
	CreatedAt   time.Time // seats.created_at
	UpdatedAt   time.Time // seats.updated_at
}
