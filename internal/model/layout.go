package model

// SeatLayout is the declarative template a theater's seats are generated
// from.  It is owned by admin tooling and stored as a document on the
// theater; editing it has no effect on existing seats until an explicit
// regenerate call replaces them wholesale.
//
// Fields:
//  Rows              - number of seating rows (1-26).
//  SeatsPerRow       - seats in every row before disabling (1-50).
//  RowLabels         - explicit labels per row index; missing entries fall
//                      back to A, B, C and so on by index.
//  VIPRows           - row labels whose seats are VIP unless covered by a
//                      couple range.
//  CoupleSeats       - number ranges per row that produce COUPLE seats.
//  DisabledSeats     - positions that are never materialized as seats.
//  AisleAfterColumns - seat numbers after which a walkway is drawn; only
//                      affects presentation coordinates.
type SeatLayout struct {
	Rows              uint32         `json:"rows"`
	SeatsPerRow       uint32         `json:"seats_per_row"`
	RowLabels         []string       `json:"row_labels,omitempty"`
	VIPRows           []string       `json:"vip_rows,omitempty"`
	CoupleSeats       []CoupleRange  `json:"couple_seats,omitempty"`
	DisabledSeats     []DisabledSeat `json:"disabled_seats,omitempty"`
	AisleAfterColumns []uint32       `json:"aisle_after_columns,omitempty"`
}

// CoupleRange marks seat numbers StartSeat..EndSeat (inclusive) of one row
// as couple seats.  The couple type is a label only; pairing is not
// enforced at reservation time.
type CoupleRange struct {
	Row       string `json:"row"`
	StartSeat uint32 `json:"start_seat"`
	EndSeat   uint32 `json:"end_seat"`
}

// DisabledSeat names a position that the generator skips entirely.  A
// disabled seat leaves a physical gap: its former neighbors lose their
// adjacency across it.
type DisabledSeat struct {
	Row    string `json:"row"`
	Number uint32 `json:"number"`
}

// Layout bounds enforced by the handlers before generation is invoked.
const (
	MaxLayoutRows        = 26
	MaxLayoutSeatsPerRow = 50
)
