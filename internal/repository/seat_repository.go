package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/showtime-seating/internal/model"
)

// SeatRepo provides access to the generated seats of a theater.  Seats are
// written only by full replacement from the layout generator; there is no
// per-seat edit path.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// ReplaceForTheater swaps the theater's seat set for the freshly generated
// one inside a single transaction, so readers never observe the transient
// empty-seat window of a bare delete-then-insert.
func (r *SeatRepo) ReplaceForTheater(ctx context.Context, theaterID uint64, seats []model.Seat) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM seats WHERE theater_id = ?`, theaterID); err != nil {
		return err
	}
	if len(seats) > 0 {
		query := `INSERT INTO seats (theater_id, row_label, seat_number, seat_type, pos_x, pos_y, left_number, right_number, is_active) VALUES `
		args := make([]interface{}, 0, len(seats)*9)
		for i, s := range seats {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?, ?, ?, ?, ?, ?)"
			args = append(args, theaterID, s.RowLabel, s.SeatNumber, s.SeatType,
				s.PosX, s.PosY, s.LeftNumber, s.RightNumber, s.IsActive)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByTheater retrieves all seats of a theater ordered by row then number.
// Pass activeOnly to exclude deactivated seats.
func (r *SeatRepo) GetByTheater(ctx context.Context, theaterID uint64, activeOnly bool) ([]model.Seat, error) {
	q := `SELECT id, theater_id, row_label, seat_number, seat_type, pos_x, pos_y, left_number, right_number, is_active, created_at, updated_at
	      FROM seats
	      WHERE theater_id = ?`
	if activeOnly {
		q += ` AND is_active = 1`
	}
	q += ` ORDER BY row_label, seat_number`

	rows, err := r.db.QueryContext(ctx, q, theaterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Seat
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// scanner abstracts *sql.Row and *sql.Rows for the shared seat scan.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSeat(sc scanner) (model.Seat, error) {
	var s model.Seat
	var left, right sql.NullInt64
	err := sc.Scan(&s.ID, &s.TheaterID, &s.RowLabel, &s.SeatNumber, &s.SeatType,
		&s.PosX, &s.PosY, &left, &right, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return s, err
	}
	if left.Valid {
		v := uint32(left.Int64)
		s.LeftNumber = &v
	}
	if right.Valid {
		v := uint32(right.Int64)
		s.RightNumber = &v
	}
	return s, nil
}
