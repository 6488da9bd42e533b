package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/showtime-seating/internal/model"
)

// SeatStatusRepo owns the per-(showtime, seat) reservation rows.  Every
// transition is a conditional UPDATE guarded on the row's current status;
// RowsAffected tells the caller whether the guard held.  Two writers
// racing over one seat therefore resolve inside MySQL, never in Go.
// Batch operations run in one transaction so they apply fully or not at
// all.
type SeatStatusRepo struct {
	db *sql.DB
}

// NewSeatStatusRepo constructs a SeatStatusRepo with the given DB handle.
func NewSeatStatusRepo(db *sql.DB) *SeatStatusRepo {
	return &SeatStatusRepo{db: db}
}

// reserveGuard is the WHERE clause every hold acquisition shares: the seat
// is free, or its hold lapsed, or the same holder re-reserves (extending
// the TTL).
const reserveGuard = `(status = 'AVAILABLE'
	OR (status = 'RESERVED' AND expires_at <= UTC_TIMESTAMP())
	OR (status = 'RESERVED' AND holder_id = ?))`

// Initialize creates one AVAILABLE row per active seat with a price
// snapshot computed from the showtime's price table.  It fails with
// ErrAlreadyInitialized when any row exists for the showtime; the unique
// (showtime_id, seat_id) key closes the race between two initializers.
func (r *SeatStatusRepo) Initialize(ctx context.Context, showtimeID uint64, seats []model.Seat, prices model.PriceTable) error {
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

	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM seat_status WHERE showtime_id = ? LIMIT 1`, showtimeID).Scan(&one)
	if err == nil {
		return ErrAlreadyInitialized
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	query := `INSERT INTO seat_status (showtime_id, seat_id, status, holder_id, booking_ref, price_cents) VALUES `
	args := make([]interface{}, 0, len(seats)*6)
	n := 0
	for _, s := range seats {
		if !s.IsActive {
			continue
		}
		if n > 0 {
			query += ","
		}
		query += "(?, ?, 'AVAILABLE', '', '', ?)"
		args = append(args, showtimeID, s.ID, prices.For(s.SeatType))
		n++
	}
	if n == 0 {
		return ErrSeatNotFound
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 { // duplicate key: lost the init race
			return ErrAlreadyInitialized
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Availability returns every active seat of the showtime's theater joined
// with its status row.  Seats without a row (added after initialization)
// surface as a virtual AVAILABLE at the showtime's standard price so they
// stay selectable.
func (r *SeatStatusRepo) Availability(ctx context.Context, showtimeID uint64) ([]model.SeatAvailability, error) {
	const q = `SELECT s.id, s.theater_id, s.row_label, s.seat_number, s.seat_type, s.pos_x, s.pos_y,
	                  s.left_number, s.right_number, s.is_active, s.created_at, s.updated_at,
	                  ss.status, ss.holder_id, ss.reserved_at, ss.expires_at, ss.booking_ref, ss.price_cents,
	                  sh.price_standard_cents
	           FROM showtimes sh
	           JOIN seats s ON s.theater_id = sh.theater_id AND s.is_active = 1
	           LEFT JOIN seat_status ss ON ss.showtime_id = sh.id AND ss.seat_id = s.id
	           WHERE sh.id = ?
	           ORDER BY s.row_label, s.seat_number`
	rows, err := r.db.QueryContext(ctx, q, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.SeatAvailability
	for rows.Next() {
		var sa model.SeatAvailability
		var left, right sql.NullInt64
		var status, holder, ref sql.NullString
		var reservedAt, expiresAt sql.NullTime
		var price sql.NullInt64
		var standard uint32
		if err := rows.Scan(
			&sa.Seat.ID, &sa.Seat.TheaterID, &sa.Seat.RowLabel, &sa.Seat.SeatNumber, &sa.Seat.SeatType,
			&sa.Seat.PosX, &sa.Seat.PosY, &left, &right, &sa.Seat.IsActive,
			&sa.Seat.CreatedAt, &sa.Seat.UpdatedAt,
			&status, &holder, &reservedAt, &expiresAt, &ref, &price, &standard,
		); err != nil {
			return nil, err
		}
		if left.Valid {
			v := uint32(left.Int64)
			sa.Seat.LeftNumber = &v
		}
		if right.Valid {
			v := uint32(right.Int64)
			sa.Seat.RightNumber = &v
		}
		sa.Status = model.SeatStatus{
			ShowtimeID: showtimeID,
			SeatID:     sa.Seat.ID,
			Status:     model.StatusAvailable,
			PriceCents: standard,
		}
		if status.Valid {
			sa.Status.Status = status.String
			sa.Status.HolderID = holder.String
			sa.Status.BookingRef = ref.String
			sa.Status.PriceCents = uint32(price.Int64)
			if reservedAt.Valid {
				sa.Status.ReservedAt = reservedAt.Time
			}
			if expiresAt.Valid {
				sa.Status.ExpiresAt = expiresAt.Time
			}
		}
		result = append(result, sa)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if result == nil {
		// Distinguish "no seats" from "no showtime".
		var one int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM showtimes WHERE id = ?`, showtimeID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrShowtimeNotFound
			}
			return nil, err
		}
	}
	return result, nil
}

// Reserve transitions the whole batch to RESERVED under the reserve guard,
// or none of it.  A seat in any other state aborts the transaction with a
// ConflictError naming it.  Seats without a status row get one inserted on
// the fly at the showtime's standard price, preserving the virtual-
// availability semantics of Availability.
func (r *SeatStatusRepo) Reserve(ctx context.Context, showtimeID uint64, seatIDs []uint64, holderID string, expiresAt time.Time) error {
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

	const upd = `UPDATE seat_status
	             SET status = 'RESERVED', holder_id = ?, reserved_at = UTC_TIMESTAMP(), expires_at = ?, booking_ref = ''
	             WHERE showtime_id = ? AND seat_id = ? AND ` + reserveGuard
	for _, seatID := range seatIDs {
		res, err := tx.ExecContext(ctx, upd, holderID, expiresAt.UTC(), showtimeID, seatID, holderID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 1 {
			continue
		}
		// Guard did not hold: either the seat is taken, or no row exists yet.
		var status string
		err = tx.QueryRowContext(ctx,
			`SELECT status FROM seat_status WHERE showtime_id = ? AND seat_id = ?`,
			showtimeID, seatID).Scan(&status)
		switch {
		case err == nil:
			return &ConflictError{SeatID: seatID, Status: status}
		case errors.Is(err, sql.ErrNoRows):
			if err := r.insertReservedTx(ctx, tx, showtimeID, seatID, holderID, expiresAt); err != nil {
				return err
			}
		default:
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// insertReservedTx creates the missing status row for a seat that was
// added after initialization, directly in RESERVED state.  The INSERT
// SELECT proves the seat is an active seat of the showtime's theater; the
// unique key turns a concurrent insert into a ConflictError.
func (r *SeatStatusRepo) insertReservedTx(ctx context.Context, tx *sql.Tx, showtimeID, seatID uint64, holderID string, expiresAt time.Time) error {
	const ins = `INSERT INTO seat_status (showtime_id, seat_id, status, holder_id, reserved_at, expires_at, booking_ref, price_cents)
	             SELECT sh.id, s.id, 'RESERVED', ?, UTC_TIMESTAMP(), ?, '', sh.price_standard_cents
	             FROM showtimes sh
	             JOIN seats s ON s.theater_id = sh.theater_id
	             WHERE sh.id = ? AND s.id = ? AND s.is_active = 1`
	res, err := tx.ExecContext(ctx, ins, holderID, expiresAt.UTC(), showtimeID, seatID)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return &ConflictError{SeatID: seatID, Status: model.StatusReserved}
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSeatNotFound
	}
	return nil
}

// Release returns matching RESERVED seats to AVAILABLE, optionally scoped
// to one holder.  Seats in any other state are skipped, not errors.  The
// returned ids are the seats actually released, for broadcasting.
func (r *SeatStatusRepo) Release(ctx context.Context, showtimeID uint64, seatIDs []uint64, holderID string) ([]uint64, error) {
	q := `UPDATE seat_status
	      SET status = 'AVAILABLE', holder_id = '', reserved_at = NULL, expires_at = NULL
	      WHERE showtime_id = ? AND seat_id = ? AND status = 'RESERVED'`
	released := make([]uint64, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		args := []interface{}{showtimeID, seatID}
		query := q
		if holderID != "" {
			query += ` AND holder_id = ?`
			args = append(args, holderID)
		}
		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		if n, _ := res.RowsAffected(); n == 1 {
			released = append(released, seatID)
		}
	}
	return released, nil
}

// Book transitions the whole batch from reserved-by-holder to the terminal
// BOOKED state, or none of it.  A lapsed or missing hold on any seat
// aborts with ErrExpiredOrMissingReservation.  The guard also closes the
// race against the expiry sweep: whichever transition lands first wins and
// the loser no-ops.
func (r *SeatStatusRepo) Book(ctx context.Context, showtimeID uint64, seatIDs []uint64, holderID, bookingRef string) error {
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

	const q = `UPDATE seat_status
	           SET status = 'BOOKED', booking_ref = ?, reserved_at = NULL, expires_at = NULL
	           WHERE showtime_id = ? AND seat_id = ?
	             AND status = 'RESERVED' AND holder_id = ? AND expires_at > UTC_TIMESTAMP()`
	for _, seatID := range seatIDs {
		res, err := tx.ExecContext(ctx, q, bookingRef, showtimeID, seatID, holderID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrExpiredOrMissingReservation
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Block moves AVAILABLE or RESERVED seats to the administrative BLOCKED
// state, discarding any live hold.  Returns the seats actually blocked.
func (r *SeatStatusRepo) Block(ctx context.Context, showtimeID uint64, seatIDs []uint64) ([]uint64, error) {
	const q = `UPDATE seat_status
	           SET status = 'BLOCKED', holder_id = '', reserved_at = NULL, expires_at = NULL, booking_ref = ''
	           WHERE showtime_id = ? AND seat_id = ? AND status IN ('AVAILABLE', 'RESERVED')`
	return r.applyEach(ctx, q, showtimeID, seatIDs)
}

// Unblock returns BLOCKED seats to AVAILABLE.
func (r *SeatStatusRepo) Unblock(ctx context.Context, showtimeID uint64, seatIDs []uint64) ([]uint64, error) {
	const q = `UPDATE seat_status
	           SET status = 'AVAILABLE'
	           WHERE showtime_id = ? AND seat_id = ? AND status = 'BLOCKED'`
	return r.applyEach(ctx, q, showtimeID, seatIDs)
}

func (r *SeatStatusRepo) applyEach(ctx context.Context, q string, showtimeID uint64, seatIDs []uint64) ([]uint64, error) {
	applied := make([]uint64, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		res, err := r.db.ExecContext(ctx, q, showtimeID, seatID)
		if err != nil {
			return nil, err
		}
		if n, _ := res.RowsAffected(); n == 1 {
			applied = append(applied, seatID)
		}
	}
	return applied, nil
}

// ReleaseExpired sweeps lapsed holds back to AVAILABLE across all
// showtimes.  Each candidate is released under the same conditional guard
// as Release, so a sweep that loses the race to a just-in-time Book call
// simply no-ops on that seat.
func (r *SeatStatusRepo) ReleaseExpired(ctx context.Context) ([]model.ExpiredRelease, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT showtime_id, seat_id FROM seat_status
		 WHERE status = 'RESERVED' AND expires_at <= UTC_TIMESTAMP()`)
	if err != nil {
		return nil, err
	}
	type pair struct{ showtime, seat uint64 }
	var candidates []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.showtime, &p.seat); err != nil {
			rows.Close()
			return nil, err
		}
		candidates = append(candidates, p)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	const rel = `UPDATE seat_status
	             SET status = 'AVAILABLE', holder_id = '', reserved_at = NULL, expires_at = NULL
	             WHERE showtime_id = ? AND seat_id = ?
	               AND status = 'RESERVED' AND expires_at <= UTC_TIMESTAMP()`
	byShowtime := map[uint64][]uint64{}
	for _, p := range candidates {
		res, err := r.db.ExecContext(ctx, rel, p.showtime, p.seat)
		if err != nil {
			return nil, err
		}
		if n, _ := res.RowsAffected(); n == 1 {
			byShowtime[p.showtime] = append(byShowtime[p.showtime], p.seat)
		}
	}
	result := make([]model.ExpiredRelease, 0, len(byShowtime))
	for showtimeID, seats := range byShowtime {
		result = append(result, model.ExpiredRelease{ShowtimeID: showtimeID, SeatIDs: seats})
	}
	return result, nil
}
