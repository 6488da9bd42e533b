package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/showtime-seating/internal/model"
)

// ShowtimeRepo persists scheduled screenings.  The price table columns are
// read once at seat-status initialization; editing them later never
// changes frozen snapshots.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo constructs a ShowtimeRepo with the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo {
	return &ShowtimeRepo{db: db}
}

// DB exposes the underlying handle so handlers can open transactions that
// span repositories.
func (r *ShowtimeRepo) DB() *sql.DB { return r.db }

// Create inserts a showtime. On success the ID is populated.
func (r *ShowtimeRepo) Create(ctx context.Context, s *model.Showtime) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO showtimes (theater_id, title, starts_at, price_standard_cents, price_vip_cents, price_couple_cents)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.TheaterID, s.Title, s.StartsAt.UTC(), s.Prices.StandardCents, s.Prices.VIPCents, s.Prices.CoupleCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID retrieves a showtime with its price table.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	var s model.Showtime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, theater_id, title, starts_at, price_standard_cents, price_vip_cents, price_couple_cents, created_at, updated_at
		 FROM showtimes WHERE id = ?`, id).
		Scan(&s.ID, &s.TheaterID, &s.Title, &s.StartsAt,
			&s.Prices.StandardCents, &s.Prices.VIPCents, &s.Prices.CoupleCents,
			&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowtimeNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListByTheater returns the showtimes of one theater ordered by start time.
func (r *ShowtimeRepo) ListByTheater(ctx context.Context, theaterID uint64) ([]model.Showtime, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, theater_id, title, starts_at, price_standard_cents, price_vip_cents, price_couple_cents, created_at, updated_at
		 FROM showtimes WHERE theater_id = ? ORDER BY starts_at`, theaterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Showtime
	for rows.Next() {
		var s model.Showtime
		if err := rows.Scan(&s.ID, &s.TheaterID, &s.Title, &s.StartsAt,
			&s.Prices.StandardCents, &s.Prices.VIPCents, &s.Prices.CoupleCents,
			&s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Teardown removes a showtime together with its seat status rows.  This is
// the only path that ever deletes seat status.
func (r *ShowtimeRepo) Teardown(ctx context.Context, id uint64) error {
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
	if _, err := tx.ExecContext(ctx, `DELETE FROM seat_status WHERE showtime_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM showtimes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrShowtimeNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
