package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/iliyamo/showtime-seating/internal/model"
)

// TheaterRepo persists theaters together with their layout documents.  The
// layout is stored as a JSON column; it is reference data the core reads
// at generation time and the admin editor replaces as a whole.
type TheaterRepo struct {
	db *sql.DB
}

// NewTheaterRepo constructs a TheaterRepo with the given DB handle.
func NewTheaterRepo(db *sql.DB) *TheaterRepo {
	return &TheaterRepo{db: db}
}

// Create inserts a theater with its initial layout.  On success the ID is
// populated.
func (r *TheaterRepo) Create(ctx context.Context, t *model.Theater) error {
	doc, err := json.Marshal(t.Layout)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO theaters (name, layout) VALUES (?, ?)`, t.Name, doc)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetByID retrieves a theater and decodes its layout document.
func (r *TheaterRepo) GetByID(ctx context.Context, id uint64) (*model.Theater, error) {
	var t model.Theater
	var doc []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, layout, created_at, updated_at FROM theaters WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &doc, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTheaterNotFound
		}
		return nil, err
	}
	if len(doc) > 0 {
		if err := json.Unmarshal(doc, &t.Layout); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

// SaveLayout replaces the theater's layout document.  Seats are untouched
// until an explicit regenerate call.
func (r *TheaterRepo) SaveLayout(ctx context.Context, id uint64, layout model.SeatLayout) error {
	doc, err := json.Marshal(layout)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE theaters SET layout = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, doc, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTheaterNotFound
	}
	return nil
}

// List returns all theaters without decoding layouts.
func (r *TheaterRepo) List(ctx context.Context) ([]model.Theater, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at FROM theaters ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Theater
	for rows.Next() {
		var t model.Theater
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
