package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-seating/internal/arbiter"
	"github.com/iliyamo/showtime-seating/internal/layout"
	"github.com/iliyamo/showtime-seating/internal/model"
	"github.com/iliyamo/showtime-seating/internal/repository"
)

// AdminHandler groups the theater, seat and showtime management
// endpoints.  All methods assume RequireAdmin middleware has already
// verified the caller; they never inspect the token themselves.
type AdminHandler struct {
	Theaters  *repository.TheaterRepo
	Seats     *repository.SeatRepo
	Showtimes *repository.ShowtimeRepo
	Arb       *arbiter.Arbiter
}

// NewAdminHandler constructs an AdminHandler.  All dependencies must be
// non-nil.
func NewAdminHandler(theaters *repository.TheaterRepo, seats *repository.SeatRepo, showtimes *repository.ShowtimeRepo, arb *arbiter.Arbiter) *AdminHandler {
	if theaters == nil || seats == nil || showtimes == nil || arb == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Theaters: theaters, Seats: seats, Showtimes: showtimes, Arb: arb}
}

// validateLayout rejects declarations the generator cannot realize.
// Row names referenced by vip_rows, couple_seats or disabled_seats that
// match no generated row are not errors; they simply select nothing.
func validateLayout(l model.SeatLayout) error {
	if l.Rows == 0 || l.Rows > model.MaxLayoutRows {
		return fmt.Errorf("rows must be between 1 and %d", model.MaxLayoutRows)
	}
	if l.SeatsPerRow == 0 || l.SeatsPerRow > model.MaxLayoutSeatsPerRow {
		return fmt.Errorf("seats_per_row must be between 1 and %d", model.MaxLayoutSeatsPerRow)
	}
	if len(l.RowLabels) != 0 && uint32(len(l.RowLabels)) != l.Rows {
		return fmt.Errorf("row_labels must name exactly %d rows when present", l.Rows)
	}
	for _, cr := range l.CoupleSeats {
		if cr.StartSeat == 0 || cr.EndSeat < cr.StartSeat || cr.EndSeat > l.SeatsPerRow {
			return fmt.Errorf("couple range %s %d-%d is out of bounds", cr.Row, cr.StartSeat, cr.EndSeat)
		}
	}
	for _, d := range l.DisabledSeats {
		if d.Number == 0 || d.Number > l.SeatsPerRow {
			return fmt.Errorf("disabled seat %s%d is out of bounds", d.Row, d.Number)
		}
	}
	for _, col := range l.AisleAfterColumns {
		if col == 0 || col >= l.SeatsPerRow {
			return fmt.Errorf("aisle after column %d is out of bounds", col)
		}
	}
	return nil
}

// CreateTheater handles POST /v1/admin/theaters.  The layout is stored
// as declared; seats are materialized by a separate regenerate call so
// an admin can review the declaration first.
func (h *AdminHandler) CreateTheater(c echo.Context) error {
	var body struct {
		Name   string           `json:"name"`
		Layout model.SeatLayout `json:"layout"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if err := validateLayout(body.Layout); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	t := &model.Theater{Name: body.Name, Layout: body.Layout}
	if err := h.Theaters.Create(c.Request().Context(), t); err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"theater_id": t.ID,
		"name":       t.Name,
		"layout":     t.Layout,
	})
}

// SaveLayout handles PUT /v1/admin/theaters/:id/layout.  Saving a new
// declaration does not touch existing seats; RegenerateSeats applies it.
func (h *AdminHandler) SaveLayout(c echo.Context) error {
	theaterID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid theater id"})
	}
	var body struct {
		Layout model.SeatLayout `json:"layout"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validateLayout(body.Layout); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Theaters.SaveLayout(c.Request().Context(), theaterID, body.Layout); err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"theater_id": theaterID})
}

// RegenerateSeats handles POST /v1/admin/theaters/:id/seats/regenerate.
// It re-runs generation from the stored layout and replaces the seat
// rows in one transaction, so concurrent readers never observe an empty
// auditorium.  Status rows of replaced seats cascade away with them;
// the regenerated seats surface as virtually available in already
// initialized showtimes.
func (h *AdminHandler) RegenerateSeats(c echo.Context) error {
	theaterID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid theater id"})
	}
	ctx := c.Request().Context()
	t, err := h.Theaters.GetByID(ctx, theaterID)
	if err != nil {
		return writeDomainError(c, err)
	}
	seats := layout.Generate(t.Layout)
	if err := h.Seats.ReplaceForTheater(ctx, theaterID, seats); err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"theater_id": theaterID,
		"seat_count": len(seats),
	})
}

// ListSeats handles GET /v1/admin/theaters/:id/seats, returning all
// generated seats including inactive ones.
func (h *AdminHandler) ListSeats(c echo.Context) error {
	theaterID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid theater id"})
	}
	seats, err := h.Seats.GetByTheater(c.Request().Context(), theaterID, false)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"theater_id": theaterID,
		"seats":      seats,
	})
}

// CreateShowtime handles POST /v1/admin/theaters/:id/showtimes.
func (h *AdminHandler) CreateShowtime(c echo.Context) error {
	theaterID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid theater id"})
	}
	var body struct {
		Title    string           `json:"title"`
		StartsAt time.Time        `json:"starts_at"`
		Prices   model.PriceTable `json:"prices"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	if body.StartsAt.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at is required"})
	}
	if body.Prices.StandardCents == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "prices.standard_cents is required"})
	}
	ctx := c.Request().Context()
	if _, err := h.Theaters.GetByID(ctx, theaterID); err != nil {
		return writeDomainError(c, err)
	}
	s := &model.Showtime{
		TheaterID: theaterID,
		Title:     body.Title,
		StartsAt:  body.StartsAt.UTC(),
		Prices:    body.Prices,
	}
	if err := h.Showtimes.Create(ctx, s); err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"showtime_id": s.ID,
		"theater_id":  s.TheaterID,
		"title":       s.Title,
		"starts_at":   s.StartsAt,
	})
}

// InitializeShowtime handles POST /v1/admin/showtimes/:id/initialize.
// It creates one status row per active seat with prices snapshotted
// from the showtime's table.  The call is deliberately not idempotent:
// a second attempt returns 409 rather than silently resetting holds.
func (h *AdminHandler) InitializeShowtime(c echo.Context) error {
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	ctx := c.Request().Context()
	show, err := h.Showtimes.GetByID(ctx, showtimeID)
	if err != nil {
		return writeDomainError(c, err)
	}
	seats, err := h.Seats.GetByTheater(ctx, show.TheaterID, true)
	if err != nil {
		return writeDomainError(c, err)
	}
	if len(seats) == 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "theater has no generated seats"})
	}
	if err := h.Arb.Initialize(ctx, showtimeID, seats, show.Prices); err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"showtime_id": showtimeID,
		"seat_count":  len(seats),
	})
}

// Block handles POST /v1/admin/showtimes/:id/block.  Blocking discards
// live holds without notice; booked seats are skipped.
func (h *AdminHandler) Block(c echo.Context) error {
	return h.applyBlocking(c, true)
}

// Unblock handles POST /v1/admin/showtimes/:id/unblock.
func (h *AdminHandler) Unblock(c echo.Context) error {
	return h.applyBlocking(c, false)
}

func (h *AdminHandler) applyBlocking(c echo.Context, block bool) error {
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	var body struct {
		SeatIDs []uint64 `json:"seat_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	seatIDs := dedupeSeatIDs(body.SeatIDs)
	if len(seatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
	}
	ctx := c.Request().Context()
	var affected []uint64
	var err error
	if block {
		affected, err = h.Arb.Block(ctx, showtimeID, seatIDs)
	} else {
		affected, err = h.Arb.Unblock(ctx, showtimeID, seatIDs)
	}
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"showtime_id": showtimeID,
		"affected":    affected,
	})
}

// TeardownShowtime handles DELETE /v1/admin/showtimes/:id, removing the
// showtime and all of its status rows in one transaction.
func (h *AdminHandler) TeardownShowtime(c echo.Context) error {
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	if err := h.Showtimes.Teardown(c.Request().Context(), showtimeID); err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"showtime_id": showtimeID})
}
