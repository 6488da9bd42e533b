package handler

// views.go holds the JSON shapes shared between the REST handlers and
// the websocket session, plus the mapping from domain errors to HTTP
// responses.  Holder identities of other visitors never leave the
// service; a seat map only reveals whether a held seat is "mine".

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-seating/internal/model"
	"github.com/iliyamo/showtime-seating/internal/repository"
	"github.com/iliyamo/showtime-seating/internal/selection"
)

// seatView is one seat in an availability response or websocket
// snapshot.  Status is the effective status: a lapsed hold reads as
// AVAILABLE even before the sweeper has released it.
type seatView struct {
	SeatID     uint64     `json:"seat_id"`
	Row        string     `json:"row"`
	Number     uint32     `json:"number"`
	Type       string     `json:"type"`
	PosX       uint32     `json:"pos_x"`
	PosY       uint32     `json:"pos_y"`
	Status     string     `json:"status"`
	PriceCents uint32     `json:"price_cents"`
	Mine       bool       `json:"mine,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// seatViews converts an availability listing into the client-facing
// shape, marking seats held or booked by holderID as mine.
func seatViews(seats []model.SeatAvailability, holderID string, now time.Time) []seatView {
	out := make([]seatView, 0, len(seats))
	for i := range seats {
		sa := &seats[i]
		v := seatView{
			SeatID:     sa.Seat.ID,
			Row:        sa.Seat.RowLabel,
			Number:     sa.Seat.SeatNumber,
			Type:       sa.Seat.SeatType,
			PosX:       sa.Seat.PosX,
			PosY:       sa.Seat.PosY,
			Status:     sa.Status.EffectiveStatus(now),
			PriceCents: sa.Status.PriceCents,
		}
		if v.Status != model.StatusAvailable && sa.Status.HolderID == holderID && holderID != "" {
			v.Mine = true
			if sa.Status.Status == model.StatusReserved {
				exp := sa.Status.ExpiresAt
				v.ExpiresAt = &exp
			}
		}
		out = append(out, v)
	}
	return out
}

// pathID parses a positive uint64 path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// dedupeSeatIDs drops zero and duplicate ids while keeping request order.
func dedupeSeatIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// writeDomainError translates errors raised by the arbiter and the
// repositories into HTTP responses.  Conflicts and gap-rule violations
// carry enough detail for the client to adjust and retry.
func writeDomainError(c echo.Context, err error) error {
	var conflict *repository.ConflictError
	if errors.As(err, &conflict) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":   "seat not available",
			"seat_id": conflict.SeatID,
			"status":  conflict.Status,
		})
	}
	var violation *selection.Violation
	if errors.As(err, &violation) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":  violation.Reason,
			"row":    violation.Row,
			"number": violation.Number,
		})
	}
	switch {
	case errors.Is(err, repository.ErrShowtimeNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
	case errors.Is(err, repository.ErrTheaterNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "theater not found"})
	case errors.Is(err, repository.ErrSeatNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
	case errors.Is(err, repository.ErrAlreadyInitialized):
		return c.JSON(http.StatusConflict, echo.Map{"error": "showtime already initialized"})
	case errors.Is(err, repository.ErrExpiredOrMissingReservation):
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation expired or not held by you"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
