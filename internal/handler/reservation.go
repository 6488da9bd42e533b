package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-seating/internal/arbiter"
	"github.com/iliyamo/showtime-seating/internal/middleware"
	"github.com/iliyamo/showtime-seating/internal/model"
	"github.com/iliyamo/showtime-seating/internal/queue"
	"github.com/iliyamo/showtime-seating/internal/realtime"
	"github.com/iliyamo/showtime-seating/internal/repository"
	queue_publisher "github.com/iliyamo/showtime-seating/internal/service"
)

// ReservationHandler serves the customer-facing seat map and the
// reserve / release / book flow.  Every operation is scoped to the
// holder id resolved by middleware.HolderIdentity, so anonymous
// visitors and signed-in users follow the same code path.
//
// Showtimes may be nil (the in-memory backend carries no showtime
// rows); it only enriches the booked event with title and theater.
type ReservationHandler struct {
	Arb        *arbiter.Arbiter
	Hub        *realtime.Hub
	Showtimes  *repository.ShowtimeRepo
	DefaultTTL time.Duration // hold TTL when the client sends none
}

// NewReservationHandler constructs a ReservationHandler.  arb and hub
// must be non-nil; a zero defaultTTL defers to the arbiter's default.
func NewReservationHandler(arb *arbiter.Arbiter, hub *realtime.Hub, showtimes *repository.ShowtimeRepo, defaultTTL time.Duration) *ReservationHandler {
	if arb == nil || hub == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{Arb: arb, Hub: hub, Showtimes: showtimes, DefaultTTL: defaultTTL}
}

// holdTTL resolves the TTL for one reserve call.
func (h *ReservationHandler) holdTTL(ttlSeconds uint32) time.Duration {
	if ttlSeconds > 0 {
		return time.Duration(ttlSeconds) * time.Second
	}
	return h.DefaultTTL
}

// Availability handles GET /v1/showtimes/:id/seats.  It returns the full
// seat map with effective statuses; seats held by the caller are marked
// mine and carry their hold expiry.
func (h *ReservationHandler) Availability(c echo.Context) error {
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	seats, err := h.Arb.Availability(c.Request().Context(), showtimeID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"showtime_id": showtimeID,
		"seats":       seatViews(seats, middleware.HolderID(c), time.Now().UTC()),
	})
}

// Reserve handles POST /v1/showtimes/:id/reserve.  The whole batch is
// reserved atomically or not at all; a conflict names the first seat
// that could not be taken and a gap-rule violation names the seat the
// selection would strand.  Re-reserving seats already held by the
// caller extends their TTL.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	holderID := middleware.HolderID(c)
	if holderID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "no holder identity"})
	}
	var body struct {
		SeatIDs    []uint64 `json:"seat_ids"`
		TTLSeconds uint32   `json:"ttl_seconds"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	seatIDs := dedupeSeatIDs(body.SeatIDs)
	if len(seatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
	}
	expiresAt, err := h.Arb.Reserve(c.Request().Context(), showtimeID, seatIDs, holderID, h.holdTTL(body.TTLSeconds))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"showtime_id": showtimeID,
		"seat_ids":    seatIDs,
		"expires_at":  expiresAt,
	})
}

// Release handles POST /v1/showtimes/:id/release.  Only seats currently
// held by the caller are released; everything else in the batch is
// skipped silently, so releasing after a partial expiry cannot fail.
func (h *ReservationHandler) Release(c echo.Context) error {
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	holderID := middleware.HolderID(c)
	if holderID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "no holder identity"})
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
	released, err := h.Arb.Release(c.Request().Context(), showtimeID, seatIDs, holderID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"showtime_id": showtimeID,
		"released":    released,
	})
}

// Book handles POST /v1/showtimes/:id/book.  It finalizes the caller's
// live holds under a booking reference and publishes a seats.booked
// event to the broker.  Broker failures are logged, never surfaced: the
// booking itself is already committed.
func (h *ReservationHandler) Book(c echo.Context) error {
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	holderID := middleware.HolderID(c)
	if holderID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "no holder identity"})
	}
	var body struct {
		SeatIDs    []uint64 `json:"seat_ids"`
		BookingRef string   `json:"booking_ref"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	seatIDs := dedupeSeatIDs(body.SeatIDs)
	if len(seatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
	}
	if body.BookingRef == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_ref is required"})
	}
	ctx := c.Request().Context()

	// Snapshot labels and prices before the transition; after it the
	// rows still exist but this avoids a second round trip on success.
	seats, err := h.Arb.Availability(ctx, showtimeID)
	if err != nil {
		return writeDomainError(c, err)
	}
	if err := h.Arb.Book(ctx, showtimeID, seatIDs, holderID, body.BookingRef); err != nil {
		return writeDomainError(c, err)
	}

	event := h.bookedEvent(ctx, showtimeID, seatIDs, seats, holderID, body.BookingRef)
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := queue_publisher.PublishSeatsBooked(pubCtx, event); err != nil {
			log.Printf("book: seats.booked publish failed for showtime %d: %v", showtimeID, err)
		}
	}()

	return c.JSON(http.StatusOK, echo.Map{
		"showtime_id": showtimeID,
		"seat_ids":    seatIDs,
		"booking_ref": body.BookingRef,
		"total_cents": event.TotalCents,
	})
}

// bookedEvent assembles the broker payload for a confirmed booking from
// the pre-transition seat snapshot.
func (h *ReservationHandler) bookedEvent(ctx context.Context, showtimeID uint64, seatIDs []uint64, seats []model.SeatAvailability, holderID, bookingRef string) queue.SeatsBookedEvent {
	byID := make(map[uint64]*model.SeatAvailability, len(seats))
	for i := range seats {
		byID[seats[i].Seat.ID] = &seats[i]
	}
	event := queue.SeatsBookedEvent{
		ShowtimeID:  showtimeID,
		HolderID:    holderID,
		BookingRef:  bookingRef,
		ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for _, id := range seatIDs {
		sa, ok := byID[id]
		if !ok {
			continue
		}
		event.SeatLabels = append(event.SeatLabels, fmt.Sprintf("%s%d", sa.Seat.RowLabel, sa.Seat.SeatNumber))
		event.TotalCents += sa.Status.PriceCents
		event.TheaterID = sa.Seat.TheaterID
	}
	if h.Showtimes != nil {
		if show, err := h.Showtimes.GetByID(ctx, showtimeID); err == nil {
			event.Title = show.Title
			event.TheaterID = show.TheaterID
		}
	}
	return event
}
