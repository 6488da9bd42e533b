package handler

// ws.go implements the live seat map session.  Joining a showtime
// delivers an authoritative snapshot followed by incremental deltas
// from the hub; the same socket accepts select / reserve / release /
// book actions so a picker UI needs no extra round trips.  Delivery is
// at-most-once: a client that misses deltas refetches the snapshot.

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/net/websocket"

	"github.com/iliyamo/showtime-seating/internal/middleware"
	"github.com/iliyamo/showtime-seating/internal/realtime"
	"github.com/iliyamo/showtime-seating/internal/repository"
	"github.com/iliyamo/showtime-seating/internal/selection"
)

// outboundBuffer bounds per-session queued messages; beyond it deltas
// are dropped in favor of the client resyncing from a snapshot.
const outboundBuffer = 32

// clientMessage is what a viewer sends over the socket.
type clientMessage struct {
	Action     string   `json:"action"`
	SeatIDs    []uint64 `json:"seat_ids,omitempty"`
	TTLSeconds uint32   `json:"ttl_seconds,omitempty"`
	BookingRef string   `json:"booking_ref,omitempty"`
}

// serverMessage is everything the service sends: the initial snapshot,
// broadcast deltas, per-session acks and selection failures.
type serverMessage struct {
	Type       string     `json:"type"`
	ShowtimeID uint64     `json:"showtime_id,omitempty"`
	SeatIDs    []uint64   `json:"seat_ids,omitempty"`
	Status     string     `json:"status,omitempty"`
	Seats      []seatView `json:"seats,omitempty"`
	SeatID     uint64     `json:"seat_id,omitempty"`
	Row        string     `json:"row,omitempty"`
	Number     uint32     `json:"number,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Live handles GET /v1/showtimes/:id/live, upgrading to a websocket
// session bound to one showtime and one holder.  Disconnecting does not
// release holds; the TTL owns their lifetime.
func (h *ReservationHandler) Live(c echo.Context) error {
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	holderID := middleware.HolderID(c)
	if holderID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "no holder identity"})
	}
	// Verify the showtime before upgrading so a bad id fails as plain HTTP.
	if _, err := h.Arb.Availability(c.Request().Context(), showtimeID); err != nil {
		return writeDomainError(c, err)
	}
	websocket.Handler(func(ws *websocket.Conn) {
		h.serveLive(c.Request().Context(), ws, showtimeID, holderID)
	}).ServeHTTP(c.Response(), c.Request())
	return nil
}

// serveLive runs one session: a writer goroutine owns the socket's send
// side while the read loop handles client actions.  Direct replies and
// hub deltas merge on the outbound channel, so no two goroutines ever
// write the connection concurrently.
func (h *ReservationHandler) serveLive(ctx context.Context, ws *websocket.Conn, showtimeID uint64, holderID string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub := h.Hub.Subscribe(showtimeID)
	defer sub.Close()

	outbound := make(chan serverMessage, outboundBuffer)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-outbound:
				if err := websocket.JSON.Send(ws, msg); err != nil {
					cancel()
					return
				}
			case ev := <-sub.C:
				msg := serverMessage{
					Type:       ev.Type,
					ShowtimeID: ev.ShowtimeID,
					SeatIDs:    ev.SeatIDs,
					Status:     ev.Status,
				}
				if err := websocket.JSON.Send(ws, msg); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	if !h.sendSnapshot(ctx, outbound, showtimeID, holderID) {
		return
	}

	for {
		var msg clientMessage
		if err := websocket.JSON.Receive(ws, &msg); err != nil {
			cancel()
			<-writerDone
			return
		}
		h.handleAction(ctx, outbound, showtimeID, holderID, msg)
		select {
		case <-ctx.Done():
			<-writerDone
			return
		default:
		}
	}
}

// sendSnapshot queues the current seat map; false means the session is
// already unusable.
func (h *ReservationHandler) sendSnapshot(ctx context.Context, outbound chan<- serverMessage, showtimeID uint64, holderID string) bool {
	seats, err := h.Arb.Availability(ctx, showtimeID)
	if err != nil {
		log.Printf("live: snapshot failed for showtime %d: %v", showtimeID, err)
		return false
	}
	send(ctx, outbound, serverMessage{
		Type:       "snapshot",
		ShowtimeID: showtimeID,
		Seats:      seatViews(seats, holderID, time.Now().UTC()),
	})
	return true
}

func (h *ReservationHandler) handleAction(ctx context.Context, outbound chan<- serverMessage, showtimeID uint64, holderID string, msg clientMessage) {
	seatIDs := dedupeSeatIDs(msg.SeatIDs)
	switch msg.Action {
	case "snapshot":
		h.sendSnapshot(ctx, outbound, showtimeID, holderID)

	case "select":
		// A soft hint only: no state changes, other viewers just see
		// what this holder is hovering over.  The gap rule runs here
		// for early feedback; reserve re-checks it authoritatively.
		if len(seatIDs) == 0 {
			return
		}
		seats, err := h.Arb.Availability(ctx, showtimeID)
		if err != nil {
			return
		}
		if res := selection.Validate(seatIDs, seats, time.Now().UTC()); !res.Valid {
			send(ctx, outbound, serverMessage{
				Type:   "selection-failed",
				Row:    res.Row,
				Number: res.Number,
				Reason: res.Reason,
			})
			return
		}
		h.Hub.Publish(realtime.Event{
			Type:       realtime.EventSelecting,
			ShowtimeID: showtimeID,
			SeatIDs:    seatIDs,
		})

	case "reserve":
		if len(seatIDs) == 0 {
			return
		}
		expiresAt, err := h.Arb.Reserve(ctx, showtimeID, seatIDs, holderID, h.holdTTL(msg.TTLSeconds))
		if err != nil {
			send(ctx, outbound, failureMessage(err))
			return
		}
		send(ctx, outbound, serverMessage{
			Type:      "reserve-ack",
			SeatIDs:   seatIDs,
			ExpiresAt: &expiresAt,
		})

	case "release":
		if len(seatIDs) == 0 {
			return
		}
		if _, err := h.Arb.Release(ctx, showtimeID, seatIDs, holderID); err != nil {
			send(ctx, outbound, failureMessage(err))
		}

	case "book":
		if len(seatIDs) == 0 || msg.BookingRef == "" {
			send(ctx, outbound, serverMessage{
				Type:   "selection-failed",
				Reason: "seat_ids and booking_ref are required",
			})
			return
		}
		if err := h.Arb.Book(ctx, showtimeID, seatIDs, holderID, msg.BookingRef); err != nil {
			send(ctx, outbound, failureMessage(err))
			return
		}
		send(ctx, outbound, serverMessage{
			Type:    "book-ack",
			SeatIDs: seatIDs,
		})

	default:
		send(ctx, outbound, serverMessage{
			Type:   "selection-failed",
			Reason: "unknown action",
		})
	}
}

// failureMessage turns a reserve/release/book error into a per-session
// failure message mirroring the REST error mapping.
func failureMessage(err error) serverMessage {
	var violation *selection.Violation
	if errors.As(err, &violation) {
		return serverMessage{
			Type:   "selection-failed",
			Row:    violation.Row,
			Number: violation.Number,
			Reason: violation.Reason,
		}
	}
	if conflict, ok := repository.AsConflict(err); ok {
		return serverMessage{
			Type:   "selection-failed",
			SeatID: conflict.SeatID,
			Status: conflict.Status,
			Reason: "seat not available",
		}
	}
	return serverMessage{Type: "selection-failed", Reason: err.Error()}
}

// send queues a message without ever blocking the session; a full
// outbound buffer drops it, same as a slow hub subscriber.
func send(ctx context.Context, outbound chan<- serverMessage, msg serverMessage) {
	if ctx.Err() != nil {
		return
	}
	select {
	case outbound <- msg:
	default:
	}
}
