package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showtime-seating/internal/arbiter"
	"github.com/iliyamo/showtime-seating/internal/layout"
	"github.com/iliyamo/showtime-seating/internal/model"
	"github.com/iliyamo/showtime-seating/internal/realtime"
	"github.com/iliyamo/showtime-seating/internal/repository"
)

const testShowtime = uint64(7)

// newTestHandler builds a handler over the in-memory store with one
// initialized showtime: rows A and B, five seats each, B all VIP.
func newTestHandler(t *testing.T) (*ReservationHandler, []model.Seat) {
	t.Helper()
	seats := layout.Generate(model.SeatLayout{
		Rows:        2,
		SeatsPerRow: 5,
		VIPRows:     []string{"B"},
	})
	for i := range seats {
		seats[i].ID = uint64(i + 1)
		seats[i].TheaterID = 1
	}
	store := repository.NewMemStatusStore()
	require.NoError(t, store.Initialize(context.Background(), testShowtime, seats, model.PriceTable{StandardCents: 1200}))
	hub := realtime.NewHub()
	return NewReservationHandler(arbiter.New(store, hub), hub, nil, time.Minute), seats
}

// call invokes an echo handler against /v1/showtimes/:id with the given
// body and holder identity, returning the recorder.
func call(t *testing.T, h echo.HandlerFunc, showtimeID, holderID, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(http.MethodPost, "/", reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(showtimeID)
	if holderID != "" {
		c.Set("holder_id", holderID)
	}
	require.NoError(t, h(c))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAvailabilityReturnsFullSeatMap(t *testing.T) {
	h, seats := newTestHandler(t)
	rec := call(t, h.Availability, "7", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	got := body["seats"].([]interface{})
	assert.Len(t, got, len(seats))
	first := got[0].(map[string]interface{})
	assert.Equal(t, model.StatusAvailable, first["status"])
	assert.NotZero(t, first["price_cents"])
}

func TestAvailabilityUnknownShowtime(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := call(t, h.Availability, "999", "alice", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReserveThenConflictForSecondHolder(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := call(t, h.Reserve, "7", "alice", `{"seat_ids":[1,2]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.NotEmpty(t, body["expires_at"])

	rec = call(t, h.Reserve, "7", "bob", `{"seat_ids":[2,3]}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, float64(2), body["seat_id"])

	// Seat 3 was part of bob's failed batch and must still be free.
	rec = call(t, h.Reserve, "7", "bob", `{"seat_ids":[3]}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestReserveGapRuleRejected(t *testing.T) {
	h, _ := newTestHandler(t)
	// Seats 1 and 3 sit in row A with seat 2 free between them.
	rec := call(t, h.Reserve, "7", "alice", `{"seat_ids":[1,3]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "A", body["row"])
	assert.Equal(t, float64(2), body["number"])
}

func TestReserveValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := call(t, h.Reserve, "abc", "alice", `{"seat_ids":[1]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, h.Reserve, "7", "alice", `{"seat_ids":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, h.Reserve, "7", "", `{"seat_ids":[1]}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReleaseSkipsForeignHolds(t *testing.T) {
	h, _ := newTestHandler(t)
	require.Equal(t, http.StatusCreated, call(t, h.Reserve, "7", "alice", `{"seat_ids":[1,2]}`).Code)

	// bob releases nothing: the holds are not his.
	rec := call(t, h.Release, "7", "bob", `{"seat_ids":[1,2]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["released"])

	rec = call(t, h.Release, "7", "alice", `{"seat_ids":[1,2]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["released"], 2)
}

func TestBookRequiresLiveHold(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := call(t, h.Book, "7", "alice", `{"seat_ids":[1],"booking_ref":"pay-1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBookFinalizesAndPricesBatch(t *testing.T) {
	h, _ := newTestHandler(t)
	// Seat 6 is B1: VIP, priced at 1.5x standard.
	require.Equal(t, http.StatusCreated, call(t, h.Reserve, "7", "alice", `{"seat_ids":[1,6]}`).Code)

	rec := call(t, h.Book, "7", "alice", `{"seat_ids":[1,6],"booking_ref":"pay-42"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(1200+1800), body["total_cents"])

	// Terminal: the same seats cannot be reserved again.
	rec = call(t, h.Reserve, "7", "bob", `{"seat_ids":[1]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Availability marks them booked.
	rec = call(t, h.Availability, "7", "bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	for _, raw := range decode(t, rec)["seats"].([]interface{}) {
		seat := raw.(map[string]interface{})
		if seat["seat_id"] == float64(1) || seat["seat_id"] == float64(6) {
			assert.Equal(t, model.StatusBooked, seat["status"])
		}
	}
}

func TestBookMissingRef(t *testing.T) {
	h, _ := newTestHandler(t)
	require.Equal(t, http.StatusCreated, call(t, h.Reserve, "7", "alice", `{"seat_ids":[1]}`).Code)
	rec := call(t, h.Book, "7", "alice", `{"seat_ids":[1]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvailabilityMarksOwnHolds(t *testing.T) {
	h, _ := newTestHandler(t)
	require.Equal(t, http.StatusCreated, call(t, h.Reserve, "7", "alice", `{"seat_ids":[4]}`).Code)

	rec := call(t, h.Availability, "7", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var mine, foreign int
	for _, raw := range decode(t, rec)["seats"].([]interface{}) {
		seat := raw.(map[string]interface{})
		if seat["seat_id"] == float64(4) {
			assert.Equal(t, model.StatusReserved, seat["status"])
			assert.Equal(t, true, seat["mine"])
			assert.NotEmpty(t, seat["expires_at"])
			mine++
		} else if _, ok := seat["mine"]; ok {
			foreign++
		}
	}
	assert.Equal(t, 1, mine)
	assert.Zero(t, foreign)
}
