package handler

import (
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

// dialLive connects a websocket client to the handler under test with a
// fixed holder identity.
func dialLive(t *testing.T, h *ReservationHandler, holderID string) *websocket.Conn {
	t.Helper()
	e := echo.New()
	e.GET("/v1/showtimes/:id/live", h.Live, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("holder_id", holderID)
			return next(c)
		}
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/showtimes/" + strconv.FormatUint(testShowtime, 10) + "/live"
	ws, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func receive(t *testing.T, ws *websocket.Conn) serverMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg serverMessage
	require.NoError(t, websocket.JSON.Receive(ws, &msg))
	return msg
}

func TestLiveSessionSnapshotThenReserve(t *testing.T) {
	h, seats := newTestHandler(t)
	ws := dialLive(t, h, "alice")

	snap := receive(t, ws)
	require.Equal(t, "snapshot", snap.Type)
	assert.Equal(t, testShowtime, snap.ShowtimeID)
	assert.Len(t, snap.Seats, len(seats))

	require.NoError(t, websocket.JSON.Send(ws, clientMessage{Action: "reserve", SeatIDs: []uint64{1, 2}}))

	// The ack and the broadcast delta arrive in either order.
	types := map[string]serverMessage{}
	for i := 0; i < 2; i++ {
		msg := receive(t, ws)
		types[msg.Type] = msg
	}
	ack, ok := types["reserve-ack"]
	require.True(t, ok, "missing reserve-ack, got %v", types)
	assert.Equal(t, []uint64{1, 2}, ack.SeatIDs)
	assert.NotNil(t, ack.ExpiresAt)

	delta, ok := types["seats-reserved"]
	require.True(t, ok, "missing seats-reserved, got %v", types)
	assert.Equal(t, []uint64{1, 2}, delta.SeatIDs)
}

func TestLiveSessionSelectionFailure(t *testing.T) {
	h, _ := newTestHandler(t)
	ws := dialLive(t, h, "alice")
	require.Equal(t, "snapshot", receive(t, ws).Type)

	// Selecting 1 and 3 strands seat A2.
	require.NoError(t, websocket.JSON.Send(ws, clientMessage{Action: "select", SeatIDs: []uint64{1, 3}}))
	msg := receive(t, ws)
	require.Equal(t, "selection-failed", msg.Type)
	assert.Equal(t, "A", msg.Row)
	assert.Equal(t, uint32(2), msg.Number)
}

func TestLiveSessionBroadcastBetweenViewers(t *testing.T) {
	h, _ := newTestHandler(t)
	alice := dialLive(t, h, "alice")
	bob := dialLive(t, h, "bob")
	require.Equal(t, "snapshot", receive(t, alice).Type)
	require.Equal(t, "snapshot", receive(t, bob).Type)

	require.NoError(t, websocket.JSON.Send(alice, clientMessage{Action: "select", SeatIDs: []uint64{4, 5}}))

	msg := receive(t, bob)
	require.Equal(t, "seats-selecting", msg.Type)
	assert.Equal(t, []uint64{4, 5}, msg.SeatIDs)
}
