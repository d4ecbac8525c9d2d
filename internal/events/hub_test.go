package events

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	ws, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	// the welcome frame is written after registration
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(msg), "welcome")
	return ws
}

func TestPublishFiltersByOfficer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil)
	r := gin.New()
	r.GET("/ws", WSHandler(hub))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	all := dial(t, srv, "")
	mine := dial(t, srv, "?officer_id=o1")
	assert.Equal(t, 2, hub.Stats().WSClients)

	hub.Publish(ProfileEvent{Type: TypeProfileUpdate, OfficerID: "o2", Entity: "training", RecordID: "7"})
	hub.Publish(ProfileEvent{Type: TypeProfileDelete, OfficerID: "o1", Entity: "education", RecordID: "3"})

	read := func(ws *websocket.Conn) ProfileEvent {
		_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := ws.ReadMessage()
		require.NoError(t, err)
		var ev ProfileEvent
		require.NoError(t, json.Unmarshal(msg, &ev))
		return ev
	}

	assert.Equal(t, "o2", read(all).OfficerID)
	assert.Equal(t, "o1", read(all).OfficerID)

	ev := read(mine)
	assert.Equal(t, TypeProfileDelete, ev.Type)
	assert.Equal(t, "3", ev.RecordID)
	assert.False(t, ev.At.IsZero())
}
