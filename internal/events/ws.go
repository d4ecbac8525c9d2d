package events

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler subscribes the caller to profile events. ?officer_id= narrows
// the stream to one officer.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		officerID := strings.TrimSpace(c.Query("officer_id"))
		if err := hub.subscribe(ws, officerID); err != nil {
			_ = ws.Close()
			return
		}
		hub.Log.Info("ws client connected", zap.String("officer_id", officerID))

		// Incoming messages are ignored; reading detects the close.
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.remove(ws)
		hub.Log.Info("ws client disconnected", zap.String("officer_id", officerID))
	}
}
