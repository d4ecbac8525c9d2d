// Package events fans profile changes out to websocket subscribers.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event types.
const (
	TypeProfileUpdate = "profile.update"
	TypeProfileDelete = "profile.delete"
)

type ProfileEvent struct {
	Type      string    `json:"type"`
	OfficerID string    `json:"officer_id"`
	Entity    string    `json:"entity"`
	RecordID  string    `json:"record_id"`
	At        time.Time `json:"at"`
}

type client struct {
	// officerID filters events; "" receives everything.
	officerID string
}

type Hub struct {
	Log *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]client
}

type Stats struct {
	WSClients int `json:"ws_clients"`
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{Log: log, clients: make(map[*websocket.Conn]client)}
}

var welcome = []byte(`{"type":"welcome","transport":"websocket"}`)

// subscribe greets ws and registers it. Both happen under the lock so the
// greeting never interleaves with a broadcast.
func (h *Hub) subscribe(ws *websocket.Conn, officerID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := ws.WriteMessage(websocket.TextMessage, welcome); err != nil {
		return err
	}
	h.clients[ws] = client{officerID: officerID}
	return nil
}

func (h *Hub) remove(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// Publish sends ev to every subscriber watching its officer.
func (h *Hub) Publish(ev ProfileEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		h.Log.Warn("encode event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ws, c := range h.clients {
		if c.officerID != "" && c.officerID != ev.OfficerID {
			continue
		}
		_ = ws.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			h.Log.Debug("drop ws client", zap.Error(err))
			_ = ws.Close()
			delete(h.clients, ws)
		}
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{WSClients: len(h.clients)}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ws := range h.clients {
		_ = ws.Close()
		delete(h.clients, ws)
	}
}
