package eventbus

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

const replayBufferSize = 100

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// connWriter serializes writes to one connection; gorilla/websocket
// forbids concurrent writers on the same *Conn.
type connWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *connWriter) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

// room holds the live connections and replay buffer for one named room
// (alerts, notifications, system, dashboard), grounded on the upgrader +
// read-loop shape of the dashboard WebSocket handler this was adapted
// from.
type room struct {
	mu      sync.Mutex
	conns   map[*connWriter]bool
	replay  []any
}

func newRoom() *room {
	return &room{conns: make(map[*connWriter]bool)}
}

func (r *room) add(c *connWriter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c] = true
}

func (r *room) remove(c *connWriter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, c)
}

// broadcast sends msg to every live connection, dropping any connection
// whose write fails (per spec.md §4.7: "connections yielding a send error
// are removed"), and appends to the capped replay buffer.
func (r *room) broadcast(msg any) int {
	r.mu.Lock()
	r.replay = append(r.replay, msg)
	if len(r.replay) > replayBufferSize {
		r.replay = r.replay[len(r.replay)-replayBufferSize:]
	}
	conns := make([]*connWriter, 0, len(r.conns))
	for c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.Unlock()

	sent := 0
	for _, c := range conns {
		if err := c.writeJSON(msg); err != nil {
			r.remove(c)
			continue
		}
		sent++
	}
	return sent
}

func (r *room) replaySnapshot() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.replay...)
}

// RoomRegistry owns every named room. Rooms are created lazily on first
// use so the HTTP surface doesn't need to pre-register them.
type RoomRegistry struct {
	mu    sync.Mutex
	byName map[string]*room
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{byName: make(map[string]*room)}
}

func (rr *RoomRegistry) get(name string) *room {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	r, ok := rr.byName[name]
	if !ok {
		r = newRoom()
		rr.byName[name] = r
	}
	return r
}

func (rr *RoomRegistry) Broadcast(name string, msg any) int {
	return rr.get(name).broadcast(msg)
}

type clientMessage struct {
	Type    string `json:"type"`
	AlertID string `json:"alert_id,omitempty"`
}

// ServeWS upgrades an HTTP request to a WebSocket connection joined to
// room, replaying up to 100 buffered messages (marked queued:true) before
// processing live client messages, per spec.md §6's WebSocket surface.
func (rr *RoomRegistry) ServeWS(w http.ResponseWriter, r *http.Request, roomName string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[EventBus] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	cw := &connWriter{conn: conn}
	rm := rr.get(roomName)

	for _, msg := range rm.replaySnapshot() {
		envelope := map[string]any{"queued": true}
		if b, err := json.Marshal(msg); err == nil {
			_ = json.Unmarshal(b, &envelope)
			envelope["queued"] = true
		}
		_ = cw.writeJSON(envelope)
	}

	rm.add(cw)
	defer rm.remove(cw)

	for {
		var in clientMessage
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		switch in.Type {
		case "ping":
			_ = cw.writeJSON(map[string]string{"type": "pong"})
		case "acknowledge_alert":
			rr.Broadcast("alerts", map[string]any{"type": "acknowledged", "alert_id": in.AlertID})
		}
	}
}
