package api

import (
	"net/http"

	"github.com/faceguard/core/internal/eventbus"
)

// WebSocketHandlers mounts the four named rooms spec.md §6 lists onto
// eventbus.RoomRegistry.ServeWS.
type WebSocketHandlers struct {
	Rooms *eventbus.RoomRegistry
}

func (h *WebSocketHandlers) serve(room string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Rooms.ServeWS(w, r, room)
	}
}
