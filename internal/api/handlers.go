package api

import (
	"encoding/json"
	"net/http"

	"swarm-relay/internal/relay"
)

// routerHandlers holds the handler dependencies for the router
type routerHandlers struct {
	relay *relay.Relay
}

// handleGetState returns the current player snapshot and totals
func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	connections, players := h.relay.Counts()

	writeJSON(w, map[string]interface{}{
		"players":         h.relay.Snapshot(),
		"playerCount":     players,
		"connectionCount": connections,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}
