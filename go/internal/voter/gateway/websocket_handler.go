package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for the view feed
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	app               VoterApp
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, app VoterApp) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		app:               app,
	}
}

// HandleViewConnection handles GET /ws/view
func (h *WebSocketHandler) HandleViewConnection(w http.ResponseWriter, r *http.Request) {
	// the upgrader has already replied when this fails
	if err := h.connectionManager.UpgradeConnection(w, r, h.app.View()); err != nil {
		log.Error().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats handles GET /ws/stats
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.Stats()); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/view", h.HandleViewConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
