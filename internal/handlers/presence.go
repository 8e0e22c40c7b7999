package handlers

import (
	"net/http"

	"github.com/AnshRaj112/civicquest-backend/internal/services"
)

type heartbeatRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (h *Handler) requirePresence(w http.ResponseWriter) bool {
	if h.presence == nil {
		writeError(w, http.StatusServiceUnavailable, "Presence is not available")
		return false
	}
	return true
}

// Heartbeat marks the caller online at a position. Players who turned
// location sharing off are removed instead.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	if !h.requirePresence(w) {
		return
	}
	var req heartbeatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	userID := userIDFrom(r.Context()).String()
	p, err := h.store.Profile(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !p.Preferences.ShareLocation {
		if err := h.presence.Leave(r.Context(), userID); err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, "Location sharing is off", map[string]interface{}{"visible": false})
		return
	}
	if err := h.presence.Heartbeat(r.Context(), userID, req.Latitude, req.Longitude); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "OK", map[string]interface{}{
		"visible":    true,
		"ttlSeconds": int(services.PresenceTTL.Seconds()),
	})
}

func (h *Handler) NearbyPlayers(w http.ResponseWriter, r *http.Request) {
	if !h.requirePresence(w) {
		return
	}
	lat, lng, radius, ok := locationParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}
	players, err := h.presence.Nearby(r.Context(), userIDFrom(r.Context()).String(), lat, lng, radius, intParam(r, "limit", 0))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "OK", map[string]interface{}{"players": players})
}
