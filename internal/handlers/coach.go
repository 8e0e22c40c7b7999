package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type coachRequest struct {
	Question string `json:"question"`
}

type geminiKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// Coach answers a question using the caller's profile as context.
func (h *Handler) Coach(w http.ResponseWriter, r *http.Request) {
	if h.coach == nil {
		writeError(w, http.StatusServiceUnavailable, "Coach is not available")
		return
	}
	var req coachRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	userID := userIDFrom(r.Context())
	p, err := h.store.Profile(r.Context(), userID.String())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var userKey string
	if h.keys != nil {
		userKey, err = h.keys.GeminiKey(r.Context(), userID)
		if err != nil {
			// Fall back to the server key rather than failing the request.
			h.log.Warn("failed to load user gemini key", zap.String("user_id", userID.String()), zap.Error(err))
			userKey = ""
		}
	}

	reply := h.coach.Ask(r.Context(), userKey, p, req.Question)
	writeJSON(w, http.StatusOK, "OK", map[string]interface{}{"reply": reply})
}

// SetGeminiKey stores the caller's own Gemini key. An empty key clears it.
func (h *Handler) SetGeminiKey(w http.ResponseWriter, r *http.Request) {
	if h.keys == nil {
		writeError(w, http.StatusServiceUnavailable, "Key storage is not available")
		return
	}
	var req geminiKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	key := strings.TrimSpace(req.APIKey)
	if len(key) > 256 {
		writeError(w, http.StatusBadRequest, "API key is too long")
		return
	}
	if err := h.keys.SetGeminiKey(r.Context(), userIDFrom(r.Context()), key); err != nil {
		h.fail(w, r, err)
		return
	}
	msg := "Gemini key saved"
	if key == "" {
		msg = "Gemini key removed"
	}
	writeJSON(w, http.StatusOK, msg, map[string]interface{}{"hasKey": key != ""})
}
