package handlers

import (
	"net/http"

	"github.com/AnshRaj112/civicquest-backend/internal/models"
)

type preferencesRequest struct {
	Preferences models.Preferences `json:"preferences"`
	Age         *int               `json:"age,omitempty"`
}

type customizationRequest struct {
	Customization map[string]string `json:"customization"`
}

const maxCustomizationKeys = 32

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Profile(r.Context(), userIDFrom(r.Context()).String())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "OK", map[string]interface{}{"profile": p})
}

func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	p, err := h.store.UpdatePreferences(r.Context(), userIDFrom(r.Context()).String(), req.Preferences, req.Age)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Preferences updated", map[string]interface{}{"profile": p})
}

func (h *Handler) UpdateCustomization(w http.ResponseWriter, r *http.Request) {
	var req customizationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Customization) > maxCustomizationKeys {
		writeError(w, http.StatusBadRequest, "Too many customization keys")
		return
	}
	p, err := h.store.UpdateCustomization(r.Context(), userIDFrom(r.Context()).String(), req.Customization)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Avatar updated", map[string]interface{}{"profile": p})
}

// DeleteProfile wipes the game state. The account itself stays.
func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteProfile(r.Context(), userIDFrom(r.Context()).String()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Profile deleted", nil)
}

type leaderboardEntry struct {
	Rank       int    `json:"rank"`
	UserID     string `json:"userId"`
	Username   string `json:"username"`
	Level      int    `json:"level"`
	Experience int    `json:"experience"`
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if h.leaderboard == nil {
		writeError(w, http.StatusServiceUnavailable, "Leaderboard is not available")
		return
	}
	limit := intParam(r, "limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	top, err := h.leaderboard.TopByExperience(r.Context(), int64(limit))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entries := make([]leaderboardEntry, 0, len(top))
	for i, p := range top {
		entries = append(entries, leaderboardEntry{
			Rank:       i + 1,
			UserID:     p.ID,
			Username:   p.Username,
			Level:      p.Avatar.Level,
			Experience: p.Avatar.Experience,
		})
	}
	writeJSON(w, http.StatusOK, "OK", map[string]interface{}{"leaderboard": entries})
}
