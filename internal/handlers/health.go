package handlers

import (
	"net/http"
	"time"

	"github.com/AnshRaj112/civicquest-backend/internal/models"
)

// maxHealthDateSkew lets clients in other time zones sync their local date.
const maxHealthDateSkew = 24 * time.Hour

type healthSyncRequest struct {
	Date       string  `json:"date"`
	Steps      int     `json:"steps"`
	SleepHours float64 `json:"sleepHours"`
}

// SyncHealth ingests a daily steps/sleep summary. Each date is rewarded
// once and dates must move forward; a repeat or older date answers 409.
func (h *Handler) SyncHealth(w http.ResponseWriter, r *http.Request) {
	var req healthSyncRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Steps < 0 || req.Steps > 200000 {
		writeError(w, http.StatusBadRequest, "steps out of range")
		return
	}
	if req.SleepHours < 0 || req.SleepHours > 24 {
		writeError(w, http.StatusBadRequest, "sleepHours out of range")
		return
	}
	if req.Date != "" {
		day, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		today := h.store.Now().UTC().Truncate(24 * time.Hour)
		if d := day.Sub(today); d < -maxHealthDateSkew || d > maxHealthDateSkew {
			writeError(w, http.StatusBadRequest, "date must be within a day of today")
			return
		}
	}

	snap := models.HealthSnapshot{Date: req.Date, Steps: req.Steps, SleepHours: req.SleepHours}
	p, res, err := h.store.SyncHealth(r.Context(), userIDFrom(r.Context()).String(), snap)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Health synced", map[string]interface{}{
		"profile": p,
		"result":  viewResult(res),
	})
}
