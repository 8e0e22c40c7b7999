package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AnshRaj112/civicquest-backend/internal/engine"
	"github.com/AnshRaj112/civicquest-backend/internal/models"
	"github.com/AnshRaj112/civicquest-backend/internal/services"
)

func (h *Handler) requireSigns(w http.ResponseWriter) bool {
	if h.signs == nil {
		writeError(w, http.StatusServiceUnavailable, "Signs are not available")
		return false
	}
	return true
}

func signIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sign id")
		return uuid.Nil, false
	}
	return id, true
}

// CreateSign places a sign and rewards the owner by severity.
func (h *Handler) CreateSign(w http.ResponseWriter, r *http.Request) {
	if !h.requireSigns(w) {
		return
	}
	var in models.SignInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	userID := userIDFrom(r.Context())
	sign, err := h.signs.Create(r.Context(), userID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	extra := map[string]interface{}{"sign": sign}
	p, res, err := h.store.AwardRewards(r.Context(), userID.String(), engine.SignReward(sign.Severity))
	if err != nil {
		// The sign exists either way; the reward is best effort.
		h.log.Warn("sign reward failed", zap.String("sign_id", sign.ID.String()), zap.Error(err))
	} else {
		extra["profile"] = p
		extra["result"] = viewResult(res)
	}
	writeJSON(w, http.StatusCreated, "Sign created", extra)
}

// NearbySigns lists signs around ?lat=&lng= within ?radius= metres.
func (h *Handler) NearbySigns(w http.ResponseWriter, r *http.Request) {
	if !h.requireSigns(w) {
		return
	}
	lat, lng, radius, ok := locationParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}
	signs, err := h.signs.Nearby(r.Context(), lat, lng, radius, intParam(r, "limit", 0))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if category := r.URL.Query().Get("category"); category != "" {
		filtered := signs[:0]
		for _, s := range signs {
			if s.Category == category {
				filtered = append(filtered, s)
			}
		}
		signs = filtered
	}
	writeJSON(w, http.StatusOK, "OK", map[string]interface{}{"signs": signs})
}

func (h *Handler) GetSign(w http.ResponseWriter, r *http.Request) {
	if !h.requireSigns(w) {
		return
	}
	id, ok := signIDParam(w, r)
	if !ok {
		return
	}
	sign, err := h.signs.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "OK", map[string]interface{}{"sign": sign})
}

func (h *Handler) DeleteSign(w http.ResponseWriter, r *http.Request) {
	if !h.requireSigns(w) {
		return
	}
	id, ok := signIDParam(w, r)
	if !ok {
		return
	}
	if err := h.signs.Delete(r.Context(), id, userIDFrom(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Sign deleted", nil)
}

// JoinSign signs the caller up for the sign's civic action and awards the
// civic action bonus once.
func (h *Handler) JoinSign(w http.ResponseWriter, r *http.Request) {
	if !h.requireSigns(w) {
		return
	}
	id, ok := signIDParam(w, r)
	if !ok {
		return
	}
	userID := userIDFrom(r.Context())
	sign, err := h.signs.Join(r.Context(), id, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, res, err := h.store.AwardRewards(r.Context(), userID.String(), engine.CivicActionReward())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Joined civic action", map[string]interface{}{
		"sign":    sign,
		"profile": p,
		"result":  viewResult(res),
	})
}

// NearbyPlaces proxies the places lookup. It answers an empty list when the
// lookup is unavailable.
func (h *Handler) NearbyPlaces(w http.ResponseWriter, r *http.Request) {
	lat, lng, radius, ok := locationParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}
	if !services.ValidCoordinates(lat, lng) {
		h.fail(w, r, services.ErrInvalidLocation)
		return
	}
	places := []models.Sign{}
	if h.places != nil {
		places = h.places.Nearby(r.Context(), lat, lng, radius, r.URL.Query().Get("type"))
	}
	writeJSON(w, http.StatusOK, "OK", map[string]interface{}{"places": places})
}
