package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/AnshRaj112/civicquest-backend/internal/engine"
	"github.com/AnshRaj112/civicquest-backend/internal/services"
	"github.com/AnshRaj112/civicquest-backend/internal/store"
	"github.com/AnshRaj112/civicquest-backend/pkg/utils"
)

const maxJSONBody = 1 << 20

// writeJSON writes the {"success", "message"} envelope plus any extra fields.
func writeJSON(w http.ResponseWriter, status int, message string, extra map[string]interface{}) {
	body := map[string]interface{}{
		"success": status < http.StatusBadRequest,
		"message": message,
	}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, message, nil)
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	var verr *utils.ValidationError
	switch {
	case engine.IsRejection(err):
		return http.StatusConflict
	case errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, services.ErrAlreadyJoined),
		errors.Is(err, services.ErrDuplicatePlace),
		errors.Is(err, services.ErrActionClosed),
		errors.Is(err, services.ErrNoCivicAction):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, services.ErrSignNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotSignOwner):
		return http.StatusForbidden
	case errors.Is(err, store.ErrInvalid),
		errors.Is(err, services.ErrInvalidSign),
		errors.Is(err, services.ErrInvalidLocation),
		errors.Is(err, services.ErrProofTooLarge),
		errors.Is(err, services.ErrProofNotImage),
		errors.As(err, &verr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Internal errors are logged and
// their text is not sent to the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, status, "Internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

// floatParam reads a float query parameter; missing values return def.
func floatParam(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func intParam(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

// locationParams reads the required lat/lng pair and an optional radius.
func locationParams(r *http.Request) (lat, lng, radius float64, ok bool) {
	q := r.URL.Query()
	if q.Get("lat") == "" || q.Get("lng") == "" {
		return 0, 0, 0, false
	}
	lat, err1 := floatParam(r, "lat", 0)
	lng, err2 := floatParam(r, "lng", 0)
	radius, err3 := floatParam(r, "radius", 0)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0, false
	}
	return lat, lng, radius, true
}
