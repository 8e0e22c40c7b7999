package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AnshRaj112/civicquest-backend/internal/services"
	"github.com/AnshRaj112/civicquest-backend/pkg/utils"
)

type contextKey int

const userIDKey contextKey = iota

// Credentials is the signup and signin payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func extractBearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// RequireAuth resolves the bearer token to a user ID in the request context.
// Browser websocket clients may pass the token as ?token= instead.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r.Header.Get("Authorization"))
		if token == "" && strings.HasPrefix(r.URL.Path, "/ws/") {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Missing session token")
			return
		}
		userID, ok, err := h.sessions.Validate(r.Context(), token)
		if err != nil {
			h.log.Error("session lookup failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if !ok {
			writeError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userIDFrom returns the authenticated user. Only valid behind RequireAuth.
func userIDFrom(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(userIDKey).(uuid.UUID)
	return id
}

func userResponse(id uuid.UUID, username string) map[string]interface{} {
	return map[string]interface{}{"id": id.String(), "username": username}
}

// Signup creates an account and its game profile, then opens a session.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req Credentials
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateUsername(req.Username); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		h.fail(w, r, err)
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.users.Create(r.Context(), utils.NormalizeUsername(req.Username), hash)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	profile, err := h.store.CreateProfile(r.Context(), user.ID.String(), user.Username)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	token, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.log.Info("user signed up", zap.String("user_id", user.ID.String()))
	writeJSON(w, http.StatusCreated, "Account created", map[string]interface{}{
		"user":    userResponse(user.ID, user.Username),
		"token":   token,
		"profile": profile,
	})
}

// Signin checks the password and opens a session.
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var req Credentials
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.users.ByUsername(r.Context(), utils.NormalizeUsername(req.Username))
	if errors.Is(err, services.ErrUserNotFound) {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !user.IsActive {
		writeError(w, http.StatusForbidden, "Account is disabled")
		return
	}
	ok, err := utils.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	// Accounts created before profiles existed get one on first sign in.
	if _, err := h.store.CreateProfile(r.Context(), user.ID.String(), user.Username); err != nil {
		h.fail(w, r, err)
		return
	}
	token, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Signed in", map[string]interface{}{
		"user":  userResponse(user.ID, user.Username),
		"token": token,
	})
}

// Signout invalidates the caller's token.
func (h *Handler) Signout(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if err := h.sessions.Invalidate(r.Context(), token); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Signed out", nil)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.ByID(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "OK", map[string]interface{}{
		"user": userResponse(user.ID, user.Username),
	})
}
