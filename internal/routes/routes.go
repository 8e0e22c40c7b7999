package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/civicquest-backend/internal/handlers"
)

func SetupRoutes(r chi.Router, h *handlers.Handler) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Auth
	r.Post("/api/auth/signup", h.Signup)
	r.Post("/api/auth/signin", h.Signin)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		r.Get("/api/auth/me", h.Me)
		r.Post("/api/auth/signout", h.Signout)

		// Profile and avatar
		r.Get("/api/profile", h.GetProfile)
		r.Delete("/api/profile", h.DeleteProfile)
		r.Put("/api/profile/preferences", h.UpdatePreferences)
		r.Put("/api/profile/customization", h.UpdateCustomization)
		r.Get("/api/leaderboard", h.Leaderboard)

		// Life achievements
		r.Get("/api/achievements", h.ListAchievements)
		r.Post("/api/achievements/start", h.StartAchievement)
		r.Post("/api/achievements/complete", h.CompleteAchievement)
		r.Post("/api/achievements/remove", h.RemoveAchievement)

		// Tasks
		r.Get("/api/tasks", h.ListTasks)
		r.Post("/api/tasks/complete", h.CompleteTask)
		r.Post("/api/tasks/sync", h.SyncTasks)
		r.Post("/api/tasks/reset", h.ResetPeriod)
		r.Get("/api/tasks/period", h.PeriodTasks)

		// Map signs and civic actions
		r.Post("/api/signs", h.CreateSign)
		r.Get("/api/signs", h.NearbySigns)
		r.Get("/api/signs/{id}", h.GetSign)
		r.Delete("/api/signs/{id}", h.DeleteSign)
		r.Post("/api/signs/{id}/join", h.JoinSign)
		r.Get("/api/places/nearby", h.NearbyPlaces)

		// Coach
		r.Post("/api/coach", h.Coach)
		r.Put("/api/settings/gemini-key", h.SetGeminiKey)

		// Presence and health
		r.Post("/api/presence", h.Heartbeat)
		r.Get("/api/presence/nearby", h.NearbyPlayers)
		r.Post("/api/health/sync", h.SyncHealth)

		// Realtime game events
		r.Get("/ws/events", h.EventsWebSocket)
	})
}
