package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/AnshRaj112/civicquest-backend/internal/engine"
	"github.com/AnshRaj112/civicquest-backend/internal/models"
)

const (
	statusNotStarted = "not_started"
	statusInProgress = "in_progress"
	statusCompleted  = "completed"
)

type taskView struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Category     string              `json:"category"`
	Difficulty   string              `json:"difficulty"`
	Rewards      models.RewardBundle `json:"rewards"`
	Verification models.Verification `json:"verification"`
	Completed    bool                `json:"completed"`
}

type achievementView struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
	Difficulty  string              `json:"difficulty"`
	MinimumDays int                 `json:"minimumDays"`
	Rewards     models.RewardBundle `json:"rewards"`
	Status      string              `json:"status"`
	Progress    int                 `json:"progress"`
	Ready       bool                `json:"ready"`
	StartedAt   *time.Time          `json:"startedAt,omitempty"`
	CompletedAt *time.Time          `json:"completedAt,omitempty"`
	Tasks       []taskView          `json:"tasks"`
}

type resultView struct {
	AchievementID string              `json:"achievementId,omitempty"`
	TaskID        string              `json:"taskId,omitempty"`
	Rewards       models.RewardBundle `json:"rewards"`
	LevelBefore   int                 `json:"levelBefore"`
	LevelAfter    int                 `json:"levelAfter"`
	LevelUp       bool                `json:"levelUp"`
	Ready         []string            `json:"ready,omitempty"`
}

func viewResult(res engine.Result) resultView {
	return resultView{
		AchievementID: res.AchievementID,
		TaskID:        res.TaskID,
		Rewards:       res.Rewards,
		LevelBefore:   res.LevelBefore,
		LevelAfter:    res.LevelAfter,
		LevelUp:       res.LevelUp,
		Ready:         res.Ready,
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// viewAchievement annotates a catalog entry with the player's status.
func viewAchievement(a engine.Achievement, p *models.UserProfile, ready map[string]bool) achievementView {
	v := achievementView{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Category:    a.Category,
		Difficulty:  string(a.Difficulty),
		MinimumDays: a.Difficulty.MinimumDays(),
		Rewards:     a.Rewards,
		Status:      statusNotStarted,
		Ready:       ready[a.ID],
	}
	switch {
	case containsString(p.CompletedLifeAchievements, a.ID):
		v.Status = statusCompleted
		if t, ok := p.AchievementCompletedDates[a.ID]; ok {
			v.CompletedAt = &t
		}
	case containsString(p.CurrentLifeAchievements, a.ID):
		v.Status = statusInProgress
		if t, ok := p.AchievementStartDates[a.ID]; ok {
			v.StartedAt = &t
		}
	}

	tasks := engine.GenerateTasksForAchievement(a.ID, p.ID)
	done := 0
	v.Tasks = make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		completed := containsString(p.CompletedTasks, t.ID)
		if completed {
			done++
		}
		v.Tasks = append(v.Tasks, taskView{
			ID:           t.ID,
			Title:        t.Title,
			Category:     t.Category,
			Difficulty:   t.Difficulty,
			Rewards:      t.Rewards,
			Verification: t.Verification,
			Completed:    completed,
		})
	}
	if len(tasks) > 0 {
		v.Progress = done * 100 / len(tasks)
	}
	return v
}

// ListAchievements returns the catalog with the caller's status on each
// entry. ?category= and ?status= filter the list.
func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Profile(r.Context(), userIDFrom(r.Context()).String())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	category := strings.ToLower(r.URL.Query().Get("category"))
	status := r.URL.Query().Get("status")

	ready := make(map[string]bool)
	for _, id := range engine.ReadyAchievements(p, h.store.Now()) {
		ready[id] = true
	}

	out := make([]achievementView, 0)
	for _, a := range engine.Catalog() {
		if category != "" && a.Category != category {
			continue
		}
		v := viewAchievement(a, p, ready)
		if status != "" && v.Status != status {
			continue
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, "OK", map[string]interface{}{
		"achievements": out,
		"maxActive":    engine.MaxActiveAchievements,
	})
}

type achievementRequest struct {
	AchievementID string `json:"achievementId"`
}

func (h *Handler) decodeAchievementID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req achievementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return "", false
	}
	id := strings.TrimSpace(req.AchievementID)
	if id == "" {
		writeError(w, http.StatusBadRequest, "achievementId is required")
		return "", false
	}
	return id, true
}

func (h *Handler) StartAchievement(w http.ResponseWriter, r *http.Request) {
	id, ok := h.decodeAchievementID(w, r)
	if !ok {
		return
	}
	p, res, err := h.store.StartLifeAchievement(r.Context(), userIDFrom(r.Context()).String(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Achievement started", map[string]interface{}{
		"profile": p,
		"result":  viewResult(res),
	})
}

// CompleteAchievement answers 409 until the achievement is ready.
func (h *Handler) CompleteAchievement(w http.ResponseWriter, r *http.Request) {
	id, ok := h.decodeAchievementID(w, r)
	if !ok {
		return
	}
	p, res, err := h.store.CompleteReadyAchievement(r.Context(), userIDFrom(r.Context()).String(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Achievement completed", map[string]interface{}{
		"profile": p,
		"result":  viewResult(res),
	})
}

func (h *Handler) RemoveAchievement(w http.ResponseWriter, r *http.Request) {
	id, ok := h.decodeAchievementID(w, r)
	if !ok {
		return
	}
	p, res, err := h.store.RemoveLifeAchievement(r.Context(), userIDFrom(r.Context()).String(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Achievement removed", map[string]interface{}{
		"profile": p,
		"result":  viewResult(res),
	})
}
