package handlers

import (
	"net/http"
	"strings"

	"github.com/AnshRaj112/civicquest-backend/internal/engine"
	"github.com/AnshRaj112/civicquest-backend/internal/models"
	"github.com/AnshRaj112/civicquest-backend/internal/services"
)

type completeTaskRequest struct {
	TaskID string `json:"taskId"`
}

func needsProof(t models.TaskItem) bool {
	return t.Verification == models.VerificationPhoto || t.Verification == models.VerificationSelfie
}

// ListTasks returns the caller's open tasks resolved to full descriptors.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Profile(r.Context(), userIDFrom(r.Context()).String())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	open := engine.OpenTasks(p)
	tasks := make([]models.TaskItem, 0, len(open))
	for _, id := range open {
		if t, ok := engine.LookupTask(p, id); ok {
			tasks = append(tasks, t)
		}
	}
	writeJSON(w, http.StatusOK, "OK", map[string]interface{}{"tasks": tasks})
}

// CompleteTask accepts JSON {"taskId"} or a multipart form with taskId and
// a "photo" file. Photo and selfie tasks only complete with an upload.
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context()).String()

	var (
		taskID string
		isForm = strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
	)
	if isForm {
		if err := r.ParseMultipartForm(services.MaxProofSize + 1<<20); err != nil {
			writeError(w, http.StatusBadRequest, "Failed to parse form")
			return
		}
		taskID = r.FormValue("taskId")
	} else {
		var req completeTaskRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		taskID = req.TaskID
	}
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		writeError(w, http.StatusBadRequest, "taskId is required")
		return
	}

	task, err := h.store.LookupTask(r.Context(), userID, taskID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var proofURL string
	if needsProof(task) {
		if !isForm {
			writeError(w, http.StatusBadRequest, "This task needs a photo")
			return
		}
		if h.proofs == nil {
			writeError(w, http.StatusServiceUnavailable, "Photo verification is not available")
			return
		}
		file, header, err := r.FormFile("photo")
		if err != nil {
			writeError(w, http.StatusBadRequest, "This task needs a photo")
			return
		}
		file.Close()
		proofURL, err = h.proofs.UploadProof(r.Context(), userID, taskID, header)
		if err != nil {
			h.fail(w, r, err)
			return
		}
	}

	p, res, err := h.store.CompleteTask(r.Context(), userID, taskID, proofURL)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Task completed", map[string]interface{}{
		"profile": p,
		"result":  viewResult(res),
	})
}

// SyncTasks reconciles tracked tasks with in-progress achievements.
func (h *Handler) SyncTasks(w http.ResponseWriter, r *http.Request) {
	p, res, err := h.store.Sync(r.Context(), userIDFrom(r.Context()).String())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ready := res.Ready
	if ready == nil {
		ready = []string{}
	}
	writeJSON(w, http.StatusOK, "Tasks synced", map[string]interface{}{
		"profile": p,
		"changed": res.Changed,
		"ready":   ready,
	})
}

func periodParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	period := strings.ToLower(r.URL.Query().Get("period"))
	if !engine.IsPeriod(period) {
		writeError(w, http.StatusBadRequest, "period must be daily or weekly")
		return "", false
	}
	return period, true
}

func (h *Handler) ResetPeriod(w http.ResponseWriter, r *http.Request) {
	period, ok := periodParam(w, r)
	if !ok {
		return
	}
	p, err := h.store.ResetPeriod(r.Context(), userIDFrom(r.Context()).String(), period)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Tasks reset", map[string]interface{}{"profile": p})
}

// PeriodTasks returns the daily or weekly list. A profile without one gets
// the generated list with completion flags from CompletedTasks.
func (h *Handler) PeriodTasks(w http.ResponseWriter, r *http.Request) {
	period, ok := periodParam(w, r)
	if !ok {
		return
	}
	p, err := h.store.Profile(r.Context(), userIDFrom(r.Context()).String())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	for _, l := range p.TaskLists {
		if string(l.Kind) == period {
			writeJSON(w, http.StatusOK, "OK", map[string]interface{}{"taskList": l})
			return
		}
	}

	tasks := engine.GenerateTasksForPeriod(period, p.ID)
	for i := range tasks {
		tasks[i].Completed = containsString(p.CompletedTasks, tasks[i].ID)
	}
	list := models.TaskList{ID: period, Name: period, Kind: models.TaskListKind(period), Tasks: tasks}
	list.RecomputeProgress()
	writeJSON(w, http.StatusOK, "OK", map[string]interface{}{"taskList": list})
}
