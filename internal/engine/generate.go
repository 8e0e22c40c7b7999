package engine

import (
	"github.com/AnshRaj112/civicquest-backend/internal/models"
)

// TaskID is the canonical task identifier. It depends only on its inputs, so
// regenerating tasks always reproduces the same IDs.
func TaskID(scope, taskType, userID string) string {
	return scope + "-" + taskType + "-" + userID
}

// legacyTaskID is the pre-v1 format, which lacked the user suffix.
func legacyTaskID(scope, taskType string) string {
	return scope + "_" + taskType
}

func itemFromTemplate(t TaskTemplate, scope, achievementID, userID string) models.TaskItem {
	return models.TaskItem{
		ID:            TaskID(scope, t.Type, userID),
		Title:         t.Title,
		Category:      t.Category,
		Difficulty:    string(t.Difficulty),
		AchievementID: achievementID,
		Rewards:       t.Rewards,
		Verification:  t.Verification,
	}
}

// GenerateTasksForAchievement returns the canonical tasks for an achievement.
// Unknown achievements yield an empty list.
func GenerateTasksForAchievement(achievementID, userID string) []models.TaskItem {
	a, ok := LookupAchievement(achievementID)
	if !ok {
		return []models.TaskItem{}
	}
	out := make([]models.TaskItem, 0, len(a.Tasks))
	for _, t := range a.Tasks {
		out = append(out, itemFromTemplate(t, a.ID, a.ID, userID))
	}
	return out
}

// GenerateTasksForPeriod returns the recurring tasks for "daily" or "weekly".
// Unknown periods yield an empty list.
func GenerateTasksForPeriod(period, userID string) []models.TaskItem {
	templates, ok := periodTasks[period]
	if !ok {
		return []models.TaskItem{}
	}
	out := make([]models.TaskItem, 0, len(templates))
	for _, t := range templates {
		out = append(out, itemFromTemplate(t, period, "", userID))
	}
	return out
}

func taskIDs(tasks []models.TaskItem) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}
