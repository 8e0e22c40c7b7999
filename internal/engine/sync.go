package engine

import (
	"time"

	"github.com/AnshRaj112/civicquest-backend/internal/models"
)

// SyncResult describes what SyncTasksWithAchievements did.
type SyncResult struct {
	Changed bool
	// Ready lists in-progress achievements whose tasks are all done and whose
	// minimum-day gate has passed, in CurrentLifeAchievements order.
	Ready []string
}

// SyncTasksWithAchievements mirrors the canonical tasks of every in-progress
// achievement into CurrentTasks and TaskLists, and reports which
// achievements are ready to complete. The profile is only touched when
// something is missing.
func SyncTasksWithAchievements(p *models.UserProfile, now time.Time) SyncResult {
	changed := false

	for _, achID := range p.CurrentLifeAchievements {
		tasks := GenerateTasksForAchievement(achID, p.ID)
		for _, t := range tasks {
			if !contains(p.CurrentTasks, t.ID) {
				p.CurrentTasks = append(p.CurrentTasks, t.ID)
				changed = true
			}
		}
		if len(tasks) > 0 && achievementListIndex(p, achID) < 0 {
			p.TaskLists = append(p.TaskLists, newAchievementList(p, achID, tasks, now))
			changed = true
		}
		if _, ok := p.AchievementStartDates[achID]; !ok {
			if p.AchievementStartDates == nil {
				p.AchievementStartDates = map[string]time.Time{}
			}
			p.AchievementStartDates[achID] = now
			changed = true
		}
	}

	if changed {
		ensureCollections(p)
		p.UpdatedAt = now
	}
	return SyncResult{Changed: changed, Ready: ReadyAchievements(p, now)}
}

// ReadyAchievements returns the in-progress achievements that may complete
// now: known to the catalog, every canonical task in CompletedTasks, and at
// least MinimumDays whole days since the start date.
func ReadyAchievements(p *models.UserProfile, now time.Time) []string {
	var ready []string
	for _, achID := range p.CurrentLifeAchievements {
		if achievementReady(p, achID, now) {
			ready = append(ready, achID)
		}
	}
	return ready
}

func achievementReady(p *models.UserProfile, achID string, now time.Time) bool {
	a, ok := LookupAchievement(achID)
	if !ok {
		return false
	}
	tasks := GenerateTasksForAchievement(achID, p.ID)
	if len(tasks) == 0 {
		return false
	}
	for _, t := range tasks {
		if !contains(p.CompletedTasks, t.ID) {
			return false
		}
	}
	started, ok := p.AchievementStartDates[achID]
	if !ok {
		return false
	}
	return ElapsedDays(started, now) >= a.Difficulty.MinimumDays()
}

// ElapsedDays counts whole 24 hour periods between start and now.
func ElapsedDays(start, now time.Time) int {
	if now.Before(start) {
		return 0
	}
	return int(now.Sub(start) / (24 * time.Hour))
}

func newAchievementList(p *models.UserProfile, achID string, tasks []models.TaskItem, now time.Time) models.TaskList {
	name := achID
	if a, ok := LookupAchievement(achID); ok {
		name = a.Title
	}
	l := models.TaskList{
		ID:            "list-" + achID + "-" + p.ID,
		Name:          name,
		Kind:          models.TaskListAchievement,
		AchievementID: achID,
		Tasks:         markKnownCompletions(p, tasks),
		CreatedAt:     now,
	}
	l.RecomputeProgress()
	return l
}

func newPeriodList(p *models.UserProfile, period string, tasks []models.TaskItem, now time.Time) models.TaskList {
	names := map[string]string{PeriodDaily: "Daily Goals", PeriodWeekly: "Weekly Goals"}
	l := models.TaskList{
		ID:        "list-" + period + "-" + p.ID,
		Name:      names[period],
		Kind:      models.TaskListKind(period),
		Tasks:     markKnownCompletions(p, tasks),
		CreatedAt: now,
	}
	l.RecomputeProgress()
	return l
}

// markKnownCompletions flags tasks that CompletedTasks already records.
func markKnownCompletions(p *models.UserProfile, tasks []models.TaskItem) []models.TaskItem {
	out := make([]models.TaskItem, len(tasks))
	for i, t := range tasks {
		if contains(p.CompletedTasks, t.ID) {
			t.Completed = true
		}
		out[i] = t
	}
	return out
}

func achievementListIndex(p *models.UserProfile, achID string) int {
	for i, l := range p.TaskLists {
		if l.Kind == models.TaskListAchievement && l.AchievementID == achID {
			return i
		}
	}
	return -1
}

func periodListIndex(p *models.UserProfile, period string) int {
	for i, l := range p.TaskLists {
		if string(l.Kind) == period {
			return i
		}
	}
	return -1
}

func ensureCollections(p *models.UserProfile) {
	if p.CurrentLifeAchievements == nil {
		p.CurrentLifeAchievements = []string{}
	}
	if p.CompletedLifeAchievements == nil {
		p.CompletedLifeAchievements = []string{}
	}
	if p.AchievementStartDates == nil {
		p.AchievementStartDates = map[string]time.Time{}
	}
	if p.AchievementCompletedDates == nil {
		p.AchievementCompletedDates = map[string]time.Time{}
	}
	if p.CurrentTasks == nil {
		p.CurrentTasks = []string{}
	}
	if p.CompletedTasks == nil {
		p.CompletedTasks = []string{}
	}
	if p.TaskLists == nil {
		p.TaskLists = []models.TaskList{}
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func without(list []string, drop ...string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if !contains(drop, s) {
			out = append(out, s)
		}
	}
	return out
}

func dedupe(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
