package engine

import (
	"github.com/AnshRaj112/civicquest-backend/internal/models"
)

// ExperiencePerLevel is the flat XP width of every level.
const ExperiencePerLevel = 1000

// LevelForExperience returns floor(experience/1000)+1, never less than 1.
func LevelForExperience(experience int) int {
	if experience < 0 {
		return 1
	}
	return experience/ExperiencePerLevel + 1
}

// ApplyRewards adds every present field of b to the avatar and recomputes the
// level. Deltas are not clamped.
func ApplyRewards(a models.Avatar, b models.RewardBundle) models.Avatar {
	if b.Experience != nil {
		a.Experience += *b.Experience
	}
	if b.CivicScore != nil {
		a.CivicScore += *b.CivicScore
	}
	if b.LifeScore != nil {
		a.LifeScore += *b.LifeScore
	}
	if b.HealthScore != nil {
		a.HealthScore += *b.HealthScore
	}
	if b.CareerScore != nil {
		a.CareerScore += *b.CareerScore
	}
	a.Level = LevelForExperience(a.Experience)
	return a
}

// LookupTask resolves a task ID to its canonical descriptor. Generators are
// the source of truth: achievements the user has started or completed are
// checked first, then the periodic lists, and only then stored task lists.
// The first match wins.
func LookupTask(p *models.UserProfile, taskID string) (models.TaskItem, bool) {
	for _, ids := range [][]string{p.CurrentLifeAchievements, p.CompletedLifeAchievements} {
		for _, achID := range ids {
			for _, t := range GenerateTasksForAchievement(achID, p.ID) {
				if t.ID == taskID {
					return t, true
				}
			}
		}
	}
	for _, period := range []string{PeriodDaily, PeriodWeekly} {
		for _, t := range GenerateTasksForPeriod(period, p.ID) {
			if t.ID == taskID {
				return t, true
			}
		}
	}
	for _, l := range p.TaskLists {
		for _, t := range l.Tasks {
			if t.ID == taskID {
				return t, true
			}
		}
	}
	return models.TaskItem{}, false
}

// LookupTaskReward returns the reward bundle for a task ID.
func LookupTaskReward(p *models.UserProfile, taskID string) (models.RewardBundle, bool) {
	t, ok := LookupTask(p, taskID)
	if !ok {
		return models.RewardBundle{}, false
	}
	return t.Rewards, true
}
